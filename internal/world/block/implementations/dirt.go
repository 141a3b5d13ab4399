package implementations

import "github.com/annel0/blockverse/internal/world/block"

// DirtBehavior земля и песок, непрозрачны
type DirtBehavior struct {
	simpleBehavior
}

func newDirt(id block.BlockID, name string) *DirtBehavior {
	return &DirtBehavior{simpleBehavior{id: id, name: name}}
}
