package implementations

import "github.com/annel0/blockverse/internal/world/block"

// StoneBehavior реализует поведение твердых непрозрачных блоков: камень, булыжник, бедрок
type StoneBehavior struct {
	simpleBehavior
}

func newSolid(id block.BlockID, name string) *StoneBehavior {
	return &StoneBehavior{simpleBehavior{id: id, name: name}}
}
