package implementations

import "github.com/annel0/blockverse/internal/world/block"

// GlassBehavior прозрачные и полупрозрачные твердые материалы
type GlassBehavior struct {
	simpleBehavior
}

func newGlass() *GlassBehavior {
	return &GlassBehavior{simpleBehavior{
		id:   block.GlassBlockID,
		name: "glass",
		tags: block.TagTransparent,
	}}
}

func newIce() *GlassBehavior {
	return &GlassBehavior{simpleBehavior{
		id:   block.IceBlockID,
		name: "ice",
		tags: block.TagSemitransparent,
	}}
}
