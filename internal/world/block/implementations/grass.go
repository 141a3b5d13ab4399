package implementations

import "github.com/annel0/blockverse/internal/world/block"

// GrassBehavior блок травы (непрозрачный) или высокая трава (прозрачная растительность)
type GrassBehavior struct {
	simpleBehavior
}

func newGrassBlock() *GrassBehavior {
	return &GrassBehavior{simpleBehavior{id: block.GrassBlockID, name: "grass"}}
}

// Высокая трава не блокирует ни свет, ни движение
func newTallGrass() *GrassBehavior {
	return &GrassBehavior{simpleBehavior{
		id:   block.TallGrassBlockID,
		name: "tall_grass",
		tags: block.TagTransparent,
	}}
}
