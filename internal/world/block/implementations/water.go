package implementations

import "github.com/annel0/blockverse/internal/world/block"

// WaterBehavior реализует поведение блока воды.
// Вода не прозрачна для распространения, но при прямом освещении лишь рассеивает свет.
type WaterBehavior struct {
	simpleBehavior
}

func newWater() *WaterBehavior {
	return &WaterBehavior{simpleBehavior{
		id:   block.WaterBlockID,
		name: "water",
		tags: block.TagLiquid,
	}}
}
