package implementations

import "github.com/annel0/blockverse/internal/world/block"

// LightSourceBehavior блоки с собственным свечением (канал Block)
type LightSourceBehavior struct {
	simpleBehavior
}

// Факел прозрачен, как растительность
func newTorch() *LightSourceBehavior {
	return &LightSourceBehavior{simpleBehavior{
		id:       block.TorchBlockID,
		name:     "torch",
		tags:     block.TagTransparent,
		emission: 14,
	}}
}

func newGlowstone() *LightSourceBehavior {
	return &LightSourceBehavior{simpleBehavior{
		id:       block.GlowstoneBlockID,
		name:     "glowstone",
		emission: 15,
	}}
}
