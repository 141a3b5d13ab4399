package implementations

import "github.com/annel0/blockverse/internal/world/block"

// AirBehavior реализует поведение пустого блока (воздуха)
type AirBehavior struct {
	simpleBehavior
}

// NewAirBehavior создает воздух. Воздух пещер отличается только ID.
func NewAirBehavior(id block.BlockID, name string) *AirBehavior {
	return &AirBehavior{simpleBehavior{
		id:   id,
		name: name,
		tags: block.TagAir | block.TagTransparent,
	}}
}
