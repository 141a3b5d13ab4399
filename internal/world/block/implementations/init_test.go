package implementations

import (
	"testing"

	"github.com/annel0/blockverse/internal/world/block"
	"github.com/stretchr/testify/assert"
)

func TestRegisteredClassification(t *testing.T) {
	tests := []struct {
		id              block.BlockID
		air             bool
		liquid          bool
		transparent     bool
		semitransparent bool
		motionBlocking  bool
	}{
		{block.AirBlockID, true, false, true, false, false},
		{block.CaveAirBlockID, true, false, true, false, false},
		{block.StoneBlockID, false, false, false, false, true},
		{block.WaterBlockID, false, true, false, false, true},
		{block.GlassBlockID, false, false, true, false, false},
		{block.OakLeavesBlockID, false, false, false, true, true},
		{block.IceBlockID, false, false, false, true, true},
		{block.TallGrassBlockID, false, false, true, false, false},
		{block.TorchBlockID, false, false, true, false, false},
	}

	for _, tt := range tests {
		name := block.Name(tt.id)
		assert.Equal(t, tt.air, block.IsAir(tt.id), "air: %s", name)
		assert.Equal(t, tt.liquid, block.IsLiquid(tt.id), "liquid: %s", name)
		assert.Equal(t, tt.transparent, block.IsTransparent(tt.id), "transparent: %s", name)
		assert.Equal(t, tt.semitransparent, block.IsSemitransparent(tt.id), "semitransparent: %s", name)
		assert.Equal(t, tt.motionBlocking, block.IsMotionBlocking(tt.id), "motion blocking: %s", name)
	}
}

func TestEmission(t *testing.T) {
	assert.Equal(t, uint8(14), block.Emission(block.TorchBlockID))
	assert.Equal(t, uint8(15), block.Emission(block.GlowstoneBlockID))
	assert.Equal(t, uint8(0), block.Emission(block.StoneBlockID))
}

func TestByName(t *testing.T) {
	id, ok := block.ByName("Oak_Leaves")
	assert.True(t, ok)
	assert.Equal(t, block.OakLeavesBlockID, id)

	_, ok = block.ByName("diamond_block")
	assert.False(t, ok)
}
