package world

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	_ "github.com/annel0/blockverse/internal/world/block/implementations"
	"github.com/annel0/blockverse/internal/world/chunk"
)

func TestGeneratorDeterministic(t *testing.T) {
	ctx := context.Background()
	coords := vec.Vec2{X: 3, Z: -7}

	a := NewGenerator(12345, 62).Generate(ctx, coords)
	b := NewGenerator(12345, 62).Generate(ctx, coords)

	for i := 0; i < chunk.SectionCount; i++ {
		assert.Equal(t, a.Section(i).Blocks(), b.Section(i).Blocks(), "section %d", i)
	}
}

func TestGeneratorColumnLayout(t *testing.T) {
	g := NewGenerator(7, 62)
	c := g.Generate(context.Background(), vec.Vec2{X: 0, Z: 0})

	for x := 0; x < chunk.ChunkWidth; x++ {
		for z := 0; z < chunk.ChunkWidth; z++ {
			assert.Equal(t, block.BedrockBlockID, c.GetBlock(vec.Vec3{X: x, Y: chunk.MinY, Z: z}))

			surface := g.SurfaceHeight(x, z)
			top := c.GetBlock(vec.Vec3{X: x, Y: surface, Z: z})
			assert.Contains(t, []block.BlockID{block.GrassBlockID, block.SandBlockID, block.OakLogBlockID}, top)

			for y := surface + 1; y <= g.SeaLevel; y++ {
				assert.Equal(t, block.WaterBlockID, c.GetBlock(vec.Vec3{X: x, Y: y, Z: z}))
			}
			assert.GreaterOrEqual(t, c.Heightmap(chunk.WorldSurfaceWG).GetHeight(x, z), max(surface, g.SeaLevel))
		}
	}
}

func TestGeneratorHeightmapsConsistent(t *testing.T) {
	c := NewGenerator(99, 62).Generate(context.Background(), vec.Vec2{X: -2, Z: 5})

	ws := c.Heightmap(chunk.WorldSurfaceWG).Heights()
	mb := c.Heightmap(chunk.MotionBlocking).Heights()
	c.RecalculateHeightmaps()

	assert.Equal(t, ws, c.Heightmap(chunk.WorldSurfaceWG).Heights())
	assert.Equal(t, mb, c.Heightmap(chunk.MotionBlocking).Heights())
}

func TestGeneratorPlacesGlowstone(t *testing.T) {
	c := NewGenerator(1, 62).Generate(context.Background(), vec.Vec2{})

	found := 0
	for i := 0; i < chunk.SectionCount; i++ {
		for _, id := range c.Section(i).Blocks() {
			if id == block.GlowstoneBlockID {
				found++
			}
		}
	}
	require.Greater(t, found, 0)
}
