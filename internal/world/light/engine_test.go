package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	_ "github.com/annel0/blockverse/internal/world/block/implementations"
	"github.com/annel0/blockverse/internal/world/chunk"
)

// flatChunk создает чанк с каменным полом на y=0
func flatChunk(coords vec.Vec2) *chunk.Chunk {
	c := chunk.New(coords)
	for x := 0; x < chunk.ChunkWidth; x++ {
		for z := 0; z < chunk.ChunkWidth; z++ {
			c.SetBlock(vec.Vec3{X: x, Y: 0, Z: z}, block.StoneBlockID)
		}
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func snapshot(c *chunk.Chunk, ch chunk.LightChannel) []int {
	out := make([]int, 0, chunk.ChunkWidth*chunk.ChunkWidth*chunk.WorldHeight)
	for y := chunk.MinY; y <= chunk.MaxY; y++ {
		for z := 0; z < chunk.ChunkWidth; z++ {
			for x := 0; x < chunk.ChunkWidth; x++ {
				out = append(out, c.GetLightLevel(vec.Vec3{X: x, Y: y, Z: z}, ch))
			}
		}
	}
	return out
}

func TestDirectLightThroughTransparentColumn(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	c.SetBlock(vec.Vec3{X: 3, Y: 5, Z: 3}, block.GlassBlockID)
	require.Equal(t, 5, c.Heightmap(chunk.WorldSurfaceWG).GetHeight(3, 3))

	InitialFillSkyLight(c)

	for y := 5; y <= chunk.MaxY; y++ {
		assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 3, Y: y, Z: 3}, chunk.Sky), "y=%d", y)
	}
	for y := 1; y <= chunk.MaxY; y++ {
		assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 10, Y: y, Z: 10}, chunk.Sky), "y=%d", y)
	}
	assert.True(t, c.Lit())
}

func TestDiffusionDecrement(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	c.SetBlock(vec.Vec3{X: 4, Y: 20, Z: 4}, block.OakLeavesBlockID)
	c.SetBlock(vec.Vec3{X: 4, Y: 10, Z: 4}, block.GlassBlockID)

	e := NewEngine()
	// Сканируем колонку до пола, минуя карту высот
	e.fillColumn(c, 4, 4, 0)

	for y := 21; y <= chunk.MaxY; y++ {
		assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 4, Y: y, Z: 4}, chunk.Sky), "y=%d", y)
	}
	for y := 1; y <= 20; y++ {
		assert.Equal(t, 14, c.GetLightLevel(vec.Vec3{X: 4, Y: y, Z: 4}, chunk.Sky), "y=%d", y)
	}
	assert.Equal(t, 0, c.GetLightLevel(vec.Vec3{X: 4, Y: 0, Z: 4}, chunk.Sky))
}

func TestDiffusionUnderLeavesAfterFullFill(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	c.SetBlock(vec.Vec3{X: 4, Y: 20, Z: 4}, block.OakLeavesBlockID)

	InitialFillSkyLight(c)

	assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 4, Y: 21, Z: 4}, chunk.Sky))
	assert.Equal(t, 14, c.GetLightLevel(vec.Vec3{X: 4, Y: 20, Z: 4}, chunk.Sky))
	for y := 1; y < 20; y++ {
		assert.Equal(t, 14, c.GetLightLevel(vec.Vec3{X: 4, Y: y, Z: 4}, chunk.Sky), "y=%d", y)
	}
}

func TestOpaqueStop(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	c.SetBlock(vec.Vec3{X: 6, Y: 30, Z: 6}, block.StoneBlockID)

	e := NewEngine()
	e.fillColumn(c, 6, 6, 0)

	assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 6, Y: 31, Z: 6}, chunk.Sky))
	for y := 0; y <= 30; y++ {
		assert.Equal(t, 0, c.GetLightLevel(vec.Vec3{X: 6, Y: y, Z: 6}, chunk.Sky), "y=%d", y)
	}
}

func TestHorizontalDecay(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	origin := vec.Vec3{X: 8, Y: 0, Z: 8}
	const level = 10

	SpreadLight(origin, chunk.Block, level, c, false)

	for x := 0; x < chunk.ChunkWidth; x++ {
		for z := 0; z < chunk.ChunkWidth; z++ {
			d := abs(x-origin.X) + abs(z-origin.Z)
			want := 0
			if d < level {
				want = level - d
			}
			assert.Equal(t, want, c.GetLightLevel(vec.Vec3{X: x, Y: 0, Z: z}, chunk.Block), "x=%d z=%d", x, z)
		}
	}
}

func TestMonotonicMerge(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	pos := vec.Vec3{X: 8, Y: 0, Z: 8}

	SpreadLight(pos, chunk.Block, 10, c, false)
	before := snapshot(c, chunk.Block)

	e := NewEngine()
	e.SpreadLight(pos, chunk.Block, 5, c, false)
	e.SpreadLight(pos, chunk.Block, 10, c, false)

	assert.Equal(t, before, snapshot(c, chunk.Block))
	assert.Equal(t, 0, e.Stats().Writes)
	assert.Equal(t, 2, e.Stats().Skipped)

	// Более яркий источник только повышает значения
	e.SpreadLight(pos, chunk.Block, 12, c, false)
	after := snapshot(c, chunk.Block)
	for i := range before {
		require.GreaterOrEqual(t, after[i], before[i])
	}
	assert.Equal(t, 12, c.GetLightLevel(pos, chunk.Block))
}

func TestChunkEdgeContainment(t *testing.T) {
	c := flatChunk(vec.Vec2{X: 3, Z: -2})
	corner := c.World(vec.Vec3{X: 0, Y: 0, Z: 0})

	assert.NotPanics(t, func() {
		SpreadLight(corner, chunk.Block, 15, c, false)
		SpreadLight(c.World(vec.Vec3{X: 15, Y: 0, Z: 15}), chunk.Block, 15, c, false)
	})

	assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 0, Y: 0, Z: 0}, chunk.Block))
	assert.Equal(t, 14, c.GetLightLevel(vec.Vec3{X: 1, Y: 0, Z: 0}, chunk.Block))
	assert.Equal(t, 14, c.GetLightLevel(vec.Vec3{X: 0, Y: 0, Z: 1}, chunk.Block))
	assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 15, Y: 0, Z: 15}, chunk.Block))
}

func TestAbsentChunkIsNoop(t *testing.T) {
	e := NewEngine()
	assert.NotPanics(t, func() {
		e.SpreadLight(vec.Vec3{X: 1, Y: 2, Z: 3}, chunk.Sky, 15, nil, false)
		e.InitialFillSkyLight(nil)
		e.SeedBlockLight(nil)
	})
	assert.Equal(t, Stats{}, e.Stats())
}

func TestTerminationOnRoughTerrain(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	// Шахматные столбы разной высоты дают много углов и проемов
	for x := 0; x < chunk.ChunkWidth; x++ {
		for z := 0; z < chunk.ChunkWidth; z++ {
			if (x+z)%2 == 0 {
				for y := 1; y <= (x*z)%12; y++ {
					c.SetBlock(vec.Vec3{X: x, Y: y, Z: z}, block.StoneBlockID)
				}
			}
		}
	}

	e := NewEngine()
	e.InitialFillSkyLight(c)
	for x := 0; x < chunk.ChunkWidth; x += 3 {
		e.SpreadLight(vec.Vec3{X: x, Y: 13, Z: x}, chunk.Block, 15, c, false)
	}

	cells := chunk.ChunkWidth * chunk.ChunkWidth * chunk.WorldHeight
	stats := e.Stats()
	// Каждая успешная задача строго повышает уровень одной ячейки
	assert.LessOrEqual(t, stats.Tasks-stats.Skipped, 2*15*cells)
	assert.Greater(t, stats.Tasks, 0)

	for _, ch := range []chunk.LightChannel{chunk.Sky, chunk.Block} {
		for _, v := range snapshot(c, ch) {
			require.True(t, v >= 0 && v <= 15)
		}
	}
}

func TestTerminationOnOpenChunk(t *testing.T) {
	// Пустой чанк без опор: худший случай для обхода
	c := chunk.New(vec.Vec2{})
	e := NewEngine()
	for _, y := range []int{chunk.MinY, -1, 0, 64, 200, chunk.MaxY} {
		e.SpreadLight(vec.Vec3{X: 8, Y: y, Z: 8}, chunk.Sky, 15, c, false)
		e.SpreadLight(vec.Vec3{X: 0, Y: y, Z: 15}, chunk.Block, 15, c, false)
	}

	cells := chunk.ChunkWidth * chunk.ChunkWidth * chunk.WorldHeight
	stats := e.Stats()
	assert.Greater(t, stats.Tasks, 0)
	assert.LessOrEqual(t, stats.Tasks-stats.Skipped, 2*15*cells)
	assert.LessOrEqual(t, stats.Writes, 2*15*cells)

	for _, ch := range []chunk.LightChannel{chunk.Sky, chunk.Block} {
		for _, v := range snapshot(c, ch) {
			require.True(t, v >= 0 && v <= 15)
		}
	}
	assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 8, Y: 64, Z: 8}, chunk.Sky))
	assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 0, Y: chunk.MaxY, Z: 15}, chunk.Block))
}

// addShaft строит шахту глубиной 3 в (11, 1..3, 8), окруженную камнем
func addShaft(c *chunk.Chunk) {
	for x := 10; x <= 12; x++ {
		for z := 7; z <= 9; z++ {
			if x == 11 && z == 8 {
				continue
			}
			for y := 1; y <= 3; y++ {
				c.SetBlock(vec.Vec3{X: x, Y: y, Z: z}, block.StoneBlockID)
			}
		}
	}
}

// Без прямой заливки дно шахты получает свет через стену: 15-2
func TestShaftLitFromTopWithoutFill(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	addShaft(c)

	SpreadLight(vec.Vec3{X: 11, Y: 3, Z: 8}, chunk.Sky, 15, c, false)

	assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 11, Y: 3, Z: 8}, chunk.Sky))
	assert.Equal(t, 13, c.GetLightLevel(vec.Vec3{X: 11, Y: 2, Z: 8}, chunk.Sky))
	assert.Equal(t, 13, c.GetLightLevel(vec.Vec3{X: 11, Y: 1, Z: 8}, chunk.Sky))
}

func TestShaftAndCoveredArea(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	addShaft(c)
	// Крыша над полосой x=0..5: под ней слой воздуха y=1
	for x := 0; x <= 5; x++ {
		for z := 0; z < chunk.ChunkWidth; z++ {
			c.SetBlock(vec.Vec3{X: x, Y: 2, Z: z}, block.StoneBlockID)
		}
	}

	InitialFillSkyLight(c)

	for y := 1; y <= 3; y++ {
		assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 11, Y: y, Z: 8}, chunk.Sky), "shaft y=%d", y)
	}

	// Под крышу свет заходит только сбоку и теряет уровень на каждом шаге
	for x := 0; x <= 5; x++ {
		d := 6 - x
		assert.Equal(t, 15-d, c.GetLightLevel(vec.Vec3{X: x, Y: 1, Z: 4}, chunk.Sky), "x=%d", x)
	}

	// Подъем без потерь вдоль стен шахты
	SpreadLight(vec.Vec3{X: 11, Y: 1, Z: 8}, chunk.Block, 15, c, false)
	for y := 1; y <= 3; y++ {
		assert.Equal(t, 15, c.GetLightLevel(vec.Vec3{X: 11, Y: y, Z: 8}, chunk.Block), "y=%d", y)
	}
	assert.Equal(t, 0, c.GetLightLevel(vec.Vec3{X: 11, Y: 4, Z: 8}, chunk.Block))
	assert.Equal(t, 0, c.GetLightLevel(vec.Vec3{X: 13, Y: 1, Z: 8}, chunk.Block))
}

func TestSeedBlockLight(t *testing.T) {
	c := flatChunk(vec.Vec2{})
	c.SetBlock(vec.Vec3{X: 3, Y: 1, Z: 3}, block.TorchBlockID)

	NewEngine().SeedBlockLight(c)

	assert.Equal(t, 14, c.GetLightLevel(vec.Vec3{X: 3, Y: 1, Z: 3}, chunk.Block))
	assert.Equal(t, 13, c.GetLightLevel(vec.Vec3{X: 4, Y: 1, Z: 3}, chunk.Block))
	assert.Equal(t, 13, c.GetLightLevel(vec.Vec3{X: 4, Y: 0, Z: 3}, chunk.Block))
	assert.Equal(t, 0, c.GetLightLevel(vec.Vec3{X: 3, Y: 1, Z: 3}, chunk.Sky))
}
