package world

import (
	"context"
	"math/rand"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/blockverse/internal/util"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/chunk"

	// Регистрация поведения блоков
	_ "github.com/annel0/blockverse/internal/world/block/implementations"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeOcean
)

// Константы генерации ландшафта
const (
	BaseHeight      = 40 // Минимальная высота поверхности
	HeightAmplitude = 56 // Размах высот поверхности
	DirtDepth       = 3  // Толщина слоя земли под поверхностью
	BeachMargin     = 2  // Высота пляжа над уровнем моря
	veinsPerChunk   = 3
)

// Generator генерирует колонки мира из шума Перлина
type Generator struct {
	Seed          int64   // Сид для генерации шума
	SeaLevel      int     // Уровень моря
	ForestDensity float64 // Шанс дерева на колонку леса

	height *util.Noise
	biome  *util.Noise
	tracer trace.Tracer
}

// NewGenerator создаёт генератор мира
func NewGenerator(seed int64, seaLevel int) *Generator {
	return &Generator{
		Seed:          seed,
		SeaLevel:      seaLevel,
		ForestDensity: 0.04,
		height:        util.NewNoise(seed, 0.01),
		biome:         util.NewNoise(seed+42, 0.004),
		tracer:        otel.Tracer("blockverse/world"),
	}
}

// SurfaceHeight возвращает высоту поверхности колонки в мировых координатах
func (g *Generator) SurfaceHeight(x, z int) int {
	return BaseHeight + int(g.height.At2D(x, z)*HeightAmplitude)
}

// Biome определяет биом колонки
func (g *Generator) Biome(x, z int) BiomeType {
	h := g.SurfaceHeight(x, z)
	if h < g.SeaLevel {
		return BiomeOcean
	}
	b := g.biome.At2D(x, z)
	switch {
	case b < 0.35:
		return BiomeDesert
	case b > 0.6:
		return BiomeForest
	default:
		return BiomePlains
	}
}

// Generate строит чанк: блоки и карты высот. Освещение не заполняется.
func (g *Generator) Generate(ctx context.Context, coords vec.Vec2) *chunk.Chunk {
	_, span := g.tracer.Start(ctx, "world.Generate",
		trace.WithAttributes(attribute.Int("chunk.x", coords.X), attribute.Int("chunk.z", coords.Z)))
	defer span.End()

	c := chunk.New(coords)

	// Детерминированный генератор на чанк: сид мира плюс координаты
	rng := rand.New(rand.NewSource(g.Seed ^ (int64(coords.X)*341873128712 + int64(coords.Z)*132897987541)))

	origin := coords.Origin(0)
	for x := 0; x < chunk.ChunkWidth; x++ {
		for z := 0; z < chunk.ChunkWidth; z++ {
			wx, wz := origin.X+x, origin.Z+z
			g.fillColumn(c, x, z, g.SurfaceHeight(wx, wz), g.Biome(wx, wz))
		}
	}

	g.placeVeins(c, rng)
	trees := g.placeTrees(c, coords, rng)

	span.SetAttributes(attribute.Int("chunk.trees", trees))
	return c
}

func (g *Generator) fillColumn(c *chunk.Chunk, x, z, surface int, biome BiomeType) {
	c.SetBlock(vec.Vec3{X: x, Y: chunk.MinY, Z: z}, block.BedrockBlockID)
	for y := chunk.MinY + 1; y <= surface-DirtDepth-1; y++ {
		c.SetBlock(vec.Vec3{X: x, Y: y, Z: z}, block.StoneBlockID)
	}

	top, filler := block.GrassBlockID, block.DirtBlockID
	switch {
	case biome == BiomeDesert || biome == BiomeOcean:
		top, filler = block.SandBlockID, block.SandBlockID
	case surface <= g.SeaLevel+BeachMargin:
		top = block.SandBlockID
	}
	for y := surface - DirtDepth; y < surface; y++ {
		c.SetBlock(vec.Vec3{X: x, Y: y, Z: z}, filler)
	}
	c.SetBlock(vec.Vec3{X: x, Y: surface, Z: z}, top)

	for y := surface + 1; y <= g.SeaLevel; y++ {
		c.SetBlock(vec.Vec3{X: x, Y: y, Z: z}, block.WaterBlockID)
	}
}

// placeVeins вырезает небольшие пещеры со светящимся камнем
func (g *Generator) placeVeins(c *chunk.Chunk, rng *rand.Rand) {
	for i := 0; i < veinsPerChunk; i++ {
		x := 1 + rng.Intn(chunk.ChunkWidth-2)
		z := 1 + rng.Intn(chunk.ChunkWidth-2)
		y := chunk.MinY + 8 + rng.Intn(BaseHeight-chunk.MinY-16)

		// Полость 3x2x3 с пещерным воздухом, светящийся блок на потолке
		for dx := -1; dx <= 1; dx++ {
			for dz := -1; dz <= 1; dz++ {
				for dy := 0; dy < 2; dy++ {
					c.SetBlock(vec.Vec3{X: x + dx, Y: y + dy, Z: z + dz}, block.CaveAirBlockID)
				}
			}
		}
		c.SetBlock(vec.Vec3{X: x, Y: y + 2, Z: z}, block.GlowstoneBlockID)
	}
}

// placeTrees сажает дубы на траве. Крона целиком помещается в чанк.
func (g *Generator) placeTrees(c *chunk.Chunk, coords vec.Vec2, rng *rand.Rand) int {
	surface := c.Heightmap(chunk.WorldSurfaceWG)
	origin := coords.Origin(0)
	planted := 0

	for x := 2; x < chunk.ChunkWidth-2; x++ {
		for z := 2; z < chunk.ChunkWidth-2; z++ {
			y := surface.GetHeight(x, z)
			if c.GetBlock(vec.Vec3{X: x, Y: y, Z: z}) != block.GrassBlockID {
				continue
			}

			chance := g.ForestDensity / 4
			if g.Biome(origin.X+x, origin.Z+z) == BiomeForest {
				chance = g.ForestDensity
			}
			if rng.Float64() >= chance {
				if rng.Float64() < 0.1 {
					c.SetBlock(vec.Vec3{X: x, Y: y + 1, Z: z}, block.TallGrassBlockID)
				}
				continue
			}

			g.placeTree(c, vec.Vec3{X: x, Y: y + 1, Z: z}, 4+rng.Intn(2))
			planted++
			z += 2 // Не сажаем деревья вплотную
		}
	}
	return planted
}

func (g *Generator) placeTree(c *chunk.Chunk, base vec.Vec3, height int) {
	top := base.Y + height - 1
	for y := top - 2; y <= top+1; y++ {
		r := 2
		if y > top-1 {
			r = 1
		}
		for dx := -r; dx <= r; dx++ {
			for dz := -r; dz <= r; dz++ {
				pos := vec.Vec3{X: base.X + dx, Y: y, Z: base.Z + dz}
				if block.IsAir(c.GetBlock(pos)) {
					c.SetBlock(pos, block.OakLeavesBlockID)
				}
			}
		}
	}
	for y := base.Y; y <= top; y++ {
		c.SetBlock(vec.Vec3{X: base.X, Y: y, Z: base.Z}, block.OakLogBlockID)
	}
}
