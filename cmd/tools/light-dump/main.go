package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/chunk"
	"github.com/annel0/blockverse/internal/world/light"
)

// Отладочная утилита: генерирует чанк и печатает срез освещенности.
func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML-конфигурации")
		seed       = flag.Int64("seed", 0, "сид мира (0 = из конфигурации)")
		cx         = flag.Int("cx", 0, "координата X чанка")
		cz         = flag.Int("cz", 0, "координата Z чанка")
		sliceZ     = flag.Int("z", 8, "локальная Z среза (0..15)")
		channel    = flag.String("channel", "sky", "канал: sky или block")
		from       = flag.Int("from", 40, "нижняя высота среза")
		to         = flag.Int("to", 100, "верхняя высота среза")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	ch := chunk.Sky
	switch *channel {
	case "sky":
	case "block":
		ch = chunk.Block
	default:
		log.Fatalf("Неизвестный канал %q", *channel)
	}
	if *sliceZ < 0 || *sliceZ >= chunk.ChunkWidth {
		log.Fatalf("z=%d вне чанка", *sliceZ)
	}
	lo, hi := clampY(*from), clampY(*to)
	if lo > hi {
		lo, hi = hi, lo
	}

	worldSeed := cfg.World.Seed
	if *seed != 0 {
		worldSeed = *seed
	}
	gen := world.NewGenerator(worldSeed, cfg.World.SeaLevel)

	start := time.Now()
	c := gen.Generate(context.Background(), vec.Vec2{X: *cx, Z: *cz})
	engine := light.NewEngine()
	engine.InitialFillSkyLight(c)
	engine.SeedBlockLight(c)
	c.MarkLit()
	stats := engine.Stats()

	fmt.Printf("Чанк (%d,%d), сид %d, канал %s, срез z=%d, y %d..%d\n",
		*cx, *cz, worldSeed, ch, *sliceZ, lo, hi)
	fmt.Printf("Освещение: %v, задач %d, записей %d\n\n",
		time.Since(start).Round(time.Microsecond), stats.Tasks, stats.Writes)

	dumpSlice(os.Stdout, c, ch, *sliceZ, lo, hi)
}

func clampY(y int) int {
	if y < chunk.MinY {
		return chunk.MinY
	}
	if y > chunk.MaxY {
		return chunk.MaxY
	}
	return y
}

// dumpSlice печатает срез XY: уровень света в hex, '#' для блоков, '~' для жидкостей
func dumpSlice(out io.Writer, c *chunk.Chunk, ch chunk.LightChannel, z, lo, hi int) {
	var b strings.Builder
	for y := hi; y >= lo; y-- {
		fmt.Fprintf(&b, "%4d ", y)
		for x := 0; x < chunk.ChunkWidth; x++ {
			pos := vec.Vec3{X: x, Y: y, Z: z}
			id := c.GetBlock(pos)
			switch {
			case block.IsLiquid(id):
				b.WriteByte('~')
			case !block.IsTransparent(id):
				b.WriteByte('#')
			default:
				fmt.Fprintf(&b, "%x", c.GetLightLevel(pos, ch))
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("     ")
	for x := 0; x < chunk.ChunkWidth; x++ {
		fmt.Fprintf(&b, "%x", x)
	}
	b.WriteByte('\n')
	fmt.Fprint(out, b.String())
}
