package world

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/chunk"
	"github.com/annel0/blockverse/internal/world/light"
)

// SetBlock изменяет блок, дополняет освещение и уведомляет подписчиков.
// Освещение только повышается: затемнение после установки блока не пересчитывается.
func (wm *WorldManager) SetBlock(ctx context.Context, pos vec.Vec3, id block.BlockID, source string) (BlockChange, error) {
	if !chunk.InWorld(pos.Y) {
		return BlockChange{}, fmt.Errorf("%w: y=%d", ErrOutOfWorld, pos.Y)
	}
	if !block.IsValidBlockID(id) {
		return BlockChange{}, fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}

	change := BlockChange{Pos: pos, New: id, Source: source}
	var stats light.Stats
	var elapsed time.Duration

	err := wm.WithChunk(pos.ChunkCoords(), func(c *chunk.Chunk) error {
		change.Old = c.SetBlock(pos, id)
		if change.Old == id {
			return nil
		}
		start := time.Now()
		stats = wm.relight(c, c.Local(pos), id)
		elapsed = time.Since(start)
		return nil
	})
	if err != nil {
		return BlockChange{}, err
	}
	if change.Old == change.New {
		return change, nil
	}

	kind := "place"
	if block.IsAir(id) {
		kind = "remove"
	}
	wm.metrics.BlockEdits.WithLabelValues(kind).Inc()
	wm.metrics.SpreadDuration.Observe(elapsed.Seconds())
	wm.recordLightStats(stats)

	wm.lightLog.Trace("%s: %s -> %s at %v (%d light tasks)", source, block.Name(change.Old), block.Name(id), pos, stats.Tasks)

	wm.invalidate(ctx, pos.ChunkCoords())
	wm.publish(ctx, eventbus.TypeBlockChange, change)

	wm.listenerMu.RLock()
	l := wm.listener
	wm.listenerMu.RUnlock()
	if l != nil {
		l.OnBlockChange(change)
	}
	return change, nil
}

// relight засевает распространение света в измененной позиции (локальные координаты).
// Открытая ячейка получает небесный свет 15 на поверхности или от соседей с потерей 1,
// а также блочный свет от соседей. Светящийся блок распространяет свое излучение.
func (wm *WorldManager) relight(c *chunk.Chunk, pos vec.Vec3, placed block.BlockID) light.Stats {
	e := wm.engine()
	defer wm.engines.Put(e)

	if block.IsTransparent(placed) {
		sky := skyBase(c, pos)
		if sky > 0 {
			e.SpreadLight(pos, chunk.Sky, sky, c, false)
		}
		if sky == chunk.MaxLightLevel {
			relightColumnBelow(e, c, pos)
		}
		if bl := neighbourMax(c, pos, chunk.Block) - 1; bl > 0 {
			e.SpreadLight(pos, chunk.Block, bl, c, false)
		}
	}
	if em := int(block.Emission(placed)); em > 0 {
		e.SpreadLight(pos, chunk.Block, em, c, false)
	}
	return e.Stats()
}

// relightColumnBelow продолжает прямой небесный свет вниз через открывшийся проем
// и засевает распространение от первого непрозрачного блока, как при начальном заполнении.
func relightColumnBelow(e *light.Engine, c *chunk.Chunk, pos vec.Vec3) {
	for y := pos.Y - 1; y >= chunk.MinY; y-- {
		p := vec.Vec3{X: pos.X, Y: y, Z: pos.Z}
		if !block.IsTransparent(c.GetBlock(p)) {
			e.SpreadLight(p, chunk.Sky, chunk.MaxLightLevel, c, true)
			return
		}
		e.SpreadLight(p, chunk.Sky, chunk.MaxLightLevel, c, false)
	}
}

// skyBase начальный небесный уровень для открытой ячейки
func skyBase(c *chunk.Chunk, pos vec.Vec3) int {
	if pos.Y >= c.Heightmap(chunk.WorldSurfaceWG).GetHeight(pos.X, pos.Z) {
		return chunk.MaxLightLevel
	}
	return neighbourMax(c, pos, chunk.Sky) - 1
}

var neighbourDirs = [6]vec.Vec3{vec.Up, vec.Down, vec.North, vec.South, vec.West, vec.East}

// neighbourMax возвращает максимальный уровень среди соседей внутри чанка
func neighbourMax(c *chunk.Chunk, pos vec.Vec3, ch chunk.LightChannel) int {
	best := 0
	for _, dir := range neighbourDirs {
		n := pos.Add(dir)
		if n.X < 0 || n.X >= chunk.ChunkWidth || n.Z < 0 || n.Z >= chunk.ChunkWidth {
			continue
		}
		best = max(best, c.GetLightLevel(n, ch))
	}
	return best
}
