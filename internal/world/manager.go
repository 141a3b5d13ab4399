package world

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/blockverse/internal/cache"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/chunk"
	"github.com/annel0/blockverse/internal/world/light"
)

// Ошибки мира
var (
	ErrChunkNotLoaded = errors.New("chunk not loaded")
	ErrOutOfWorld     = errors.New("position outside of world")
	ErrUnknownBlock   = errors.New("unknown block id")
)

// ChunkInvalidator удаляет устаревшие закодированные чанки из кеша
type ChunkInvalidator interface {
	Delete(ctx context.Context, key string) error
}

// Options зависимости и параметры WorldManager
type Options struct {
	Seed     int64
	SeaLevel int
	Bus      eventbus.EventBus // nil: события не публикуются
	Cache    ChunkInvalidator  // nil: без кеша
	Metrics  *Metrics          // nil: метрики без регистрации
}

// chunkHandle единственная точка доступа к чанку.
// Все чтения и записи чанка выполняются под mu.
type chunkHandle struct {
	once   sync.Once
	loaded atomic.Bool
	mu     sync.Mutex
	chunk  *chunk.Chunk
}

// WorldManager владеет всеми загруженными чанками и сериализует доступ к каждому из них
type WorldManager struct {
	mu     sync.RWMutex
	chunks map[vec.Vec2]*chunkHandle

	generator *Generator
	bus       eventbus.EventBus
	cache     ChunkInvalidator
	metrics   *Metrics
	engines   sync.Pool
	logger    *logging.Logger
	lightLog  *logging.Logger

	listenerMu sync.RWMutex
	listener   BlockChangeListener
}

// NewWorldManager создаёт менеджер мира
func NewWorldManager(opts Options) *WorldManager {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &WorldManager{
		chunks:    make(map[vec.Vec2]*chunkHandle),
		generator: NewGenerator(opts.Seed, opts.SeaLevel),
		bus:       opts.Bus,
		cache:     opts.Cache,
		metrics:   metrics,
		engines:   sync.Pool{New: func() any { return light.NewEngine() }},
		logger:    logging.GetWorldLogger(),
		lightLog:  logging.GetLightLogger(),
	}
}

// Generator возвращает генератор мира
func (wm *WorldManager) Generator() *Generator {
	return wm.generator
}

// SetBlockChangeListener регистрирует слушателя изменений блоков
func (wm *WorldManager) SetBlockChangeListener(l BlockChangeListener) {
	wm.listenerMu.Lock()
	wm.listener = l
	wm.listenerMu.Unlock()
}

func (wm *WorldManager) handle(coords vec.Vec2, create bool) *chunkHandle {
	wm.mu.RLock()
	h := wm.chunks[coords]
	wm.mu.RUnlock()
	if h != nil || !create {
		return h
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()
	if h = wm.chunks[coords]; h == nil {
		h = &chunkHandle{}
		wm.chunks[coords] = h
	}
	return h
}

func (wm *WorldManager) engine() *light.Engine {
	e := wm.engines.Get().(*light.Engine)
	e.ResetStats()
	return e
}

// LoadChunk генерирует и освещает чанк, если он еще не загружен.
// Начальное освещение выполняется ровно один раз на чанк.
// Отмененный ctx не мешает вернуть nil для уже загруженного чанка.
func (wm *WorldManager) LoadChunk(ctx context.Context, coords vec.Vec2) error {
	if err := ctx.Err(); err != nil && !wm.IsLoaded(coords) {
		return err
	}
	h := wm.handle(coords, true)
	h.once.Do(func() {
		c := wm.generator.Generate(ctx, coords)

		e := wm.engine()
		start := time.Now()
		e.InitialFillSkyLight(c)
		e.SeedBlockLight(c)
		wm.metrics.FillDuration.Observe(time.Since(start).Seconds())
		stats := e.Stats()
		wm.engines.Put(e)
		wm.recordLightStats(stats)

		h.mu.Lock()
		h.chunk = c
		h.mu.Unlock()
		h.loaded.Store(true)

		wm.metrics.ChunksGenerated.Inc()
		wm.metrics.ResidentChunks.Inc()
		wm.lightLog.Debug("Чанк %s загружен: %d задач освещения, %d записей", coords.Key(), stats.Tasks, stats.Writes)
		wm.publish(ctx, eventbus.TypeChunkLoaded, ChunkLoaded{Coords: coords, LightTasks: stats.Tasks})
	})
	return nil
}

// Preload загружает квадрат чанков радиуса radius вокруг center параллельно
func (wm *WorldManager) Preload(ctx context.Context, center vec.Vec2, radius int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for x := center.X - radius; x <= center.X+radius; x++ {
		for z := center.Z - radius; z <= center.Z+radius; z++ {
			coords := vec.Vec2{X: x, Z: z}
			g.Go(func() error {
				return wm.LoadChunk(gctx, coords)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("preload: %w", err)
	}
	wm.logger.Info("Предзагружено %d чанков вокруг %s", (2*radius+1)*(2*radius+1), center.Key())
	return nil
}

// IsLoaded сообщает, загружен ли чанк
func (wm *WorldManager) IsLoaded(coords vec.Vec2) bool {
	h := wm.handle(coords, false)
	return h != nil && h.loaded.Load()
}

// GetChunk возвращает загруженный чанк. Чтение и запись через полученный указатель
// допустимы только внутри WithChunk; вне его указатель годится лишь как признак загрузки.
func (wm *WorldManager) GetChunk(coords vec.Vec2) (*chunk.Chunk, error) {
	h := wm.handle(coords, false)
	if h == nil || !h.loaded.Load() {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotLoaded, coords.Key())
	}
	return h.chunk, nil
}

// WithChunk выполняет fn с эксклюзивным доступом к чанку
func (wm *WorldManager) WithChunk(coords vec.Vec2, fn func(c *chunk.Chunk) error) error {
	h := wm.handle(coords, false)
	if h == nil || !h.loaded.Load() {
		return fmt.Errorf("%w: %s", ErrChunkNotLoaded, coords.Key())
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.chunk)
}

// ResidentChunks возвращает координаты загруженных чанков в порядке (X, Z)
func (wm *WorldManager) ResidentChunks() []vec.Vec2 {
	wm.mu.RLock()
	out := make([]vec.Vec2, 0, len(wm.chunks))
	for coords, h := range wm.chunks {
		if h.loaded.Load() {
			out = append(out, coords)
		}
	}
	wm.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Z < out[j].Z
	})
	return out
}

// GetBlock возвращает блок в мировой позиции
func (wm *WorldManager) GetBlock(pos vec.Vec3) (block.BlockID, error) {
	if !chunk.InWorld(pos.Y) {
		return block.AirBlockID, ErrOutOfWorld
	}
	var id block.BlockID
	err := wm.WithChunk(pos.ChunkCoords(), func(c *chunk.Chunk) error {
		id = c.GetBlock(pos)
		return nil
	})
	return id, err
}

// LightAt возвращает уровень освещенности канала в мировой позиции
func (wm *WorldManager) LightAt(pos vec.Vec3, ch chunk.LightChannel) (int, error) {
	var level int
	err := wm.WithChunk(pos.ChunkCoords(), func(c *chunk.Chunk) error {
		level = c.GetLightLevel(pos, ch)
		return nil
	})
	return level, err
}

// ColumnCell состояние одной ячейки колонки
type ColumnCell struct {
	Y          int    `json:"y"`
	Block      string `json:"block"`
	SkyLight   int    `json:"sky"`
	BlockLight int    `json:"block_light"`
}

// Column возвращает ячейки колонки (lx, lz) чанка от fromY до toY включительно
func (wm *WorldManager) Column(coords vec.Vec2, lx, lz, fromY, toY int) ([]ColumnCell, error) {
	if lx < 0 || lx >= chunk.ChunkWidth || lz < 0 || lz >= chunk.ChunkWidth {
		return nil, fmt.Errorf("%w: column %d,%d", ErrOutOfWorld, lx, lz)
	}
	fromY, toY = max(fromY, chunk.MinY), min(toY, chunk.MaxY)

	var cells []ColumnCell
	err := wm.WithChunk(coords, func(c *chunk.Chunk) error {
		cells = make([]ColumnCell, 0, max(0, toY-fromY+1))
		for y := toY; y >= fromY; y-- {
			pos := vec.Vec3{X: lx, Y: y, Z: lz}
			cells = append(cells, ColumnCell{
				Y:          y,
				Block:      block.Name(c.GetBlock(pos)),
				SkyLight:   c.GetLightLevel(pos, chunk.Sky),
				BlockLight: c.GetLightLevel(pos, chunk.Block),
			})
		}
		return nil
	})
	return cells, err
}

// publish отправляет событие в шину; ошибки шины не прерывают работу мира
func (wm *WorldManager) publish(ctx context.Context, eventType string, payload any) {
	if wm.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope("world", eventType, payload)
	if err == nil {
		err = wm.bus.Publish(ctx, ev)
	}
	if err != nil {
		wm.logger.Warn("Не удалось опубликовать %s: %v", eventType, err)
	}
}

func (wm *WorldManager) invalidate(ctx context.Context, coords vec.Vec2) {
	if wm.cache == nil {
		return
	}
	if err := wm.cache.Delete(ctx, cache.ChunkKey(coords)); err != nil {
		wm.logger.Warn("Не удалось инвалидировать кеш чанка %s: %v", coords.Key(), err)
	}
}

func (wm *WorldManager) recordLightStats(s light.Stats) {
	wm.metrics.LightTasks.WithLabelValues("written").Add(float64(s.Tasks - s.Skipped))
	wm.metrics.LightTasks.WithLabelValues("skipped").Add(float64(s.Skipped))
}
