// Package light реализует распространение освещенности внутри чанка:
// начальное заполнение небесного света и волновое распространение от точки.
//
// Движок работает только с одним чанком и не пересекает его границы.
// Свет, который должен уйти в соседний чанк, отбрасывается.
package light

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/chunk"
)

// Stats счетчики работы движка для тестов и метрик
type Stats struct {
	Tasks   int // Извлечено задач из рабочего списка
	Writes  int // Фактических записей уровня освещенности
	Skipped int // Задач, отброшенных проверкой монотонности
}

// Add суммирует счетчики
func (s Stats) Add(o Stats) Stats {
	return Stats{Tasks: s.Tasks + o.Tasks, Writes: s.Writes + o.Writes, Skipped: s.Skipped + o.Skipped}
}

type task struct {
	pos     vec.Vec3
	level   int
	initial bool
}

// Engine хранит переиспользуемый рабочий список задач.
// Экземпляр не потокобезопасен; доступ к чанку сериализует вызывающий.
type Engine struct {
	stack []task
	stats Stats
}

// NewEngine создает движок освещения
func NewEngine() *Engine {
	return &Engine{stack: make([]task, 0, 256)}
}

// Stats возвращает накопленные счетчики
func (e *Engine) Stats() Stats {
	return e.stats
}

// ResetStats обнуляет счетчики
func (e *Engine) ResetStats() {
	e.stats = Stats{}
}

// InitialFillSkyLight выполняет начальное заполнение небесного света.
// Блоки и обе карты высот чанка должны быть заполнены; вызывается один раз на чанк.
func (e *Engine) InitialFillSkyLight(c *chunk.Chunk) {
	if c == nil {
		return
	}

	surface := c.Heightmap(chunk.WorldSurfaceWG)

	// Прямое освещение колонок
	for x := 0; x < chunk.ChunkWidth; x++ {
		for z := 0; z < chunk.ChunkWidth; z++ {
			e.fillColumn(c, x, z, surface.GetHeight(x, z))
		}
	}

	// Распространение от поверхности
	for x := 0; x < chunk.ChunkWidth; x++ {
		for z := 0; z < chunk.ChunkWidth; z++ {
			pos := vec.Vec3{X: x, Y: surface.GetHeight(x, z), Z: z}
			level := c.GetLightLevel(pos.Add(vec.Up), chunk.Sky)
			e.SpreadLight(pos, chunk.Sky, level, c, true)
		}
	}

	c.MarkLit()
}

// fillColumn спускается от потолка мира до поверхности, ослабляя свет
// на каждом рассеивающем блоке и обрывая его на непрозрачном.
func (e *Engine) fillColumn(c *chunk.Chunk, x, z, surfaceY int) {
	level := chunk.MaxLightLevel
	diffusion := 0

	for y := chunk.MaxY; y >= surfaceY; y-- {
		sec := c.SectionAt(y)
		if sec.IsEmpty() {
			// Пустая секция прозрачна целиком: уровень внутри нее не меняется
			eff := max(0, level-diffusion)
			bottom := max(y&^0xF, surfaceY)
			for ; y >= bottom; y-- {
				e.write(c, vec.Vec3{X: x, Y: y, Z: z}, chunk.Sky, eff)
			}
			y++
			continue
		}

		id := c.GetBlock(vec.Vec3{X: x, Y: y, Z: z})
		if block.IsSemitransparent(id) || block.IsLiquid(id) {
			diffusion++
		} else if !block.IsTransparent(id) {
			level = 0
		}

		eff := max(0, level-diffusion)
		e.write(c, vec.Vec3{X: x, Y: y, Z: z}, chunk.Sky, eff)
		if eff == 0 {
			return
		}
	}
}

// SpreadLight записывает уровень в позицию и распространяет его по чанку.
// При initial=true запись и проверка в исходной позиции пропускаются.
// Отсутствующий чанк (nil) означает пустую операцию.
func (e *Engine) SpreadLight(pos vec.Vec3, ch chunk.LightChannel, level int, c *chunk.Chunk, initial bool) {
	if c == nil {
		return
	}

	e.stack = append(e.stack[:0], task{pos: c.Local(pos), level: level, initial: initial})
	for len(e.stack) > 0 {
		t := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]
		e.stats.Tasks++
		e.process(c, ch, t)
	}
}

func (e *Engine) process(c *chunk.Chunk, ch chunk.LightChannel, t task) {
	pos, level := t.pos, t.level

	if !t.initial {
		if c.GetLightLevel(pos, ch) >= level {
			e.stats.Skipped++
			return
		}
		c.SetLightLevel(pos, ch, level)
		e.stats.Writes++
	}

	// Подъем без потерь вдоль твердых стен
	for y := pos.Y + 1; y <= chunk.MaxY; y++ {
		if c.SectionAt(y).IsEmpty() {
			break
		}
		up := vec.Vec3{X: pos.X, Y: y, Z: pos.Z}
		if hasSolidNeighbour(c, up) {
			e.raise(c, up, ch, level)
		}
	}

	level--
	if level <= 0 {
		return
	}

	hm := c.Heightmap(chunk.MotionBlocking)
	for _, dir := range vec.CardinalDirs {
		if crossesEdge(pos, dir) {
			continue
		}
		n := pos.Add(dir)
		highY := hm.GetHeight(n.X, n.Z) + 1

		// Вверх по соседней колонке, пока над источником прозрачно
		for y := pos.Y + 1; y < highY; y++ {
			if !block.IsTransparent(c.GetBlock(vec.Vec3{X: pos.X, Y: y, Z: pos.Z})) {
				break
			}
			scan := vec.Vec3{X: n.X, Y: y, Z: n.Z}
			if !block.IsTransparent(c.GetBlock(scan)) {
				continue
			}
			e.raise(c, scan, ch, level)
			below := scan.Add(vec.Down)
			if !block.IsTransparent(c.GetBlock(below)) {
				e.push(below, level)
			}
		}

		// Вниз по соседней колонке; нужен проем над соседом
		if !block.IsTransparent(c.GetBlock(n.Add(vec.Up))) {
			continue
		}
		for y := pos.Y; y >= chunk.MinY; y-- {
			scan := vec.Vec3{X: n.X, Y: y, Z: n.Z}
			if !block.IsTransparent(c.GetBlock(scan)) {
				e.push(scan, level)
				break
			}
			e.raise(c, scan, ch, level)
		}
	}
}

func (e *Engine) push(pos vec.Vec3, level int) {
	e.stack = append(e.stack, task{pos: pos, level: level})
}

// raise записывает уровень, только если он выше сохраненного
func (e *Engine) raise(c *chunk.Chunk, pos vec.Vec3, ch chunk.LightChannel, level int) {
	if c.GetLightLevel(pos, ch) < level {
		c.SetLightLevel(pos, ch, level)
		e.stats.Writes++
	}
}

func (e *Engine) write(c *chunk.Chunk, pos vec.Vec3, ch chunk.LightChannel, level int) {
	c.SetLightLevel(pos, ch, level)
	e.stats.Writes++
}

// crossesEdge сообщает, что шаг в направлении dir выводит за пределы чанка
func crossesEdge(pos, dir vec.Vec3) bool {
	return pos.X == 0 && dir == vec.West ||
		pos.X == chunk.ChunkWidth-1 && dir == vec.East ||
		pos.Z == 0 && dir == vec.North ||
		pos.Z == chunk.ChunkWidth-1 && dir == vec.South
}

func hasSolidNeighbour(c *chunk.Chunk, pos vec.Vec3) bool {
	for _, dir := range vec.CardinalDirs {
		if crossesEdge(pos, dir) {
			continue
		}
		id := c.GetBlock(pos.Add(dir))
		if !block.IsTransparent(id) && !block.IsAir(id) {
			return true
		}
	}
	return false
}

// SeedBlockLight распространяет блочный свет от всех светящихся блоков чанка
func (e *Engine) SeedBlockLight(c *chunk.Chunk) {
	if c == nil {
		return
	}
	for i := 0; i < chunk.SectionCount; i++ {
		sec := c.Section(i)
		if sec.IsEmpty() {
			continue
		}
		baseY := chunk.MinY + i*chunk.SectionHeight
		for y := 0; y < chunk.SectionHeight; y++ {
			for z := 0; z < chunk.ChunkWidth; z++ {
				for x := 0; x < chunk.ChunkWidth; x++ {
					if em := block.Emission(sec.Block(x, y, z)); em > 0 {
						e.SpreadLight(vec.Vec3{X: x, Y: baseY + y, Z: z}, chunk.Block, int(em), c, false)
					}
				}
			}
		}
	}
}

// InitialFillSkyLight выполняет начальное заполнение одноразовым движком
func InitialFillSkyLight(c *chunk.Chunk) {
	NewEngine().InitialFillSkyLight(c)
}

// SpreadLight распространяет свет одноразовым движком
func SpreadLight(pos vec.Vec3, ch chunk.LightChannel, level int, c *chunk.Chunk, initial bool) {
	NewEngine().SpreadLight(pos, ch, level, c, initial)
}

func SeedBlockLight(c *chunk.Chunk) {
	NewEngine().SeedBlockLight(c)
}
