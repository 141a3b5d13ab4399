package chunk

import (
	"fmt"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Геометрия мира
const (
	ChunkWidth    = 16
	SectionHeight = 16
	SectionVolume = ChunkWidth * SectionHeight * ChunkWidth

	MinY         = -64
	MaxY         = 319
	WorldHeight  = MaxY - MinY + 1
	SectionCount = WorldHeight / SectionHeight

	MaxLightLevel = 15
)

// LightChannel независимая сетка освещенности чанка
type LightChannel uint8

const (
	Sky LightChannel = iota
	Block
)

// String возвращает имя канала
func (c LightChannel) String() string {
	switch c {
	case Sky:
		return "sky"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("LightChannel(%d)", uint8(c))
	}
}

// Chunk представляет колонку мира 16x16 от MinY до MaxY, разбитую на секции.
// Чанк не синхронизирован: владелец (WorldManager) сериализует доступ к нему.
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире

	sections   [SectionCount]Section
	heightmaps [heightmapKinds]Heightmap
	lit        bool
}

// New создаёт пустой (полностью воздушный) чанк с указанными координатами
func New(coords vec.Vec2) *Chunk {
	c := &Chunk{Coords: coords}
	for k := HeightmapKind(0); k < heightmapKinds; k++ {
		c.heightmaps[k] = newHeightmap(k)
	}
	return c
}

// InWorld проверяет, что Y лежит в вертикальных границах мира
func InWorld(y int) bool {
	return y >= MinY && y <= MaxY
}

// SectionIndex возвращает индекс секции для высоты y
func SectionIndex(y int) int {
	return (y >> 4) - (MinY >> 4)
}

// local приводит позицию к локальным координатам. Принимаются как локальные (0..15),
// так и абсолютные координаты внутри этого чанка; остальное считается ошибкой вызывающего.
func (c *Chunk) local(x, z int) (int, int) {
	if x >= 0 && x < ChunkWidth && z >= 0 && z < ChunkWidth {
		return x, z
	}
	ox, oz := c.Coords.X<<4, c.Coords.Z<<4
	if x >= ox && x < ox+ChunkWidth && z >= oz && z < oz+ChunkWidth {
		return x - ox, z - oz
	}
	panic(fmt.Sprintf("chunk %v: position (%d,%d) outside of chunk footprint", c.Coords, x, z))
}

// Local возвращает позицию в локальных координатах чанка
func (c *Chunk) Local(pos vec.Vec3) vec.Vec3 {
	x, z := c.local(pos.X, pos.Z)
	return vec.Vec3{X: x, Y: pos.Y, Z: z}
}

// World возвращает мировую позицию для локальной позиции чанка
func (c *Chunk) World(pos vec.Vec3) vec.Vec3 {
	x, z := c.local(pos.X, pos.Z)
	return vec.Vec3{X: c.Coords.X<<4 + x, Y: pos.Y, Z: c.Coords.Z<<4 + z}
}

// SectionAt возвращает секцию, содержащую высоту y, или nil за пределами мира
func (c *Chunk) SectionAt(y int) *Section {
	if !InWorld(y) {
		return nil
	}
	return &c.sections[SectionIndex(y)]
}

// Section возвращает секцию по индексу 0..SectionCount-1
func (c *Chunk) Section(i int) *Section {
	return &c.sections[i]
}

// GetBlock возвращает блок в позиции. За вертикальными границами мира возвращается воздух.
func (c *Chunk) GetBlock(pos vec.Vec3) block.BlockID {
	x, z := c.local(pos.X, pos.Z)
	if !InWorld(pos.Y) {
		return block.AirBlockID
	}
	return c.sections[SectionIndex(pos.Y)].Block(x, pos.Y&0xF, z)
}

// SetBlock записывает блок, обновляет карты высот и возвращает прежний блок
func (c *Chunk) SetBlock(pos vec.Vec3, id block.BlockID) block.BlockID {
	x, z := c.local(pos.X, pos.Z)
	if !InWorld(pos.Y) {
		panic(fmt.Sprintf("chunk %v: SetBlock y=%d outside of world", c.Coords, pos.Y))
	}

	old := c.sections[SectionIndex(pos.Y)].setBlock(x, pos.Y&0xF, z, id)
	if old != id {
		c.updateHeightmaps(x, pos.Y, z, id)
	}
	return old
}

// GetLightLevel возвращает уровень освещенности канала.
// Выше мира небо светит на 15, ниже мира и блочный свет вне мира равны 0.
func (c *Chunk) GetLightLevel(pos vec.Vec3, ch LightChannel) int {
	x, z := c.local(pos.X, pos.Z)
	if !InWorld(pos.Y) {
		if ch == Sky && pos.Y > MaxY {
			return MaxLightLevel
		}
		return 0
	}
	return int(c.sections[SectionIndex(pos.Y)].Light(ch).Get(x, pos.Y&0xF, z))
}

// SetLightLevel безусловно записывает уровень освещенности.
// Проверки монотонности выполняет движок освещения, не чанк.
func (c *Chunk) SetLightLevel(pos vec.Vec3, ch LightChannel, level int) {
	x, z := c.local(pos.X, pos.Z)
	if !InWorld(pos.Y) {
		panic(fmt.Sprintf("chunk %v: SetLightLevel y=%d outside of world", c.Coords, pos.Y))
	}
	if level < 0 || level > MaxLightLevel {
		panic(fmt.Sprintf("chunk %v: light level %d out of range", c.Coords, level))
	}
	c.sections[SectionIndex(pos.Y)].Light(ch).Set(x, pos.Y&0xF, z, uint8(level))
}

// ClearLight обнуляет канал освещенности во всех секциях
func (c *Chunk) ClearLight(ch LightChannel) {
	for i := range c.sections {
		c.sections[i].Light(ch).Fill(0)
	}
}

// Heightmap возвращает карту высот указанного типа
func (c *Chunk) Heightmap(kind HeightmapKind) *Heightmap {
	return &c.heightmaps[kind]
}

// Lit сообщает, выполнено ли начальное заполнение небесного света
func (c *Chunk) Lit() bool {
	return c.lit
}

// MarkLit помечает чанк как освещенный
func (c *Chunk) MarkLit() {
	c.lit = true
}

// RecalculateHeightmaps полностью пересчитывает обе карты высот
func (c *Chunk) RecalculateHeightmaps() {
	for x := 0; x < ChunkWidth; x++ {
		for z := 0; z < ChunkWidth; z++ {
			for k := HeightmapKind(0); k < heightmapKinds; k++ {
				c.heightmaps[k].set(x, z, c.scanDown(k, x, z, MaxY))
			}
		}
	}
}

// updateHeightmaps поддерживает карты высот после записи одного блока
func (c *Chunk) updateHeightmaps(x, y, z int, id block.BlockID) {
	for k := HeightmapKind(0); k < heightmapKinds; k++ {
		hm := &c.heightmaps[k]
		h := hm.GetHeight(x, z)
		switch {
		case k.matches(id) && y > h:
			hm.set(x, z, y)
		case !k.matches(id) && y == h:
			hm.set(x, z, c.scanDown(k, x, z, y-1))
		}
	}
}

// scanDown ищет сверху вниз первый блок, удовлетворяющий предикату карты высот
func (c *Chunk) scanDown(kind HeightmapKind, x, z, from int) int {
	for y := from; y >= MinY; y-- {
		sec := &c.sections[SectionIndex(y)]
		if sec.IsEmpty() {
			// Пропускаем секцию целиком: переходим на верх секции ниже
			y = y &^ 0xF
			continue
		}
		if kind.matches(sec.Block(x, y&0xF, z)) {
			return y
		}
	}
	return MinY
}
