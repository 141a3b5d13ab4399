package chunk

import (
	"fmt"

	"github.com/annel0/blockverse/internal/world/block"
)

// HeightmapKind определяет предикат, по которому считается высота колонки
type HeightmapKind uint8

const (
	// WorldSurfaceWG верхний не-воздушный блок на момент генерации
	WorldSurfaceWG HeightmapKind = iota
	// MotionBlocking верхний блок, блокирующий движение (твердый или жидкость)
	MotionBlocking

	heightmapKinds
)

// String возвращает имя типа карты высот
func (k HeightmapKind) String() string {
	switch k {
	case WorldSurfaceWG:
		return "WORLD_SURFACE_WG"
	case MotionBlocking:
		return "MOTION_BLOCKING"
	default:
		return fmt.Sprintf("HeightmapKind(%d)", uint8(k))
	}
}

func (k HeightmapKind) matches(id block.BlockID) bool {
	if k == WorldSurfaceWG {
		return !block.IsAir(id)
	}
	return block.IsMotionBlocking(id)
}

// Heightmap хранит верхнюю подходящую Y для каждой колонки (x, z) чанка.
// Колонка без подходящих блоков имеет высоту MinY.
type Heightmap struct {
	kind    HeightmapKind
	heights [ChunkWidth * ChunkWidth]int16
}

func newHeightmap(kind HeightmapKind) Heightmap {
	hm := Heightmap{kind: kind}
	for i := range hm.heights {
		hm.heights[i] = MinY
	}
	return hm
}

// Kind возвращает тип карты высот
func (h *Heightmap) Kind() HeightmapKind {
	return h.kind
}

// GetHeight возвращает высоту колонки. x, z: локальные координаты 0..15;
// вызов с другими значениями является ошибкой программы.
func (h *Heightmap) GetHeight(x, z int) int {
	if x < 0 || x >= ChunkWidth || z < 0 || z >= ChunkWidth {
		panic(fmt.Sprintf("heightmap %s: column (%d,%d) out of range", h.kind, x, z))
	}
	return int(h.heights[z<<4|x])
}

func (h *Heightmap) set(x, z, y int) {
	h.heights[z<<4|x] = int16(y)
}

// Heights возвращает копию всех 256 значений (индекс z*16+x)
func (h *Heightmap) Heights() []int {
	out := make([]int, len(h.heights))
	for i, v := range h.heights {
		out[i] = int(v)
	}
	return out
}
