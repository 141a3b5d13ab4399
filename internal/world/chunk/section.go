package chunk

import "github.com/annel0/blockverse/internal/world/block"

// Section горизонтальный слой чанка высотой 16 блоков.
// Секция пуста, если в ней нет ни одного блока кроме воздуха. Пустая секция
// гарантированно полностью прозрачна и не рассеивает свет, поэтому движок
// освещения пропускает ее целиком.
type Section struct {
	blocks     [SectionVolume]block.BlockID
	nonAir     int
	skyLight   NibbleArray
	blockLight NibbleArray
}

func blockIndex(x, y, z int) int {
	return y<<8 | z<<4 | x
}

// IsEmpty сообщает, что секция не содержит геометрии
func (s *Section) IsEmpty() bool {
	return s.nonAir == 0
}

// NonAirCount возвращает количество блоков, отличных от воздуха
func (s *Section) NonAirCount() int {
	return s.nonAir
}

// Block возвращает блок по локальным координатам секции
func (s *Section) Block(x, y, z int) block.BlockID {
	return s.blocks[blockIndex(x, y, z)]
}

// setBlock записывает блок и поддерживает счетчик не-воздуха
func (s *Section) setBlock(x, y, z int, id block.BlockID) block.BlockID {
	idx := blockIndex(x, y, z)
	old := s.blocks[idx]
	if old == id {
		return old
	}
	if !block.IsAir(old) {
		s.nonAir--
	}
	if !block.IsAir(id) {
		s.nonAir++
	}
	s.blocks[idx] = id
	return old
}

// Light возвращает массив освещенности указанного канала
func (s *Section) Light(ch LightChannel) *NibbleArray {
	if ch == Sky {
		return &s.skyLight
	}
	return &s.blockLight
}

// Blocks возвращает копию идентификаторов блоков секции (порядок y, z, x)
func (s *Section) Blocks() []block.BlockID {
	out := make([]block.BlockID, SectionVolume)
	copy(out, s.blocks[:])
	return out
}
