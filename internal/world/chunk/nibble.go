package chunk

import "fmt"

// NibbleArray хранит 4096 значений по 4 бита: по одному на блок секции 16x16x16
type NibbleArray [2048]uint8

func nibbleIndex(x, y, z int) (int, bool) {
	return y<<7 | z<<3 | x>>1, x&1 == 1
}

// Get возвращает значение для локальных координат секции
func (n *NibbleArray) Get(x, y, z int) uint8 {
	idx, high := nibbleIndex(x, y, z)
	if high {
		return n[idx] >> 4
	}
	return n[idx] & 0xF
}

// Set записывает значение 0..15 для локальных координат секции
func (n *NibbleArray) Set(x, y, z int, value uint8) {
	if value > 0xF {
		panic(fmt.Sprintf("illegal nibble value %d", value))
	}
	idx, high := nibbleIndex(x, y, z)
	if high {
		n[idx] = n[idx]&0x0F | value<<4
	} else {
		n[idx] = n[idx]&0xF0 | value
	}
}

// Fill заполняет массив одним значением
func (n *NibbleArray) Fill(value uint8) {
	b := value&0xF | value<<4
	for i := range n {
		n[i] = b
	}
}
