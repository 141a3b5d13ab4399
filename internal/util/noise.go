package util

import (
	"github.com/aquilax/go-perlin"
)

// Noise генератор шума Перлина с нормализацией в диапазон 0..1
type Noise struct {
	p     *perlin.Perlin
	scale float64
}

// NewNoise создает генератор шума с указанным сидом и масштабом координат
func NewNoise(seed int64, scale float64) *Noise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Noise{p: perlin.NewPerlin(alpha, beta, n, seed), scale: scale}
}

// At2D возвращает значение шума для мировых координат (от 0 до 1)
func (n *Noise) At2D(x, z int) float64 {
	v := n.p.Noise2D(float64(x)*n.scale, float64(z)*n.scale)

	// Преобразуем из -1..1 в 0..1 и обрезаем выбросы октав
	v = (v + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
