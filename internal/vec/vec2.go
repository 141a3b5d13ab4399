package vec

import "fmt"

// Vec2 представляет координаты колонки-чанка в плоскости XZ
type Vec2 struct {
	X, Z int
}

// Origin возвращает мировую позицию угла чанка (минимальные X и Z) на высоте y
func (v Vec2) Origin(y int) Vec3 {
	return Vec3{X: v.X << 4, Y: y, Z: v.Z << 4}
}

// Key возвращает строковый ключ чанка для хранилищ и кешей
func (v Vec2) Key() string {
	return fmt.Sprintf("%d:%d", v.X, v.Z)
}

// DistanceSq возвращает квадрат расстояния до другого чанка
func (v Vec2) DistanceSq(other Vec2) int {
	dx := v.X - other.X
	dz := v.Z - other.Z
	return dx*dx + dz*dz
}
