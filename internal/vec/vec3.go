package vec

// Vec3 представляет трехмерную позицию блока с целочисленными координатами.
// Y вертикальная ось.
type Vec3 struct {
	X int
	Y int
	Z int
}

// Единичные направления. North/South идут вдоль Z, West/East вдоль X.
var (
	Up    = Vec3{X: 0, Y: 1, Z: 0}
	Down  = Vec3{X: 0, Y: -1, Z: 0}
	North = Vec3{X: 0, Y: 0, Z: -1}
	South = Vec3{X: 0, Y: 0, Z: 1}
	West  = Vec3{X: -1, Y: 0, Z: 0}
	East  = Vec3{X: 1, Y: 0, Z: 0}
)

// CardinalDirs четыре горизонтальных направления в порядке обхода движка освещения.
var CardinalDirs = [4]Vec3{North, South, West, East}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Offset возвращает позицию, сдвинутую на dx, dy, dz
func (v Vec3) Offset(dx, dy, dz int) Vec3 {
	return Vec3{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// ChunkCoords возвращает координаты чанка, содержащего позицию
func (v Vec3) ChunkCoords() Vec2 {
	return Vec2{X: v.X >> 4, Z: v.Z >> 4} // Деление на 16
}

// LocalInChunk возвращает позицию с X/Z, приведенными к 0..15. Y не меняется.
func (v Vec3) LocalInChunk() Vec3 {
	return Vec3{X: v.X & 0xF, Y: v.Y, Z: v.Z & 0xF}
}

// ManhattanTo возвращает манхэттенское расстояние до другой позиции
func (v Vec3) ManhattanTo(other Vec3) int {
	return abs(v.X-other.X) + abs(v.Y-other.Y) + abs(v.Z-other.Z)
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
