package physics

import (
	"github.com/annel0/blockverse/internal/vec"
)

// BoxCollider прямоугольный коллайдер в блоках. Позиция коллайдера - блок под ногами
// по центру основания: X/Z по центру, Y снизу.
type BoxCollider struct {
	Width  int // Ширина по X и Z в блоках
	Height int // Высота в блоках
}

// PlayerCollider коллайдер игрока: один блок в ширину, два в высоту
var PlayerCollider = BoxCollider{Width: 1, Height: 2}

// NewBoxCollider создаёт новый коллайдер с указанными размерами
func NewBoxCollider(width, height int) BoxCollider {
	return BoxCollider{Width: max(width, 1), Height: max(height, 1)}
}

// Cells возвращает блоки, занятые коллайдером с основанием в feet
func (bc BoxCollider) Cells(feet vec.Vec3) []vec.Vec3 {
	half := bc.Width / 2
	cells := make([]vec.Vec3, 0, bc.Width*bc.Width*bc.Height)
	for dy := 0; dy < bc.Height; dy++ {
		for dx := -half; dx < bc.Width-half; dx++ {
			for dz := -half; dz < bc.Width-half; dz++ {
				cells = append(cells, feet.Offset(dx, dy, dz))
			}
		}
	}
	return cells
}

// Occupies проверяет, занимает ли коллайдер блок pos
func (bc BoxCollider) Occupies(feet, pos vec.Vec3) bool {
	half := bc.Width / 2
	return pos.X >= feet.X-half && pos.X < feet.X-half+bc.Width &&
		pos.Z >= feet.Z-half && pos.Z < feet.Z-half+bc.Width &&
		pos.Y >= feet.Y && pos.Y < feet.Y+bc.Height
}

// CheckBoxCollision проверяет пересечение двух коллайдеров
func CheckBoxCollision(feet1 vec.Vec3, c1 BoxCollider, feet2 vec.Vec3, c2 BoxCollider) bool {
	minX1, minZ1 := feet1.X-c1.Width/2, feet1.Z-c1.Width/2
	minX2, minZ2 := feet2.X-c2.Width/2, feet2.Z-c2.Width/2
	return minX1 < minX2+c2.Width && minX2 < minX1+c1.Width &&
		minZ1 < minZ2+c2.Width && minZ2 < minZ1+c1.Width &&
		feet1.Y < feet2.Y+c2.Height && feet2.Y < feet1.Y+c1.Height
}

// CanStandAt проверяет, что все блоки коллайдера проходимы.
// passable сообщает, можно ли находиться в блоке.
func CanStandAt(feet vec.Vec3, collider BoxCollider, passable func(vec.Vec3) bool) bool {
	for _, cell := range collider.Cells(feet) {
		if !passable(cell) {
			return false
		}
	}
	return true
}
