package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/blockverse/internal/vec"
)

func TestPlayerColliderCells(t *testing.T) {
	feet := vec.Vec3{X: 3, Y: 70, Z: -2}
	assert.Equal(t, []vec.Vec3{feet, feet.Offset(0, 1, 0)}, PlayerCollider.Cells(feet))

	assert.True(t, PlayerCollider.Occupies(feet, feet))
	assert.True(t, PlayerCollider.Occupies(feet, feet.Offset(0, 1, 0)))
	assert.False(t, PlayerCollider.Occupies(feet, feet.Offset(0, 2, 0)))
	assert.False(t, PlayerCollider.Occupies(feet, feet.Offset(0, -1, 0)))
	assert.False(t, PlayerCollider.Occupies(feet, feet.Offset(1, 0, 0)))
}

func TestWideColliderCells(t *testing.T) {
	c := NewBoxCollider(3, 1)
	cells := c.Cells(vec.Vec3{})
	assert.Len(t, cells, 9)
	assert.Contains(t, cells, vec.Vec3{X: -1, Z: -1})
	assert.Contains(t, cells, vec.Vec3{X: 1, Z: 1})
	for _, cell := range cells {
		assert.True(t, c.Occupies(vec.Vec3{}, cell), "%v", cell)
	}
}

func TestCheckBoxCollision(t *testing.T) {
	a := vec.Vec3{X: 0, Y: 64, Z: 0}
	assert.True(t, CheckBoxCollision(a, PlayerCollider, a.Offset(0, 1, 0), PlayerCollider))
	assert.False(t, CheckBoxCollision(a, PlayerCollider, a.Offset(0, 2, 0), PlayerCollider))
	assert.False(t, CheckBoxCollision(a, PlayerCollider, a.Offset(1, 0, 0), PlayerCollider))
	assert.True(t, CheckBoxCollision(a, NewBoxCollider(3, 1), a.Offset(1, 0, 1), PlayerCollider))
}

func TestCanStandAt(t *testing.T) {
	solid := map[vec.Vec3]bool{{X: 0, Y: 65, Z: 0}: true}
	passable := func(p vec.Vec3) bool { return !solid[p] }

	assert.True(t, CanStandAt(vec.Vec3{X: 0, Y: 66, Z: 0}, PlayerCollider, passable))
	assert.False(t, CanStandAt(vec.Vec3{X: 0, Y: 64, Z: 0}, PlayerCollider, passable))
	assert.True(t, CanStandAt(vec.Vec3{X: 1, Y: 64, Z: 0}, PlayerCollider, passable))
}
