package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkCoordsNegative(t *testing.T) {
	assert.Equal(t, Vec2{X: 0, Z: 0}, Vec3{X: 15, Y: 5, Z: 0}.ChunkCoords())
	assert.Equal(t, Vec2{X: -1, Z: -1}, Vec3{X: -1, Y: 5, Z: -16}.ChunkCoords())
	assert.Equal(t, Vec2{X: -2, Z: 1}, Vec3{X: -17, Y: 0, Z: 31}.ChunkCoords())
}

func TestLocalInChunk(t *testing.T) {
	assert.Equal(t, Vec3{X: 15, Y: -3, Z: 0}, Vec3{X: -1, Y: -3, Z: 16}.LocalInChunk())
	assert.Equal(t, Vec3{X: 4, Y: 70, Z: 9}, Vec3{X: 36, Y: 70, Z: -7}.LocalInChunk())
}

func TestDirections(t *testing.T) {
	origin := Vec3{X: 1, Y: 1, Z: 1}
	assert.Equal(t, Vec3{X: 1, Y: 1, Z: 0}, origin.Add(North))
	assert.Equal(t, Vec3{X: 1, Y: 1, Z: 2}, origin.Add(South))
	assert.Equal(t, Vec3{X: 0, Y: 1, Z: 1}, origin.Add(West))
	assert.Equal(t, Vec3{X: 2, Y: 1, Z: 1}, origin.Add(East))
	assert.Equal(t, [4]Vec3{North, South, West, East}, CardinalDirs)
	assert.True(t, origin.Add(Up).Sub(Up).Equals(origin))
	assert.Equal(t, 3, origin.ManhattanTo(Vec3{X: 2, Y: 0, Z: 2}))
}

func TestVec2(t *testing.T) {
	c := Vec2{X: -2, Z: 3}
	assert.Equal(t, "-2:3", c.Key())
	assert.Equal(t, Vec3{X: -32, Y: 64, Z: 48}, c.Origin(64))
	assert.Equal(t, 13, c.DistanceSq(Vec2{X: 0, Z: 0}))
}
