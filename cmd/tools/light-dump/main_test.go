package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	_ "github.com/annel0/blockverse/internal/world/block/implementations"
	"github.com/annel0/blockverse/internal/world/chunk"
	"github.com/annel0/blockverse/internal/world/light"
)

func TestClampY(t *testing.T) {
	assert.Equal(t, chunk.MinY, clampY(-1000))
	assert.Equal(t, chunk.MaxY, clampY(1000))
	assert.Equal(t, 10, clampY(10))
}

func TestDumpSlice(t *testing.T) {
	c := chunk.New(vec.Vec2{})
	for x := 0; x < chunk.ChunkWidth; x++ {
		c.SetBlock(vec.Vec3{X: x, Y: 0, Z: 4}, block.StoneBlockID)
	}
	c.SetBlock(vec.Vec3{X: 2, Y: 1, Z: 4}, block.WaterBlockID)
	light.InitialFillSkyLight(c)

	var b strings.Builder
	dumpSlice(&b, c, chunk.Sky, 4, 0, 1)
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.True(t, strings.HasPrefix(lines[0], "   1 "))
	assert.Equal(t, byte('~'), lines[0][5+2])
	assert.Equal(t, byte('f'), lines[0][5])
	assert.Equal(t, "   0 "+strings.Repeat("#", chunk.ChunkWidth), lines[1])
	assert.Equal(t, "     0123456789abcdef", lines[2])
}
