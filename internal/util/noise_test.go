package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseDeterministicAndBounded(t *testing.T) {
	a := NewNoise(42, 0.05)
	b := NewNoise(42, 0.05)

	for x := -50; x < 50; x += 7 {
		for z := -50; z < 50; z += 5 {
			v := a.At2D(x, z)
			assert.Equal(t, v, b.At2D(x, z))
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}
