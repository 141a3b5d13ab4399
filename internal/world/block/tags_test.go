package block

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBehavior struct {
	id   BlockID
	name string
	tags Tag
}

func (b *testBehavior) ID() BlockID          { return b.id }
func (b *testBehavior) Name() string         { return b.name }
func (b *testBehavior) Tags() Tag            { return b.tags }
func (b *testBehavior) LightEmission() uint8 { return 0 }

func TestUnknownBlockIsOpaque(t *testing.T) {
	id := BlockID(60000)
	assert.False(t, IsValidBlockID(id))
	assert.False(t, IsTransparent(id))
	assert.False(t, IsSemitransparent(id))
	assert.False(t, IsAir(id))
	assert.False(t, IsLiquid(id))
	assert.True(t, IsMotionBlocking(id))
	assert.Equal(t, "unknown#60000", Name(id))
}

func TestLoadTagOverrides(t *testing.T) {
	Register(9001, &testBehavior{id: 9001, name: "test_slime"})
	Register(9002, &testBehavior{id: 9002, name: "test_lamp"})

	dir := t.TempDir()
	path := filepath.Join(dir, "tags.yaml")
	content := `
semitransparent: [test_slime]
emission:
  test_lamp: 40
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, LoadTagOverrides(path))

	assert.True(t, IsSemitransparent(9001))
	// Свечение ограничивается 15
	assert.Equal(t, uint8(15), Emission(9002))
}

func TestLoadTagOverridesUnknownName(t *testing.T) {
	err := ApplyTagOverrides(TagOverrides{Transparent: []string{"no_such_block"}})
	assert.Error(t, err)
}

func TestTagHas(t *testing.T) {
	tag := TagAir | TagTransparent
	assert.True(t, tag.Has(TagAir))
	assert.True(t, tag.Has(TagAir|TagTransparent))
	assert.False(t, tag.Has(TagLiquid))
}
