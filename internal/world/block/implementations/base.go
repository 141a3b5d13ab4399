package implementations

import "github.com/annel0/blockverse/internal/world/block"

// simpleBehavior статическое описание блока без собственной логики
type simpleBehavior struct {
	id       block.BlockID
	name     string
	tags     block.Tag
	emission uint8
}

// ID возвращает идентификатор блока
func (b *simpleBehavior) ID() block.BlockID {
	return b.id
}

// Name возвращает имя блока
func (b *simpleBehavior) Name() string {
	return b.name
}

// Tags возвращает классификацию блока
func (b *simpleBehavior) Tags() block.Tag {
	return b.tags
}

// LightEmission возвращает уровень свечения
func (b *simpleBehavior) LightEmission() uint8 {
	return b.emission
}
