package block

// Tag набор классификационных признаков блока, используемых движком освещения
type Tag uint8

const (
	TagAir             Tag = 1 << iota // воздух
	TagLiquid                          // жидкость (рассеивает прямой свет)
	TagTransparent                     // полностью пропускает свет
	TagSemitransparent                 // рассеивает свет на 1 уровень
)

// Has проверяет наличие всех указанных признаков
func (t Tag) Has(flags Tag) bool {
	return t&flags == flags
}

// BlockBehavior определяет статические свойства блока
type BlockBehavior interface {
	ID() BlockID
	Name() string
	// Tags возвращает классификацию блока для освещения
	Tags() Tag
	// LightEmission возвращает уровень собственного свечения 0..15
	LightEmission() uint8
}

func clampLevel(v uint8) uint8 {
	if v > 15 {
		return 15
	}
	return v
}
