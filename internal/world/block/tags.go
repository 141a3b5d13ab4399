package block

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Незарегистрированные блоки классифицируются как непрозрачные и не рассеивающие:
// свет не должен протекать сквозь неизвестную геометрию.

// TagsOf возвращает классификацию блока
func TagsOf(id BlockID) Tag {
	return registry[id].tags
}

// IsAir проверяет, является ли блок воздухом
func IsAir(id BlockID) bool {
	return registry[id].tags&TagAir != 0
}

// IsLiquid проверяет, является ли блок жидкостью
func IsLiquid(id BlockID) bool {
	return registry[id].tags&TagLiquid != 0
}

// IsTransparent проверяет, пропускает ли блок свет полностью
func IsTransparent(id BlockID) bool {
	return registry[id].tags&TagTransparent != 0
}

// IsSemitransparent проверяет, рассеивает ли блок свет
func IsSemitransparent(id BlockID) bool {
	return registry[id].tags&TagSemitransparent != 0
}

// IsMotionBlocking возвращает true для жидкостей и твердых (непрозрачных, не воздушных) блоков
func IsMotionBlocking(id BlockID) bool {
	t := registry[id].tags
	if t&TagLiquid != 0 {
		return true
	}
	return t&(TagAir|TagTransparent) == 0
}

// Emission возвращает уровень свечения блока
func Emission(id BlockID) uint8 {
	return registry[id].emission
}

// TagOverrides описывает YAML-файл с дополнительными тегами блоков.
//
//	transparent: [glass]
//	semitransparent: [oak_leaves, ice]
//	liquid: [water]
//	emission:
//	  torch: 14
type TagOverrides struct {
	Transparent     []string         `yaml:"transparent"`
	Semitransparent []string         `yaml:"semitransparent"`
	Liquid          []string         `yaml:"liquid"`
	Opaque          []string         `yaml:"opaque"`
	Emission        map[string]uint8 `yaml:"emission"`
}

// LoadTagOverrides читает YAML-файл и применяет теги к уже зарегистрированным блокам.
// Вызывается до запуска мира: регистр не защищен от конкурентной записи.
func LoadTagOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var ov TagOverrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("ошибка разбора %s: %w", path, err)
	}
	return ApplyTagOverrides(ov)
}

// ApplyTagOverrides применяет набор переопределений. Неизвестное имя считается ошибкой.
func ApplyTagOverrides(ov TagOverrides) error {
	apply := func(names []string, fn func(e *entry)) error {
		for _, name := range names {
			id, ok := ByName(name)
			if !ok {
				return fmt.Errorf("неизвестный блок в переопределениях: %q", name)
			}
			fn(&registry[id])
		}
		return nil
	}

	if err := apply(ov.Transparent, func(e *entry) { e.tags |= TagTransparent }); err != nil {
		return err
	}
	if err := apply(ov.Semitransparent, func(e *entry) { e.tags |= TagSemitransparent }); err != nil {
		return err
	}
	if err := apply(ov.Liquid, func(e *entry) { e.tags |= TagLiquid }); err != nil {
		return err
	}
	if err := apply(ov.Opaque, func(e *entry) { e.tags &^= TagTransparent | TagSemitransparent }); err != nil {
		return err
	}
	for name, level := range ov.Emission {
		id, ok := ByName(name)
		if !ok {
			return fmt.Errorf("неизвестный блок в переопределениях: %q", name)
		}
		registry[id].emission = clampLevel(level)
	}
	return nil
}
