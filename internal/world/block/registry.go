package block

import (
	"fmt"
	"strings"
)

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID         BlockID = iota // 0
	StoneBlockID                      // 1
	GrassBlockID                      // 2
	WaterBlockID                      // 3
	SandBlockID                       // 4
	DirtBlockID                       // 5
	BedrockBlockID                    // 6
	CobblestoneBlockID                // 7
	CaveAirBlockID                    // 8 - воздух пещер, генерируется под поверхностью

	// Для возможности расширения, оставляем большие промежутки между категориями

	// Растительность (начиная с 100)
	TallGrassBlockID BlockID = 100 // Трава, не блокирует движение
	OakLogBlockID    BlockID = 101 // Ствол дерева
	OakLeavesBlockID BlockID = 102 // Листва, рассеивает свет

	// Прозрачные материалы (начиная с 150)
	GlassBlockID BlockID = 150
	IceBlockID   BlockID = 151 // рассеивает свет

	// Источники света (начиная с 300)
	TorchBlockID     BlockID = 300
	GlowstoneBlockID BlockID = 301
)

// entry запись регистра, плотная таблица по ID для быстрого доступа из движка освещения
type entry struct {
	behavior BlockBehavior
	tags     Tag
	emission uint8
	known    bool
}

var (
	registry [1 << 16]entry
	byName   = make(map[string]BlockID)
)

// Register добавляет поведение блока в регистр.
// Регистр заполняется при старте (init пакетов реализаций) и далее только читается.
func Register(id BlockID, behavior BlockBehavior) {
	registry[id] = entry{
		behavior: behavior,
		tags:     behavior.Tags(),
		emission: clampLevel(behavior.LightEmission()),
		known:    true,
	}
	byName[strings.ToLower(behavior.Name())] = id
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (BlockBehavior, bool) {
	e := &registry[id]
	return e.behavior, e.known
}

// ByName ищет ID блока по имени (без учета регистра)
func ByName(name string) (BlockID, bool) {
	id, ok := byName[strings.ToLower(name)]
	return id, ok
}

// MustByName возвращает ID по имени или паникует; используется в тестах и генераторе
func MustByName(name string) BlockID {
	id, ok := ByName(name)
	if !ok {
		panic(fmt.Sprintf("block %q is not registered", name))
	}
	return id
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	return registry[id].known
}

// Name возвращает имя блока или "unknown#<id>"
func Name(id BlockID) string {
	if e := &registry[id]; e.known {
		return e.behavior.Name()
	}
	return fmt.Sprintf("unknown#%d", id)
}
