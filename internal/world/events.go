package world

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// BlockChange описывает примененное изменение блока. Публикуется в шину событий
// и передается слушателю (сетевому слою) после перерасчета освещения.
type BlockChange struct {
	Pos    vec.Vec3      `json:"pos"`
	Old    block.BlockID `json:"old"`
	New    block.BlockID `json:"new"`
	Source string        `json:"source"` // Имя игрока или компонента
}

// ChunkLoaded публикуется после генерации и освещения чанка
type ChunkLoaded struct {
	Coords     vec.Vec2 `json:"coords"`
	LightTasks int      `json:"light_tasks"`
}

// BlockChangeListener получает уведомления об изменениях блоков
type BlockChangeListener interface {
	OnBlockChange(change BlockChange)
}

// BlockChangeFunc адаптирует функцию к BlockChangeListener
type BlockChangeFunc func(change BlockChange)

// OnBlockChange вызывает функцию
func (f BlockChangeFunc) OnBlockChange(change BlockChange) {
	f(change)
}
