package storage

import (
	"context"
	"sync"

	"github.com/annel0/blockverse/internal/vec"
)

// MemoryPositionRepo реализует PositionRepo в памяти.
// Данные теряются при перезапуске сервера.
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[string]vec.Vec3
}

func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{data: make(map[string]vec.Vec3)}
}

func (r *MemoryPositionRepo) Save(ctx context.Context, name string, pos vec.Vec3) error {
	if err := validatePosition(name, pos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[positionKey(name)] = pos
	return nil
}

func (r *MemoryPositionRepo) Load(ctx context.Context, name string) (vec.Vec3, bool, error) {
	if err := ctx.Err(); err != nil {
		return vec.Vec3{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.data[positionKey(name)]
	return pos, ok, nil
}

func (r *MemoryPositionRepo) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, positionKey(name))
	return nil
}

// BatchSave атомарен: при невалидной позиции ничего не сохраняется
func (r *MemoryPositionRepo) BatchSave(ctx context.Context, positions map[string]vec.Vec3) error {
	for name, pos := range positions {
		if err := validatePosition(name, pos); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, pos := range positions {
		r.data[positionKey(name)] = pos
	}
	return nil
}

// Count возвращает количество сохраненных позиций
func (r *MemoryPositionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
