package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/chunk"
)

// PositionRepo сохраняет последнюю позицию игрока между сессиями.
// Ключ - имя игрока без учета регистра.
type PositionRepo interface {
	// Save сохраняет позицию игрока
	Save(ctx context.Context, name string, pos vec.Vec3) error

	// Load возвращает позицию и false, если игрок заходит впервые
	Load(ctx context.Context, name string) (vec.Vec3, bool, error)

	// Delete удаляет позицию; отсутствие записи не считается ошибкой
	Delete(ctx context.Context, name string) error

	// BatchSave сохраняет позиции нескольких игроков (автосохранение, остановка сервера)
	BatchSave(ctx context.Context, positions map[string]vec.Vec3) error
}

func positionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validatePosition(name string, pos vec.Vec3) error {
	if positionKey(name) == "" {
		return fmt.Errorf("пустое имя игрока")
	}
	if !chunk.InWorld(pos.Y) {
		return fmt.Errorf("позиция %v вне высоты мира", pos)
	}
	return nil
}
