package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/dgraph-io/badger/v3"
)

const positionPrefix = "pos:"

type storedPosition struct {
	Position  vec.Vec3  `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BadgerPositionRepo хранит позиции в общем Store под ключами pos:<имя>
type BadgerPositionRepo struct {
	store *Store
}

func NewBadgerPositionRepo(s *Store) *BadgerPositionRepo {
	return &BadgerPositionRepo{store: s}
}

func (r *BadgerPositionRepo) Save(ctx context.Context, name string, pos vec.Vec3) error {
	return r.BatchSave(ctx, map[string]vec.Vec3{name: pos})
}

func (r *BadgerPositionRepo) Load(ctx context.Context, name string) (vec.Vec3, bool, error) {
	if err := ctx.Err(); err != nil {
		return vec.Vec3{}, false, err
	}

	var sp storedPosition
	err := r.store.view(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(positionPrefix+positionKey(name)), func(val []byte) error {
			return json.Unmarshal(val, &sp)
		})
	})
	if errors.Is(err, ErrNotFound) {
		return vec.Vec3{}, false, nil
	}
	if err != nil {
		return vec.Vec3{}, false, err
	}
	return sp.Position, true, nil
}

func (r *BadgerPositionRepo) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(positionPrefix + positionKey(name)))
	})
}

// BatchSave пишет все позиции одной транзакцией
func (r *BadgerPositionRepo) BatchSave(ctx context.Context, positions map[string]vec.Vec3) error {
	for name, pos := range positions {
		if err := validatePosition(name, pos); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().UTC()
	return r.store.update(func(txn *badger.Txn) error {
		for name, pos := range positions {
			data, err := json.Marshal(storedPosition{Position: pos, UpdatedAt: now})
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(positionPrefix+positionKey(name)), data); err != nil {
				return err
			}
		}
		return nil
	})
}
