package storage

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

const operatorPrefix = "op:"

var playerNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

// ValidPlayerName проверяет имя игрока: 3-16 символов из латиницы, цифр и '_'
func ValidPlayerName(name string) bool {
	return playerNamePattern.MatchString(name)
}

// Operator запись списка операторов
type Operator struct {
	Name    string    `json:"name"`
	UUID    string    `json:"uuid"`
	AddedAt time.Time `json:"added_at"`
}

// OperatorStore список операторов. Имена сравниваются без учета регистра.
type OperatorStore struct {
	store *Store
	now   func() time.Time
}

func NewOperatorStore(s *Store) *OperatorStore {
	return &OperatorStore{store: s, now: time.Now}
}

func operatorKey(name string) []byte {
	return []byte(operatorPrefix + strings.ToLower(name))
}

// OfflineUUID детерминированный UUID игрока по имени (версия 3, как у серверов в offline режиме)
func OfflineUUID(name string) string {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte("OfflinePlayer:"+name)).String()
}

// Add добавляет оператора. Повторное добавление сохраняет исходную запись.
func (o *OperatorStore) Add(name string) (Operator, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Operator{}, errors.New("пустое имя оператора")
	}

	var result Operator
	err := o.store.update(func(txn *badger.Txn) error {
		err := getJSON(txn, operatorKey(name), func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		result = Operator{Name: name, UUID: OfflineUUID(name), AddedAt: o.now().UTC()}
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		return txn.Set(operatorKey(name), data)
	})
	return result, err
}

// Remove удаляет оператора; ErrNotFound, если его нет
func (o *OperatorStore) Remove(name string) error {
	return o.store.update(func(txn *badger.Txn) error {
		key := operatorKey(name)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (o *OperatorStore) IsOperator(name string) (bool, error) {
	err := o.store.view(func(txn *badger.Txn) error {
		_, err := txn.Get(operatorKey(name))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// List возвращает операторов в порядке имен (в нижнем регистре)
func (o *OperatorStore) List() ([]Operator, error) {
	var ops []Operator
	err := o.store.view(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(operatorPrefix), func(val []byte) error {
			var op Operator
			if err := json.Unmarshal(val, &op); err != nil {
				return err
			}
			ops = append(ops, op)
			return nil
		})
	})
	return ops, err
}
