package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryUserRepo потокобезопасное хранилище в памяти для тестов и одиночного сервера.
// ID выдаются по возрастанию, начиная с 1.
type MemoryUserRepo struct {
	mu     sync.RWMutex
	users  map[string]*User // ключ = normalize(username)
	nextID uint64
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users:  make(map[string]*User),
		nextID: 1,
	}
}

func (r *MemoryUserRepo) GetUserByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[normalize(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *MemoryUserRepo) CreateUser(_ context.Context, username, passwordHash string, isAdmin bool) (*User, error) {
	key := normalize(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[key]; exists {
		return nil, ErrUserExists
	}

	now := time.Now()
	user := &User{
		ID:           r.nextID,
		Username:     key,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		LastLogin:    now,
		IsAdmin:      isAdmin,
	}
	r.nextID++
	r.users[key] = user
	cp := *user
	return &cp, nil
}

func (r *MemoryUserRepo) TouchLogin(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			u.LastLogin = time.Now()
			return nil
		}
	}
	return ErrUserNotFound
}

func (r *MemoryUserRepo) Close() error { return nil }
