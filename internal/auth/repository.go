package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/annel0/blockverse/internal/config"
)

// UserRepository хранилище учетных записей.
// Реализации: память (по умолчанию), MariaDB, MongoDB.
type UserRepository interface {
	// GetUserByUsername возвращает ErrUserNotFound, если записи нет
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// CreateUser ожидает bcrypt-хеш и возвращает ErrUserExists при конфликте имени
	CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*User, error)

	// TouchLogin обновляет время последнего входа
	TouchLogin(ctx context.Context, id uint64) error

	Close() error
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// NewRepository выбирает реализацию по cfg.Backend
func NewRepository(ctx context.Context, cfg config.AuthConfig) (UserRepository, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryUserRepo(), nil
	case "mariadb":
		return NewMariaUserRepo(ctx, cfg.MariaDSN)
	case "mongo":
		return NewMongoUserRepo(ctx, MongoConfig{URI: cfg.MongoURI})
	default:
		return nil, fmt.Errorf("неизвестный backend учетных записей %q", cfg.Backend)
	}
}

// EnsureAdmin создает администратора, если его еще нет.
// Пустой пароль означает, что учетная запись не создается.
func EnsureAdmin(ctx context.Context, repo UserRepository, username, password string) (*User, error) {
	if password == "" {
		return nil, nil
	}
	if u, err := repo.GetUserByUsername(ctx, username); err == nil {
		return u, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := repo.CreateUser(ctx, username, hash, true)
	if errors.Is(err, ErrUserExists) {
		return repo.GetUserByUsername(ctx, username)
	}
	return u, err
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
