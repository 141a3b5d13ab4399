package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Код ошибки MySQL/MariaDB для нарушения уникального ключа
const mysqlDuplicateEntry = 1062

// MariaUserRepo реализует UserRepository поверх MariaDB
type MariaUserRepo struct {
	db *sql.DB
}

// NewMariaUserRepo открывает подключение по DSN вида
// user:pass@tcp(host:3306)/blockverse и создает таблицу при необходимости.
func NewMariaUserRepo(ctx context.Context, dsn string) (*MariaUserRepo, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("некорректный DSN MariaDB: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать коннектор MariaDB: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	repo := &MariaUserRepo{db: db}
	if err := repo.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицы: %w", err)
	}
	return repo, nil
}

func (m *MariaUserRepo) createTables(ctx context.Context) error {
	const createUsersTable = `
	CREATE TABLE IF NOT EXISTS admin_users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_login TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`

	_, err := m.db.ExecContext(ctx, createUsersTable)
	return err
}

func (m *MariaUserRepo) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	const query = `SELECT id, username, password_hash, is_admin, created_at, last_login
			  FROM admin_users WHERE username = ?`

	var user User
	err := m.db.QueryRowContext(ctx, query, normalize(username)).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении пользователя: %w", err)
	}
	return &user, nil
}

func (m *MariaUserRepo) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*User, error) {
	lower := normalize(username)
	now := time.Now().UTC().Truncate(time.Second)

	const query = `INSERT INTO admin_users (username, password_hash, is_admin, created_at, last_login)
			  VALUES (?, ?, ?, ?, ?)`

	result, err := m.db.ExecContext(ctx, query, lower, passwordHash, isAdmin, now, now)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении ID пользователя: %w", err)
	}

	return &User{
		ID:           uint64(id),
		Username:     lower,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		LastLogin:    now,
	}, nil
}

func (m *MariaUserRepo) TouchLogin(ctx context.Context, id uint64) error {
	res, err := m.db.ExecContext(ctx, `UPDATE admin_users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении времени входа: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *MariaUserRepo) Close() error {
	return m.db.Close()
}
