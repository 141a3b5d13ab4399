package auth

import "time"

// User учетная запись администратора REST API
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"` // хранится в нижнем регистре
	PasswordHash string    `json:"-"`        // bcrypt
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login"`
	IsAdmin      bool      `json:"is_admin"`
}

// Role возвращает роль для JWT claims
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleViewer
}

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)
