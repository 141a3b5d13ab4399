package auth

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/blockverse/internal/logging"
)

// Authenticator проверяет учетные данные и выдает токены
type Authenticator struct {
	repo   UserRepository
	tokens *TokenIssuer
	logger *logging.Logger
}

func NewAuthenticator(repo UserRepository, tokens *TokenIssuer, logger *logging.Logger) *Authenticator {
	return &Authenticator{repo: repo, tokens: tokens, logger: logger}
}

// LoginResult ответ на успешный вход
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Login возвращает ErrInvalidCredentials и для неизвестного имени, и для неверного пароля
func (a *Authenticator) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.logf("Неудачный вход: пользователь %q не найден", username)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		a.logf("Неудачный вход: неверный пароль для %q", username)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := a.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	if err := a.repo.TouchLogin(ctx, user.ID); err != nil && a.logger != nil {
		a.logger.Warn("Не удалось обновить время входа %s: %v", user.Username, err)
	}
	if a.logger != nil {
		a.logger.Info("Вход администратора %s (ID: %d)", user.Username, user.ID)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Verify разбирает токен из заголовка Authorization
func (a *Authenticator) Verify(token string) (*Claims, error) {
	return a.tokens.Parse(token)
}

func (a *Authenticator) logf(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Warn(format, args...)
	}
}
