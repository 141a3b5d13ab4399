package auth

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/annel0/blockverse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	secret, err := GenerateSecureSecret()
	require.NoError(t, err)
	ti, err := NewTokenIssuer(secret, time.Hour)
	require.NoError(t, err)
	return ti
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestTokenRoundTrip(t *testing.T) {
	ti := newTestIssuer(t)
	user := &User{ID: 42, Username: "steve", IsAdmin: true}

	token, expiresAt, err := ti.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "steve", claims.Username)
	assert.True(t, claims.IsAdmin())
}

func TestTokenRejectsForeignAndExpired(t *testing.T) {
	ti := newTestIssuer(t)
	other := newTestIssuer(t)
	user := &User{ID: 1, Username: "alex"}

	token, _, err := other.Issue(user)
	require.NoError(t, err)
	_, err = ti.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	ti.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := ti.Issue(user)
	require.NoError(t, err)
	ti.now = time.Now
	_, err = ti.Parse(stale)
	assert.ErrorIs(t, err, ErrInvalidToken)

	for _, bad := range []string{"", "not.a.jwt", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"} {
		_, err := ti.Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, bad)
	}
}

func TestNewTokenIssuerSecretValidation(t *testing.T) {
	_, err := NewTokenIssuer("not base64 @#$", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenIssuer(base64.StdEncoding.EncodeToString([]byte("too-short")), time.Hour)
	assert.Error(t, err)

	ti, err := NewTokenIssuer("", 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ti.ttl)
}

func TestMemoryRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepo()

	u, err := repo.CreateUser(ctx, "Notch", "hash", true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.Equal(t, "notch", u.Username)

	_, err = repo.CreateUser(ctx, "NOTCH", "hash", false)
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := repo.GetUserByUsername(ctx, "notch")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetUserByUsername(ctx, "jeb")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.NoError(t, repo.TouchLogin(ctx, u.ID))
	assert.ErrorIs(t, repo.TouchLogin(ctx, 99), ErrUserNotFound)
}

func TestEnsureAdminAndLogin(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRepository(ctx, config.AuthConfig{Backend: "memory"})
	require.NoError(t, err)
	defer repo.Close()

	admin, err := EnsureAdmin(ctx, repo, "admin", "")
	require.NoError(t, err)
	assert.Nil(t, admin)

	admin, err = EnsureAdmin(ctx, repo, "admin", "s3cret-pass")
	require.NoError(t, err)
	require.NotNil(t, admin)
	again, err := EnsureAdmin(ctx, repo, "admin", "other-pass")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	a := NewAuthenticator(repo, newTestIssuer(t), nil)

	res, err := a.Login(ctx, "Admin", "s3cret-pass")
	require.NoError(t, err)
	claims, err := a.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = a.Login(ctx, "admin", "other-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "ghost", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewRepositoryUnknownBackend(t *testing.T) {
	_, err := NewRepository(context.Background(), config.AuthConfig{Backend: "sqlite"})
	assert.Error(t, err)
}
