package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/auth"
	"github.com/annel0/blockverse/internal/cache"
	"github.com/annel0/blockverse/internal/middleware"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/world"
)

type fakeGame struct{}

func (fakeGame) Stats() protocol.Stats {
	return protocol.Stats{TotalTicks: 42, TPS: 20, Players: 1, ResidentChunks: 9, UptimeSeconds: 3725}
}

func (fakeGame) PlayerNames() []string { return []string{"alice"} }

type testAPI struct {
	rs  *RestServer
	ops *storage.OperatorStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	repo := auth.NewMemoryUserRepo()
	_, err := auth.EnsureAdmin(ctx, repo, "admin", "admin-pass")
	require.NoError(t, err)
	hash, err := auth.HashPassword("viewer-pass")
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, "viewer", hash, false)
	require.NoError(t, err)

	tokens, err := auth.NewTokenIssuer("", time.Hour)
	require.NoError(t, err)

	store, err := storage.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ops := storage.NewOperatorStore(store)

	chunkCache := cache.NewMemoryCache(time.Minute)
	require.NoError(t, chunkCache.Set(ctx, "chunk:0:0", []byte{1}, 0))
	_, _ = chunkCache.Get(ctx, "chunk:0:0")

	rs := NewRestServer(Config{
		Version:   "test",
		Game:      fakeGame{},
		World:     world.NewWorldManager(world.Options{Seed: 3, SeaLevel: 62}),
		Operators: ops,
		Auth:      auth.NewAuthenticator(repo, tokens, nil),
		Cache:     chunkCache,
		Registry:  prometheus.NewRegistry(),
	})
	return &testAPI{rs: rs, ops: ops}
}

func (ta *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ta.rs.Handler().ServeHTTP(w, req)

	var resp GenericResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (ta *testAPI) login(t *testing.T, user, pass string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(LoginRequest{Username: user, Password: pass}))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ta.rs.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthAndTraceHeader(t *testing.T) {
	ta := newTestAPI(t)
	w, _ := ta.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.TraceIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	ta := newTestAPI(t)
	ta.do(t, http.MethodGet, "/health", "", nil)

	w, _ := ta.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rest_api_http_request_duration_seconds")
}

func TestServerInfo(t *testing.T) {
	ta := newTestAPI(t)
	w, resp := ta.do(t, http.MethodGet, "/api/server", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var info ServerInfo
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, int64(42), info.Game.TotalTicks)
	assert.Equal(t, []string{"alice"}, info.Players)
	assert.Equal(t, "1ч 2м 5с", info.Uptime)
	assert.Greater(t, info.Process.Goroutines, 0)
	require.NotNil(t, info.Cache)
	assert.Equal(t, int64(1), info.Cache.CacheHits)
	assert.Equal(t, int64(1), info.Cache.TotalKeys)
}

func TestColumnEndpoint(t *testing.T) {
	ta := newTestAPI(t)
	w, resp := ta.do(t, http.MethodGet, "/api/chunks/0/0/column/3/4?from=300&to=319", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var cells []world.ColumnCell
	require.NoError(t, json.Unmarshal(data, &cells))
	require.Len(t, cells, 20)
	for _, cell := range cells {
		assert.Equal(t, 15, cell.SkyLight, "y=%d", cell.Y)
	}

	w, _ = ta.do(t, http.MethodGet, "/api/chunks/0/0/column/16/0", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ta.do(t, http.MethodGet, "/api/chunks/a/0/column/0/0", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ta := newTestAPI(t)
	w, _ := ta.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = ta.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOperatorsRequireToken(t *testing.T) {
	ta := newTestAPI(t)
	w, _ := ta.do(t, http.MethodGet, "/api/ops", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = ta.do(t, http.MethodGet, "/api/ops", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperatorsCRUD(t *testing.T) {
	ta := newTestAPI(t)
	admin := ta.login(t, "admin", "admin-pass")
	viewer := ta.login(t, "viewer", "viewer-pass")

	w, _ := ta.do(t, http.MethodPost, "/api/ops", viewer, OpRequest{Name: "alice"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ta.do(t, http.MethodPost, "/api/ops", admin, OpRequest{Name: "no way"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ta.do(t, http.MethodPost, "/api/ops", admin, OpRequest{Name: "alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	isOp, err := ta.ops.IsOperator("alice")
	require.NoError(t, err)
	assert.True(t, isOp)

	w, resp := ta.do(t, http.MethodGet, "/api/ops", viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 1)

	w, _ = ta.do(t, http.MethodDelete, "/api/ops/alice", viewer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ta.do(t, http.MethodDelete, "/api/ops/alice", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = ta.do(t, http.MethodDelete, "/api/ops/alice", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5*time.Second))
	assert.Equal(t, "2м 0с", formatUptime(2*time.Minute))
	assert.Equal(t, "1д 0ч 0м 1с", formatUptime(24*time.Hour+time.Second))
}
