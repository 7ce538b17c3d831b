package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/puntoventa-backend/internal/users"
	pkgAuth "github.com/angelmondragon/puntoventa-backend/pkg/auth"
	"github.com/angelmondragon/puntoventa-backend/pkg/auth/session"
	"github.com/angelmondragon/puntoventa-backend/pkg/config"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubRedis struct {
	stubPinger
	values map[string]string
}

func (s *stubRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", errors.New("redis: nil")
}

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	if str, ok := value.(string); ok {
		s.values[key] = str
	}
	return true, nil
}

func (s *stubRedis) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (s *stubRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *stubRedis) IncrWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

// stubUsers only answers List; every other call panics on the nil embed.
type stubUsers struct {
	users.Service
}

func (stubUsers) List(context.Context, enums.UserStatusFilter) ([]users.UserDTO, error) {
	return []users.UserDTO{{ID: uuid.New(), Username: "lupe", Role: enums.UserRoleCashier, IsActive: true}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "puntoventa",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func newTestRouter(cfg *config.Config, store RedisStore, dbP stubPinger) http.Handler {
	return NewRouter(
		cfg,
		testLogger(),
		dbP,
		store,
		stubSessions{},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Services{Users: stubUsers{}},
		nil,
		time.UTC,
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Username: "lupe",
		Role:     role,
		JTI:      session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	cfg := testConfig()

	router := newTestRouter(cfg, nil, stubPinger{})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-POS-Env"))

	resp = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	broken := newTestRouter(cfg, nil, stubPinger{err: errors.New("connection refused")})
	resp = serve(broken, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "database")
}

func TestMetricsMountedAtRoot(t *testing.T) {
	router := newTestRouter(testConfig(), nil, stubPinger{})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "# metrics", resp.Body.String())
}

func TestPrivateRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), nil, stubPinger{})
	for _, path := range []string{"/api/v1/sales", "/api/v1/products", "/api/v1/cash/current", "/api/v1/users"} {
		resp := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
}

func TestRoleGates(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, stubPinger{})

	cases := []struct {
		name string
		path string
		role enums.UserRole
		want int
	}{
		{"cashier cannot list users", "/api/v1/users", enums.UserRoleCashier, http.StatusForbidden},
		{"supervisor cannot list users", "/api/v1/users", enums.UserRoleSupervisor, http.StatusForbidden},
		{"manager lists users", "/api/v1/users", enums.UserRoleManager, http.StatusOK},
		{"cashier cannot read reports", "/api/v1/reports/sales", enums.UserRoleCashier, http.StatusForbidden},
		{"cashier cannot export sales", "/api/v1/sales/export", enums.UserRoleCashier, http.StatusForbidden},
		{"cashier cannot list sessions", "/api/v1/cash/sessions", enums.UserRoleCashier, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, tc.role))
			resp := serve(router, req)
			assert.Equal(t, tc.want, resp.Code)
		})
	}
}

func TestRecordSaleRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	store := &stubRedis{values: map[string]string{}}
	router := newTestRouter(cfg, store, stubPinger{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(`{"lines":[]}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCashier))
	req.Header.Set("Content-Type", "application/json")
	resp := serve(router, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Idempotency-Key")
}
