package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/email"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/storage"
	"inkwell/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret-key-12345678901234567890123456789012"

type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (r *recordingSender) Send(_ context.Context, msg email.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type testEnv struct {
	srv   *Server
	app   *fiber.App
	db    *gorm.DB
	mr    *miniredis.Miniredis
	store *storage.MemoryStore
	mail  *recordingSender
}

// newTestEnv wires a Server over in-memory SQLite, miniredis and an
// in-memory object store.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:              testJWTSecret,
		AllowedOrigins:         "http://localhost:5173",
		FeatureFlags:           "wallet_verification=on,consumption_tracking=on",
		PlatformMode:           config.PlatformModeNatural,
		AdminSetupSecret:       "let-me-in",
		MaxImageUploadsPerHour: 5,
		AppBaseURL:             "http://localhost:5173",
	}
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.NewTestDB(t)
	store := storage.NewMemoryStore("https://media.test")
	mail := &recordingSender{}

	srv, err := NewServerWithDeps(cfg, db, rdb, WithObjectStore(store), WithEmailSender(mail))
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.App(), db: db, mr: mr, store: store, mail: mail}
}

func (e *testEnv) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := middleware.IssueToken(testJWTSecret, u.ID, u.Username, time.Now())
	require.NoError(t, err)
	return token
}

// do sends a JSON request and decodes the JSON response body.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func TestLivenessCheck(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])
}

func TestReadinessCheck_Healthy(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "NATURAL", body["platform_mode"])
}

func TestReadinessCheck_RedisDown(t *testing.T) {
	env := newTestEnv(t)
	env.mr.Close()

	resp, body := env.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unhealthy", checks["redis"])
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestSetupMiddleware_RateLimitedResponseIncludesCORSHeaders(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	srv := &Server{config: &config.Config{AllowedOrigins: "http://localhost:5173"}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestSetupMiddleware_PreflightBypassesLimiter(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	srv := &Server{config: &config.Config{AllowedOrigins: "http://localhost:5173"}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Post("/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 101; i++ {
		req := httptest.NewRequest(http.MethodPost, "/limited", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/limited", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := app.Test(preflight, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/posts"},
		{http.MethodGet, "/api/bookmarks"},
		{http.MethodGet, "/api/messages"},
		{http.MethodPost, "/api/ws/ticket"},
		{http.MethodGet, "/api/admin/stats"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			resp, body := env.do(t, route.method, route.path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "UNAUTHORIZED", body["code"])
		})
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.SeedUser(t, env.db, "ada")
	post := testutil.SeedPost(t, env.db, author.ID, "first-light")

	resp, _ := env.do(t, http.MethodGet, "/api/feed", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/authors/"+itoa(author.ID)+"/posts/first-light", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got := body["post"].(map[string]interface{})
	assert.Equal(t, float64(post.ID), got["id"])
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
