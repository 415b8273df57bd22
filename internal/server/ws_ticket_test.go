package server

import (
	"net/http"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSTicket_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.SeedUser(t, env.db, "reader")

	resp, body := env.do(t, http.MethodPost, "/api/ws/ticket", nil, env.tokenFor(t, user))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := body["ticket"].(string)
	require.NotEmpty(t, ticket)
	assert.Equal(t, float64(30), body["expires_in"])

	// The ticket authenticates; the plain GET then fails the upgrade check.
	resp, _ = env.do(t, http.MethodGet, "/api/ws?ticket="+ticket, nil, "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/ws?ticket="+ticket, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or expired WebSocket ticket", body["error"])
}

func TestWSTicket_Expires(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.SeedUser(t, env.db, "reader")

	resp, body := env.do(t, http.MethodPost, "/api/ws/ticket", nil, env.tokenFor(t, user))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := body["ticket"].(string)

	env.mr.FastForward(31 * time.Second)

	resp, _ = env.do(t, http.MethodGet, "/api/ws?ticket="+ticket, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSTicket_NoRedis(t *testing.T) {
	cfg := &config.Config{JWTSecret: testJWTSecret, AllowedOrigins: "http://localhost:5173"}
	db := testutil.NewTestDB(t)
	srv, err := NewServerWithDeps(cfg, db, nil, WithEmailSender(&recordingSender{}))
	require.NoError(t, err)
	env := &testEnv{srv: srv, app: srv.App(), db: db}
	user := testutil.SeedUser(t, db, "reader")

	resp, body := env.do(t, http.MethodPost, "/api/ws/ticket", nil, env.tokenFor(t, user))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
}
