package server

import (
	"net/http"
	"strings"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutes_RejectNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	reader := testutil.SeedUser(t, env.db, "reader")

	resp, body := env.do(t, http.MethodGet, "/api/admin/stats", nil, env.tokenFor(t, reader))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Admin access required", body["error"])
}

func TestClaimAdmin(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.SeedUser(t, env.db, "founder")
	token := env.tokenFor(t, user)

	resp, _ := env.do(t, http.MethodPost, "/api/admin/setup", map[string]string{"secret": "guess"}, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/admin/setup", map[string]string{"secret": "let-me-in"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["user"].(map[string]interface{})["is_admin"])

	resp, _ = env.do(t, http.MethodGet, "/api/admin/stats", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClaimAdmin_DisabledWithoutSecret(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.AdminSetupSecret = "" })
	user := testutil.SeedUser(t, env.db, "founder")

	resp, body := env.do(t, http.MethodPost, "/api/admin/setup", map[string]string{"secret": "anything"}, env.tokenFor(t, user))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Admin setup is disabled", body["error"])
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.SeedUser(t, env.db, "root", testutil.Admin)
	author := testutil.SeedUser(t, env.db, "author")
	testutil.SeedPost(t, env.db, author.ID, "one")
	testutil.SeedPost(t, env.db, author.ID, "two")

	resp, body := env.do(t, http.MethodGet, "/api/admin/stats", nil, env.tokenFor(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["users"])
	assert.Equal(t, float64(2), stats["posts"])
}

func TestPromoteDemote(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.SeedUser(t, env.db, "root", testutil.Admin)
	target := testutil.SeedUser(t, env.db, "helper")
	token := env.tokenFor(t, admin)

	resp, body := env.do(t, http.MethodPost, "/api/admin/users/"+itoa(target.ID)+"/promote", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["user"].(map[string]interface{})["is_admin"])

	resp, body = env.do(t, http.MethodPost, "/api/admin/users/"+itoa(admin.ID)+"/demote", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "You cannot demote yourself", body["error"])

	resp, body = env.do(t, http.MethodPost, "/api/admin/users/"+itoa(target.ID)+"/demote", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["user"].(map[string]interface{})["is_admin"])
}

func TestBetaApplicationFlow(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.PlatformMode = config.PlatformModeBeta })
	admin := testutil.SeedUser(t, env.db, "root", testutil.Admin)
	applicant := testutil.SeedUser(t, env.db, "hopeful")
	applicantToken := env.tokenFor(t, applicant)
	reason := strings.Repeat("long-form essays ", 3)

	resp, _ := env.do(t, http.MethodPost, "/api/beta/apply", map[string]string{"reason": "too short"}, applicantToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/beta/apply", map[string]string{"reason": reason}, applicantToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appID := uint(body["application"].(map[string]interface{})["id"].(float64))

	resp, _ = env.do(t, http.MethodPost, "/api/beta/apply", map[string]string{"reason": reason}, applicantToken)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/admin/beta-applications?status=pending", nil, env.tokenFor(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["applications"], 1)

	resp, body = env.do(t, http.MethodPost, "/api/admin/beta-applications/"+itoa(appID)+"/approve",
		map[string]string{"notes": "welcome aboard"}, env.tokenFor(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "approved", body["application"].(map[string]interface{})["status"])

	resp, _ = env.do(t, http.MethodPost, "/api/admin/beta-applications/"+itoa(appID)+"/reject", nil, env.tokenFor(t, admin))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "already reviewed")

	var refreshed models.User
	require.NoError(t, env.db.First(&refreshed, applicant.ID).Error)
	assert.True(t, refreshed.BetaApproved)

	resp, _ = env.do(t, http.MethodPost, "/api/posts", map[string]interface{}{
		"title": "Finally", "content": "words", "publish": true,
	}, applicantToken)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestBetaApplications_BadStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.SeedUser(t, env.db, "root", testutil.Admin)

	resp, _ := env.do(t, http.MethodGet, "/api/admin/beta-applications?status=maybe", nil, env.tokenFor(t, admin))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecountPost(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.SeedUser(t, env.db, "root", testutil.Admin)
	author := testutil.SeedUser(t, env.db, "author")
	post := testutil.SeedPost(t, env.db, author.ID, "drifted")
	require.NoError(t, env.db.Model(&models.Post{}).Where("id = ?", post.ID).Update("likes", 99).Error)

	resp, body := env.do(t, http.MethodPost, "/api/admin/posts/"+itoa(post.ID)+"/recount", nil, env.tokenFor(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["counters"].(map[string]interface{})["likes"])
}

func TestGetFeatureFlags(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.SeedUser(t, env.db, "root", testutil.Admin)

	resp, body := env.do(t, http.MethodGet, "/api/admin/feature-flags", nil, env.tokenFor(t, admin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	evaluated := body["evaluated"].(map[string]interface{})
	assert.Equal(t, true, evaluated["consumption_tracking"])
}
