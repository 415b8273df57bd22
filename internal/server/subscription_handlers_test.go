package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	payload := map[string]string{"email": "Fan@Example.com"}

	resp, body := env.do(t, http.MethodPost, "/api/subscribe", payload, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "subscribed", body["status"])
	assert.Equal(t, "fan@example.com", body["subscriber"].(map[string]interface{})["email"])
	assert.Equal(t, 1, env.mail.count())

	resp, body = env.do(t, http.MethodPost, "/api/subscribe", payload, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "already_subscribed", body["status"])

	resp, _ = env.do(t, http.MethodPost, "/api/unsubscribe", payload, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/subscribe", payload, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "resubscribed", body["status"])
	assert.Equal(t, 1, env.mail.count(), "confirmation is only sent once")
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/subscribe", map[string]string{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestUnsubscribe_Unknown(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/unsubscribe", map[string]string{"email": "ghost@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
