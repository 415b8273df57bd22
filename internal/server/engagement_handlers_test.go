package server

import (
	"net/http"
	"testing"

	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeFlow(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.SeedUser(t, env.db, "author")
	reader := testutil.SeedUser(t, env.db, "reader")
	post := testutil.SeedPost(t, env.db, author.ID, "likeable")
	path := "/api/posts/" + itoa(post.ID) + "/like"
	token := env.tokenFor(t, reader)

	resp, body := env.do(t, http.MethodPost, path, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["liked"])
	assert.Equal(t, float64(1), body["counters"].(map[string]interface{})["likes"])

	resp, body = env.do(t, http.MethodPost, path, nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "You have already liked this post", body["error"])

	resp, body = env.do(t, http.MethodGet, path, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["liked"])

	resp, body = env.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["liked"])
	assert.Equal(t, float64(1), body["likes"])

	resp, body = env.do(t, http.MethodDelete, path, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["liked"])
	assert.Equal(t, float64(0), body["counters"].(map[string]interface{})["likes"])
}

func TestLike_OwnPostRejected(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.SeedUser(t, env.db, "author")
	post := testutil.SeedPost(t, env.db, author.ID, "self")

	resp, body := env.do(t, http.MethodPost, "/api/posts/"+itoa(post.ID)+"/like", nil, env.tokenFor(t, author))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "You cannot like your own post", body["error"])
}

func TestLike_UnknownPost(t *testing.T) {
	env := newTestEnv(t)
	reader := testutil.SeedUser(t, env.db, "reader")

	resp, body := env.do(t, http.MethodPost, "/api/posts/4242/like", nil, env.tokenFor(t, reader))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestCommentFlow(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.SeedUser(t, env.db, "author")
	reader := testutil.SeedUser(t, env.db, "reader")
	other := testutil.SeedUser(t, env.db, "other")
	post := testutil.SeedPost(t, env.db, author.ID, "discussed")
	base := "/api/posts/" + itoa(post.ID) + "/comment"

	resp, body := env.do(t, http.MethodPost, base, map[string]string{"content": "Great read"}, env.tokenFor(t, reader))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comment := body["comment"].(map[string]interface{})
	commentID := uint(comment["id"].(float64))
	assert.Equal(t, float64(1), body["counters"].(map[string]interface{})["comments"])

	resp, body = env.do(t, http.MethodPost, base, map[string]string{"content": "Great read"}, env.tokenFor(t, reader))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Duplicate comment")

	resp, body = env.do(t, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["comments"], 1)

	resp, _ = env.do(t, http.MethodDelete, base+"/"+itoa(commentID), nil, env.tokenFor(t, other))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = env.do(t, http.MethodDelete, base+"/"+itoa(commentID), nil, env.tokenFor(t, reader))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["counters"].(map[string]interface{})["comments"])
}

func TestComment_EmptyContent(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.SeedUser(t, env.db, "author")
	post := testutil.SeedPost(t, env.db, author.ID, "quiet")

	resp, _ := env.do(t, http.MethodPost, "/api/posts/"+itoa(post.ID)+"/comment", map[string]string{"content": ""}, env.tokenFor(t, author))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookmarkToggle(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.SeedUser(t, env.db, "author")
	reader := testutil.SeedUser(t, env.db, "reader")
	post := testutil.SeedPost(t, env.db, author.ID, "keeper")
	path := "/api/posts/" + itoa(post.ID) + "/bookmark"
	token := env.tokenFor(t, reader)

	resp, body := env.do(t, http.MethodPost, path, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["bookmarked"])

	resp, body = env.do(t, http.MethodGet, path, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["bookmarked"])

	resp, body = env.do(t, http.MethodGet, "/api/bookmarks", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["bookmarks"], 1)

	resp, body = env.do(t, http.MethodPost, path, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["bookmarked"])
}
