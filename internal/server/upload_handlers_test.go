package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignVideoUpload_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.MaxImageUploadsPerHour = 2 })
	user := testutil.SeedUser(t, env.db, "creator")
	token := env.tokenFor(t, user)
	payload := map[string]interface{}{"filename": "clip.mp4", "content_type": "video/mp4", "size": 1024}

	for i := 0; i < 2; i++ {
		resp, body := env.do(t, http.MethodPost, "/api/upload/video/presigned", payload, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		upload := body["upload"].(map[string]interface{})
		assert.NotEmpty(t, upload["key"])
		assert.NotEmpty(t, upload["upload"].(map[string]interface{})["upload_url"])
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp, body := env.do(t, http.MethodPost, "/api/upload/video/presigned", payload, token)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp, body = env.do(t, http.MethodGet, "/api/upload/limit", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["allowed"])
	assert.Equal(t, float64(0), body["remaining"])
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
}

func TestPresignVideoUpload_RejectsNonVideo(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.SeedUser(t, env.db, "creator")

	resp, _ := env.do(t, http.MethodPost, "/api/upload/video/presigned", map[string]interface{}{
		"filename": "notes.txt", "content_type": "text/plain", "size": 10,
	}, env.tokenFor(t, user))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadImage(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.SeedUser(t, env.db, "creator")

	var form bytes.Buffer
	w := multipart.NewWriter(&form)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="cover.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/image", &form)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, user))
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "4", resp.Header.Get("X-RateLimit-Remaining"))

	var body struct {
		Image struct {
			Key   string `json:"key"`
			Width int    `json:"width"`
		} `json:"image"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 8, body.Image.Width)
	obj, ok := env.store.Get(body.Image.Key)
	require.True(t, ok)
	assert.Equal(t, "image/webp", obj.ContentType)
}

func TestUploadImage_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.SeedUser(t, env.db, "creator")

	resp, body := env.do(t, http.MethodPost, "/api/upload/image", nil, env.tokenFor(t, user))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No file uploaded", body["error"])
}
