package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingMiddleware_NamesSpanAfterRoute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(7))
		return c.SendString("ok")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("database unavailable")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/posts/42", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get("X-Trace-ID"), 32)

	_, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /api/posts/:id", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
