package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("Generates ID when missing", func(t *testing.T) {
		var seen string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFrom(r.Context())
		})

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		RequestIDMiddleware(next).ServeHTTP(w, req)

		assert.NotEmpty(t, seen, "Request ID should be present in context")
		assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	})

	t.Run("Preserves existing ID", func(t *testing.T) {
		var seen string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFrom(r.Context())
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", "test-id-123")
		w := httptest.NewRecorder()

		RequestIDMiddleware(next).ServeHTTP(w, req)

		assert.Equal(t, "test-id-123", seen)
		assert.Equal(t, "test-id-123", w.Header().Get("X-Request-ID"))
	})
}

func TestFromCtx(t *testing.T) {
	t.Run("Without request ID returns global logger", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		assert.NotNil(t, FromCtx(req.Context()))
	})

	t.Run("With request ID", func(t *testing.T) {
		ctx := WithRequestID(httptest.NewRequest("GET", "/test", nil).Context(), "abc")
		assert.Equal(t, "abc", RequestIDFrom(ctx))
		assert.NotNil(t, FromCtx(ctx))
	})
}
