//go:build !integration

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"video-analyzer/internal/infra/logging"
)

func TestMiddleware(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("trace id is propagated from the caller", func(t *testing.T) {
		var seen string
		h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logging.TraceIDFrom(r.Context())
		}), TraceID(&logger))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if seen != "abc" || rec.Header().Get("X-Request-ID") != "abc" {
			t.Errorf("wanted abc in context and header, got %q / %q", seen, rec.Header().Get("X-Request-ID"))
		}
	})

	t.Run("panics become a json 500", func(t *testing.T) {
		h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}), RequestLog(&logger), Recover(&logger))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("wanted 500, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"error"`) {
			t.Errorf("wanted a json error body, got %q", rec.Body.String())
		}
	})

	t.Run("timeout sets a deadline", func(t *testing.T) {
		var ok bool
		h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok = r.Context().Deadline()
		}), Timeout(time.Second))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if !ok {
			t.Error("wanted a request deadline")
		}
	})
}
