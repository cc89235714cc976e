package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "mp_requests_seen_total", Help: "requests seen"}).Inc()

	healthy := map[string]Check{"postgres": func(context.Context) error { return nil }}
	router := NewRouter(reg, healthy, slog.Default())

	for _, tt := range []struct {
		path string
		code int
		body string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusOK, `"postgres":"ok"`},
		{"/metrics", http.StatusOK, "mp_requests_seen_total 1"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.code, rec.Code, tt.path)
		assert.Contains(t, rec.Body.String(), tt.body, tt.path)
	}
}

func TestReadinessFailure(t *testing.T) {
	checks := map[string]Check{"redis": func(context.Context) error { return errors.New("connection refused") }}
	router := NewRouter(prometheus.NewRegistry(), checks, slog.Default())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
