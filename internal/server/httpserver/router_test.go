package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/pedis-go/internal/telemetry/metric"
)

func TestRouter_Healthz(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantBody:   "ok\n",
		},
		{
			name: "passing check",
			checks: map[string]HealthCheck{
				"store": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok\n",
		},
		{
			name: "failing check",
			checks: map[string]HealthCheck{
				"redis": func(context.Context) error { return errors.New("not listening") },
				"store": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "redis: not listening\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(&RouterConfig{Checks: tt.checks})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("X-Request-ID header not set")
			}
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	reg.ObserveCommand("get", "ok", 0)

	router := NewRouter(&RouterConfig{Metrics: reg.Handler()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pedis_commands_total") {
		t.Error("metrics output missing pedis_commands_total")
	}
}

func TestRouter_MetricsDisabled(t *testing.T) {
	router := NewRouter(&RouterConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := NewRouter(&RouterConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/healthz", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
