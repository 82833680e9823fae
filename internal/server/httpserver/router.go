package httpserver

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"
)

// HealthCheck reports whether a dependency is serving.
type HealthCheck func(ctx context.Context) error

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Metrics serves GET /metrics. Nil answers 404.
	Metrics http.Handler

	// Checks run by name order on GET /healthz; the first failure
	// answers 503.
	Checks map[string]HealthCheck

	// Logger for request logging.
	Logger *slog.Logger
}

// NewRouter creates the admin router with its middleware chain.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthz(cfg.Checks))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	// Order: RequestID -> Recover -> AccessLog -> mux
	return Chain(mux, RequestID(), Recover(logger), AccessLog(logger))
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, name := range slices.Sorted(maps.Keys(checks)) {
			if err := checks[name](ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(name + ": " + err.Error() + "\n"))
				return
			}
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}
