package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/sqsx/core/logger"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Liveness indicates the process is running.
// Always returns "ALIVE" with 200 OK.
func Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ALIVE"))
}

// Readiness runs every check in order.
// Returns "READY" if all pass, 503 Service Unavailable on the first failure.
func Readiness(log *slog.Logger, checks ...Check) http.Handler {
	if log == nil {
		log = logger.Discard()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "Readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(http.StatusText(http.StatusServiceUnavailable)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})
}
