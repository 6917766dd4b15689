package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker reports whether a dependency can serve requests.
// Satisfied by repository.DatabaseHealth.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// healthHandler reports liveness and database reachability.
type healthHandler struct {
	db      HealthChecker
	timeout time.Duration
	logger  zerolog.Logger
}

func newHealthHandler(db HealthChecker, logger zerolog.Logger) *healthHandler {
	return &healthHandler{
		db:      db,
		timeout: 2 * time.Second,
		logger:  logger.With().Str("handler", "health").Logger(),
	}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Database: "unknown"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("database health check failed")
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Database: "unreachable"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Database: "ok"})
}
