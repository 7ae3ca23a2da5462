package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

const readinessTimeout = 2 * time.Second

// HealthChecker is a backing dependency that can report its own health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ReadinessHandler reports whether the assessment store and its optional
// backends are reachable.
type ReadinessHandler struct {
	checks map[string]HealthChecker
}

// NewReadinessHandler creates a handler over named dependencies. Nil entries are skipped.
func NewReadinessHandler(checks map[string]HealthChecker) *ReadinessHandler {
	live := make(map[string]HealthChecker, len(checks))
	for name, check := range checks {
		if check != nil {
			live[name] = check
		}
	}
	return &ReadinessHandler{checks: live}
}

// ReadinessResponse lists each dependency as "ok" or its failure
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GetReadiness handles GET /ready
func (h *ReadinessHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name].Health(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("Readiness check failed")
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	respondWithJSON(w, status, resp)
}
