package handlers

import (
	"context"
	"net/http"
	"time"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports process liveness and dependency readiness.
type HealthHandler struct {
	checks map[string]HealthChecker
	now    func() time.Time
}

func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	return &HealthHandler{
		checks: map[string]HealthChecker{
			"postgres": db,
			"redis":    redis,
		},
		now: time.Now,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Health answers as long as the process can serve requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Ready checks Postgres and Redis.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "ready",
		Checks:    make(map[string]string, len(h.checks)),
		Timestamp: h.now().UTC().Format(time.RFC3339),
	}
	for name, checker := range h.checks {
		if checker == nil {
			continue
		}
		if err := checker.Health(ctx); err != nil {
			response.Status = "not ready"
			response.Checks[name] = "unhealthy: " + err.Error()
			continue
		}
		response.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if response.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
