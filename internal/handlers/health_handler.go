package handlers

import (
	"context"
	"net/http"

	"thesis-eval/internal/apperror"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type namedCheck struct {
	name    string
	checker HealthChecker
}

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	db      HealthChecker
	extra   []namedCheck
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// WithCheck adds a dependency that must be healthy for /health to succeed
func (h *HealthHandler) WithCheck(name string, checker HealthChecker) *HealthHandler {
	h.extra = append(h.extra, namedCheck{name: name, checker: checker})
	return h
}

// Health reports service, database and optional dependency status
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "healthy"
// @Failure 503 {object} map[string]interface{} "dependency unreachable"
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respondWithError(w, r, err)
		return
	}

	checks := map[string]string{"database": "ok"}
	for _, c := range h.extra {
		if err := c.checker.HealthCheck(r.Context()); err != nil {
			respondWithError(w, r, apperror.Unavailable(c.name+" health check failed", err))
			return
		}
		checks[c.name] = "ok"
	}

	respondOK(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": h.version,
		"checks":  checks,
	})
}
