package handlers

import (
	"net/http"

	"thesis-eval/internal/middleware"
	"thesis-eval/internal/models"
)

// Handlers groups every HTTP handler mounted by Register
type Handlers struct {
	Auth       *AuthHandler
	Evaluation *EvaluationHandler
	Summary    *SummaryHandler
	Groups     *GroupHandler
	Schedules  *ScheduleHandler
	Audit      *AuditHandler
	Health     *HealthHandler
}

// Register mounts the API routes on mux
func (h *Handlers) Register(mux *http.ServeMux, authMw *middleware.AuthMiddleware) {
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleStaff)
	admin := middleware.RequireRole(models.RoleAdmin)

	protect := func(handler http.HandlerFunc) http.Handler {
		return authMw.Authenticate(handler)
	}
	withRole := func(role func(http.Handler) http.Handler, handler http.HandlerFunc) http.Handler {
		return authMw.Authenticate(role(handler))
	}

	// Public routes
	mux.HandleFunc("POST "+AuthAPIBasePath+"/login", h.Auth.Login)
	mux.HandleFunc("POST "+AuthAPIBasePath+"/logout", h.Auth.Logout)
	mux.HandleFunc("POST "+AuthAPIBasePath+"/password-reset/request", h.Auth.RequestPasswordReset)
	mux.HandleFunc("POST "+AuthAPIBasePath+"/password-reset/confirm", h.Auth.ResetPassword)
	mux.HandleFunc("GET /health", h.Health.Health)

	// Protected routes
	mux.Handle("GET "+AuthAPIBasePath+"/me", protect(h.Auth.Me))
	mux.Handle("/api/evaluation", protect(h.Evaluation.Handle))
	mux.Handle("GET /api/student/evaluation-summary", protect(h.Summary.StudentSummary))

	// Staff and admin reads
	mux.Handle("GET /api/groups", withRole(staff, h.Groups.List))
	mux.Handle("GET /api/groups/{id}", withRole(staff, h.Groups.Get))
	mux.Handle("GET /api/schedules", withRole(staff, h.Schedules.List))
	mux.Handle("GET /api/schedules/{id}", withRole(staff, h.Schedules.Get))

	// Admin routes
	mux.Handle("POST /api/groups", withRole(admin, h.Groups.Create))
	mux.Handle("PATCH /api/groups/{id}", withRole(admin, h.Groups.Patch))
	mux.Handle("DELETE /api/groups/{id}", withRole(admin, h.Groups.Delete))
	mux.Handle("POST /api/schedules", withRole(admin, h.Schedules.Create))
	mux.Handle("PATCH /api/schedules/{id}", withRole(admin, h.Schedules.Patch))
	mux.Handle("GET /api/audit-logs", withRole(admin, h.Audit.ListAuditLogs))
}
