package handlers

import (
	"net/http"
	"strings"

	"thesis-eval/internal/models"
	"thesis-eval/internal/service"
)

// AuditHandler handles audit log requests
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{
		audit: audit,
	}
}

// ListAuditLogs lists audit logs newest first (admin only)
// @Summary List audit logs
// @Description Get a filtered, paginated list of audit logs (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param entity query string false "Entity name, e.g. evaluation"
// @Param action query string false "Action, e.g. evaluation_locked"
// @Param actorId query string false "Acting user ID"
// @Param limit query int false "Items per page" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} map[string]interface{} "ok, total, logs"
// @Failure 400 {object} map[string]interface{} "Invalid parameters"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 403 {object} map[string]interface{} "Forbidden - admin only"
// @Router /audit-logs [get]
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	filter := models.AuditFilter{
		Entity: strings.TrimSpace(r.URL.Query().Get("entity")),
		Action: strings.TrimSpace(r.URL.Query().Get("action")),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if id, ok, err := queryUUID(r, "actorId"); err != nil {
		respondWithError(w, r, err)
		return
	} else if ok {
		filter.ActorID = &id
	}

	logs, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"total": total, "logs": logs})
}
