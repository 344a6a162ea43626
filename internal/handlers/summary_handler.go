package handlers

import (
	"net/http"

	"thesis-eval/internal/service"
)

// SummaryHandler serves student evaluation summaries
type SummaryHandler struct {
	summaries *service.SummaryService
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(summaries *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

// StudentSummary returns the caller's recent defense results
// @Summary Student evaluation summary
// @Description Group, weighted, system and personal scores for the student's most recent defenses. Staff may pass studentId.
// @Tags Evaluation
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of defenses" default(50)
// @Param studentId query string false "Student ID (staff only)"
// @Success 200 {object} map[string]interface{} "ok, items"
// @Failure 400 {object} map[string]interface{} "Invalid limit"
// @Failure 403 {object} map[string]interface{} "Forbidden"
// @Router /student/evaluation-summary [get]
func (h *SummaryHandler) StudentSummary(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	studentID, _, err := queryUUID(r, "studentId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	items, err := h.summaries.StudentSummary(r.Context(), actor, studentID, page.Limit)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"items": items})
}
