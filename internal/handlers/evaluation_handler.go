package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
	"thesis-eval/internal/service"
	"thesis-eval/pkg/validator"
)

// Resources served by the /api/evaluation dispatcher
const (
	ResourceRubricTemplates      = "rubricTemplates"
	ResourceRubricCriteria       = "rubricCriteria"
	ResourceEvaluations          = "evaluations"
	ResourceEvaluationScores     = "evaluationScores"
	ResourceEvaluationScoresBulk = "evaluationScoresBulk"
	ResourceStudentEvaluations   = "studentEvaluations"
)

// EvaluationHandler serves the rubric, scoring and student evaluation
// resources behind one route selected by ?resource=
type EvaluationHandler struct {
	rubrics            *service.RubricService
	evaluations        *service.EvaluationService
	studentEvaluations *service.StudentEvaluationService
	table              map[string]resourceRoutes
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(
	rubrics *service.RubricService,
	evaluations *service.EvaluationService,
	studentEvaluations *service.StudentEvaluationService,
) *EvaluationHandler {
	h := &EvaluationHandler{
		rubrics:            rubrics,
		evaluations:        evaluations,
		studentEvaluations: studentEvaluations,
	}
	h.table = h.routes()
	return h
}

type resourceAction func(w http.ResponseWriter, r *http.Request, actor models.Actor)

// Handle dispatches an evaluation API request by resource and method
// @Summary Evaluation API
// @Description Rubric templates and criteria, panelist evaluations and scores, and student evaluations, selected by the resource query parameter
// @Tags Evaluation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param resource query string true "Resource" Enums(rubricTemplates, rubricCriteria, evaluations, evaluationScores, evaluationScoresBulk, studentEvaluations)
// @Param id query string false "Record ID for single-record GET, PATCH and DELETE"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} map[string]interface{} "ok envelope with the requested records"
// @Success 201 {object} map[string]interface{} "ok envelope with the created record"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 403 {object} map[string]interface{} "Forbidden"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Failure 409 {object} map[string]interface{} "Locked or conflicting update"
// @Router /evaluation [get]
// @Router /evaluation [post]
// @Router /evaluation [patch]
// @Router /evaluation [delete]
func (h *EvaluationHandler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	routes, ok := h.table[r.URL.Query().Get("resource")]
	if !ok {
		respondWithError(w, r, apperror.Validation(ErrMsgUnknownResource, apperror.FieldError{
			Field:   "resource",
			Message: "unknown or missing resource",
		}))
		return
	}

	action, ok := routes.actions[r.Method]
	if !ok {
		respondMethodNotAllowed(w, routes.allow)
		return
	}
	if routes.staffOnly[r.Method] && !actor.IsStaff() {
		respondWithError(w, r, apperror.Forbidden("Insufficient permissions"))
		return
	}

	action(w, r, actor)
}

type resourceRoutes struct {
	actions   map[string]resourceAction
	staffOnly map[string]bool
	allow     string
}

func (h *EvaluationHandler) routes() map[string]resourceRoutes {
	staffWrites := map[string]bool{
		http.MethodPost:   true,
		http.MethodPatch:  true,
		http.MethodDelete: true,
	}
	allStaff := map[string]bool{
		http.MethodGet:    true,
		http.MethodPost:   true,
		http.MethodPatch:  true,
		http.MethodDelete: true,
	}

	return map[string]resourceRoutes{
		ResourceRubricTemplates: {
			actions: map[string]resourceAction{
				http.MethodGet:    h.getTemplates,
				http.MethodPost:   h.createTemplate,
				http.MethodPatch:  h.patchTemplate,
				http.MethodDelete: h.deleteTemplate,
			},
			staffOnly: staffWrites,
			allow:     "GET, POST, PATCH, DELETE",
		},
		ResourceRubricCriteria: {
			actions: map[string]resourceAction{
				http.MethodGet:    h.getCriteria,
				http.MethodPost:   h.createCriterion,
				http.MethodPatch:  h.patchCriterion,
				http.MethodDelete: h.deleteCriterion,
			},
			staffOnly: staffWrites,
			allow:     "GET, POST, PATCH, DELETE",
		},
		ResourceEvaluations: {
			actions: map[string]resourceAction{
				http.MethodGet:    h.getEvaluations,
				http.MethodPost:   h.createEvaluation,
				http.MethodPatch:  h.patchEvaluation,
				http.MethodDelete: h.deleteEvaluation,
			},
			staffOnly: allStaff,
			allow:     "GET, POST, PATCH, DELETE",
		},
		ResourceEvaluationScores: {
			actions: map[string]resourceAction{
				http.MethodGet:  h.getScores,
				http.MethodPost: h.upsertScore,
			},
			staffOnly: allStaff,
			allow:     "GET, POST",
		},
		ResourceEvaluationScoresBulk: {
			actions: map[string]resourceAction{
				http.MethodPost: h.upsertScoresBulk,
			},
			staffOnly: allStaff,
			allow:     "POST",
		},
		ResourceStudentEvaluations: {
			actions: map[string]resourceAction{
				http.MethodGet:   h.getStudentEvaluations,
				http.MethodPost:  h.createStudentEvaluation,
				http.MethodPatch: h.patchStudentEvaluation,
			},
			allow: "GET, POST, PATCH",
		},
	}
}

// CreateEvaluationRequest opens an evaluation for a panelist
type CreateEvaluationRequest struct {
	ScheduleID  uuid.UUID                `json:"scheduleId" validate:"required"`
	EvaluatorID uuid.UUID                `json:"evaluatorId" validate:"required"`
	Status      *models.EvaluationStatus `json:"status" validate:"omitempty,oneof=pending submitted locked"`
}

// PatchEvaluationRequest moves an evaluation and/or edits its scores
type PatchEvaluationRequest struct {
	Status         *models.EvaluationStatus           `json:"status" validate:"omitempty,oneof=pending submitted locked"`
	SystemScore    *float64                           `json:"systemScore"`
	MembersOverall map[uuid.UUID]models.MemberOverall `json:"membersOverall"`
}

// ScoreRequest upserts one criterion score
type ScoreRequest struct {
	EvaluationID uuid.UUID `json:"evaluationId" validate:"required"`
	CriterionID  uuid.UUID `json:"criterionId" validate:"required"`
	Score        *int      `json:"score" validate:"required"`
	Comment      string    `json:"comment" validate:"max=2000"`
}

// ScoreItem is one entry of a bulk upsert
type ScoreItem struct {
	CriterionID uuid.UUID `json:"criterionId" validate:"required"`
	Score       *int      `json:"score" validate:"required"`
	Comment     string    `json:"comment" validate:"max=2000"`
}

func (i ScoreItem) input() service.ScoreInput {
	return service.ScoreInput{CriterionID: i.CriterionID, Score: *i.Score, Comment: i.Comment}
}

// BulkScoreRequest upserts a batch of scores in one transaction
type BulkScoreRequest struct {
	EvaluationID uuid.UUID   `json:"evaluationId" validate:"required"`
	Items        []ScoreItem `json:"items" validate:"required,min=1,dive"`
}

func (h *EvaluationHandler) getEvaluations(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, ok, err := queryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if ok {
		evaluation, err := h.evaluations.Get(r.Context(), actor, id)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondOK(w, http.StatusOK, map[string]any{"evaluation": evaluation})
		return
	}

	filter, err := evaluationFilter(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	evaluations, total, err := h.evaluations.List(r.Context(), actor, filter)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"total": total, "evaluations": evaluations})
}

func evaluationFilter(r *http.Request) (service.EvaluationFilter, error) {
	var filter service.EvaluationFilter

	page, err := parsePage(r)
	if err != nil {
		return filter, err
	}
	filter.Page = page

	if id, ok, err := queryUUID(r, "scheduleId"); err != nil {
		return filter, err
	} else if ok {
		filter.ScheduleID = &id
	}
	if id, ok, err := queryUUID(r, "evaluatorId"); err != nil {
		return filter, err
	} else if ok {
		filter.EvaluatorID = &id
	}

	statuses, err := parseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		return filter, err
	}
	filter.Statuses = statuses
	return filter, nil
}

// parseStatuses reads a comma separated status list
func parseStatuses(raw string) ([]models.EvaluationStatus, error) {
	var statuses []models.EvaluationStatus
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		status := models.EvaluationStatus(part)
		if !status.Valid() {
			return nil, apperror.Validation("invalid status", apperror.FieldError{
				Field:   "status",
				Message: "status must be one of pending, submitted, locked",
			})
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (h *EvaluationHandler) createEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req CreateEvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	evaluation, err := h.evaluations.Create(r.Context(), actor, service.CreateEvaluationInput{
		ScheduleID:  req.ScheduleID,
		EvaluatorID: req.EvaluatorID,
		Status:      req.Status,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, map[string]any{"evaluation": evaluation})
}

func (h *EvaluationHandler) patchEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := requireQueryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var req PatchEvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	evaluation, err := h.evaluations.Patch(r.Context(), actor, id, service.PatchEvaluationInput{
		Status:         req.Status,
		SystemScore:    req.SystemScore,
		MembersOverall: req.MembersOverall,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"evaluation": evaluation})
}

func (h *EvaluationHandler) deleteEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := requireQueryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.evaluations.Delete(r.Context(), actor, id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"id": id})
}

func (h *EvaluationHandler) getScores(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	evaluationID, err := requireQueryUUID(r, "evaluationId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	scores, err := h.evaluations.ListScores(r.Context(), actor, evaluationID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"scores": scores})
}

func (h *EvaluationHandler) upsertScore(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req ScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	score, err := h.evaluations.UpsertScore(r.Context(), actor, req.EvaluationID, service.ScoreInput{
		CriterionID: req.CriterionID,
		Score:       *req.Score,
		Comment:     req.Comment,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"score": score})
}

func (h *EvaluationHandler) upsertScoresBulk(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req BulkScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	items := make([]service.ScoreInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, item.input())
	}

	scores, err := h.evaluations.UpsertScores(r.Context(), actor, req.EvaluationID, items)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"scores": scores})
}
