package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
	"thesis-eval/internal/service"
	"thesis-eval/pkg/validator"
)

// ScheduleHandler handles defense schedule requests
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// ScheduleRequest is the body of a schedule create or patch. An explicit
// null rubricTemplateId detaches the rubric.
type ScheduleRequest struct {
	GroupID          *uuid.UUID             `json:"groupId"`
	ScheduledAt      *time.Time             `json:"scheduledAt"`
	Room             *string                `json:"room" validate:"omitempty,max=100"`
	Status           *models.ScheduleStatus `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
	RubricTemplateID nullableUUID           `json:"rubricTemplateId"`
	PanelistIDs      *[]uuid.UUID           `json:"panelistIds"`
}

func (req ScheduleRequest) input() service.ScheduleInput {
	return service.ScheduleInput{
		GroupID:          req.GroupID,
		ScheduledAt:      req.ScheduledAt,
		Room:             req.Room,
		Status:           req.Status,
		RubricTemplateID: req.RubricTemplateID.ptr(),
		PanelistIDs:      req.PanelistIDs,
	}
}

// List lists defense schedules
// @Summary List defense schedules
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param groupId query string false "Comma separated group IDs"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} map[string]interface{} "ok, total, schedules"
// @Failure 400 {object} map[string]interface{} "Invalid filter"
// @Router /schedules [get]
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	filter := service.ScheduleFilter{Page: page}

	for _, raw := range strings.Split(r.URL.Query().Get("groupId"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, r, apperror.Validation("invalid groupId", apperror.FieldError{
				Field: "groupId", Message: "groupId must be a UUID",
			}))
			return
		}
		filter.GroupIDs = append(filter.GroupIDs, id)
	}

	schedules, total, err := h.schedules.List(r.Context(), filter)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"total": total, "schedules": schedules})
}

// Get returns one defense schedule
// @Summary Get a defense schedule
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Schedule ID"
// @Success 200 {object} map[string]interface{} "ok, schedule"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	schedule, err := h.schedules.Get(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"schedule": schedule})
}

// Create creates a defense schedule
// @Summary Create a defense schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ScheduleRequest true "Schedule"
// @Success 201 {object} map[string]interface{} "ok, schedule"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "Group or rubric not found"
// @Router /schedules [post]
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	schedule, err := h.schedules.Create(r.Context(), actor, req.input())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, map[string]any{"schedule": schedule})
}

// Patch updates a defense schedule
// @Summary Update a defense schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Schedule ID"
// @Param request body ScheduleRequest true "Fields to change"
// @Success 200 {object} map[string]interface{} "ok, schedule"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /schedules/{id} [patch]
func (h *ScheduleHandler) Patch(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var req ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	schedule, err := h.schedules.Patch(r.Context(), actor, id, req.input())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"schedule": schedule})
}
