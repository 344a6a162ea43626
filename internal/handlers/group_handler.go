package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"thesis-eval/internal/service"
	"thesis-eval/pkg/validator"
)

// GroupHandler handles thesis group requests
type GroupHandler struct {
	groups *service.GroupService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// GroupRequest is the body of a thesis group create or patch. An explicit
// null adviserId removes the adviser.
type GroupRequest struct {
	Title       *string      `json:"title" validate:"omitempty,notblank,max=255"`
	Description *string      `json:"description"`
	AdviserID   nullableUUID `json:"adviserId"`
	MemberIDs   *[]uuid.UUID `json:"memberIds"`
}

func (req GroupRequest) input() service.GroupInput {
	return service.GroupInput{
		Title:       req.Title,
		Description: req.Description,
		AdviserID:   req.AdviserID.ptr(),
		MemberIDs:   req.MemberIDs,
	}
}

// List lists thesis groups
// @Summary List thesis groups
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} map[string]interface{} "ok, total, groups"
// @Failure 400 {object} map[string]interface{} "Invalid paging"
// @Failure 403 {object} map[string]interface{} "Forbidden"
// @Router /groups [get]
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	groups, total, err := h.groups.List(r.Context(), page)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"total": total, "groups": groups})
}

// Get returns one thesis group
// @Summary Get a thesis group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} map[string]interface{} "ok, group"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	group, err := h.groups.Get(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"group": group})
}

// Create creates a thesis group
// @Summary Create a thesis group
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GroupRequest true "Group"
// @Success 201 {object} map[string]interface{} "ok, group"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Router /groups [post]
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var req GroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	group, err := h.groups.Create(r.Context(), actor, req.input())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, map[string]any{"group": group})
}

// Patch updates a thesis group
// @Summary Update a thesis group
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Param request body GroupRequest true "Fields to change"
// @Success 200 {object} map[string]interface{} "ok, group"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /groups/{id} [patch]
func (h *GroupHandler) Patch(w http.ResponseWriter, r *http.Request) {
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

	var req GroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	group, err := h.groups.Patch(r.Context(), actor, id, req.input())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"group": group})
}

// Delete deletes a thesis group
// @Summary Delete a thesis group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} map[string]interface{} "ok"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.groups.Delete(r.Context(), actor, id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"id": id})
}
