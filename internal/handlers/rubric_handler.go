package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"thesis-eval/internal/models"
	"thesis-eval/internal/service"
	"thesis-eval/pkg/validator"
)

// TemplateRequest is the body of a rubric template create or patch
type TemplateRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=255"`
	Description *string `json:"description"`
	Version     *int    `json:"version" validate:"omitempty,min=1"`
	Active      *bool   `json:"active"`
}

func (req TemplateRequest) input() service.TemplateInput {
	return service.TemplateInput{
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Active:      req.Active,
	}
}

// CriterionRequest is the body of a rubric criterion create or patch
type CriterionRequest struct {
	TemplateID  uuid.UUID `json:"templateId"`
	Criterion   *string   `json:"criterion" validate:"omitempty,notblank,max=255"`
	Description *string   `json:"description"`
	Weight      *float64  `json:"weight" validate:"omitempty,gt=0"`
	MinScore    *int      `json:"minScore" validate:"omitempty,min=0"`
	MaxScore    *int      `json:"maxScore" validate:"omitempty,min=0"`
}

func (req CriterionRequest) input() service.CriterionInput {
	return service.CriterionInput{
		Criterion:   req.Criterion,
		Description: req.Description,
		Weight:      req.Weight,
		MinScore:    req.MinScore,
		MaxScore:    req.MaxScore,
	}
}

func (h *EvaluationHandler) getTemplates(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	id, ok, err := queryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if ok {
		template, err := h.rubrics.GetTemplate(r.Context(), id)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondOK(w, http.StatusOK, map[string]any{"template": template})
		return
	}

	page, err := parsePage(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	templates, total, err := h.rubrics.ListTemplates(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")), page)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"total": total, "templates": templates})
}

func (h *EvaluationHandler) createTemplate(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req TemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	template, err := h.rubrics.CreateTemplate(r.Context(), actor, req.input())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, map[string]any{"template": template})
}

func (h *EvaluationHandler) patchTemplate(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := requireQueryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var req TemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	template, err := h.rubrics.PatchTemplate(r.Context(), actor, id, req.input())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"template": template})
}

func (h *EvaluationHandler) deleteTemplate(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := requireQueryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.rubrics.DeleteTemplate(r.Context(), actor, id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"id": id})
}

func (h *EvaluationHandler) getCriteria(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	templateID, err := requireQueryUUID(r, "templateId")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	criteria, err := h.rubrics.ListCriteria(r.Context(), templateID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"criteria": criteria})
}

func (h *EvaluationHandler) createCriterion(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req CriterionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if req.TemplateID == uuid.Nil {
		// allow ?templateId= for clients that keep it in the URL
		id, err := requireQueryUUID(r, "templateId")
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		req.TemplateID = id
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	criterion, err := h.rubrics.AddCriterion(r.Context(), actor, req.TemplateID, req.input())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, map[string]any{"criterion": criterion})
}

func (h *EvaluationHandler) patchCriterion(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := requireQueryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var req CriterionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	criterion, err := h.rubrics.PatchCriterion(r.Context(), actor, id, req.input())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"criterion": criterion})
}

func (h *EvaluationHandler) deleteCriterion(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := requireQueryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.rubrics.DeleteCriterion(r.Context(), actor, id); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"id": id})
}
