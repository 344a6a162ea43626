package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/models"
	"thesis-eval/internal/service"
	"thesis-eval/pkg/validator"
)

// CreateStudentEvaluationRequest opens a student's feedback record
type CreateStudentEvaluationRequest struct {
	ScheduleID uuid.UUID                `json:"scheduleId" validate:"required"`
	StudentID  uuid.UUID                `json:"studentId"`
	Status     *models.EvaluationStatus `json:"status" validate:"omitempty,oneof=pending submitted locked"`
	Answers    json.RawMessage          `json:"answers"`
}

// PatchStudentEvaluationRequest edits answers and moves the record through its lifecycle
type PatchStudentEvaluationRequest struct {
	Status      *models.EvaluationStatus `json:"status" validate:"omitempty,oneof=pending submitted locked"`
	Answers     json.RawMessage          `json:"answers"`
	SubmittedAt *time.Time               `json:"submittedAt"`
}

func (h *EvaluationHandler) getStudentEvaluations(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, ok, err := queryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if ok {
		record, err := h.studentEvaluations.Get(r.Context(), actor, id)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondOK(w, http.StatusOK, map[string]any{"studentEvaluation": record})
		return
	}

	page, err := parsePage(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	filter := service.StudentEvaluationFilter{Page: page}

	if id, ok, err := queryUUID(r, "scheduleId"); err != nil {
		respondWithError(w, r, err)
		return
	} else if ok {
		filter.ScheduleID = &id
	}
	if id, ok, err := queryUUID(r, "studentId"); err != nil {
		respondWithError(w, r, err)
		return
	} else if ok {
		filter.StudentID = &id
	}

	records, total, err := h.studentEvaluations.List(r.Context(), actor, filter)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"total": total, "studentEvaluations": records})
}

func (h *EvaluationHandler) createStudentEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req CreateStudentEvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	record, err := h.studentEvaluations.Create(r.Context(), actor, service.CreateStudentEvaluationInput{
		ScheduleID: req.ScheduleID,
		StudentID:  req.StudentID,
		Status:     req.Status,
		Answers:    req.Answers,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, map[string]any{"studentEvaluation": record})
}

func (h *EvaluationHandler) patchStudentEvaluation(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := requireQueryUUID(r, "id")
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var req PatchStudentEvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	record, err := h.studentEvaluations.Patch(r.Context(), actor, id, service.PatchStudentEvaluationInput{
		Status:      req.Status,
		Answers:     req.Answers,
		SubmittedAt: req.SubmittedAt,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"studentEvaluation": record})
}
