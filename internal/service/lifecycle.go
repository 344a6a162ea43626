package service

import (
	"fmt"
	"time"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

// planTransition decides whether moving from current to target changes the
// record. Repeating the current state is a no-op. Nothing leaves locked.
func planTransition(entity string, current, target models.EvaluationStatus) (bool, error) {
	if !target.Valid() {
		return false, apperror.Validation(
			fmt.Sprintf("invalid status %q", target),
			apperror.FieldError{Field: "status", Message: "must be one of pending, submitted, locked"},
		)
	}

	if current == target {
		return false, nil
	}

	if current == models.StatusLocked {
		return false, apperror.Locked(entity)
	}

	if target == models.StatusPending {
		return false, apperror.Validation(
			fmt.Sprintf("a %s %s cannot return to pending", current, entity),
			apperror.FieldError{Field: "status", Message: "cannot return to pending"},
		)
	}

	// pending -> submitted, pending -> locked, submitted -> locked
	return true, nil
}

// ensureMutable rejects field edits on locked records
func ensureMutable(entity string, status models.EvaluationStatus) error {
	if status == models.StatusLocked {
		return apperror.Locked(entity)
	}
	return nil
}

// stampTransition sets the status and its timestamps. submittedAt is only
// stamped once.
func stampTransition(status *models.EvaluationStatus, submittedAt, lockedAt **time.Time, target models.EvaluationStatus, at time.Time) {
	*status = target
	switch target {
	case models.StatusSubmitted:
		if *submittedAt == nil {
			t := at
			*submittedAt = &t
		}
	case models.StatusLocked:
		if *lockedAt == nil {
			t := at
			*lockedAt = &t
		}
	}
}
