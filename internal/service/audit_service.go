package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"thesis-eval/internal/models"
)

// Audit actions
const (
	ActionRubricTemplateCreated      = "rubric_template_created"
	ActionRubricTemplateUpdated      = "rubric_template_updated"
	ActionRubricTemplateDeleted      = "rubric_template_deleted"
	ActionRubricCriterionCreated     = "rubric_criterion_created"
	ActionRubricCriterionUpdated     = "rubric_criterion_updated"
	ActionRubricCriterionDeleted     = "rubric_criterion_deleted"
	ActionThesisGroupCreated         = "thesis_group_created"
	ActionThesisGroupUpdated         = "thesis_group_updated"
	ActionThesisGroupDeleted         = "thesis_group_deleted"
	ActionScheduleCreated            = "defense_schedule_created"
	ActionScheduleUpdated            = "defense_schedule_updated"
	ActionEvaluationCreated          = "evaluation_created"
	ActionEvaluationUpdated          = "evaluation_updated"
	ActionEvaluationSubmitted        = "evaluation_submitted"
	ActionEvaluationLocked           = "evaluation_locked"
	ActionEvaluationDeleted          = "evaluation_deleted"
	ActionEvaluationScoresUpserted   = "evaluation_scores_upserted"
	ActionStudentEvaluationCreated   = "student_evaluation_created"
	ActionStudentEvaluationUpdated   = "student_evaluation_updated"
	ActionStudentEvaluationSubmitted = "student_evaluation_submitted"
	ActionStudentEvaluationLocked    = "student_evaluation_locked"
	ActionUserLoggedIn               = "user_logged_in"
	ActionPasswordResetRequested     = "password_reset_requested"
	ActionPasswordResetCompleted     = "password_reset_completed"
)

// Audited entity names
const (
	EntityRubricTemplate    = "rubric_template"
	EntityRubricCriterion   = "rubric_criterion"
	EntityThesisGroup       = "thesis_group"
	EntityDefenseSchedule   = "defense_schedule"
	EntityEvaluation        = "evaluation"
	EntityStudentEvaluation = "student_evaluation"
	EntityUser              = "user"
)

// AuditService appends audit log entries on behalf of the other services
type AuditService struct {
	store AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Log appends one entry. Failures are logged and never returned so the
// primary operation is unaffected.
func (s *AuditService) Log(ctx context.Context, actor models.Actor, action, entity string, entityID uuid.UUID, details any) {
	entry := &models.AuditLog{
		Action:    action,
		Entity:    entity,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		entry.ActorID = &id
	}
	if entityID != uuid.Nil {
		id := entityID
		entry.EntityID = &id
	}

	raw, err := json.Marshal(details)
	if err != nil || details == nil {
		raw = json.RawMessage(`{}`)
	}
	entry.Details = raw

	// the request may already be cancelled once the response is written
	if err := s.store.Create(context.WithoutCancel(ctx), entry); err != nil {
		slog.Error("Failed to write audit log",
			"action", action,
			"entity", entity,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// List returns audit entries matching filter, newest first
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	return s.store.List(ctx, filter)
}
