package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

// CreateStudentEvaluationInput is the payload for a student's feedback record
type CreateStudentEvaluationInput struct {
	ScheduleID uuid.UUID
	StudentID  uuid.UUID
	Status     *models.EvaluationStatus
	Answers    json.RawMessage
}

// PatchStudentEvaluationInput is a status-guarded edit. SubmittedAt is only
// honored while the record is, or becomes, submitted without a timestamp.
type PatchStudentEvaluationInput struct {
	Status      *models.EvaluationStatus
	Answers     json.RawMessage
	SubmittedAt *time.Time
}

// StudentEvaluationService manages student feedback submissions
type StudentEvaluationService struct {
	store     StudentEvaluationStore
	schedules ScheduleStore
	groups    GroupStore
	sealer    AnswerSealer
	audit     *AuditService
	events    EventPublisher
	now       func() time.Time
}

// NewStudentEvaluationService creates a new student evaluation service.
// A nil sealer stores answers as plain JSON.
func NewStudentEvaluationService(
	store StudentEvaluationStore,
	schedules ScheduleStore,
	groups GroupStore,
	sealer AnswerSealer,
	audit *AuditService,
	events EventPublisher,
) *StudentEvaluationService {
	if sealer == nil {
		sealer = plainSealer{}
	}
	return &StudentEvaluationService{
		store:     store,
		schedules: schedules,
		groups:    groups,
		sealer:    sealer,
		audit:     audit,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a student evaluation for a member of the schedule's group
func (s *StudentEvaluationService) Create(ctx context.Context, actor models.Actor, in CreateStudentEvaluationInput) (*models.StudentEvaluation, error) {
	if in.StudentID == uuid.Nil {
		in.StudentID = actor.UserID
	}
	if !actor.IsStaff() && in.StudentID != actor.UserID {
		return nil, apperror.Forbidden("student evaluations can only be opened for yourself")
	}

	status := models.StatusPending
	if in.Status != nil {
		status = *in.Status
	}
	if !status.Valid() {
		return nil, apperror.Validation("invalid status", apperror.FieldError{
			Field: "status", Message: "must be one of pending, submitted, locked",
		})
	}

	answers, err := normalizeAnswers(in.Answers)
	if err != nil {
		return nil, err
	}

	sched, err := s.schedules.GetByID(ctx, in.ScheduleID)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.GetByID(ctx, sched.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(in.StudentID) {
		return nil, apperror.Validation("student is not a member of the scheduled group", apperror.FieldError{
			Field: "studentId", Message: "must be a member of the thesis group",
		})
	}

	e := &models.StudentEvaluation{
		ScheduleID: in.ScheduleID,
		StudentID:  in.StudentID,
		Status:     models.StatusPending,
		Answers:    answers,
	}
	if status != models.StatusPending {
		stampTransition(&e.Status, &e.SubmittedAt, &e.LockedAt, status, s.now())
	}

	if err := s.write(ctx, e, func(sealed *models.StudentEvaluation) error {
		return s.store.Create(ctx, sealed)
	}); err != nil {
		return nil, fmt.Errorf("creating student evaluation: %w", err)
	}

	s.audit.Log(ctx, actor, ActionStudentEvaluationCreated, EntityStudentEvaluation, e.ID, map[string]any{
		"scheduleId": e.ScheduleID,
		"studentId":  e.StudentID,
		"status":     e.Status,
	})
	if e.Status != models.StatusPending {
		s.publish(ctx, actor, e)
	}
	return e, nil
}

// Get returns a student evaluation with its answers decrypted
func (s *StudentEvaluationService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.StudentEvaluation, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && e.StudentID != actor.UserID {
		return nil, apperror.Forbidden("you cannot view this student evaluation")
	}
	if err := s.open(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns student evaluations. Students only see their own.
func (s *StudentEvaluationService) List(ctx context.Context, actor models.Actor, filter StudentEvaluationFilter) ([]models.StudentEvaluation, int, error) {
	if !actor.IsStaff() {
		id := actor.UserID
		filter.StudentID = &id
	}

	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		if err := s.open(ctx, &items[i]); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

// Patch applies answers, a status move and a client submittedAt under the lifecycle rules
func (s *StudentEvaluationService) Patch(ctx context.Context, actor models.Actor, id uuid.UUID, in PatchStudentEvaluationInput) (*models.StudentEvaluation, error) {
	e, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	isOwner := e.StudentID == actor.UserID
	editsAnswers := in.Answers != nil
	if editsAnswers && !isOwner && !actor.HasRole(models.RoleAdmin) {
		return nil, apperror.Forbidden("only the student can edit their answers")
	}
	if editsAnswers {
		if err := ensureMutable(EntityStudentEvaluation, e.Status); err != nil {
			return nil, err
		}
	}

	target := e.Status
	if in.Status != nil {
		target = *in.Status
	}
	changed, err := planTransition(EntityStudentEvaluation, e.Status, target)
	if err != nil {
		return nil, err
	}
	if changed && target == models.StatusLocked && !actor.IsStaff() {
		return nil, apperror.Forbidden("only staff can lock a student evaluation")
	}

	// a client timestamp only fills a missing submittedAt of a submitted record
	var backfill *time.Time
	if in.SubmittedAt != nil && !in.SubmittedAt.IsZero() && e.SubmittedAt == nil && target == models.StatusSubmitted {
		t := in.SubmittedAt.UTC()
		backfill = &t
	}

	if !changed && !editsAnswers && backfill == nil {
		return e, nil
	}

	details := map[string]any{}
	if editsAnswers {
		answers, err := normalizeAnswers(in.Answers)
		if err != nil {
			return nil, err
		}
		e.Answers = answers
		details["answersUpdated"] = true
	}

	expected := e.Status
	at := s.now()
	if backfill != nil {
		e.SubmittedAt = backfill
		details["submittedAt"] = *backfill
	}
	if changed {
		stampTransition(&e.Status, &e.SubmittedAt, &e.LockedAt, target, at)
		details["from"] = expected
		details["to"] = target
	}

	if err := s.write(ctx, e, func(sealed *models.StudentEvaluation) error {
		return s.store.Update(ctx, sealed, expected)
	}); err != nil {
		return nil, fmt.Errorf("updating student evaluation: %w", err)
	}

	action := ActionStudentEvaluationUpdated
	switch {
	case changed && target == models.StatusSubmitted:
		action = ActionStudentEvaluationSubmitted
	case changed && target == models.StatusLocked:
		action = ActionStudentEvaluationLocked
	}
	s.audit.Log(ctx, actor, action, EntityStudentEvaluation, e.ID, details)

	if changed {
		s.publish(ctx, actor, e)
	}
	return e, nil
}

// write seals a copy of e, hands it to persist and copies the stored metadata back
func (s *StudentEvaluationService) write(ctx context.Context, e *models.StudentEvaluation, persist func(*models.StudentEvaluation) error) error {
	sealed, err := s.sealer.Seal(ctx, e.Answers)
	if err != nil {
		return apperror.Unavailable("failed to protect answers", err)
	}

	stored := *e
	stored.Answers = sealed
	if err := persist(&stored); err != nil {
		return err
	}

	e.ID = stored.ID
	e.CreatedAt = stored.CreatedAt
	e.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *StudentEvaluationService) open(ctx context.Context, e *models.StudentEvaluation) error {
	plain, err := s.sealer.Open(ctx, e.Answers)
	if err != nil {
		return apperror.Unavailable("failed to read answers", err)
	}
	e.Answers = plain
	return nil
}

func (s *StudentEvaluationService) publish(ctx context.Context, actor models.Actor, e *models.StudentEvaluation) {
	publishLifecycle(ctx, s.events, LifecycleEvent{
		Entity:     EntityStudentEvaluation,
		ID:         e.ID,
		ScheduleID: e.ScheduleID,
		SubjectID:  e.StudentID,
		ActorID:    actor.UserID,
		Status:     e.Status,
		OccurredAt: s.now(),
	})
}

// normalizeAnswers requires a JSON object or array; empty means {}
func normalizeAnswers(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(trimmed) || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, apperror.Validation("invalid answers", apperror.FieldError{
			Field: "answers", Message: "answers must be a JSON object or array",
		})
	}
	return json.RawMessage(trimmed), nil
}

// plainSealer stores answers unchanged
type plainSealer struct{}

func (plainSealer) Seal(_ context.Context, plaintext []byte) ([]byte, error) { return plaintext, nil }
func (plainSealer) Open(_ context.Context, stored []byte) ([]byte, error)    { return stored, nil }
