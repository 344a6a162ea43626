package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

// CreateEvaluationInput is the payload for creating a panelist evaluation
type CreateEvaluationInput struct {
	ScheduleID  uuid.UUID
	EvaluatorID uuid.UUID
	Status      *models.EvaluationStatus
}

// PatchEvaluationInput carries a status move and the evaluator-supplied fields
type PatchEvaluationInput struct {
	Status         *models.EvaluationStatus
	SystemScore    *float64
	MembersOverall map[uuid.UUID]models.MemberOverall
}

// ScoreInput is one criterion score in an upsert
type ScoreInput struct {
	CriterionID uuid.UUID
	Score       int
	Comment     string
}

// EvaluationService manages panelist evaluations and their scores
type EvaluationService struct {
	store     EvaluationStore
	schedules ScheduleStore
	groups    GroupStore
	rubrics   RubricStore
	audit     *AuditService
	events    EventPublisher
	now       func() time.Time
}

// NewEvaluationService creates a new evaluation service
func NewEvaluationService(
	store EvaluationStore,
	schedules ScheduleStore,
	groups GroupStore,
	rubrics RubricStore,
	audit *AuditService,
	events EventPublisher,
) *EvaluationService {
	return &EvaluationService{
		store:     store,
		schedules: schedules,
		groups:    groups,
		rubrics:   rubrics,
		audit:     audit,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create opens an evaluation for a panelist assigned to the schedule
func (s *EvaluationService) Create(ctx context.Context, actor models.Actor, in CreateEvaluationInput) (*models.Evaluation, error) {
	if in.EvaluatorID == uuid.Nil {
		in.EvaluatorID = actor.UserID
	}
	if !actor.HasRole(models.RoleAdmin) && in.EvaluatorID != actor.UserID {
		return nil, apperror.Forbidden("evaluations can only be opened for yourself")
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

	sched, err := s.schedules.GetByID(ctx, in.ScheduleID)
	if err != nil {
		return nil, err
	}
	if !sched.HasPanelist(in.EvaluatorID) {
		return nil, apperror.Validation("evaluator is not a panelist of this schedule", apperror.FieldError{
			Field: "evaluatorId", Message: "must be an assigned panelist",
		})
	}

	e := &models.Evaluation{
		ScheduleID:     in.ScheduleID,
		EvaluatorID:    in.EvaluatorID,
		Status:         models.StatusPending,
		MembersOverall: map[uuid.UUID]models.MemberOverall{},
	}
	if status != models.StatusPending {
		stampTransition(&e.Status, &e.SubmittedAt, &e.LockedAt, status, s.now())
	}

	if err := s.store.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("creating evaluation: %w", err)
	}

	s.audit.Log(ctx, actor, ActionEvaluationCreated, EntityEvaluation, e.ID, map[string]any{
		"scheduleId":  e.ScheduleID,
		"evaluatorId": e.EvaluatorID,
		"status":      e.Status,
	})
	if e.Status != models.StatusPending {
		s.publish(ctx, actor, e)
	}
	return e, nil
}

// Get returns an evaluation the actor may see
func (s *EvaluationService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Evaluation, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeEvaluation(actor, e); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns evaluations. Non-admins only see their own.
func (s *EvaluationService) List(ctx context.Context, actor models.Actor, filter EvaluationFilter) ([]models.Evaluation, int, error) {
	if !actor.HasRole(models.RoleAdmin) {
		id := actor.UserID
		filter.EvaluatorID = &id
	}
	return s.store.List(ctx, filter)
}

// Patch applies a status move and/or evaluator-supplied fields.
// Field edits on a locked evaluation fail; repeating the current status is a no-op.
func (s *EvaluationService) Patch(ctx context.Context, actor models.Actor, id uuid.UUID, in PatchEvaluationInput) (*models.Evaluation, error) {
	e, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	editsFields := in.SystemScore != nil || in.MembersOverall != nil
	if editsFields {
		if err := ensureMutable(EntityEvaluation, e.Status); err != nil {
			return nil, err
		}
	}

	target := e.Status
	if in.Status != nil {
		target = *in.Status
	}
	changed, err := planTransition(EntityEvaluation, e.Status, target)
	if err != nil {
		return nil, err
	}
	if !changed && !editsFields {
		return e, nil
	}

	details := map[string]any{}
	if editsFields {
		if err := s.applyFields(ctx, e, in); err != nil {
			return nil, err
		}
		setIf(details, "systemScore", in.SystemScore)
		if in.MembersOverall != nil {
			details["membersOverall"] = in.MembersOverall
		}
	}

	expected := e.Status
	if changed {
		stampTransition(&e.Status, &e.SubmittedAt, &e.LockedAt, target, s.now())
		details["from"] = expected
		details["to"] = target
	}

	if err := s.store.Update(ctx, e, expected); err != nil {
		return nil, fmt.Errorf("updating evaluation: %w", err)
	}

	action := ActionEvaluationUpdated
	switch {
	case changed && target == models.StatusSubmitted:
		action = ActionEvaluationSubmitted
	case changed && target == models.StatusLocked:
		action = ActionEvaluationLocked
	}
	s.audit.Log(ctx, actor, action, EntityEvaluation, e.ID, details)

	if changed {
		s.publish(ctx, actor, e)
	}
	return e, nil
}

// Submit moves a pending evaluation to submitted
func (s *EvaluationService) Submit(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Evaluation, error) {
	status := models.StatusSubmitted
	return s.Patch(ctx, actor, id, PatchEvaluationInput{Status: &status})
}

// Lock freezes an evaluation. Locking a locked evaluation returns it unchanged.
func (s *EvaluationService) Lock(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Evaluation, error) {
	status := models.StatusLocked
	return s.Patch(ctx, actor, id, PatchEvaluationInput{Status: &status})
}

// Delete removes an evaluation and its scores. Admin only.
func (s *EvaluationService) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if !actor.HasRole(models.RoleAdmin) {
		return apperror.Forbidden("only administrators can delete evaluations")
	}

	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting evaluation: %w", err)
	}

	s.audit.Log(ctx, actor, ActionEvaluationDeleted, EntityEvaluation, id, map[string]any{
		"scheduleId":  e.ScheduleID,
		"evaluatorId": e.EvaluatorID,
		"status":      e.Status,
	})
	return nil
}

// ListScores returns the criterion scores of an evaluation
func (s *EvaluationService) ListScores(ctx context.Context, actor models.Actor, evaluationID uuid.UUID) ([]models.EvaluationScore, error) {
	if _, err := s.Get(ctx, actor, evaluationID); err != nil {
		return nil, err
	}
	return s.store.ListScores(ctx, evaluationID)
}

// UpsertScore writes a single criterion score
func (s *EvaluationService) UpsertScore(ctx context.Context, actor models.Actor, evaluationID uuid.UUID, in ScoreInput) (*models.EvaluationScore, error) {
	scores, err := s.UpsertScores(ctx, actor, evaluationID, []ScoreInput{in})
	if err != nil {
		return nil, err
	}
	return &scores[0], nil
}

// UpsertScores validates every item against the schedule's rubric and then
// writes all of them in one transaction, or none.
func (s *EvaluationService) UpsertScores(ctx context.Context, actor models.Actor, evaluationID uuid.UUID, items []ScoreInput) ([]models.EvaluationScore, error) {
	if len(items) == 0 {
		return nil, apperror.Validation("at least one score is required", apperror.FieldError{
			Field: "items", Message: "must contain at least 1 item",
		})
	}

	e, err := s.Get(ctx, actor, evaluationID)
	if err != nil {
		return nil, err
	}
	if err := ensureMutable(EntityEvaluation, e.Status); err != nil {
		return nil, err
	}

	criteria, err := s.scheduleCriteria(ctx, e.ScheduleID)
	if err != nil {
		return nil, err
	}

	if err := validateScoreItems(items, criteria, len(items) > 1); err != nil {
		return nil, err
	}

	scores := make([]models.EvaluationScore, len(items))
	for i, item := range items {
		scores[i] = models.EvaluationScore{
			EvaluationID: evaluationID,
			CriterionID:  item.CriterionID,
			Score:        item.Score,
			Comment:      item.Comment,
		}
	}

	saved, err := s.store.UpsertScores(ctx, evaluationID, scores, func(locked *models.Evaluation) error {
		return ensureMutable(EntityEvaluation, locked.Status)
	})
	if err != nil {
		return nil, fmt.Errorf("upserting scores: %w", err)
	}

	logged := make([]map[string]any, len(saved))
	for i, sc := range saved {
		logged[i] = map[string]any{"criterionId": sc.CriterionID, "score": sc.Score}
	}
	s.audit.Log(ctx, actor, ActionEvaluationScoresUpserted, EntityEvaluation, evaluationID, map[string]any{"items": logged})
	return saved, nil
}

// scheduleCriteria returns the criteria of the rubric bound to the schedule
func (s *EvaluationService) scheduleCriteria(ctx context.Context, scheduleID uuid.UUID) (map[uuid.UUID]models.RubricCriterion, error) {
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sched.RubricTemplateID == nil {
		return nil, apperror.Validation("the defense schedule has no rubric template")
	}

	list, err := s.rubrics.ListCriteria(ctx, *sched.RubricTemplateID)
	if err != nil {
		return nil, err
	}
	criteria := make(map[uuid.UUID]models.RubricCriterion, len(list))
	for _, c := range list {
		criteria[c.ID] = c
	}
	return criteria, nil
}

// applyFields validates and copies systemScore and membersOverall onto e
func (s *EvaluationService) applyFields(ctx context.Context, e *models.Evaluation, in PatchEvaluationInput) error {
	if in.SystemScore != nil {
		if *in.SystemScore < 0 {
			return apperror.Validation("invalid systemScore", apperror.FieldError{
				Field: "systemScore", Message: "systemScore must not be negative",
			})
		}
		v := *in.SystemScore
		e.SystemScore = &v
	}

	if in.MembersOverall != nil {
		sched, err := s.schedules.GetByID(ctx, e.ScheduleID)
		if err != nil {
			return err
		}
		group, err := s.groups.GetByID(ctx, sched.GroupID)
		if err != nil {
			return err
		}

		var fields []apperror.FieldError
		for studentID, entry := range in.MembersOverall {
			key := "membersOverall." + studentID.String()
			if !group.HasMember(studentID) {
				fields = append(fields, apperror.FieldError{Field: key, Message: "not a member of the thesis group"})
			}
			if entry.Score < 0 {
				fields = append(fields, apperror.FieldError{Field: key + ".score", Message: "score must not be negative"})
			}
		}
		if len(fields) > 0 {
			return apperror.Validation("invalid membersOverall", fields...)
		}

		if e.MembersOverall == nil {
			e.MembersOverall = map[uuid.UUID]models.MemberOverall{}
		}
		for studentID, entry := range in.MembersOverall {
			e.MembersOverall[studentID] = entry
		}
	}
	return nil
}

func (s *EvaluationService) publish(ctx context.Context, actor models.Actor, e *models.Evaluation) {
	publishLifecycle(ctx, s.events, LifecycleEvent{
		Entity:     EntityEvaluation,
		ID:         e.ID,
		ScheduleID: e.ScheduleID,
		SubjectID:  e.EvaluatorID,
		ActorID:    actor.UserID,
		Status:     e.Status,
		OccurredAt: s.now(),
	})
}

// validateScoreItems checks criterion membership, score range and, for
// batches, duplicate criteria. All problems are reported together.
func validateScoreItems(items []ScoreInput, criteria map[uuid.UUID]models.RubricCriterion, batch bool) error {
	var fields []apperror.FieldError
	seen := make(map[uuid.UUID]int, len(items))

	for i, item := range items {
		field := func(name string) string {
			if batch {
				return fmt.Sprintf("items[%d].%s", i, name)
			}
			return name
		}

		if first, dup := seen[item.CriterionID]; dup {
			fields = append(fields, apperror.FieldError{
				Field:   field("criterionId"),
				Message: fmt.Sprintf("duplicates items[%d]", first),
			})
			continue
		}
		seen[item.CriterionID] = i

		c, ok := criteria[item.CriterionID]
		if !ok {
			fields = append(fields, apperror.FieldError{
				Field:   field("criterionId"),
				Message: "criterion is not part of the schedule's rubric",
			})
			continue
		}
		if item.Score < c.MinScore || item.Score > c.MaxScore {
			fields = append(fields, apperror.FieldError{
				Field:   field("score"),
				Message: fmt.Sprintf("score must be between %d and %d", c.MinScore, c.MaxScore),
			})
		}
	}

	if len(fields) > 0 {
		return apperror.Validation("invalid scores", fields...)
	}
	return nil
}

func authorizeEvaluation(actor models.Actor, e *models.Evaluation) error {
	if actor.HasRole(models.RoleAdmin) || e.EvaluatorID == actor.UserID {
		return nil
	}
	return apperror.Forbidden("you are not the evaluator of this evaluation")
}
