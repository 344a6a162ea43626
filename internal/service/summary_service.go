package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

// SummaryItem is the aggregated result of one defense for one student
type SummaryItem struct {
	ScheduleID       uuid.UUID             `json:"scheduleId"`
	GroupID          uuid.UUID             `json:"groupId"`
	GroupTitle       string                `json:"groupTitle"`
	ScheduledAt      time.Time             `json:"scheduledAt"`
	Room             string                `json:"room"`
	ScheduleStatus   models.ScheduleStatus `json:"scheduleStatus"`
	RubricTemplateID *uuid.UUID            `json:"rubricTemplateId,omitempty"`
	Aggregate
}

// SummaryService recomputes score summaries on every read
type SummaryService struct {
	groups      GroupStore
	schedules   ScheduleStore
	evaluations EvaluationStore
	rubrics     RubricStore
	users       UserStore
}

// NewSummaryService creates a new summary service
func NewSummaryService(groups GroupStore, schedules ScheduleStore, evaluations EvaluationStore, rubrics RubricStore, users UserStore) *SummaryService {
	return &SummaryService{
		groups:      groups,
		schedules:   schedules,
		evaluations: evaluations,
		rubrics:     rubrics,
		users:       users,
	}
}

// StudentSummary returns up to limit defense summaries for a student, most
// recent defense first. A zero studentID means the actor.
func (s *SummaryService) StudentSummary(ctx context.Context, actor models.Actor, studentID uuid.UUID, limit int) ([]SummaryItem, error) {
	if studentID == uuid.Nil {
		studentID = actor.UserID
	}
	if studentID != actor.UserID && !actor.IsStaff() {
		return nil, apperror.Forbidden("you can only view your own evaluation summary")
	}

	groups, err := s.groups.ListByMember(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	if len(groups) == 0 {
		return []SummaryItem{}, nil
	}

	titles := make(map[uuid.UUID]string, len(groups))
	groupIDs := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		titles[g.ID] = g.Title
		groupIDs = append(groupIDs, g.ID)
	}

	schedules, _, err := s.schedules.List(ctx, ScheduleFilter{
		GroupIDs: groupIDs,
		Page:     models.Page{Limit: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}

	items := make([]SummaryItem, 0, len(schedules))
	for _, sched := range schedules {
		agg, err := s.scheduleAggregate(ctx, studentID, &sched)
		if err != nil {
			return nil, err
		}
		items = append(items, SummaryItem{
			ScheduleID:       sched.ID,
			GroupID:          sched.GroupID,
			GroupTitle:       titles[sched.GroupID],
			ScheduledAt:      sched.ScheduledAt,
			Room:             sched.Room,
			ScheduleStatus:   sched.Status,
			RubricTemplateID: sched.RubricTemplateID,
			Aggregate:        agg,
		})
	}
	return items, nil
}

func (s *SummaryService) scheduleAggregate(ctx context.Context, studentID uuid.UUID, sched *models.DefenseSchedule) (Aggregate, error) {
	scheduleID := sched.ID
	evals, _, err := s.evaluations.List(ctx, EvaluationFilter{
		ScheduleID: &scheduleID,
		Statuses:   []models.EvaluationStatus{models.StatusSubmitted, models.StatusLocked},
	})
	if err != nil {
		return Aggregate{}, fmt.Errorf("listing evaluations: %w", err)
	}

	ids := make([]uuid.UUID, len(evals))
	evaluatorIDs := make([]uuid.UUID, len(evals))
	for i, e := range evals {
		ids[i] = e.ID
		evaluatorIDs[i] = e.EvaluatorID
	}

	byEvaluation := map[uuid.UUID][]models.EvaluationScore{}
	if len(ids) > 0 {
		scores, err := s.evaluations.ListScores(ctx, ids...)
		if err != nil {
			return Aggregate{}, fmt.Errorf("listing scores: %w", err)
		}
		for _, sc := range scores {
			byEvaluation[sc.EvaluationID] = append(byEvaluation[sc.EvaluationID], sc)
		}
	}

	criteria := map[uuid.UUID]models.RubricCriterion{}
	if sched.RubricTemplateID != nil {
		list, err := s.rubrics.ListCriteria(ctx, *sched.RubricTemplateID)
		if err != nil && !apperror.Is(err, apperror.KindNotFound) {
			return Aggregate{}, fmt.Errorf("listing criteria: %w", err)
		}
		for _, c := range list {
			criteria[c.ID] = c
		}
	}

	names := map[uuid.UUID]string{}
	if len(evaluatorIDs) > 0 {
		names, err = s.users.GetNames(ctx, evaluatorIDs)
		if err != nil {
			return Aggregate{}, fmt.Errorf("loading evaluator names: %w", err)
		}
	}

	scored := make([]ScoredEvaluation, len(evals))
	for i, e := range evals {
		scored[i] = ScoredEvaluation{
			Evaluation:    e,
			Scores:        byEvaluation[e.ID],
			EvaluatorName: names[e.EvaluatorID],
		}
	}
	return ComputeAggregate(studentID, scored, criteria), nil
}
