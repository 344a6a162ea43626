package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

// ScheduleInput carries the optional fields of a schedule create or patch
type ScheduleInput struct {
	GroupID          *uuid.UUID
	ScheduledAt      *time.Time
	Room             *string
	Status           *models.ScheduleStatus
	RubricTemplateID *uuid.UUID
	PanelistIDs      *[]uuid.UUID
}

// ScheduleService manages defense schedules
type ScheduleService struct {
	store   ScheduleStore
	groups  GroupStore
	rubrics RubricStore
	audit   *AuditService
}

// NewScheduleService creates a new schedule service
func NewScheduleService(store ScheduleStore, groups GroupStore, rubrics RubricStore, audit *AuditService) *ScheduleService {
	return &ScheduleService{store: store, groups: groups, rubrics: rubrics, audit: audit}
}

// Create creates a schedule for an existing group
func (s *ScheduleService) Create(ctx context.Context, actor models.Actor, in ScheduleInput) (*models.DefenseSchedule, error) {
	var fields []apperror.FieldError
	if in.GroupID == nil || *in.GroupID == uuid.Nil {
		fields = append(fields, apperror.FieldError{Field: "groupId", Message: "groupId is required"})
	}
	if in.ScheduledAt == nil || in.ScheduledAt.IsZero() {
		fields = append(fields, apperror.FieldError{Field: "scheduledAt", Message: "scheduledAt is required"})
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("invalid defense schedule", fields...)
	}

	sched := &models.DefenseSchedule{
		Status:      models.ScheduleScheduled,
		PanelistIDs: []uuid.UUID{},
	}
	applyScheduleInput(sched, in)

	if err := s.checkReferences(ctx, sched); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("creating defense schedule: %w", err)
	}

	s.audit.Log(ctx, actor, ActionScheduleCreated, EntityDefenseSchedule, sched.ID, map[string]any{
		"groupId":          sched.GroupID,
		"scheduledAt":      sched.ScheduledAt,
		"room":             sched.Room,
		"rubricTemplateId": sched.RubricTemplateID,
		"panelistIds":      sched.PanelistIDs,
	})
	return sched, nil
}

// Get returns one schedule with its panelists
func (s *ScheduleService) Get(ctx context.Context, id uuid.UUID) (*models.DefenseSchedule, error) {
	return s.store.GetByID(ctx, id)
}

// List returns schedules, optionally restricted to some groups
func (s *ScheduleService) List(ctx context.Context, filter ScheduleFilter) ([]models.DefenseSchedule, int, error) {
	return s.store.List(ctx, filter)
}

// Patch updates a schedule
func (s *ScheduleService) Patch(ctx context.Context, actor models.Actor, id uuid.UUID, in ScheduleInput) (*models.DefenseSchedule, error) {
	sched, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyScheduleInput(sched, in)
	if err := s.checkReferences(ctx, sched); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, sched); err != nil {
		return nil, fmt.Errorf("updating defense schedule: %w", err)
	}

	details := map[string]any{}
	setIf(details, "groupId", in.GroupID)
	setIf(details, "scheduledAt", in.ScheduledAt)
	setIf(details, "room", in.Room)
	setIf(details, "status", in.Status)
	setIf(details, "rubricTemplateId", in.RubricTemplateID)
	setIf(details, "panelistIds", in.PanelistIDs)
	s.audit.Log(ctx, actor, ActionScheduleUpdated, EntityDefenseSchedule, sched.ID, details)
	return sched, nil
}

func (s *ScheduleService) checkReferences(ctx context.Context, sched *models.DefenseSchedule) error {
	if !sched.Status.Valid() {
		return apperror.Validation("invalid defense schedule", apperror.FieldError{
			Field: "status", Message: "must be one of scheduled, completed, cancelled",
		})
	}
	if _, err := s.groups.GetByID(ctx, sched.GroupID); err != nil {
		return err
	}
	if sched.RubricTemplateID != nil {
		if _, err := s.rubrics.GetTemplate(ctx, *sched.RubricTemplateID); err != nil {
			return err
		}
	}
	return nil
}

func applyScheduleInput(sched *models.DefenseSchedule, in ScheduleInput) {
	if in.GroupID != nil && *in.GroupID != uuid.Nil {
		sched.GroupID = *in.GroupID
	}
	if in.ScheduledAt != nil && !in.ScheduledAt.IsZero() {
		sched.ScheduledAt = in.ScheduledAt.UTC()
	}
	if in.Room != nil {
		sched.Room = strings.TrimSpace(*in.Room)
	}
	if in.Status != nil {
		sched.Status = *in.Status
	}
	if in.RubricTemplateID != nil {
		if *in.RubricTemplateID == uuid.Nil {
			sched.RubricTemplateID = nil
		} else {
			id := *in.RubricTemplateID
			sched.RubricTemplateID = &id
		}
	}
	if in.PanelistIDs != nil {
		sched.PanelistIDs = uniqueIDs(*in.PanelistIDs)
	}
}
