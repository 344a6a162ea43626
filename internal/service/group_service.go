package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

// GroupInput carries the optional fields of a thesis group create or patch
type GroupInput struct {
	Title       *string
	Description *string
	AdviserID   *uuid.UUID
	MemberIDs   *[]uuid.UUID
}

// GroupService manages thesis groups
type GroupService struct {
	store GroupStore
	audit *AuditService
}

// NewGroupService creates a new group service
func NewGroupService(store GroupStore, audit *AuditService) *GroupService {
	return &GroupService{store: store, audit: audit}
}

// Create creates a thesis group
func (s *GroupService) Create(ctx context.Context, actor models.Actor, in GroupInput) (*models.ThesisGroup, error) {
	g := &models.ThesisGroup{MemberIDs: []uuid.UUID{}}
	applyGroupInput(g, in)

	if g.Title == "" {
		return nil, apperror.Validation("invalid thesis group", apperror.FieldError{Field: "title", Message: "title is required"})
	}

	if err := s.store.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("creating thesis group: %w", err)
	}

	s.audit.Log(ctx, actor, ActionThesisGroupCreated, EntityThesisGroup, g.ID, map[string]any{
		"title":     g.Title,
		"adviserId": g.AdviserID,
		"memberIds": g.MemberIDs,
	})
	return g, nil
}

// Get returns one group with its members
func (s *GroupService) Get(ctx context.Context, id uuid.UUID) (*models.ThesisGroup, error) {
	return s.store.GetByID(ctx, id)
}

// List returns a page of groups
func (s *GroupService) List(ctx context.Context, page models.Page) ([]models.ThesisGroup, int, error) {
	return s.store.List(ctx, page)
}

// Patch updates a group. A non-nil MemberIDs replaces the member set.
func (s *GroupService) Patch(ctx context.Context, actor models.Actor, id uuid.UUID, in GroupInput) (*models.ThesisGroup, error) {
	g, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyGroupInput(g, in)
	if g.Title == "" {
		return nil, apperror.Validation("invalid thesis group", apperror.FieldError{Field: "title", Message: "title is required"})
	}

	if err := s.store.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("updating thesis group: %w", err)
	}

	details := map[string]any{}
	setIf(details, "title", in.Title)
	setIf(details, "description", in.Description)
	setIf(details, "adviserId", in.AdviserID)
	setIf(details, "memberIds", in.MemberIDs)
	s.audit.Log(ctx, actor, ActionThesisGroupUpdated, EntityThesisGroup, g.ID, details)
	return g, nil
}

// Delete removes a group
func (s *GroupService) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	g, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting thesis group: %w", err)
	}

	s.audit.Log(ctx, actor, ActionThesisGroupDeleted, EntityThesisGroup, id, map[string]any{"title": g.Title})
	return nil
}

func applyGroupInput(g *models.ThesisGroup, in GroupInput) {
	if in.Title != nil {
		g.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		g.Description = *in.Description
	}
	if in.AdviserID != nil {
		if *in.AdviserID == uuid.Nil {
			g.AdviserID = nil
		} else {
			id := *in.AdviserID
			g.AdviserID = &id
		}
	}
	if in.MemberIDs != nil {
		g.MemberIDs = uniqueIDs(*in.MemberIDs)
	}
}

// uniqueIDs drops duplicates and nil ids, keeping first-seen order
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
