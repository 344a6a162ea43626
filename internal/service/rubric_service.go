package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

// Criterion defaults
const (
	DefaultCriterionWeight = 1.0
	DefaultMinScore        = 0
	DefaultMaxScore        = 10
)

// TemplateInput carries the optional fields of a template create or patch
type TemplateInput struct {
	Name        *string
	Description *string
	Version     *int
	Active      *bool
}

// CriterionInput carries the optional fields of a criterion create or patch
type CriterionInput struct {
	Criterion   *string
	Description *string
	Weight      *float64
	MinScore    *int
	MaxScore    *int
}

// RubricService handles rubric templates and criteria
type RubricService struct {
	store RubricStore
	audit *AuditService
}

// NewRubricService creates a new rubric service
func NewRubricService(store RubricStore, audit *AuditService) *RubricService {
	return &RubricService{store: store, audit: audit}
}

// CreateTemplate creates a template. Version defaults to 1 and active to true.
func (s *RubricService) CreateTemplate(ctx context.Context, actor models.Actor, in TemplateInput) (*models.RubricTemplate, error) {
	t := &models.RubricTemplate{Version: 1, Active: true}
	applyTemplateInput(t, in)

	if err := validateTemplate(t); err != nil {
		return nil, err
	}

	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("creating rubric template: %w", err)
	}

	s.audit.Log(ctx, actor, ActionRubricTemplateCreated, EntityRubricTemplate, t.ID, map[string]any{
		"name":    t.Name,
		"version": t.Version,
		"active":  t.Active,
	})
	return t, nil
}

// GetTemplate returns one template
func (s *RubricService) GetTemplate(ctx context.Context, id uuid.UUID) (*models.RubricTemplate, error) {
	return s.store.GetTemplate(ctx, id)
}

// ListTemplates returns templates whose name contains q, case-insensitively
func (s *RubricService) ListTemplates(ctx context.Context, q string, page models.Page) ([]models.RubricTemplate, int, error) {
	return s.store.ListTemplates(ctx, strings.TrimSpace(q), page)
}

// PatchTemplate applies the given fields and re-validates the merged template
func (s *RubricService) PatchTemplate(ctx context.Context, actor models.Actor, id uuid.UUID, in TemplateInput) (*models.RubricTemplate, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	applyTemplateInput(t, in)
	if err := validateTemplate(t); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("updating rubric template: %w", err)
	}

	s.audit.Log(ctx, actor, ActionRubricTemplateUpdated, EntityRubricTemplate, t.ID, changedFields(in))
	return t, nil
}

// DeleteTemplate removes a template. Its criteria cascade in storage.
func (s *RubricService) DeleteTemplate(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("deleting rubric template: %w", err)
	}

	s.audit.Log(ctx, actor, ActionRubricTemplateDeleted, EntityRubricTemplate, id, map[string]any{
		"name":    t.Name,
		"version": t.Version,
	})
	return nil
}

// AddCriterion appends a criterion to a template
func (s *RubricService) AddCriterion(ctx context.Context, actor models.Actor, templateID uuid.UUID, in CriterionInput) (*models.RubricCriterion, error) {
	c := &models.RubricCriterion{
		TemplateID: templateID,
		Weight:     DefaultCriterionWeight,
		MinScore:   DefaultMinScore,
		MaxScore:   DefaultMaxScore,
	}
	applyCriterionInput(c, in)

	if err := validateCriterion(c); err != nil {
		return nil, err
	}

	if _, err := s.store.GetTemplate(ctx, templateID); err != nil {
		return nil, err
	}

	if err := s.store.CreateCriterion(ctx, c); err != nil {
		return nil, fmt.Errorf("creating rubric criterion: %w", err)
	}

	s.audit.Log(ctx, actor, ActionRubricCriterionCreated, EntityRubricCriterion, c.ID, map[string]any{
		"templateId": c.TemplateID,
		"criterion":  c.Criterion,
		"weight":     c.Weight,
		"minScore":   c.MinScore,
		"maxScore":   c.MaxScore,
	})
	return c, nil
}

// ListCriteria returns a template's criteria in insertion order
func (s *RubricService) ListCriteria(ctx context.Context, templateID uuid.UUID) ([]models.RubricCriterion, error) {
	if _, err := s.store.GetTemplate(ctx, templateID); err != nil {
		return nil, err
	}
	return s.store.ListCriteria(ctx, templateID)
}

// PatchCriterion applies the given fields and re-validates the merged criterion
func (s *RubricService) PatchCriterion(ctx context.Context, actor models.Actor, id uuid.UUID, in CriterionInput) (*models.RubricCriterion, error) {
	c, err := s.store.GetCriterion(ctx, id)
	if err != nil {
		return nil, err
	}

	applyCriterionInput(c, in)
	if err := validateCriterion(c); err != nil {
		return nil, err
	}

	if err := s.store.UpdateCriterion(ctx, c); err != nil {
		return nil, fmt.Errorf("updating rubric criterion: %w", err)
	}

	s.audit.Log(ctx, actor, ActionRubricCriterionUpdated, EntityRubricCriterion, c.ID, changedFields(in))
	return c, nil
}

// DeleteCriterion removes a criterion
func (s *RubricService) DeleteCriterion(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	c, err := s.store.GetCriterion(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteCriterion(ctx, id); err != nil {
		return fmt.Errorf("deleting rubric criterion: %w", err)
	}

	s.audit.Log(ctx, actor, ActionRubricCriterionDeleted, EntityRubricCriterion, id, map[string]any{
		"templateId": c.TemplateID,
		"criterion":  c.Criterion,
	})
	return nil
}

func applyTemplateInput(t *models.RubricTemplate, in TemplateInput) {
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Version != nil {
		t.Version = *in.Version
	}
	if in.Active != nil {
		t.Active = *in.Active
	}
}

func validateTemplate(t *models.RubricTemplate) error {
	var fields []apperror.FieldError
	if t.Name == "" {
		fields = append(fields, apperror.FieldError{Field: "name", Message: "name is required"})
	}
	if t.Version < 1 {
		fields = append(fields, apperror.FieldError{Field: "version", Message: "version must be at least 1"})
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid rubric template", fields...)
	}
	return nil
}

func applyCriterionInput(c *models.RubricCriterion, in CriterionInput) {
	if in.Criterion != nil {
		c.Criterion = strings.TrimSpace(*in.Criterion)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Weight != nil {
		c.Weight = *in.Weight
	}
	if in.MinScore != nil {
		c.MinScore = *in.MinScore
	}
	if in.MaxScore != nil {
		c.MaxScore = *in.MaxScore
	}
}

func validateCriterion(c *models.RubricCriterion) error {
	var fields []apperror.FieldError
	if c.Criterion == "" {
		fields = append(fields, apperror.FieldError{Field: "criterion", Message: "criterion is required"})
	}
	if c.Weight <= 0 {
		fields = append(fields, apperror.FieldError{Field: "weight", Message: "weight must be greater than 0"})
	}
	if c.MinScore < 0 {
		fields = append(fields, apperror.FieldError{Field: "minScore", Message: "minScore must not be negative"})
	}
	if c.MaxScore < c.MinScore {
		fields = append(fields, apperror.FieldError{Field: "maxScore", Message: "maxScore must be greater than or equal to minScore"})
	}
	// scores are stored as INTEGER
	if c.MaxScore > math.MaxInt32 {
		fields = append(fields, apperror.FieldError{Field: "maxScore", Message: fmt.Sprintf("maxScore must not exceed %d", math.MaxInt32)})
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid rubric criterion", fields...)
	}
	return nil
}

// changedFields lists the non-nil fields of a patch input for audit details
func changedFields(in any) map[string]any {
	out := map[string]any{}
	switch v := in.(type) {
	case TemplateInput:
		setIf(out, "name", v.Name)
		setIf(out, "description", v.Description)
		setIf(out, "version", v.Version)
		setIf(out, "active", v.Active)
	case CriterionInput:
		setIf(out, "criterion", v.Criterion)
		setIf(out, "description", v.Description)
		setIf(out, "weight", v.Weight)
		setIf(out, "minScore", v.MinScore)
		setIf(out, "maxScore", v.MaxScore)
	}
	return out
}

func setIf[T any](m map[string]any, key string, v *T) {
	if v != nil {
		m[key] = *v
	}
}
