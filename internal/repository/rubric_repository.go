package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/database"
	"thesis-eval/internal/models"
)

const (
	entityRubricTemplate  = "rubric template"
	entityRubricCriterion = "rubric criterion"
)

// RubricRepository handles rubric template and criterion database operations
type RubricRepository struct {
	db *sql.DB
}

// NewRubricRepository creates a new rubric repository
func NewRubricRepository(db *sql.DB) *RubricRepository {
	return &RubricRepository{db: db}
}

// CreateTemplate creates a new rubric template
func (r *RubricRepository) CreateTemplate(ctx context.Context, t *models.RubricTemplate) error {
	query := `
		INSERT INTO rubric_templates (name, description, version, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, t.Name, t.Description, t.Version, t.Active).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rubric template: %w", database.TranslateError(err, entityRubricTemplate))
	}
	return nil
}

// GetTemplate retrieves a rubric template by ID
func (r *RubricRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*models.RubricTemplate, error) {
	query := `
		SELECT id, name, description, version, active, created_at, updated_at
		FROM rubric_templates
		WHERE id = $1
	`

	t := &models.RubricTemplate{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Version,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, database.TranslateError(err, entityRubricTemplate)
	}
	return t, nil
}

// ListTemplates returns templates whose name contains q, ordered by name
func (r *RubricRepository) ListTemplates(ctx context.Context, q string, page models.Page) ([]models.RubricTemplate, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if q != "" {
		where += ` AND name ILIKE $1`
		args = append(args, "%"+q+"%")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rubric_templates`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count rubric templates: %w", database.TranslateError(err, entityRubricTemplate))
	}

	query := `
		SELECT id, name, description, version, active, created_at, updated_at
		FROM rubric_templates` + where + ` ORDER BY LOWER(name), version DESC, id`
	query, args = appendPage(query, args, page)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rubric templates: %w", database.TranslateError(err, entityRubricTemplate))
	}
	defer rows.Close()

	templates := []models.RubricTemplate{}
	for rows.Next() {
		var t models.RubricTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Version, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan rubric template: %w", database.TranslateError(err, entityRubricTemplate))
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.TranslateError(err, entityRubricTemplate)
	}

	return templates, total, nil
}

// UpdateTemplate updates a rubric template
func (r *RubricRepository) UpdateTemplate(ctx context.Context, t *models.RubricTemplate) error {
	query := `
		UPDATE rubric_templates
		SET name = $2, description = $3, version = $4, active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, t.ID, t.Name, t.Description, t.Version, t.Active).Scan(&t.UpdatedAt)
	if err != nil {
		return database.TranslateError(err, entityRubricTemplate)
	}
	return nil
}

// DeleteTemplate deletes a template; its criteria go with it
func (r *RubricRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rubric_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rubric template: %w", database.TranslateError(err, entityRubricTemplate))
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return database.TranslateError(err, entityRubricTemplate)
	}
	if !ok {
		return apperror.NotFound(entityRubricTemplate)
	}
	return nil
}

// CreateCriterion creates a criterion. Position comes from the sequence so
// criteria keep insertion order.
func (r *RubricRepository) CreateCriterion(ctx context.Context, c *models.RubricCriterion) error {
	query := `
		INSERT INTO rubric_criteria (template_id, criterion, description, weight, min_score, max_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, weight, position, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		c.TemplateID,
		c.Criterion,
		c.Description,
		c.Weight,
		c.MinScore,
		c.MaxScore,
	).Scan(&c.ID, &c.Weight, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rubric criterion: %w", database.TranslateError(err, entityRubricCriterion))
	}
	return nil
}

const criterionColumns = `id, template_id, criterion, description, weight, min_score, max_score, position, created_at, updated_at`

func scanCriterion(row interface{ Scan(...any) error }, c *models.RubricCriterion) error {
	return row.Scan(
		&c.ID,
		&c.TemplateID,
		&c.Criterion,
		&c.Description,
		&c.Weight,
		&c.MinScore,
		&c.MaxScore,
		&c.Position,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

// GetCriterion retrieves a criterion by ID
func (r *RubricRepository) GetCriterion(ctx context.Context, id uuid.UUID) (*models.RubricCriterion, error) {
	c := &models.RubricCriterion{}
	row := r.db.QueryRowContext(ctx, `SELECT `+criterionColumns+` FROM rubric_criteria WHERE id = $1`, id)
	if err := scanCriterion(row, c); err != nil {
		return nil, database.TranslateError(err, entityRubricCriterion)
	}
	return c, nil
}

// ListCriteria returns a template's criteria in position order
func (r *RubricRepository) ListCriteria(ctx context.Context, templateID uuid.UUID) ([]models.RubricCriterion, error) {
	query := `SELECT ` + criterionColumns + ` FROM rubric_criteria WHERE template_id = $1 ORDER BY position, id`

	rows, err := r.db.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rubric criteria: %w", database.TranslateError(err, entityRubricCriterion))
	}
	defer rows.Close()

	criteria := []models.RubricCriterion{}
	for rows.Next() {
		var c models.RubricCriterion
		if err := scanCriterion(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan rubric criterion: %w", database.TranslateError(err, entityRubricCriterion))
		}
		criteria = append(criteria, c)
	}
	if err := rows.Err(); err != nil {
		return nil, database.TranslateError(err, entityRubricCriterion)
	}
	return criteria, nil
}

// UpdateCriterion updates a criterion
func (r *RubricRepository) UpdateCriterion(ctx context.Context, c *models.RubricCriterion) error {
	query := `
		UPDATE rubric_criteria
		SET criterion = $2, description = $3, weight = $4, min_score = $5, max_score = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING weight, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, c.ID, c.Criterion, c.Description, c.Weight, c.MinScore, c.MaxScore).
		Scan(&c.Weight, &c.UpdatedAt)
	if err != nil {
		return database.TranslateError(err, entityRubricCriterion)
	}
	return nil
}

// DeleteCriterion deletes a criterion
func (r *RubricRepository) DeleteCriterion(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rubric_criteria WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rubric criterion: %w", database.TranslateError(err, entityRubricCriterion))
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return database.TranslateError(err, entityRubricCriterion)
	}
	if !ok {
		return apperror.NotFound(entityRubricCriterion)
	}
	return nil
}
