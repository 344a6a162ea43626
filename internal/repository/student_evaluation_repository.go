package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/database"
	"thesis-eval/internal/models"
	"thesis-eval/internal/service"
)

const entityStudentEvaluation = "student evaluation"

// StudentEvaluationRepository handles student evaluation database operations.
// Answers arrive already sealed and are stored as given.
type StudentEvaluationRepository struct {
	db *sql.DB
}

// NewStudentEvaluationRepository creates a new student evaluation repository
func NewStudentEvaluationRepository(db *sql.DB) *StudentEvaluationRepository {
	return &StudentEvaluationRepository{db: db}
}

const studentEvaluationColumns = `id, schedule_id, student_id, status, answers, submitted_at, locked_at, created_at, updated_at`

func scanStudentEvaluation(row interface{ Scan(...any) error }, e *models.StudentEvaluation) error {
	var answers []byte
	if err := row.Scan(
		&e.ID,
		&e.ScheduleID,
		&e.StudentID,
		&e.Status,
		&answers,
		&e.SubmittedAt,
		&e.LockedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return err
	}
	e.Answers = answers
	return nil
}

func answersParam(answers []byte) string {
	if len(answers) == 0 {
		return "{}"
	}
	return string(answers)
}

// Create creates a new student evaluation
func (r *StudentEvaluationRepository) Create(ctx context.Context, e *models.StudentEvaluation) error {
	query := `
		INSERT INTO student_evaluations (schedule_id, student_id, status, answers, submitted_at, locked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.ScheduleID,
		e.StudentID,
		e.Status,
		answersParam(e.Answers),
		e.SubmittedAt,
		e.LockedAt,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create student evaluation: %w", database.TranslateError(err, entityStudentEvaluation))
	}
	return nil
}

// GetByID retrieves a student evaluation by ID
func (r *StudentEvaluationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StudentEvaluation, error) {
	e := &models.StudentEvaluation{}
	row := r.db.QueryRowContext(ctx, `SELECT `+studentEvaluationColumns+` FROM student_evaluations WHERE id = $1`, id)
	if err := scanStudentEvaluation(row, e); err != nil {
		return nil, database.TranslateError(err, entityStudentEvaluation)
	}
	return e, nil
}

// List returns student evaluations matching the filter, newest first
func (r *StudentEvaluationRepository) List(ctx context.Context, filter service.StudentEvaluationFilter) ([]models.StudentEvaluation, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.ScheduleID != nil {
		where += fmt.Sprintf(` AND schedule_id = $%d`, argPos)
		args = append(args, *filter.ScheduleID)
		argPos++
	}
	if filter.StudentID != nil {
		where += fmt.Sprintf(` AND student_id = $%d`, argPos)
		args = append(args, *filter.StudentID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM student_evaluations`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count student evaluations: %w", database.TranslateError(err, entityStudentEvaluation))
	}

	query := `SELECT ` + studentEvaluationColumns + ` FROM student_evaluations` + where + ` ORDER BY created_at DESC, id`
	query, args = appendPage(query, args, filter.Page)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list student evaluations: %w", database.TranslateError(err, entityStudentEvaluation))
	}
	defer rows.Close()

	records := []models.StudentEvaluation{}
	for rows.Next() {
		var e models.StudentEvaluation
		if err := scanStudentEvaluation(rows, &e); err != nil {
			return nil, 0, fmt.Errorf("failed to scan student evaluation: %w", database.TranslateError(err, entityStudentEvaluation))
		}
		records = append(records, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.TranslateError(err, entityStudentEvaluation)
	}
	return records, total, nil
}

// Update writes e when the stored status still equals expected
func (r *StudentEvaluationRepository) Update(ctx context.Context, e *models.StudentEvaluation, expected models.EvaluationStatus) error {
	query := `
		UPDATE student_evaluations
		SET status = $2, answers = $3, submitted_at = $4, locked_at = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.ID,
		e.Status,
		answersParam(e.Answers),
		e.SubmittedAt,
		e.LockedAt,
		expected,
	).Scan(&e.UpdatedAt)
	if err == sql.ErrNoRows {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM student_evaluations WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return database.TranslateError(err, entityStudentEvaluation)
		}
		if !exists {
			return apperror.NotFound(entityStudentEvaluation)
		}
		return apperror.Conflict("student evaluation was modified concurrently")
	}
	if err != nil {
		return database.TranslateError(err, entityStudentEvaluation)
	}
	return nil
}
