package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/database"
	"thesis-eval/internal/models"
	"thesis-eval/internal/service"
)

const entityEvaluation = "evaluation"

// EvaluationRepository handles evaluation and score database operations
type EvaluationRepository struct {
	db *sql.DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *sql.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

const evaluationColumns = `id, schedule_id, evaluator_id, status, system_score, members_overall, submitted_at, locked_at, created_at, updated_at`

func scanEvaluation(row interface{ Scan(...any) error }, e *models.Evaluation) error {
	var overall []byte
	if err := row.Scan(
		&e.ID,
		&e.ScheduleID,
		&e.EvaluatorID,
		&e.Status,
		&e.SystemScore,
		&overall,
		&e.SubmittedAt,
		&e.LockedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return err
	}

	e.MembersOverall = map[uuid.UUID]models.MemberOverall{}
	if len(overall) > 0 {
		if err := json.Unmarshal(overall, &e.MembersOverall); err != nil {
			return apperror.Internal("malformed members_overall", err)
		}
	}
	return nil
}

func marshalOverall(overall map[uuid.UUID]models.MemberOverall) (string, error) {
	if overall == nil {
		return "{}", nil
	}
	b, err := json.Marshal(overall)
	if err != nil {
		return "", apperror.Internal("failed to encode members_overall", err)
	}
	return string(b), nil
}

// Create creates a new evaluation
func (r *EvaluationRepository) Create(ctx context.Context, e *models.Evaluation) error {
	overall, err := marshalOverall(e.MembersOverall)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO evaluations (schedule_id, evaluator_id, status, system_score, members_overall, submitted_at, locked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		e.ScheduleID,
		e.EvaluatorID,
		e.Status,
		e.SystemScore,
		overall,
		e.SubmittedAt,
		e.LockedAt,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create evaluation: %w", database.TranslateError(err, entityEvaluation))
	}
	return nil
}

// GetByID retrieves an evaluation by ID
func (r *EvaluationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Evaluation, error) {
	e := &models.Evaluation{}
	row := r.db.QueryRowContext(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id)
	if err := scanEvaluation(row, e); err != nil {
		return nil, database.TranslateError(err, entityEvaluation)
	}
	return e, nil
}

// List returns evaluations matching the filter, oldest first
func (r *EvaluationRepository) List(ctx context.Context, filter service.EvaluationFilter) ([]models.Evaluation, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.ScheduleID != nil {
		where += fmt.Sprintf(` AND schedule_id = $%d`, argPos)
		args = append(args, *filter.ScheduleID)
		argPos++
	}
	if filter.EvaluatorID != nil {
		where += fmt.Sprintf(` AND evaluator_id = $%d`, argPos)
		args = append(args, *filter.EvaluatorID)
		argPos++
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where += fmt.Sprintf(` AND status = ANY($%d)`, argPos)
		args = append(args, stringArray(statuses))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count evaluations: %w", database.TranslateError(err, entityEvaluation))
	}

	query := `SELECT ` + evaluationColumns + ` FROM evaluations` + where + ` ORDER BY created_at, id`
	query, args = appendPage(query, args, filter.Page)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list evaluations: %w", database.TranslateError(err, entityEvaluation))
	}
	defer rows.Close()

	evaluations := []models.Evaluation{}
	for rows.Next() {
		var e models.Evaluation
		if err := scanEvaluation(rows, &e); err != nil {
			return nil, 0, fmt.Errorf("failed to scan evaluation: %w", database.TranslateError(err, entityEvaluation))
		}
		evaluations = append(evaluations, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.TranslateError(err, entityEvaluation)
	}
	return evaluations, total, nil
}

// Update writes e when the stored status still equals expected. The
// status check and the write are one statement so concurrent transitions
// cannot both win.
func (r *EvaluationRepository) Update(ctx context.Context, e *models.Evaluation, expected models.EvaluationStatus) error {
	overall, err := marshalOverall(e.MembersOverall)
	if err != nil {
		return err
	}

	query := `
		UPDATE evaluations
		SET status = $2, system_score = $3, members_overall = $4,
		    submitted_at = $5, locked_at = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7
		RETURNING updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		e.ID,
		e.Status,
		e.SystemScore,
		overall,
		e.SubmittedAt,
		e.LockedAt,
		expected,
	).Scan(&e.UpdatedAt)
	if err == sql.ErrNoRows {
		return r.missOrConflict(ctx, e.ID)
	}
	if err != nil {
		return database.TranslateError(err, entityEvaluation)
	}
	return nil
}

func (r *EvaluationRepository) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM evaluations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return database.TranslateError(err, entityEvaluation)
	}
	if !exists {
		return apperror.NotFound(entityEvaluation)
	}
	return apperror.Conflict("evaluation was modified concurrently")
}

// Delete deletes an evaluation; its scores go with it
func (r *EvaluationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM evaluations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", database.TranslateError(err, entityEvaluation))
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return database.TranslateError(err, entityEvaluation)
	}
	if !ok {
		return apperror.NotFound(entityEvaluation)
	}
	return nil
}

// ListScores returns the scores of the given evaluations
func (r *EvaluationRepository) ListScores(ctx context.Context, evaluationIDs ...uuid.UUID) ([]models.EvaluationScore, error) {
	scores := []models.EvaluationScore{}
	if len(evaluationIDs) == 0 {
		return scores, nil
	}

	query := `
		SELECT s.evaluation_id, s.criterion_id, s.score, s.comment, s.updated_at
		FROM evaluation_scores s
		INNER JOIN rubric_criteria c ON c.id = s.criterion_id
		WHERE s.evaluation_id = ANY($1::uuid[])
		ORDER BY s.evaluation_id, c.position, s.criterion_id
	`
	rows, err := r.db.QueryContext(ctx, query, uuidArray(evaluationIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", database.TranslateError(err, entityEvaluation))
	}
	defer rows.Close()

	for rows.Next() {
		var s models.EvaluationScore
		if err := rows.Scan(&s.EvaluationID, &s.CriterionID, &s.Score, &s.Comment, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", database.TranslateError(err, entityEvaluation))
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, database.TranslateError(err, entityEvaluation)
	}
	return scores, nil
}

// UpsertScores locks the evaluation row, runs check against the locked
// state and writes all scores. Any failure rolls back every item.
func (r *EvaluationRepository) UpsertScores(
	ctx context.Context,
	evaluationID uuid.UUID,
	scores []models.EvaluationScore,
	check func(*models.Evaluation) error,
) ([]models.EvaluationScore, error) {
	saved := make([]models.EvaluationScore, 0, len(scores))

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		e := &models.Evaluation{}
		row := tx.QueryRowContext(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1 FOR UPDATE`, evaluationID)
		if err := scanEvaluation(row, e); err != nil {
			return database.TranslateError(err, entityEvaluation)
		}
		if check != nil {
			if err := check(e); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO evaluation_scores (evaluation_id, criterion_id, score, comment, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (evaluation_id, criterion_id)
			DO UPDATE SET score = EXCLUDED.score, comment = EXCLUDED.comment, updated_at = NOW()
			RETURNING updated_at
		`
		for _, s := range scores {
			s.EvaluationID = evaluationID
			if err := tx.QueryRowContext(ctx, query, evaluationID, s.CriterionID, s.Score, s.Comment).Scan(&s.UpdatedAt); err != nil {
				return err
			}
			saved = append(saved, s)
		}

		_, err := tx.ExecContext(ctx, `UPDATE evaluations SET updated_at = NOW() WHERE id = $1`, evaluationID)
		return err
	})
	if err != nil {
		return nil, database.TranslateError(err, "evaluation score")
	}
	return saved, nil
}
