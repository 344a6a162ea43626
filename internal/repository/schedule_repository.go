package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"thesis-eval/internal/database"
	"thesis-eval/internal/models"
	"thesis-eval/internal/service"
)

const entityDefenseSchedule = "defense schedule"

// ScheduleRepository handles defense schedule database operations
type ScheduleRepository struct {
	db *sql.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, group_id, scheduled_at, room, status, rubric_template_id, created_at, updated_at`

func scanSchedule(row interface{ Scan(...any) error }, s *models.DefenseSchedule) error {
	return row.Scan(
		&s.ID,
		&s.GroupID,
		&s.ScheduledAt,
		&s.Room,
		&s.Status,
		&s.RubricTemplateID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

// Create inserts a schedule and its panelists
func (r *ScheduleRepository) Create(ctx context.Context, s *models.DefenseSchedule) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO defense_schedules (group_id, scheduled_at, room, status, rubric_template_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowContext(ctx, query, s.GroupID, s.ScheduledAt, s.Room, s.Status, s.RubricTemplateID).
			Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return err
		}
		return insertPanelists(ctx, tx, s.ID, s.PanelistIDs)
	})
	if err != nil {
		return fmt.Errorf("failed to create defense schedule: %w", database.TranslateError(err, entityDefenseSchedule))
	}
	return nil
}

// GetByID retrieves a schedule with its panelists
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DefenseSchedule, error) {
	s := &models.DefenseSchedule{}
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM defense_schedules WHERE id = $1`, id)
	if err := scanSchedule(row, s); err != nil {
		return nil, database.TranslateError(err, entityDefenseSchedule)
	}

	panelists, err := r.panelists(ctx, []uuid.UUID{s.ID})
	if err != nil {
		return nil, err
	}
	s.PanelistIDs = nonNil(panelists[s.ID])
	return s, nil
}

// List returns schedules, most recent defense first
func (r *ScheduleRepository) List(ctx context.Context, filter service.ScheduleFilter) ([]models.DefenseSchedule, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if len(filter.GroupIDs) > 0 {
		where += ` AND group_id = ANY($1::uuid[])`
		args = append(args, uuidArray(filter.GroupIDs))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM defense_schedules`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count defense schedules: %w", database.TranslateError(err, entityDefenseSchedule))
	}

	query := `SELECT ` + scheduleColumns + ` FROM defense_schedules` + where + ` ORDER BY scheduled_at DESC, id`
	query, args = appendPage(query, args, filter.Page)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list defense schedules: %w", database.TranslateError(err, entityDefenseSchedule))
	}
	defer rows.Close()

	schedules := []models.DefenseSchedule{}
	ids := []uuid.UUID{}
	for rows.Next() {
		var s models.DefenseSchedule
		if err := scanSchedule(rows, &s); err != nil {
			return nil, 0, fmt.Errorf("failed to scan defense schedule: %w", database.TranslateError(err, entityDefenseSchedule))
		}
		schedules = append(schedules, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, database.TranslateError(err, entityDefenseSchedule)
	}

	if len(ids) > 0 {
		panelists, err := r.panelists(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range schedules {
			schedules[i].PanelistIDs = nonNil(panelists[schedules[i].ID])
		}
	}
	return schedules, total, nil
}

// Update writes a schedule and replaces its panelists
func (r *ScheduleRepository) Update(ctx context.Context, s *models.DefenseSchedule) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE defense_schedules
			SET group_id = $2, scheduled_at = $3, room = $4, status = $5, rubric_template_id = $6, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		if err := tx.QueryRowContext(ctx, query, s.ID, s.GroupID, s.ScheduledAt, s.Room, s.Status, s.RubricTemplateID).
			Scan(&s.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_panelists WHERE schedule_id = $1`, s.ID); err != nil {
			return err
		}
		return insertPanelists(ctx, tx, s.ID, s.PanelistIDs)
	})
	if err != nil {
		return database.TranslateError(err, entityDefenseSchedule)
	}
	return nil
}

func (r *ScheduleRepository) panelists(ctx context.Context, scheduleIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	panelists, err := loadIDSets(ctx, r.db, `
		SELECT schedule_id, staff_id
		FROM schedule_panelists
		WHERE schedule_id = ANY($1::uuid[])
		ORDER BY staff_id
	`, uuidArray(scheduleIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load panelists: %w", database.TranslateError(err, entityDefenseSchedule))
	}
	return panelists, nil
}

func insertPanelists(ctx context.Context, tx *sql.Tx, scheduleID uuid.UUID, staffIDs []uuid.UUID) error {
	if len(staffIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO schedule_panelists (schedule_id, staff_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING
	`, scheduleID, uuidArray(staffIDs))
	return err
}
