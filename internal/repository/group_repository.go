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

const entityThesisGroup = "thesis group"

// GroupRepository handles thesis group database operations
type GroupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a group and its members in one transaction
func (r *GroupRepository) Create(ctx context.Context, g *models.ThesisGroup) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO thesis_groups (title, description, adviser_id)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`
		if err := tx.QueryRowContext(ctx, query, g.Title, g.Description, g.AdviserID).
			Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return err
		}
		return insertMembers(ctx, tx, g.ID, g.MemberIDs)
	})
	if err != nil {
		return fmt.Errorf("failed to create thesis group: %w", database.TranslateError(err, entityThesisGroup))
	}
	return nil
}

// GetByID retrieves a group with its members
func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ThesisGroup, error) {
	query := `
		SELECT id, title, description, adviser_id, created_at, updated_at
		FROM thesis_groups
		WHERE id = $1
	`

	g := &models.ThesisGroup{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID,
		&g.Title,
		&g.Description,
		&g.AdviserID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, database.TranslateError(err, entityThesisGroup)
	}

	members, err := r.members(ctx, []uuid.UUID{g.ID})
	if err != nil {
		return nil, err
	}
	g.MemberIDs = nonNil(members[g.ID])
	return g, nil
}

// List returns a page of groups ordered by title
func (r *GroupRepository) List(ctx context.Context, page models.Page) ([]models.ThesisGroup, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thesis_groups`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count thesis groups: %w", database.TranslateError(err, entityThesisGroup))
	}

	query, args := appendPage(`
		SELECT id, title, description, adviser_id, created_at, updated_at
		FROM thesis_groups
		ORDER BY LOWER(title), id`, nil, page)

	groups, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// ListByMember returns every group the student belongs to
func (r *GroupRepository) ListByMember(ctx context.Context, studentID uuid.UUID) ([]models.ThesisGroup, error) {
	query := `
		SELECT g.id, g.title, g.description, g.adviser_id, g.created_at, g.updated_at
		FROM thesis_groups g
		INNER JOIN thesis_group_members m ON m.group_id = g.id
		WHERE m.student_id = $1
		ORDER BY g.created_at, g.id
	`
	return r.query(ctx, query, studentID)
}

// Update writes a group and replaces its member set
func (r *GroupRepository) Update(ctx context.Context, g *models.ThesisGroup) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE thesis_groups
			SET title = $2, description = $3, adviser_id = $4, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		if err := tx.QueryRowContext(ctx, query, g.ID, g.Title, g.Description, g.AdviserID).Scan(&g.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM thesis_group_members WHERE group_id = $1`, g.ID); err != nil {
			return err
		}
		return insertMembers(ctx, tx, g.ID, g.MemberIDs)
	})
	if err != nil {
		return database.TranslateError(err, entityThesisGroup)
	}
	return nil
}

// Delete deletes a group
func (r *GroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM thesis_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete thesis group: %w", database.TranslateError(err, entityThesisGroup))
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return database.TranslateError(err, entityThesisGroup)
	}
	if !ok {
		return apperror.NotFound(entityThesisGroup)
	}
	return nil
}

func (r *GroupRepository) query(ctx context.Context, query string, args ...any) ([]models.ThesisGroup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list thesis groups: %w", database.TranslateError(err, entityThesisGroup))
	}
	defer rows.Close()

	groups := []models.ThesisGroup{}
	ids := []uuid.UUID{}
	for rows.Next() {
		var g models.ThesisGroup
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.AdviserID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thesis group: %w", database.TranslateError(err, entityThesisGroup))
		}
		groups = append(groups, g)
		ids = append(ids, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, database.TranslateError(err, entityThesisGroup)
	}
	if len(ids) == 0 {
		return groups, nil
	}

	members, err := r.members(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].MemberIDs = nonNil(members[groups[i].ID])
	}
	return groups, nil
}

func (r *GroupRepository) members(ctx context.Context, groupIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	members, err := loadIDSets(ctx, r.db, `
		SELECT group_id, student_id
		FROM thesis_group_members
		WHERE group_id = ANY($1::uuid[])
		ORDER BY created_at, student_id
	`, uuidArray(groupIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load group members: %w", database.TranslateError(err, entityThesisGroup))
	}
	return members, nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, groupID uuid.UUID, memberIDs []uuid.UUID) error {
	if len(memberIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO thesis_group_members (group_id, student_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING
	`, groupID, uuidArray(memberIDs))
	return err
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
