package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"thesis-eval/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// appendPage adds LIMIT/OFFSET placeholders. A zero limit means no limit.
func appendPage(query string, args []any, page models.Page) (string, []any) {
	argPos := len(args) + 1
	if page.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argPos)
		args = append(args, page.Limit)
		argPos++
	}
	if page.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argPos)
		args = append(args, page.Offset)
	}
	return query, args
}

// uuidArray encodes ids for a `$n::uuid[]` parameter
func uuidArray(ids []uuid.UUID) any {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}

// rowsAffected reports whether res touched at least one row
func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// loadIDSets runs a two-column (owner, member) query and groups the members by owner
func loadIDSets(ctx context.Context, q querier, query string, args ...any) (map[uuid.UUID][]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[uuid.UUID][]uuid.UUID{}
	for rows.Next() {
		var owner, member uuid.UUID
		if err := rows.Scan(&owner, &member); err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], member)
	}
	return out, rows.Err()
}

func stringArray(values []string) any {
	return pq.Array(values)
}
