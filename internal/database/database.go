package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/lib/pq"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/config"
)

// Database wraps the SQL database connection
type Database struct {
	DB *sql.DB
}

// New opens a pooled connection and verifies it with a ping
func New(cfg config.DatabaseConfig) (*Database, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// HealthCheck performs a health check on the database
func (d *Database) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return apperror.Unavailable("database health check failed", err)
	}
	return nil
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return TranslateError(err, "transaction")
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return TranslateError(err, "transaction")
	}
	return nil
}

// Postgres SQLSTATE codes the repositories care about
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// TranslateError maps driver errors onto the application error taxonomy.
// Errors that already carry a kind are returned unchanged.
func TranslateError(err error, entity string) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(entity)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return &apperror.Error{Kind: apperror.KindConflict, Message: entity + " already exists", Err: err}
		case pqForeignKeyViolation:
			return &apperror.Error{Kind: apperror.KindValidation, Message: entity + " references a missing record", Err: err}
		case pqCheckViolation:
			return &apperror.Error{Kind: apperror.KindValidation, Message: entity + " violates a constraint", Err: err}
		}
		// class 22 is data exceptions such as numeric out of range
		if pqErr.Code.Class() == "22" {
			return &apperror.Error{Kind: apperror.KindValidation, Message: entity + " has a value out of range", Err: err}
		}
		// class 08 is connection exceptions, 57P is operator intervention
		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57" {
			return apperror.Unavailable("database unavailable", err)
		}
		return apperror.Internal("database error", err)
	}

	var netErr net.Error
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return apperror.Unavailable("database unavailable", err)
	}

	return apperror.Internal("database error", err)
}
