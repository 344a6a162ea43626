package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/database"
	"thesis-eval/internal/models"
)

// TokenRepository handles password reset token database operations.
// Tokens are stored hashed; callers pass the hash.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// CreatePasswordResetToken creates a new password reset token
func (r *TokenRepository) CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, token.UserID, token.Token, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create password reset token: %w", database.TranslateError(err, "password reset token"))
	}
	return nil
}

// GetPasswordResetToken retrieves a password reset token
func (r *TokenRepository) GetPasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`

	t := &models.PasswordResetToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.ExpiresAt,
		&t.UsedAt,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, database.TranslateError(err, "password reset token")
	}
	return t, nil
}

// ResetPassword marks a token used and stores the user's new password hash
// in one transaction. It returns false when the token was already used, so
// two confirmations cannot both succeed; the token stays unused when the
// password update fails.
func (r *TokenRepository) ResetPassword(ctx context.Context, tokenID, userID uuid.UUID, passwordHash string, at time.Time) (bool, error) {
	consumed := false
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE password_reset_tokens
			SET used_at = $2
			WHERE id = $1 AND used_at IS NULL
		`, tokenID, at)
		if err != nil {
			return fmt.Errorf("failed to mark token as used: %w", database.TranslateError(err, "password reset token"))
		}
		ok, err := rowsAffected(res)
		if err != nil {
			return database.TranslateError(err, "password reset token")
		}
		if !ok {
			return nil
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE users
			SET password_hash = $1, updated_at = NOW()
			WHERE id = $2
		`, passwordHash, userID)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", database.TranslateError(err, entityUser))
		}
		ok, err = rowsAffected(res)
		if err != nil {
			return database.TranslateError(err, entityUser)
		}
		if !ok {
			return apperror.NotFound(entityUser)
		}
		consumed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return consumed, nil
}

// DeleteExpiredTokens removes expired and used tokens older than cutoff
func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM password_reset_tokens
		WHERE expires_at < $1 OR (used_at IS NOT NULL AND used_at < $1)
	`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", database.TranslateError(err, "password reset token"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, database.TranslateError(err, "password reset token")
	}
	return n, nil
}
