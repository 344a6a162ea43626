package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/auth"
	"thesis-eval/internal/models"
	"thesis-eval/pkg/validator"
)

// LoginResult is a signed session token and the user it belongs to
type LoginResult struct {
	Token     string               `json:"-"`
	ExpiresAt time.Time            `json:"expiresAt"`
	User      models.UserWithRoles `json:"user"`
}

// AuthService handles login and password reset
type AuthService struct {
	users    UserStore
	tokens   TokenStore
	authSvc  *auth.Service
	mailer   Mailer
	audit    *AuditService
	resetTTL time.Duration
	now      func() time.Time
	dispatch func(func())
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, tokens TokenStore, authSvc *auth.Service, mailer Mailer, audit *AuditService, resetTTL time.Duration) *AuthService {
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		authSvc:  authSvc,
		mailer:   mailer,
		audit:    audit,
		resetTTL: resetTTL,
		now:      time.Now,
		dispatch: func(f func()) { go f() },
	}
}

// Login checks credentials and issues a session token
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	email = validator.SanitizeEmail(email)
	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if err := s.authSvc.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, invalid
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("account is disabled")
	}

	roles, err := s.users.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading roles: %w", err)
	}

	token, err := s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperror.Internal("failed to issue session", err)
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		slog.Warn("Failed to update last login", "user_id", user.ID, "error", err)
	}

	actor := models.Actor{UserID: user.ID, Roles: roles, IPAddress: ipAddress, UserAgent: userAgent}
	s.audit.Log(ctx, actor, ActionUserLoggedIn, EntityUser, user.ID, map[string]any{"email": user.Email})

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(s.authSvc.TokenTTL()),
		User:      models.UserWithRoles{User: *user, Roles: roles},
	}, nil
}

// CurrentUser returns the actor's account with roles
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.UserWithRoles, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles, err := s.users.GetRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserWithRoles{User: *user, Roles: roles}, nil
}

// RequestPasswordReset issues a reset token and mails it. It never reports
// failure so callers cannot probe which accounts exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, ipAddress, userAgent string) {
	email = validator.SanitizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !apperror.Is(err, apperror.KindNotFound) {
			slog.Error("Password reset lookup failed", "error", err)
		}
		return
	}
	if !user.IsActive {
		return
	}

	token, err := auth.GenerateRandomToken(32)
	if err != nil {
		slog.Error("Failed to generate password reset token", "error", err)
		return
	}

	resetToken := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     hashResetToken(token),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.tokens.CreatePasswordResetToken(ctx, resetToken); err != nil {
		slog.Error("Failed to store password reset token", "user_id", user.ID, "error", err)
		return
	}

	actor := models.Actor{UserID: user.ID, IPAddress: ipAddress, UserAgent: userAgent}
	s.audit.Log(ctx, actor, ActionPasswordResetRequested, EntityUser, user.ID, map[string]any{
		"expiresAt": resetToken.ExpiresAt,
	})

	if s.mailer == nil {
		return
	}
	to, name := user.Email, user.FullName
	s.dispatch(func() {
		if err := s.mailer.SendPasswordResetEmail(to, name, token); err != nil {
			slog.Error("Failed to send password reset email", "user_id", user.ID, "error", err)
		}
	})
}

// ConfirmPasswordReset consumes a reset token and sets a new password in
// one store call
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword, ipAddress, userAgent string) error {
	if err := validator.ValidatePassword(newPassword); err != nil {
		return err
	}

	invalid := apperror.Validation("invalid or expired reset token", apperror.FieldError{
		Field: "token", Message: "invalid or expired reset token",
	})

	rt, err := s.tokens.GetPasswordResetToken(ctx, hashResetToken(token))
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return invalid
		}
		return err
	}

	now := s.now()
	if rt.UsedAt != nil || now.After(rt.ExpiresAt) {
		return invalid
	}

	hash, err := s.authSvc.HashPassword(newPassword)
	if err != nil {
		return apperror.Internal("failed to hash password", err)
	}

	consumed, err := s.tokens.ResetPassword(ctx, rt.ID, rt.UserID, hash, now)
	if err != nil {
		return fmt.Errorf("resetting password: %w", err)
	}
	if !consumed {
		return invalid
	}

	actor := models.Actor{UserID: rt.UserID, IPAddress: ipAddress, UserAgent: userAgent}
	s.audit.Log(ctx, actor, ActionPasswordResetCompleted, EntityUser, rt.UserID, nil)
	return nil
}

// hashResetToken keeps raw reset tokens out of the database
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
