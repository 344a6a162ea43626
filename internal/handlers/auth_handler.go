package handlers

import (
	"net/http"
	"time"

	"thesis-eval/internal/config"
	"thesis-eval/internal/middleware"
	"thesis-eval/internal/service"
	"thesis-eval/pkg/validator"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *service.AuthService
	session     config.SessionConfig
	now         func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, session config.SessionConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		session:     session,
		now:         time.Now,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest represents a password reset request
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// Login handles user login
// @Summary Log in
// @Description Verify credentials, set the session cookie and return the user
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]interface{} "ok, user, expiresAt"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 401 {object} map[string]interface{} "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		MaxAge:   int(result.ExpiresAt.Sub(h.now()).Seconds()),
		HttpOnly: true,
		Secure:   h.session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	respondOK(w, http.StatusOK, map[string]any{
		"user":      result.User,
		"expiresAt": result.ExpiresAt,
	})
}

// Logout clears the session cookie
// @Summary Log out
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]interface{} "ok"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondOK(w, http.StatusOK, nil)
}

// Me returns the authenticated user
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "ok, user"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), actor.UserID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"user": user})
}

// RequestPasswordReset handles password reset requests
// @Summary Request a password reset
// @Description Always succeeds so that account existence cannot be probed
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Email"
// @Success 200 {object} map[string]interface{} "ok"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Router /auth/password-reset/request [post]
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	h.authService.RequestPasswordReset(r.Context(), req.Email, middleware.ClientIP(r), r.UserAgent())
	respondOK(w, http.StatusOK, map[string]any{
		"message": "If the email exists, a password reset link has been sent",
	})
}

// ResetPassword handles password reset confirmation
// @Summary Confirm a password reset
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} map[string]interface{} "ok"
// @Failure 400 {object} map[string]interface{} "Invalid or expired token"
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.authService.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword, middleware.ClientIP(r), r.UserAgent()); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]any{"message": "Password has been reset"})
}
