package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"thesis-eval/internal/auth"
	"thesis-eval/internal/config"
	"thesis-eval/internal/models"
)

// AuthHelper issues session tokens for tests. It must share its auth.Service
// with the server under test because signing keys are per instance.
type AuthHelper struct {
	Auth       *auth.Service
	CookieName string
}

// NewAuthHelper creates a new auth helper with a fresh auth service
func NewAuthHelper() *AuthHelper {
	return &AuthHelper{
		Auth:       auth.NewService(config.JWTConfig{Secret: JWTSecret, Expiration: time.Hour}),
		CookieName: "thesis_session",
	}
}

// GenerateToken generates a session token for a user
func (h *AuthHelper) GenerateToken(t *testing.T, user *models.User) string {
	t.Helper()

	token, err := h.Auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

// AddAuthHeader adds an authorization header to the request
func (h *AuthHelper) AddAuthHeader(t *testing.T, req *http.Request, user *models.User) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+h.GenerateToken(t, user))
}

// AddSessionCookie attaches the session cookie to the request
func (h *AuthHelper) AddSessionCookie(t *testing.T, req *http.Request, user *models.User) {
	t.Helper()
	req.AddCookie(&http.Cookie{Name: h.CookieName, Value: h.GenerateToken(t, user)})
}

// CreateAuthenticatedRequest creates a request with auth header and an
// optional JSON body
func (h *AuthHelper) CreateAuthenticatedRequest(t *testing.T, method, url string, user *models.User, body any) *http.Request {
	t.Helper()

	req := NewJSONRequest(t, method, url, body)
	if user != nil {
		h.AddAuthHeader(t, req, user)
	}
	return req
}

// NewJSONRequest builds a request whose body is body encoded as JSON
func NewJSONRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, url, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// TestResponse holds response data for assertions
type TestResponse struct {
	*httptest.ResponseRecorder
}

// NewTestResponse creates a new test response recorder
func NewTestResponse() *TestResponse {
	return &TestResponse{
		ResponseRecorder: httptest.NewRecorder(),
	}
}

// AssertStatus asserts the HTTP status code
func (r *TestResponse) AssertStatus(t *testing.T, expected int) {
	t.Helper()

	if r.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, r.Code, r.Body.String())
	}
}

// Decode unmarshals the response body into v
func (r *TestResponse) Decode(t *testing.T, v any) {
	t.Helper()

	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response body %q: %v", r.Body.String(), err)
	}
}
