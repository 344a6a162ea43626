package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"thesis-eval/internal/apperror"
)

type errorBody struct {
	Code    apperror.Kind `json:"code"`
	Message string        `json:"message"`
}

// respondWithError writes the failure envelope used across the API
func respondWithError(w http.ResponseWriter, status int, kind apperror.Kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": errorBody{Code: kind, Message: message},
	})
	if err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}

// ClientIP returns the host part of r.RemoteAddr. Forwarding headers are
// applied earlier by TrustedProxies.Handler.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
