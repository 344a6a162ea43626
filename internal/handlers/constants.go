package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgUnauthorized       = "Unauthorized"
	ErrMsgInternal           = "Internal server error"
	ErrMsgUnavailable        = "Service temporarily unavailable"
	ErrMsgUnknownResource    = "Unknown resource"
)

// Pagination bounds for list endpoints
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// API path constants
const (
	AuthAPIBasePath = "/api/auth"
)
