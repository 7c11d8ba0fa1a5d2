// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application are defined here. This
// prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ClaimsKey contains *auth.Claims
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: all protected API endpoints
	ClaimsKey Key = "auth_claims"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: request logging
	RequestIDKey Key = "request_id"
)

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
