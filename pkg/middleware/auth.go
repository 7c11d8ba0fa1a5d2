// Package middleware provides the HTTP middleware stack: bearer token
// authentication, admin guards, request IDs with structured request logging,
// panic recovery, and Redis-backed login rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/keygate/keygate/pkg/auth"
	"github.com/keygate/keygate/pkg/contextkeys"
	"github.com/keygate/keygate/pkg/httputil"
)

// AuthMiddleware authenticates requests with bearer tokens.
type AuthMiddleware struct {
	issuer   *auth.TokenIssuer
	optional bool // allow unauthenticated requests through
}

// NewAuthMiddleware creates an authentication middleware. With optional set,
// requests without an Authorization header pass through unauthenticated.
func NewAuthMiddleware(issuer *auth.TokenIssuer, optional bool) *AuthMiddleware {
	return &AuthMiddleware{issuer: issuer, optional: optional}
}

// Handler wraps next with bearer token authentication. Valid claims are
// placed on the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.issuer.Decode(parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), contextkeys.ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaims extracts the authenticated claims from the request, or nil when
// the request is unauthenticated.
func GetClaims(r *http.Request) *auth.Claims {
	claims, ok := r.Context().Value(contextkeys.ClaimsKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// RequireAdmin rejects requests whose claims lack the admin flag.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r)
		if claims == nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if !claims.IsAdmin {
			httputil.WriteForbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
