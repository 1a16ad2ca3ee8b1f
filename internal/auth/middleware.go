package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a type for context keys
type contextKey string

const (
	// ViewerIDKey is the context key for the authenticated viewer ID
	ViewerIDKey contextKey = "viewerId"
)

// Middleware provides authentication middleware for HTTP handlers
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{authService: authService}
}

// OptionalAuth resolves the viewer from a bearer token when one is present.
// Requests without a token are anonymous; an invalid token is rejected.
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next(w, r)
			return
		}

		uid, err := m.authService.ValidateAccessToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ViewerIDKey, uid)
		next(w, r.WithContext(ctx))
	}
}

// GetViewerID extracts the viewer ID from the request context, 0 when
// anonymous
func GetViewerID(ctx context.Context) int64 {
	uid, _ := ctx.Value(ViewerIDKey).(int64)
	return uid
}

// extractToken extracts the token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
