package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hiroyukim/warikan/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey ContextKey = "user_id"
	// DisplayNameKey is the context key for the authenticated user's display name
	DisplayNameKey ContextKey = "display_name"
)

// Verifier resolves a bearer token to an externally-issued identity.
// The LINE client implements this; the core never inspects tokens itself.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (userID, displayName string, err error)
}

// Auth validates the Authorization header against the verifier and stores
// the resolved identity in the request context.
func Auth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Authorization header required")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader || token == "" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			userID, displayName, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, DisplayNameKey, displayName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevUser allows setting the identity via X-Debug-User-ID / X-Debug-User-Name
// headers when no identity provider is configured (DEV ONLY).
func DevUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-Debug-User-ID")
		if userID == "" {
			response.Unauthorized(w, "X-Debug-User-ID header required")
			return
		}

		name := r.Header.Get("X-Debug-User-Name")
		if name == "" {
			name = userID
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = context.WithValue(ctx, DisplayNameKey, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetDisplayName extracts the display name from the request context
func GetDisplayName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(DisplayNameKey).(string)
	return name, ok
}
