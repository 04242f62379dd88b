// Package middleware implements the access-control gate: bearer-token
// resolution and role checks applied before protected handlers run.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"procurement/internal/auth"
)

type contextKey int

const identityKey contextKey = 0

// Identity is the resolved caller, placed into the request context by
// Authenticate.
type Identity struct {
	UserID   int
	Username string
	Role     string
}

// WithIdentity returns a context carrying the identity. Exported for tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the caller identity from the request context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Authenticator resolves session tokens into identities.
type Authenticator struct {
	tokens *auth.TokenManager
}

func NewAuthenticator(tokens *auth.TokenManager) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Authenticate requires a valid "Bearer <token>" Authorization header and
// stores the resolved identity in the request context. Failures are 401;
// role checks happen later and are 403.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			reject(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			reject(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := a.tokens.Parse(parts[1])
		if err != nil {
			reject(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		id := Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRole rejects authenticated callers whose role does not match.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				reject(w, http.StatusUnauthorized, "Authorization header required")
				return
			}
			if id.Role != role {
				reject(w, http.StatusForbidden, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
