package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"procurement/internal/auth"
	"procurement/internal/middleware"
)

var testTokens = auth.NewTokenManager("test-secret-key", time.Hour)

func identityEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFrom(r.Context())
		require.True(t, ok)
		w.Write([]byte(id.Username + ":" + id.Role))
	})
}

func TestAuthenticateMissingHeader(t *testing.T) {
	gate := middleware.NewAuthenticator(testTokens)
	req := httptest.NewRequest(http.MethodGet, "/api/bids", nil)
	w := httptest.NewRecorder()

	gate.Authenticate(identityEcho(t)).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Authorization header required")
}

func TestAuthenticateBadFormat(t *testing.T) {
	gate := middleware.NewAuthenticator(testTokens)

	for _, header := range []string{"tokenonly", "Basic abc123"} {
		req := httptest.NewRequest(http.MethodGet, "/api/bids", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		gate.Authenticate(identityEcho(t)).ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), "Invalid authorization header format")
	}
}

func TestAuthenticateBadToken(t *testing.T) {
	gate := middleware.NewAuthenticator(testTokens)
	req := httptest.NewRequest(http.MethodGet, "/api/bids", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	w := httptest.NewRecorder()

	gate.Authenticate(identityEcho(t)).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Invalid or expired token")
}

func TestAuthenticateValidToken(t *testing.T) {
	token, err := testTokens.Generate(2, "alice", "candidate")
	require.NoError(t, err)

	gate := middleware.NewAuthenticator(testTokens)
	req := httptest.NewRequest(http.MethodGet, "/api/bids", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	gate.Authenticate(identityEcho(t)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice:candidate", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gate := middleware.RequireRole("admin")(next)

	// matching role passes
	req := httptest.NewRequest(http.MethodGet, "/api/admin/bids", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: 1, Role: "admin"}))
	w := httptest.NewRecorder()
	gate.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	// wrong role is forbidden
	req = httptest.NewRequest(http.MethodGet, "/api/admin/bids", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{UserID: 2, Role: "candidate"}))
	w = httptest.NewRecorder()
	gate.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "Unauthorized")

	// no identity at all is unauthorized
	req = httptest.NewRequest(http.MethodGet, "/api/admin/bids", nil)
	w = httptest.NewRecorder()
	gate.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
