package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/ledgerkeep/internal/core/session"
)

type stubIdentity struct {
	validateErr error
}

func (s stubIdentity) ValidateToken(ctx context.Context, userID string) error {
	return s.validateErr
}

func (s stubIdentity) SignOut(ctx context.Context, userID string) error {
	return nil
}

func authHandler(identity session.IdentityProvider, seen *string) http.Handler {
	return Authenticate(identity)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error.Code
}

func TestAuthenticatePassesValidUser(t *testing.T) {
	var seen string
	handler := authHandler(stubIdentity{}, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set(UserIDHeader, "user-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", seen)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	var seen string
	handler := authHandler(stubIdentity{}, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", decodeErrorCode(t, rec))
	require.Empty(t, seen)
}

func TestAuthenticateMapsExpiredToken(t *testing.T) {
	var seen string
	handler := authHandler(stubIdentity{validateErr: session.ErrTokenExpired}, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set(UserIDHeader, "user-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "TOKEN_EXPIRED", decodeErrorCode(t, rec))
}

func TestAuthenticateMapsDisabledUser(t *testing.T) {
	var seen string
	handler := authHandler(stubIdentity{validateErr: session.ErrUserDisabled}, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set(UserIDHeader, "user-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "USER_DISABLED", decodeErrorCode(t, rec))
}

func TestAuthenticateMapsTransientBackendFailure(t *testing.T) {
	var seen string
	handler := authHandler(stubIdentity{validateErr: context.DeadlineExceeded}, &seen)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set(UserIDHeader, "user-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "EXTERNAL_SERVICE_ERROR", decodeErrorCode(t, rec))
}
