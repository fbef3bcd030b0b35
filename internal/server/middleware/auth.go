package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/ledgerkeep/ledgerkeep/internal/core/session"
)

// UserIDHeader carries the authenticated principal's id. The identity
// backend in front of this service resolves credentials to a user id; this
// middleware revalidates the principal's token on every request.
const UserIDHeader = "X-User-ID"

type userIDContextKey string

const UserIDContextKey userIDContextKey = "user_id"

// Authenticate validates the calling principal against the identity backend
// and stores the user id in the request context. Fatal token conditions map
// to 401/403; transient backend failures map to 502 so clients retry.
func Authenticate(identity session.IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" {
				envelope := errors.NewErrorEnvelope("UNAUTHORIZED", "missing "+UserIDHeader+" header").
					WithCorrelationID(GetRequestID(r.Context()))
				writeErrorResponse(w, envelope, http.StatusUnauthorized)
				return
			}

			if err := identity.ValidateToken(r.Context(), userID); err != nil {
				code := "EXTERNAL_SERVICE_ERROR"
				status := http.StatusBadGateway
				switch {
				case isTokenError(err):
					code = "TOKEN_EXPIRED"
					status = http.StatusUnauthorized
				case isDisabledError(err):
					code = "USER_DISABLED"
					status = http.StatusForbidden
				}

				envelope := errors.NewErrorEnvelope(code, err.Error()).
					WithCorrelationID(GetRequestID(r.Context()))
				writeErrorResponse(w, envelope, status)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID retrieves the authenticated user id from context.
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDContextKey).(string); ok {
		return userID
	}
	return ""
}

func isTokenError(err error) bool {
	return session.IsFatalAuthError(err) && !isDisabledError(err)
}

func isDisabledError(err error) bool {
	return stderrors.Is(err, session.ErrUserDisabled)
}
