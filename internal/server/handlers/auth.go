package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ledgerkeep/ledgerkeep/internal/core"
	"github.com/ledgerkeep/ledgerkeep/internal/core/ratelimit"
	"github.com/ledgerkeep/ledgerkeep/internal/core/session"
	apperrors "github.com/ledgerkeep/ledgerkeep/internal/errors"
	"github.com/ledgerkeep/ledgerkeep/internal/metrics"
	"github.com/ledgerkeep/ledgerkeep/internal/server/middleware"
)

// AuthHandler drives the sign-in and sign-out endpoints. Sign-in attempts
// count against the login rate limiter before the identity backend is
// consulted; a successful sign-in clears the caller's attempt history.
type AuthHandler struct {
	Orchestrator *session.Orchestrator
	Login        *ratelimit.Limiter
}

// SignInRequest is the sign-in payload.
type SignInRequest struct {
	UserID string `json:"user_id"`
}

// SignInResponse reports the orchestration outcome.
type SignInResponse struct {
	State      string               `json:"state"`
	UserID     string               `json:"user_id"`
	SessionID  string               `json:"session_id,omitempty"`
	Profile    *core.UserProfile    `json:"profile,omitempty"`
	Suspicion  core.SuspicionReport `json:"suspicion"`
	SignedInAt time.Time            `json:"signed_in_at"`
}

// SignIn handles POST /api/v1/auth/signin. Returning clients present their
// session id in the X-Session-ID header so their own record is refreshed;
// without it a new session is registered.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid sign-in payload"))
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		respondWithError(w, r, apperrors.NewValidationError("user_id is required"))
		return
	}

	if result := h.Login.Check(userID); !result.Allowed {
		metrics.RecordRateLimitHit("login")
		respondWithError(w, r, apperrors.NewRateLimitedError(
			"Too many sign-in attempts", result.RetryAfterSeconds))
		return
	}

	sessionID := strings.TrimSpace(r.Header.Get(SessionIDHeader))
	outcome, err := h.Orchestrator.SignIn(r.Context(), userID, r.UserAgent(), sessionID)
	if err != nil {
		if session.IsFatalAuthError(err) {
			respondWithError(w, r, fatalAuthEnvelope(err))
			return
		}
		respondWithError(w, r, apperrors.WrapExternalService(r.Context(), err, "Identity backend unavailable"))
		return
	}

	h.Login.RecordSuccess(userID)
	metrics.RecordOperation("signin", true)
	if outcome.Suspicion.Suspicious {
		metrics.RecordSuspiciousSignIn(string(outcome.Suspicion.Reason))
	}

	writeJSON(w, http.StatusOK, SignInResponse{
		State:      string(outcome.State),
		UserID:     outcome.UserID,
		SessionID:  outcome.SessionID,
		Profile:    outcome.Profile,
		Suspicion:  outcome.Suspicion,
		SignedInAt: time.Now().UTC(),
	})
}

// SignOut handles POST /api/v1/auth/signout. Always succeeds from the
// caller's perspective; revocation is best-effort.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondWithError(w, r, apperrors.NewUnauthorizedError("Missing authenticated user"))
		return
	}

	sessionID := strings.TrimSpace(r.Header.Get(SessionIDHeader))
	h.Orchestrator.SignOut(r.Context(), userID, sessionID)
	metrics.RecordOperation("signout", true)

	w.WriteHeader(http.StatusNoContent)
}

func fatalAuthEnvelope(err error) error {
	if errors.Is(err, session.ErrUserDisabled) {
		return apperrors.NewUserDisabledError("User account is disabled")
	}
	return apperrors.NewTokenExpiredError("Authentication token is expired or invalid")
}
