package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerkeep/ledgerkeep/internal/core/session"
	apperrors "github.com/ledgerkeep/ledgerkeep/internal/errors"
	"github.com/ledgerkeep/ledgerkeep/internal/metrics"
	"github.com/ledgerkeep/ledgerkeep/internal/server/middleware"
)

// SessionIDHeader identifies the caller's own session so it survives
// revoke-others and shows as current in listings.
const SessionIDHeader = "X-Session-ID"

// SessionsHandler serves the per-user session management endpoints.
type SessionsHandler struct {
	Registry *session.Registry
}

// SessionView is the API shape of one active session.
type SessionView struct {
	SessionID  string    `json:"session_id"`
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	Current    bool      `json:"current"`
}

// SessionListResponse wraps the session listing.
type SessionListResponse struct {
	Sessions []SessionView `json:"sessions"`
	Count    int           `json:"count"`
}

// List handles GET /api/v1/sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	records, err := h.Registry.Sessions(r.Context(), userID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Unable to list sessions"))
		return
	}

	current := h.currentSessionID(r)
	views := make([]SessionView, 0, len(records))
	for _, record := range records {
		views = append(views, SessionView{
			SessionID:  record.SessionID,
			DeviceInfo: string(record.DeviceInfo),
			CreatedAt:  record.CreatedAt,
			LastActive: record.LastActive,
			Current:    record.SessionID == current,
		})
	}

	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: views, Count: len(views)})
}

// Revoke handles DELETE /api/v1/sessions/{sessionID}.
func (h *SessionsHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("session id is required"))
		return
	}

	if err := h.Registry.Revoke(r.Context(), userID, sessionID); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Unable to revoke session"))
		return
	}
	metrics.RecordSessionsRevoked(1)

	w.WriteHeader(http.StatusNoContent)
}

// RevokeOthers handles POST /api/v1/sessions/revoke-others. Every session
// except the caller's own is removed.
func (h *SessionsHandler) RevokeOthers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	current := h.currentSessionID(r)
	if current == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError(SessionIDHeader+" header is required"))
		return
	}

	revoked, err := h.Registry.RevokeOthers(r.Context(), userID, current)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Unable to revoke sessions"))
		return
	}
	metrics.RecordSessionsRevoked(revoked)

	writeJSON(w, http.StatusOK, map[string]int{"revoked": revoked})
}

// Cleanup handles POST /api/v1/sessions/cleanup, sweeping sessions idle for
// longer than the staleness cutoff.
func (h *SessionsHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	removed, err := h.Registry.CleanupStale(r.Context(), userID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Unable to clean up sessions"))
		return
	}
	metrics.RecordStaleSessionsCleaned(removed)

	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// Suspicion handles GET /api/v1/sessions/suspicion.
func (h *SessionsHandler) Suspicion(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	report, err := h.Registry.DetectSuspicious(r.Context(), userID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Unable to inspect sessions"))
		return
	}
	if report.Suspicious {
		metrics.RecordSuspiciousSignIn(string(report.Reason))
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *SessionsHandler) currentSessionID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionIDHeader)); id != "" {
		return id
	}
	return h.Registry.CurrentSessionID()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
