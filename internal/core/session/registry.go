// Package session manages the set of active sessions per user: registration,
// activity heartbeats, cap enforcement, stale cleanup, and a heuristic for
// suspicious concurrent-session patterns.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkeep/ledgerkeep/internal/core"
)

// Store is the document-store collaborator holding session records.
type Store interface {
	CreateSession(ctx context.Context, record core.SessionRecord) error
	// TouchSession advances lastActive for (userID, sessionID). It reports
	// false when no matching record exists.
	TouchSession(ctx context.Context, userID, sessionID string, at time.Time) (bool, error)
	ListSessions(ctx context.Context, userID string) ([]core.SessionRecord, error)
	// DeleteSessions removes all records matching any of the ids and returns
	// how many rows were removed.
	DeleteSessions(ctx context.Context, userID string, sessionIDs []string) (int, error)
}

// LocalCache is the single-slot client-local cache holding the current
// session id. It is a lookup key, not an ownership link; the record it names
// may have been evicted server-side.
type LocalCache interface {
	SessionID() string
	SetSessionID(id string)
	Clear()
}

// Registry coordinates session records for the signed-in user.
type Registry struct {
	store Store
	cache LocalCache
	clock func() time.Time

	// MaxSessions caps concurrent sessions per user.
	MaxSessions int
	// StaleAfter is the inactivity threshold for CleanupStale.
	StaleAfter time.Duration
}

// NewRegistry creates a registry with the default cap and staleness window.
func NewRegistry(store Store, cache LocalCache) *Registry {
	return &Registry{
		store:       store,
		cache:       cache,
		clock:       func() time.Time { return time.Now().UTC() },
		MaxSessions: core.MaxSessionsPerUser,
		StaleAfter:  core.StaleSessionAge,
	}
}

// WithClock injects a time source for tests.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	if clock != nil {
		r.clock = clock
	}
	return r
}

// NewSessionID builds an opaque session identifier from the current time and
// a random component.
func (r *Registry) NewSessionID() string {
	return fmt.Sprintf("%d-%s", r.clock().UnixMilli(), strings.Split(uuid.NewString(), "-")[0])
}

// Register persists a new session record, caches its id locally, and returns
// the id. Store failures propagate; the caller decides whether sign-in
// proceeds degraded.
func (r *Registry) Register(ctx context.Context, userID, userAgent string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}

	now := r.clock()
	record := core.SessionRecord{
		UserID:     userID,
		SessionID:  r.NewSessionID(),
		DeviceInfo: ClassifyDevice(userAgent),
		UserAgent:  userAgent,
		CreatedAt:  now,
		LastActive: now,
	}

	if err := r.store.CreateSession(ctx, record); err != nil {
		return "", fmt.Errorf("register session: %w", err)
	}

	r.cache.SetSessionID(record.SessionID)
	return record.SessionID, nil
}

// Touch refreshes lastActive for the caller's own session. The id comes from
// the caller because the registry may serve many clients at once; the local
// cache is never consulted here. Returns false when the id is empty or the
// record no longer exists server-side (a matching cached id is dropped in
// that case, signaling the caller to register anew). Store errors are
// swallowed: the heartbeat must never break the session.
func (r *Registry) Touch(ctx context.Context, userID, sessionID string) bool {
	if sessionID == "" {
		return false
	}

	found, err := r.store.TouchSession(ctx, userID, sessionID, r.clock())
	if err != nil {
		return false
	}
	if !found {
		r.ForgetCached(sessionID)
		return false
	}
	return true
}

// TouchCurrent refreshes the locally cached session. Heartbeat and CLI path;
// HTTP callers pass their own id to Touch instead.
func (r *Registry) TouchCurrent(ctx context.Context, userID string) bool {
	return r.Touch(ctx, userID, r.cache.SessionID())
}

// ForgetCached drops the cached id when it matches sessionID. The slot is
// shared process-wide, so a caller may only clear the id it owns; an empty
// sessionID is a no-op.
func (r *Registry) ForgetCached(sessionID string) {
	if sessionID != "" && r.cache.SessionID() == sessionID {
		r.cache.Clear()
	}
}

// Sessions lists all of the user's session records.
func (r *Registry) Sessions(ctx context.Context, userID string) ([]core.SessionRecord, error) {
	return r.store.ListSessions(ctx, userID)
}

// Revoke deletes every record matching (userID, sessionID). Duplicates for
// the same logical session should not happen but are handled.
func (r *Registry) Revoke(ctx context.Context, userID, sessionID string) error {
	_, err := r.store.DeleteSessions(ctx, userID, []string{sessionID})
	return err
}

// EnforceLimit evicts the oldest sessions (by lastActive) until the user is
// below the cap, leaving room for the session about to be created. It must
// run before Register on sign-in so the new session cannot evict itself.
//
// Two devices signing in concurrently can both observe "under cap" and
// jointly exceed it until the next pass; each store mutation is its own
// atomic unit and there is no cross-device transaction.
func (r *Registry) EnforceLimit(ctx context.Context, userID string) error {
	sessions, err := r.store.ListSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("enforce session limit: %w", err)
	}
	if len(sessions) < r.MaxSessions {
		return nil
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActive.Before(sessions[j].LastActive)
	})

	excess := len(sessions) - (r.MaxSessions - 1)
	evict := make([]string, 0, excess)
	for _, s := range sessions[:excess] {
		evict = append(evict, s.SessionID)
	}

	if _, err := r.store.DeleteSessions(ctx, userID, evict); err != nil {
		return fmt.Errorf("enforce session limit: %w", err)
	}
	return nil
}

// RevokeOthers deletes every session except currentSessionID and returns how
// many were revoked. Backs the "log out other devices" action.
func (r *Registry) RevokeOthers(ctx context.Context, userID, currentSessionID string) (int, error) {
	sessions, err := r.store.ListSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	var others []string
	for _, s := range sessions {
		if s.SessionID != currentSessionID {
			others = append(others, s.SessionID)
		}
	}
	if len(others) == 0 {
		return 0, nil
	}

	return r.store.DeleteSessions(ctx, userID, others)
}

// DetectSuspicious flags unusual concurrent-session patterns: more than 3
// active sessions, or logins from more than 2 distinct device classes. The
// first matching condition wins. Advisory only.
func (r *Registry) DetectSuspicious(ctx context.Context, userID string) (core.SuspicionReport, error) {
	sessions, err := r.store.ListSessions(ctx, userID)
	if err != nil {
		return core.SuspicionReport{}, err
	}

	report := core.SuspicionReport{SessionCount: len(sessions)}

	if len(sessions) > 3 {
		report.Suspicious = true
		report.Reason = core.SuspicionTooManySessions
		return report, nil
	}

	devices := make(map[core.DeviceClass]struct{})
	for _, s := range sessions {
		devices[s.DeviceInfo] = struct{}{}
	}
	if len(devices) > 2 {
		report.Suspicious = true
		report.Reason = core.SuspicionDeviceDiversity
	}

	return report, nil
}

// CleanupStale revokes sessions inactive beyond StaleAfter and returns the
// count revoked. Invoked opportunistically on sign-in, not on a schedule.
func (r *Registry) CleanupStale(ctx context.Context, userID string) (int, error) {
	sessions, err := r.store.ListSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	cutoff := r.clock().Add(-r.StaleAfter)
	var stale []string
	for _, s := range sessions {
		if s.LastActive.Before(cutoff) {
			stale = append(stale, s.SessionID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	return r.store.DeleteSessions(ctx, userID, stale)
}

// CurrentSessionID reads the locally cached session id without touching the
// store. Empty when no session is cached.
func (r *Registry) CurrentSessionID() string {
	return r.cache.SessionID()
}
