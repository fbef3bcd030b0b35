package session

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/ledgerkeep/ledgerkeep/internal/core"
)

// State tracks the sign-in orchestration.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateTokenPending    State = "token_pending"
	StateAuthenticated   State = "authenticated"
	StateReady           State = "ready"
)

// Fatal token conditions. Any of these forces an immediate sign-out with the
// invalid-token reason; they are never retried.
var (
	ErrTokenExpired = errors.New("auth token expired")
	ErrTokenInvalid = errors.New("auth token invalid")
	ErrUserDisabled = errors.New("user account disabled")
)

// IsFatalAuthError reports whether err is one of the token conditions that
// terminate the session.
func IsFatalAuthError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrUserDisabled)
}

// IdentityProvider is the auth backend collaborator.
type IdentityProvider interface {
	// ValidateToken refreshes/validates the current principal's token.
	ValidateToken(ctx context.Context, userID string) error
	// SignOut invalidates the principal's auth state.
	SignOut(ctx context.Context, userID string) error
}

// ProfileStore loads the user profile document created at sign-up.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*core.UserProfile, error)
}

// Outcome reports where a sign-in attempt landed.
type Outcome struct {
	State     State
	UserID    string
	SessionID string
	// Profile is nil when the profile document could not be loaded; the user
	// proceeds profile-less.
	Profile   *core.UserProfile
	Suspicion core.SuspicionReport
	// Reason is set when the flow terminated in a forced sign-out.
	Reason core.SignOutReason
}

// profileRetries and profileBackoff bound the retry for the profile document
// propagation race right after sign-up.
const profileRetries = 3

var profileBackoff = 300 * time.Millisecond

// Orchestrator runs the sign-in sequence: validate token, load profile,
// enforce the session cap, refresh or register a session, then run the
// best-effort housekeeping and suspicion checks.
type Orchestrator struct {
	Registry *Registry
	Identity IdentityProvider
	Profiles ProfileStore
	Logger   *logging.Logger

	// Sleep is overridable for tests; defaults to time.Sleep.
	Sleep func(time.Duration)
}

func (o *Orchestrator) sleep(d time.Duration) {
	if o.Sleep != nil {
		o.Sleep(d)
		return
	}
	time.Sleep(d)
}

// SignIn drives the flow for an authenticated principal. userAgent comes from
// the request context and sessionID is the caller's previously issued session
// id (empty for a first sign-in from this client); each client presents its
// own id, the registry's local cache is never read on this path.
func (o *Orchestrator) SignIn(ctx context.Context, userID, userAgent, sessionID string) (Outcome, error) {
	out := Outcome{State: StateTokenPending, UserID: userID}

	if err := o.Identity.ValidateToken(ctx, userID); err != nil {
		if IsFatalAuthError(err) {
			o.forceSignOut(ctx, userID, sessionID)
			out.State = StateUnauthenticated
			out.Reason = core.SignOutInvalidToken
			return out, err
		}
		return out, err
	}
	out.State = StateAuthenticated

	out.Profile = o.loadProfile(ctx, userID)

	if err := o.Registry.EnforceLimit(ctx, userID); err != nil {
		// Session tracking degrades rather than blocking authentication.
		o.logWarn("session cap enforcement failed", userID, err)
	}

	if o.Registry.Touch(ctx, userID, sessionID) {
		out.SessionID = sessionID
	} else {
		newID, err := o.Registry.Register(ctx, userID, userAgent)
		if err != nil {
			o.logWarn("session registration failed", userID, err)
		} else {
			out.SessionID = newID
		}
	}

	if _, err := o.Registry.CleanupStale(ctx, userID); err != nil {
		o.logWarn("stale session cleanup failed", userID, err)
	}

	report, err := o.Registry.DetectSuspicious(ctx, userID)
	if err != nil {
		// Fail open: availability over strict signaling, this is advisory.
		o.logWarn("suspicious session detection failed", userID, err)
	} else {
		out.Suspicion = report
	}

	out.State = StateReady
	return out, nil
}

// SignOut revokes the caller's session best-effort, then clears local auth
// state regardless of whether revocation succeeded. sessionID is the caller's
// own id; only a matching cached id is dropped.
func (o *Orchestrator) SignOut(ctx context.Context, userID, sessionID string) {
	if sessionID != "" {
		if err := o.Registry.Revoke(ctx, userID, sessionID); err != nil {
			o.logWarn("session revocation failed", userID, err)
		}
	}
	o.Registry.ForgetCached(sessionID)
	if err := o.Identity.SignOut(ctx, userID); err != nil {
		o.logWarn("identity sign-out failed", userID, err)
	}
}

// loadProfile fetches the profile document, retrying with increasing backoff
// to ride out the propagation delay right after sign-up. Gives up after the
// bounded retries and treats the user as profile-less.
func (o *Orchestrator) loadProfile(ctx context.Context, userID string) *core.UserProfile {
	var lastErr error
	for attempt := 0; attempt <= profileRetries; attempt++ {
		if attempt > 0 {
			o.sleep(time.Duration(attempt) * profileBackoff)
		}
		profile, err := o.Profiles.GetProfile(ctx, userID)
		if err == nil && profile != nil {
			return profile
		}
		lastErr = err
	}
	o.logWarn("profile load failed after retries", userID, lastErr)
	return nil
}

func (o *Orchestrator) forceSignOut(ctx context.Context, userID, sessionID string) {
	o.Registry.ForgetCached(sessionID)
	if err := o.Identity.SignOut(ctx, userID); err != nil {
		o.logWarn("forced sign-out failed", userID, err)
	}
}

func (o *Orchestrator) logWarn(msg, userID string, err error) {
	if o.Logger == nil {
		return
	}
	o.Logger.Warn(msg, zap.String("user_id", userID), zap.Error(err))
}
