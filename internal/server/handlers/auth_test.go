package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ledgerkeep/ledgerkeep/internal/core"
	"github.com/ledgerkeep/ledgerkeep/internal/core/ratelimit"
	"github.com/ledgerkeep/ledgerkeep/internal/core/session"
)

type fakeIdentity struct {
	validateErr error
	signedOut   bool
}

func (f *fakeIdentity) ValidateToken(ctx context.Context, userID string) error {
	return f.validateErr
}

func (f *fakeIdentity) SignOut(ctx context.Context, userID string) error {
	f.signedOut = true
	return nil
}

type fakeProfiles struct {
	profile *core.UserProfile
	err     error
}

func (f *fakeProfiles) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	return f.profile, f.err
}

func newAuthHandler(identity *fakeIdentity, login *ratelimit.Limiter) (*AuthHandler, *memSessionStore) {
	store := &memSessionStore{}
	registry := session.NewRegistry(store, &memSessionCache{})
	orchestrator := &session.Orchestrator{
		Registry: registry,
		Identity: identity,
		Profiles: &fakeProfiles{profile: &core.UserProfile{UserID: "user-1", DisplayName: "Test"}},
		Sleep:    func(time.Duration) {},
	}
	if login == nil {
		login = ratelimit.New(ratelimit.LoginLimit)
	}
	return &AuthHandler{Orchestrator: orchestrator, Login: login}, store
}

func signInRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)")
	return req
}

func decodeAuthError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error.Code
}

func TestSignInRegistersSession(t *testing.T) {
	h, store := newAuthHandler(&fakeIdentity{}, nil)

	rec := httptest.NewRecorder()
	h.SignIn(rec, signInRequest(`{"user_id":"user-1"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SignInResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "user-1" {
		t.Fatalf("expected user-1, got %s", resp.UserID)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if resp.Profile == nil || resp.Profile.DisplayName != "Test" {
		t.Fatalf("expected loaded profile, got %+v", resp.Profile)
	}

	sessions, _ := store.ListSessions(context.Background(), "user-1")
	if len(sessions) != 1 {
		t.Fatalf("expected 1 registered session, got %d", len(sessions))
	}
}

func TestSignInRequiresUserID(t *testing.T) {
	h, _ := newAuthHandler(&fakeIdentity{}, nil)

	rec := httptest.NewRecorder()
	h.SignIn(rec, signInRequest(`{"user_id":"  "}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if code := decodeAuthError(t, rec); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}
}

func TestSignInMapsFatalAuthErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"expired token", session.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"disabled user", session.ErrUserDisabled, http.StatusForbidden, "USER_DISABLED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newAuthHandler(&fakeIdentity{validateErr: tc.err}, nil)

			rec := httptest.NewRecorder()
			h.SignIn(rec, signInRequest(`{"user_id":"user-1"}`))

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if code := decodeAuthError(t, rec); code != tc.wantCode {
				t.Fatalf("expected %s, got %s", tc.wantCode, code)
			}
		})
	}
}

func TestSignInRateLimitsRepeatedFailures(t *testing.T) {
	login := ratelimit.New(ratelimit.Config{
		Window:      time.Minute,
		MaxAttempts: 1,
		BlockFor:    time.Minute,
	})
	h, _ := newAuthHandler(&fakeIdentity{validateErr: session.ErrTokenExpired}, login)

	rec := httptest.NewRecorder()
	h.SignIn(rec, signInRequest(`{"user_id":"user-1"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected first attempt to fail auth with 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.SignIn(rec, signInRequest(`{"user_id":"user-1"}`))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}

	if code := decodeAuthError(t, rec); code != "RATE_LIMITED" {
		t.Fatalf("expected RATE_LIMITED, got %s", code)
	}
}

func TestSignInClearsAttemptsOnSuccess(t *testing.T) {
	login := ratelimit.New(ratelimit.Config{
		Window:      time.Minute,
		MaxAttempts: 2,
		BlockFor:    time.Minute,
	})
	h, _ := newAuthHandler(&fakeIdentity{}, login)

	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		h.SignIn(rec, signInRequest(`{"user_id":"user-1"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected status 200, got %d", i, rec.Code)
		}
	}
}

func TestSignInWithSessionHeaderRefreshes(t *testing.T) {
	h, store := newAuthHandler(&fakeIdentity{}, nil)

	rec := httptest.NewRecorder()
	h.SignIn(rec, signInRequest(`{"user_id":"user-1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in failed with %d", rec.Code)
	}
	var first SignInResponse
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req := signInRequest(`{"user_id":"user-1"}`)
	req.Header.Set(SessionIDHeader, first.SessionID)
	rec = httptest.NewRecorder()
	h.SignIn(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second sign-in failed with %d", rec.Code)
	}
	var second SignInResponse
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if second.SessionID != first.SessionID {
		t.Fatalf("expected refreshed session %s, got %s", first.SessionID, second.SessionID)
	}
	sessions, _ := store.ListSessions(context.Background(), "user-1")
	if len(sessions) != 1 {
		t.Fatalf("expected a single refreshed session, got %d", len(sessions))
	}
}

func TestSignInKeepsUsersSeparate(t *testing.T) {
	h, store := newAuthHandler(&fakeIdentity{}, nil)

	signIn := func(userID string) SignInResponse {
		t.Helper()
		rec := httptest.NewRecorder()
		h.SignIn(rec, signInRequest(`{"user_id":"`+userID+`"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("sign-in for %s failed with %d", userID, rec.Code)
		}
		var resp SignInResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp
	}

	first := signIn("user-1")
	second := signIn("user-2")

	if first.SessionID == second.SessionID {
		t.Fatal("users must not share a session id")
	}

	// user-2's sign-in must not have disturbed user-1's session.
	req := sessionsRequest(http.MethodPost, "/api/v1/auth/signout", "user-1")
	req.Header.Set(SessionIDHeader, first.SessionID)
	rec := httptest.NewRecorder()
	h.SignOut(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	sessions, _ := store.ListSessions(context.Background(), "user-1")
	if len(sessions) != 0 {
		t.Fatalf("expected user-1's session revoked, got %d", len(sessions))
	}
	remaining, _ := store.ListSessions(context.Background(), "user-2")
	if len(remaining) != 1 {
		t.Fatalf("expected user-2's session untouched, got %d", len(remaining))
	}
}

func TestSignOutRevokesCurrentSession(t *testing.T) {
	identity := &fakeIdentity{}
	h, store := newAuthHandler(identity, nil)

	rec := httptest.NewRecorder()
	h.SignIn(rec, signInRequest(`{"user_id":"user-1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in failed with %d", rec.Code)
	}
	var resp SignInResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req := sessionsRequest(http.MethodPost, "/api/v1/auth/signout", "user-1")
	req.Header.Set(SessionIDHeader, resp.SessionID)
	rec = httptest.NewRecorder()
	h.SignOut(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if !identity.signedOut {
		t.Fatal("expected identity sign-out to be invoked")
	}
	sessions, _ := store.ListSessions(context.Background(), "user-1")
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions after sign-out, got %d", len(sessions))
	}
}

func TestSignOutWithoutAuthenticatedUser(t *testing.T) {
	h, _ := newAuthHandler(&fakeIdentity{}, nil)

	rec := httptest.NewRecorder()
	h.SignOut(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signout", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}
