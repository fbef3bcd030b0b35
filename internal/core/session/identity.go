package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPIdentity talks to the external identity backend that fronts this
// service. Token validation is delegated wholesale; this client only maps
// backend verdicts onto the fatal/transient split the orchestrator needs.
type HTTPIdentity struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPIdentity creates a client for the identity backend at baseURL.
func NewHTTPIdentity(baseURL string, timeout time.Duration) *HTTPIdentity {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPIdentity{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// ValidateToken asks the backend whether the principal's auth state is still
// good. 401 means the token is expired or invalid, 403 means the account is
// disabled; anything else non-2xx is treated as a transient backend failure.
func (c *HTTPIdentity) ValidateToken(ctx context.Context, userID string) error {
	resp, err := c.post(ctx, "/v1/validate", userID)
	if err != nil {
		return fmt.Errorf("identity validate: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrTokenExpired
	case resp.StatusCode == http.StatusForbidden:
		return ErrUserDisabled
	default:
		return fmt.Errorf("identity validate: backend returned %d", resp.StatusCode)
	}
}

// SignOut tells the backend to invalidate the principal's auth state.
func (c *HTTPIdentity) SignOut(ctx context.Context, userID string) error {
	resp, err := c.post(ctx, "/v1/signout", userID)
	if err != nil {
		return fmt.Errorf("identity sign-out: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("identity sign-out: backend returned %d", resp.StatusCode)
}

func (c *HTTPIdentity) post(ctx context.Context, path, userID string) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	form := url.Values{"user_id": {userID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Client.Do(req)
}

// AllowAllIdentity accepts every principal. Used when no identity backend is
// configured, which only makes sense for local development.
type AllowAllIdentity struct{}

func (AllowAllIdentity) ValidateToken(ctx context.Context, userID string) error { return nil }

func (AllowAllIdentity) SignOut(ctx context.Context, userID string) error { return nil }
