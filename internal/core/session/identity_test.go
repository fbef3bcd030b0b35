package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func identityBackend(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.NotEmpty(t, r.PostForm.Get("user_id"))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPIdentityValidateToken(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		wantErr error
		fatal   bool
	}{
		{"valid", http.StatusNoContent, nil, false},
		{"expired token", http.StatusUnauthorized, ErrTokenExpired, true},
		{"disabled user", http.StatusForbidden, ErrUserDisabled, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := identityBackend(t, tc.status)
			client := NewHTTPIdentity(backend.URL, time.Second)

			err := client.ValidateToken(context.Background(), "user-1")
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, tc.fatal, IsFatalAuthError(err))
		})
	}
}

func TestHTTPIdentityTreatsServerErrorsAsTransient(t *testing.T) {
	backend := identityBackend(t, http.StatusBadGateway)
	client := NewHTTPIdentity(backend.URL, time.Second)

	err := client.ValidateToken(context.Background(), "user-1")
	require.Error(t, err)
	require.False(t, IsFatalAuthError(err))
}

func TestHTTPIdentitySignOut(t *testing.T) {
	backend := identityBackend(t, http.StatusOK)
	client := NewHTTPIdentity(backend.URL, time.Second)

	require.NoError(t, client.SignOut(context.Background(), "user-1"))
}

func TestAllowAllIdentity(t *testing.T) {
	var provider IdentityProvider = AllowAllIdentity{}
	require.NoError(t, provider.ValidateToken(context.Background(), "anyone"))
	require.NoError(t, provider.SignOut(context.Background(), "anyone"))
}
