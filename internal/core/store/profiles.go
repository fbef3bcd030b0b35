package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerkeep/ledgerkeep/internal/core"
)

// GetProfile returns the user's profile document, or nil when it has not
// propagated yet (the caller retries with backoff).
func (s *Store) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	var (
		profile   core.UserProfile
		createdAt int64
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT user_id, display_name, currency, locale, created_at
		FROM user_profiles
		WHERE user_id = ?
	`, userID)
	if err := row.Scan(&profile.UserID, &profile.DisplayName, &profile.Currency, &profile.Locale, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	profile.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &profile, nil
}

// PutProfile creates or replaces the user's profile document.
func (s *Store) PutProfile(ctx context.Context, profile core.UserProfile) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(profile.UserID) == "" {
		return errors.New("user id is required")
	}
	if profile.Currency == "" {
		profile.Currency = "USD"
	}
	if profile.Locale == "" {
		profile.Locale = "en"
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, display_name, currency, locale, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			currency = excluded.currency,
			locale = excluded.locale
	`, profile.UserID, profile.DisplayName, profile.Currency, profile.Locale, profile.CreatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}
