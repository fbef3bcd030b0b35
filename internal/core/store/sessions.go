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

// CreateSession inserts a new active-session record.
func (s *Store) CreateSession(ctx context.Context, record core.SessionRecord) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(record.UserID) == "" || strings.TrimSpace(record.SessionID) == "" {
		return errors.New("user id and session id are required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO active_sessions (user_id, session_id, device_info, user_agent, created_at, last_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.UserID, record.SessionID, string(record.DeviceInfo), record.UserAgent,
		record.CreatedAt.UTC().Unix(), record.LastActive.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// TouchSession advances last_active for (userID, sessionID). It reports false
// when no matching record exists, e.g. after a cap eviction on another device.
func (s *Store) TouchSession(ctx context.Context, userID, sessionID string, at time.Time) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE active_sessions SET last_active = ?
		WHERE user_id = ? AND session_id = ?
	`, at.UTC().Unix(), userID, sessionID)
	if err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}
	return affected > 0, nil
}

// ListSessions returns all of the user's session records.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]core.SessionRecord, error) {
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

	rows, err := s.DB.QueryContext(ctx, `
		SELECT user_id, session_id, device_info, user_agent, created_at, last_active
		FROM active_sessions
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var records []core.SessionRecord
	for rows.Next() {
		var (
			record     core.SessionRecord
			deviceInfo string
			createdAt  int64
			lastActive int64
		)
		if err := rows.Scan(&record.UserID, &record.SessionID, &deviceInfo, &record.UserAgent, &createdAt, &lastActive); err != nil {
			return nil, fmt.Errorf("scan sessions: %w", err)
		}
		record.DeviceInfo = core.DeviceClass(deviceInfo)
		record.CreatedAt = time.Unix(createdAt, 0).UTC()
		record.LastActive = time.Unix(lastActive, 0).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return records, nil
}

// DeleteSessions removes all records matching any of the ids for the user and
// returns the number of rows removed.
func (s *Store) DeleteSessions(ctx context.Context, userID string, sessionIDs []string) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(sessionIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sessionIDs)), ", ")
	args := make([]any, 0, len(sessionIDs)+1)
	args = append(args, userID)
	for _, id := range sessionIDs {
		args = append(args, id)
	}

	res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM active_sessions
		WHERE user_id = ? AND session_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return int(affected), nil
}

// CountSessions reports how many active sessions a user has.
func (s *Store) CountSessions(ctx context.Context, userID string) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var count int
	row := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM active_sessions WHERE user_id = ?`, userID)
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}
