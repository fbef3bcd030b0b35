package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// localStateSessionKey is the single slot caching the current session id,
// the server-side analog of the browser's local-storage entry.
const localStateSessionKey = "session_id"

// LocalSessionCache adapts the local_state table to the session registry's
// single-slot cache. Reads and writes are best-effort lookups keyed by a
// fixed slot name; a missing row reads as empty.
type LocalSessionCache struct {
	store *Store
}

// SessionCache returns the store-backed local session cache.
func (s *Store) SessionCache() *LocalSessionCache {
	return &LocalSessionCache{store: s}
}

// SessionID reads the cached session id; empty when unset or on error.
func (c *LocalSessionCache) SessionID() string {
	if c == nil || c.store == nil || c.store.DB == nil {
		return ""
	}

	var value string
	row := c.store.DB.QueryRow(`SELECT value FROM local_state WHERE key = ?`, localStateSessionKey)
	if err := row.Scan(&value); err != nil {
		return ""
	}
	return value
}

// SetSessionID writes the cached session id.
func (c *LocalSessionCache) SetSessionID(id string) {
	if c == nil || c.store == nil || c.store.DB == nil {
		return
	}
	_, _ = c.store.DB.Exec(`
		INSERT INTO local_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, localStateSessionKey, id)
}

// Clear drops the cached session id.
func (c *LocalSessionCache) Clear() {
	if c == nil || c.store == nil || c.store.DB == nil {
		return
	}
	_, _ = c.store.DB.Exec(`DELETE FROM local_state WHERE key = ?`, localStateSessionKey)
}

// GetLocalState reads an arbitrary local_state slot.
func (s *Store) GetLocalState(ctx context.Context, key string) (string, error) {
	if s == nil || s.DB == nil {
		return "", errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var value string
	row := s.DB.QueryRowContext(ctx, `SELECT value FROM local_state WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("fetch local state: %w", err)
	}
	return value, nil
}

// SetLocalState writes an arbitrary local_state slot.
func (s *Store) SetLocalState(ctx context.Context, key, value string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO local_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store local state: %w", err)
	}
	return nil
}
