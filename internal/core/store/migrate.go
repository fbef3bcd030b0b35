package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS active_sessions (
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		device_info TEXT NOT NULL,
		user_agent TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		last_active INTEGER NOT NULL,
		PRIMARY KEY (user_id, session_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_active_sessions_user ON active_sessions(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_active_sessions_last_active ON active_sessions(last_active);`,
	`CREATE TABLE IF NOT EXISTS local_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		locale TEXT NOT NULL DEFAULT 'en',
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		occurred_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_user ON expenses(user_id, occurred_at);`,
	`CREATE TABLE IF NOT EXISTS incomes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		source TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		occurred_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_incomes_user ON incomes(user_id, occurred_at);`,
	`CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		description TEXT NOT NULL,
		total_amount_cents INTEGER NOT NULL,
		installment_count INTEGER NOT NULL,
		paid_count INTEGER NOT NULL DEFAULT 0,
		due_day INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_installments_user ON installments(user_id);`,
	`CREATE TABLE IF NOT EXISTS savings_goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		target_amount_cents INTEGER NOT NULL,
		saved_amount_cents INTEGER NOT NULL DEFAULT 0,
		deadline INTEGER,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_savings_goals_user ON savings_goals(user_id);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
