package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerkeep/ledgerkeep/internal/core/finance"
)

// CreateExpense inserts an expense record.
func (s *Store) CreateExpense(ctx context.Context, e finance.Expense) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, category, amount_cents, note, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Category, e.Amount, e.Note, e.OccurredAt.UTC().Unix(), e.CreatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store expense: %w", err)
	}
	return nil
}

// UpdateExpense replaces a user's expense record.
func (s *Store) UpdateExpense(ctx context.Context, e finance.Expense) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE expenses SET category = ?, amount_cents = ?, note = ?, occurred_at = ?
		WHERE user_id = ? AND id = ?
	`, e.Category, e.Amount, e.Note, e.OccurredAt.UTC().Unix(), e.UserID, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireAffected(res)
}

// DeleteExpense removes a user's expense record.
func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.deleteRecord(ctx, "expenses", userID, id)
}

// ListExpenses returns the user's expenses, most recent first.
func (s *Store) ListExpenses(ctx context.Context, userID string) ([]finance.Expense, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, category, amount_cents, note, occurred_at, created_at
		FROM expenses
		WHERE user_id = ?
		ORDER BY occurred_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var out []finance.Expense
	for rows.Next() {
		var (
			e          finance.Expense
			occurredAt int64
			createdAt  int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Amount, &e.Note, &occurredAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expenses: %w", err)
		}
		e.OccurredAt = time.Unix(occurredAt, 0).UTC()
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// CreateIncome inserts an income record.
func (s *Store) CreateIncome(ctx context.Context, in finance.Income) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO incomes (id, user_id, source, amount_cents, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, in.ID, in.UserID, in.Source, in.Amount, in.OccurredAt.UTC().Unix(), in.CreatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store income: %w", err)
	}
	return nil
}

// UpdateIncome replaces a user's income record.
func (s *Store) UpdateIncome(ctx context.Context, in finance.Income) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE incomes SET source = ?, amount_cents = ?, occurred_at = ?
		WHERE user_id = ? AND id = ?
	`, in.Source, in.Amount, in.OccurredAt.UTC().Unix(), in.UserID, in.ID)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	return requireAffected(res)
}

// DeleteIncome removes a user's income record.
func (s *Store) DeleteIncome(ctx context.Context, userID, id string) error {
	return s.deleteRecord(ctx, "incomes", userID, id)
}

// ListIncomes returns the user's incomes, most recent first.
func (s *Store) ListIncomes(ctx context.Context, userID string) ([]finance.Income, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, source, amount_cents, occurred_at, created_at
		FROM incomes
		WHERE user_id = ?
		ORDER BY occurred_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var out []finance.Income
	for rows.Next() {
		var (
			in         finance.Income
			occurredAt int64
			createdAt  int64
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.Source, &in.Amount, &occurredAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan incomes: %w", err)
		}
		in.OccurredAt = time.Unix(occurredAt, 0).UTC()
		in.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return out, nil
}

// CreateInstallment inserts an installment record.
func (s *Store) CreateInstallment(ctx context.Context, inst finance.Installment) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO installments (id, user_id, description, total_amount_cents, installment_count, paid_count, due_day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, inst.ID, inst.UserID, inst.Description, inst.TotalAmount, inst.Count, inst.PaidCount, inst.DueDay, inst.CreatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store installment: %w", err)
	}
	return nil
}

// UpdateInstallment replaces a user's installment record.
func (s *Store) UpdateInstallment(ctx context.Context, inst finance.Installment) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE installments SET description = ?, total_amount_cents = ?, installment_count = ?, paid_count = ?, due_day = ?
		WHERE user_id = ? AND id = ?
	`, inst.Description, inst.TotalAmount, inst.Count, inst.PaidCount, inst.DueDay, inst.UserID, inst.ID)
	if err != nil {
		return fmt.Errorf("update installment: %w", err)
	}
	return requireAffected(res)
}

// DeleteInstallment removes a user's installment record.
func (s *Store) DeleteInstallment(ctx context.Context, userID, id string) error {
	return s.deleteRecord(ctx, "installments", userID, id)
}

// ListInstallments returns the user's installments.
func (s *Store) ListInstallments(ctx context.Context, userID string) ([]finance.Installment, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, description, total_amount_cents, installment_count, paid_count, due_day, created_at
		FROM installments
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var out []finance.Installment
	for rows.Next() {
		var (
			inst      finance.Installment
			createdAt int64
		)
		if err := rows.Scan(&inst.ID, &inst.UserID, &inst.Description, &inst.TotalAmount, &inst.Count, &inst.PaidCount, &inst.DueDay, &createdAt); err != nil {
			return nil, fmt.Errorf("scan installments: %w", err)
		}
		inst.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	return out, nil
}

// CreateSavingsGoal inserts a savings goal record.
func (s *Store) CreateSavingsGoal(ctx context.Context, g finance.SavingsGoal) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var deadline sql.NullInt64
	if g.Deadline != nil {
		deadline = sql.NullInt64{Int64: g.Deadline.UTC().Unix(), Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO savings_goals (id, user_id, name, target_amount_cents, saved_amount_cents, deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.UserID, g.Name, g.TargetAmount, g.SavedAmount, deadline, g.CreatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store savings goal: %w", err)
	}
	return nil
}

// UpdateSavingsGoal replaces a user's savings goal record.
func (s *Store) UpdateSavingsGoal(ctx context.Context, g finance.SavingsGoal) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var deadline sql.NullInt64
	if g.Deadline != nil {
		deadline = sql.NullInt64{Int64: g.Deadline.UTC().Unix(), Valid: true}
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE savings_goals SET name = ?, target_amount_cents = ?, saved_amount_cents = ?, deadline = ?
		WHERE user_id = ? AND id = ?
	`, g.Name, g.TargetAmount, g.SavedAmount, deadline, g.UserID, g.ID)
	if err != nil {
		return fmt.Errorf("update savings goal: %w", err)
	}
	return requireAffected(res)
}

// DeleteSavingsGoal removes a user's savings goal record.
func (s *Store) DeleteSavingsGoal(ctx context.Context, userID, id string) error {
	return s.deleteRecord(ctx, "savings_goals", userID, id)
}

// ListSavingsGoals returns the user's savings goals.
func (s *Store) ListSavingsGoals(ctx context.Context, userID string) ([]finance.SavingsGoal, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, name, target_amount_cents, saved_amount_cents, deadline, created_at
		FROM savings_goals
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var out []finance.SavingsGoal
	for rows.Next() {
		var (
			g         finance.SavingsGoal
			deadline  sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.SavedAmount, &deadline, &createdAt); err != nil {
			return nil, fmt.Errorf("scan savings goals: %w", err)
		}
		if deadline.Valid {
			value := time.Unix(deadline.Int64, 0).UTC()
			g.Deadline = &value
		}
		g.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	return out, nil
}

func (s *Store) deleteRecord(ctx context.Context, table, userID, id string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND id = ?`, table), userID, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return finance.ErrRecordNotFound
	}
	return nil
}
