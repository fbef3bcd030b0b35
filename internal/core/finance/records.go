// Package finance holds the financial record types and the service that
// gates every mutation behind the per-operation rate limiters.
package finance

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Expense is a single spend entry.
type Expense struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Amount     int64     `json:"amount_cents"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Income is a single earnings entry.
type Income struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Source     string    `json:"source"`
	Amount     int64     `json:"amount_cents"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Installment is a debt paid over a fixed number of monthly installments.
type Installment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	TotalAmount int64     `json:"total_amount_cents"`
	Count       int       `json:"installment_count"`
	PaidCount   int       `json:"paid_count"`
	DueDay      int       `json:"due_day"`
	CreatedAt   time.Time `json:"created_at"`
}

// SavingsGoal tracks progress toward a savings target.
type SavingsGoal struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	TargetAmount int64      `json:"target_amount_cents"`
	SavedAmount  int64      `json:"saved_amount_cents"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ErrRecordNotFound is returned when a record id does not exist for the user.
var ErrRecordNotFound = errors.New("record not found")

// ValidationError marks a record rejected before any store call. The message
// is user-facing.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalid(msg string) error { return &ValidationError{msg: msg} }

// Validate checks the fields the store cannot enforce.
func (e Expense) Validate() error {
	switch {
	case strings.TrimSpace(e.UserID) == "":
		return invalid("user id is required")
	case e.Amount <= 0:
		return invalid("amount must be positive")
	case strings.TrimSpace(e.Category) == "":
		return invalid("category is required")
	}
	return nil
}

func (i Income) Validate() error {
	switch {
	case strings.TrimSpace(i.UserID) == "":
		return invalid("user id is required")
	case i.Amount <= 0:
		return invalid("amount must be positive")
	case strings.TrimSpace(i.Source) == "":
		return invalid("source is required")
	}
	return nil
}

func (i Installment) Validate() error {
	switch {
	case strings.TrimSpace(i.UserID) == "":
		return invalid("user id is required")
	case i.TotalAmount <= 0:
		return invalid("total amount must be positive")
	case i.Count <= 0:
		return invalid("installment count must be positive")
	case i.DueDay < 1 || i.DueDay > 31:
		return invalid("due day must be between 1 and 31")
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	switch {
	case strings.TrimSpace(g.UserID) == "":
		return invalid("user id is required")
	case strings.TrimSpace(g.Name) == "":
		return invalid("name is required")
	case g.TargetAmount <= 0:
		return invalid("target amount must be positive")
	}
	return nil
}

// Store persists financial records.
type Store interface {
	CreateExpense(ctx context.Context, e Expense) error
	UpdateExpense(ctx context.Context, e Expense) error
	DeleteExpense(ctx context.Context, userID, id string) error
	ListExpenses(ctx context.Context, userID string) ([]Expense, error)

	CreateIncome(ctx context.Context, in Income) error
	UpdateIncome(ctx context.Context, in Income) error
	DeleteIncome(ctx context.Context, userID, id string) error
	ListIncomes(ctx context.Context, userID string) ([]Income, error)

	CreateInstallment(ctx context.Context, inst Installment) error
	UpdateInstallment(ctx context.Context, inst Installment) error
	DeleteInstallment(ctx context.Context, userID, id string) error
	ListInstallments(ctx context.Context, userID string) ([]Installment, error)

	CreateSavingsGoal(ctx context.Context, g SavingsGoal) error
	UpdateSavingsGoal(ctx context.Context, g SavingsGoal) error
	DeleteSavingsGoal(ctx context.Context, userID, id string) error
	ListSavingsGoals(ctx context.Context, userID string) ([]SavingsGoal, error)
}
