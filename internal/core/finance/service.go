package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkeep/ledgerkeep/internal/core/ratelimit"
)

// Limiters groups the per-operation rate limiter instances. Each mutation
// class has its own window and block so a burst of edits cannot exhaust the
// delete budget and vice versa.
type Limiters struct {
	Create *ratelimit.Limiter
	Update *ratelimit.Limiter
	Delete *ratelimit.Limiter
}

// NewLimiters builds the three named configurations.
func NewLimiters() Limiters {
	return Limiters{
		Create: ratelimit.New(ratelimit.CreateLimit),
		Update: ratelimit.New(ratelimit.UpdateLimit),
		Delete: ratelimit.New(ratelimit.DeleteLimit),
	}
}

// Service runs every financial-record mutation through the matching rate
// limiter before touching the store. Reads are not limited.
type Service struct {
	store    Store
	limiters Limiters
	clock    func() time.Time
}

// NewService creates a finance service.
func NewService(store Store, limiters Limiters) *Service {
	return &Service{
		store:    store,
		limiters: limiters,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock injects a time source for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

func guard(l *ratelimit.Limiter, userID string) error {
	if l == nil {
		return nil
	}
	res := l.Check(userID)
	if !res.Allowed {
		return &ratelimit.LimitExceededError{RetryAfterSeconds: res.RetryAfterSeconds}
	}
	return nil
}

func (s *Service) CreateExpense(ctx context.Context, e Expense) (Expense, error) {
	if err := guard(s.limiters.Create, e.UserID); err != nil {
		return Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = s.clock()
	if e.OccurredAt.IsZero() {
		e.OccurredAt = e.CreatedAt
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

func (s *Service) UpdateExpense(ctx context.Context, e Expense) error {
	if err := guard(s.limiters.Update, e.UserID); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	return s.store.UpdateExpense(ctx, e)
}

func (s *Service) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := guard(s.limiters.Delete, userID); err != nil {
		return err
	}
	return s.store.DeleteExpense(ctx, userID, id)
}

func (s *Service) ListExpenses(ctx context.Context, userID string) ([]Expense, error) {
	return s.store.ListExpenses(ctx, userID)
}

func (s *Service) CreateIncome(ctx context.Context, in Income) (Income, error) {
	if err := guard(s.limiters.Create, in.UserID); err != nil {
		return Income{}, err
	}
	if err := in.Validate(); err != nil {
		return Income{}, err
	}
	in.ID = uuid.NewString()
	in.CreatedAt = s.clock()
	if in.OccurredAt.IsZero() {
		in.OccurredAt = in.CreatedAt
	}
	if err := s.store.CreateIncome(ctx, in); err != nil {
		return Income{}, fmt.Errorf("create income: %w", err)
	}
	return in, nil
}

func (s *Service) UpdateIncome(ctx context.Context, in Income) error {
	if err := guard(s.limiters.Update, in.UserID); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}
	return s.store.UpdateIncome(ctx, in)
}

func (s *Service) DeleteIncome(ctx context.Context, userID, id string) error {
	if err := guard(s.limiters.Delete, userID); err != nil {
		return err
	}
	return s.store.DeleteIncome(ctx, userID, id)
}

func (s *Service) ListIncomes(ctx context.Context, userID string) ([]Income, error) {
	return s.store.ListIncomes(ctx, userID)
}

func (s *Service) CreateInstallment(ctx context.Context, inst Installment) (Installment, error) {
	if err := guard(s.limiters.Create, inst.UserID); err != nil {
		return Installment{}, err
	}
	if err := inst.Validate(); err != nil {
		return Installment{}, err
	}
	inst.ID = uuid.NewString()
	inst.CreatedAt = s.clock()
	if err := s.store.CreateInstallment(ctx, inst); err != nil {
		return Installment{}, fmt.Errorf("create installment: %w", err)
	}
	return inst, nil
}

func (s *Service) UpdateInstallment(ctx context.Context, inst Installment) error {
	if err := guard(s.limiters.Update, inst.UserID); err != nil {
		return err
	}
	if err := inst.Validate(); err != nil {
		return err
	}
	return s.store.UpdateInstallment(ctx, inst)
}

func (s *Service) DeleteInstallment(ctx context.Context, userID, id string) error {
	if err := guard(s.limiters.Delete, userID); err != nil {
		return err
	}
	return s.store.DeleteInstallment(ctx, userID, id)
}

func (s *Service) ListInstallments(ctx context.Context, userID string) ([]Installment, error) {
	return s.store.ListInstallments(ctx, userID)
}

func (s *Service) CreateSavingsGoal(ctx context.Context, g SavingsGoal) (SavingsGoal, error) {
	if err := guard(s.limiters.Create, g.UserID); err != nil {
		return SavingsGoal{}, err
	}
	if err := g.Validate(); err != nil {
		return SavingsGoal{}, err
	}
	g.ID = uuid.NewString()
	g.CreatedAt = s.clock()
	if err := s.store.CreateSavingsGoal(ctx, g); err != nil {
		return SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	return g, nil
}

func (s *Service) UpdateSavingsGoal(ctx context.Context, g SavingsGoal) error {
	if err := guard(s.limiters.Update, g.UserID); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	return s.store.UpdateSavingsGoal(ctx, g)
}

func (s *Service) DeleteSavingsGoal(ctx context.Context, userID, id string) error {
	if err := guard(s.limiters.Delete, userID); err != nil {
		return err
	}
	return s.store.DeleteSavingsGoal(ctx, userID, id)
}

func (s *Service) ListSavingsGoals(ctx context.Context, userID string) ([]SavingsGoal, error) {
	return s.store.ListSavingsGoals(ctx, userID)
}
