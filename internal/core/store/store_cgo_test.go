//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/ledgerkeep/internal/config"
	"github.com/ledgerkeep/ledgerkeep/internal/core"
	"github.com/ledgerkeep/ledgerkeep/internal/core/finance"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	st, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})
	return st
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	st, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, "libsql", st.Driver())
	require.NoError(t, st.Close())
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	record := core.SessionRecord{
		UserID:     "user-1",
		SessionID:  "sess-1",
		DeviceInfo: core.DeviceDesktopMac,
		UserAgent:  "Mozilla/5.0 (Macintosh)",
		CreatedAt:  created,
		LastActive: created,
	}
	require.NoError(t, st.CreateSession(ctx, record))

	sessions, err := st.ListSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, record, sessions[0])

	later := created.Add(30 * time.Minute)
	touched, err := st.TouchSession(ctx, "user-1", "sess-1", later)
	require.NoError(t, err)
	require.True(t, touched)

	sessions, err = st.ListSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, later, sessions[0].LastActive)
	require.Equal(t, created, sessions[0].CreatedAt)

	touched, err = st.TouchSession(ctx, "user-1", "missing", later)
	require.NoError(t, err)
	require.False(t, touched)

	count, err := st.CountSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	deleted, err := st.DeleteSessions(ctx, "user-1", []string{"sess-1", "missing"})
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	sessions, err = st.ListSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestLocalSessionCache(t *testing.T) {
	st := openTestStore(t)
	cache := st.SessionCache()

	require.Empty(t, cache.SessionID())

	cache.SetSessionID("sess-42")
	require.Equal(t, "sess-42", cache.SessionID())

	cache.SetSessionID("sess-43")
	require.Equal(t, "sess-43", cache.SessionID())

	cache.Clear()
	require.Empty(t, cache.SessionID())
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	missing, err := st.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.Nil(t, missing)

	profile := core.UserProfile{
		UserID:      "user-1",
		DisplayName: "Ada",
		Currency:    "EUR",
		Locale:      "pt-BR",
		CreatedAt:   time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.PutProfile(ctx, profile))

	got, err := st.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, profile, *got)

	profile.DisplayName = "Ada L."
	require.NoError(t, st.PutProfile(ctx, profile))

	got, err = st.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "Ada L.", got.DisplayName)
}

func TestExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	expense := finance.Expense{
		ID:         "exp-1",
		UserID:     "user-1",
		Category:   "groceries",
		Amount:     4250,
		Note:       "weekly shop",
		OccurredAt: time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2026, 2, 10, 18, 5, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateExpense(ctx, expense))

	expenses, err := st.ListExpenses(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	require.Equal(t, expense, expenses[0])

	expense.Amount = 3999
	require.NoError(t, st.UpdateExpense(ctx, expense))

	expenses, err = st.ListExpenses(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(3999), expenses[0].Amount)

	other := expense
	other.ID = "exp-2"
	other.UserID = "user-2"
	require.ErrorIs(t, st.UpdateExpense(ctx, other), finance.ErrRecordNotFound)

	require.NoError(t, st.DeleteExpense(ctx, "user-1", "exp-1"))
	require.ErrorIs(t, st.DeleteExpense(ctx, "user-1", "exp-1"), finance.ErrRecordNotFound)
}

func TestIncomeRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	income := finance.Income{
		ID:         "inc-1",
		UserID:     "user-1",
		Source:     "salary",
		Amount:     500000,
		OccurredAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateIncome(ctx, income))

	incomes, err := st.ListIncomes(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	require.Equal(t, income, incomes[0])

	income.Source = "salary + bonus"
	require.NoError(t, st.UpdateIncome(ctx, income))

	incomes, err = st.ListIncomes(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "salary + bonus", incomes[0].Source)

	require.NoError(t, st.DeleteIncome(ctx, "user-1", "inc-1"))
}

func TestInstallmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	inst := finance.Installment{
		ID:          "inst-1",
		UserID:      "user-1",
		Description: "new laptop",
		TotalAmount: 120000,
		Count:       12,
		PaidCount:   2,
		DueDay:      15,
		CreatedAt:   time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateInstallment(ctx, inst))

	installments, err := st.ListInstallments(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, installments, 1)
	require.Equal(t, inst, installments[0])

	inst.PaidCount = 3
	require.NoError(t, st.UpdateInstallment(ctx, inst))

	installments, err = st.ListInstallments(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, installments[0].PaidCount)

	require.NoError(t, st.DeleteInstallment(ctx, "user-1", "inst-1"))
}

func TestSavingsGoalRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	deadline := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	goal := finance.SavingsGoal{
		ID:           "goal-1",
		UserID:       "user-1",
		Name:         "vacation",
		TargetAmount: 300000,
		SavedAmount:  50000,
		Deadline:     &deadline,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateSavingsGoal(ctx, goal))

	goals, err := st.ListSavingsGoals(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Equal(t, goal, goals[0])

	goal.SavedAmount = 75000
	goal.Deadline = nil
	require.NoError(t, st.UpdateSavingsGoal(ctx, goal))

	goals, err = st.ListSavingsGoals(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(75000), goals[0].SavedAmount)
	require.Nil(t, goals[0].Deadline)
}
