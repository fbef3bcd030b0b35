package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerkeep/ledgerkeep/internal/core/finance"
	"github.com/ledgerkeep/ledgerkeep/internal/core/ratelimit"
	"github.com/ledgerkeep/ledgerkeep/internal/server/middleware"
)

// memFinanceStore keeps records keyed by "userID/recordID".
type memFinanceStore struct {
	mu       sync.Mutex
	expenses map[string]finance.Expense
	incomes  map[string]finance.Income
	insts    map[string]finance.Installment
	goals    map[string]finance.SavingsGoal
}

func newMemFinanceStore() *memFinanceStore {
	return &memFinanceStore{
		expenses: make(map[string]finance.Expense),
		incomes:  make(map[string]finance.Income),
		insts:    make(map[string]finance.Installment),
		goals:    make(map[string]finance.SavingsGoal),
	}
}

func storeKey(userID, id string) string { return userID + "/" + id }

func (m *memFinanceStore) CreateExpense(ctx context.Context, e finance.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[storeKey(e.UserID, e.ID)] = e
	return nil
}

func (m *memFinanceStore) UpdateExpense(ctx context.Context, e finance.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(e.UserID, e.ID)
	if _, ok := m.expenses[key]; !ok {
		return finance.ErrRecordNotFound
	}
	m.expenses[key] = e
	return nil
}

func (m *memFinanceStore) DeleteExpense(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(userID, id)
	if _, ok := m.expenses[key]; !ok {
		return finance.ErrRecordNotFound
	}
	delete(m.expenses, key)
	return nil
}

func (m *memFinanceStore) ListExpenses(ctx context.Context, userID string) ([]finance.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []finance.Expense
	for _, e := range m.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memFinanceStore) CreateIncome(ctx context.Context, in finance.Income) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incomes[storeKey(in.UserID, in.ID)] = in
	return nil
}

func (m *memFinanceStore) UpdateIncome(ctx context.Context, in finance.Income) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(in.UserID, in.ID)
	if _, ok := m.incomes[key]; !ok {
		return finance.ErrRecordNotFound
	}
	m.incomes[key] = in
	return nil
}

func (m *memFinanceStore) DeleteIncome(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(userID, id)
	if _, ok := m.incomes[key]; !ok {
		return finance.ErrRecordNotFound
	}
	delete(m.incomes, key)
	return nil
}

func (m *memFinanceStore) ListIncomes(ctx context.Context, userID string) ([]finance.Income, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []finance.Income
	for _, in := range m.incomes {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *memFinanceStore) CreateInstallment(ctx context.Context, inst finance.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insts[storeKey(inst.UserID, inst.ID)] = inst
	return nil
}

func (m *memFinanceStore) UpdateInstallment(ctx context.Context, inst finance.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(inst.UserID, inst.ID)
	if _, ok := m.insts[key]; !ok {
		return finance.ErrRecordNotFound
	}
	m.insts[key] = inst
	return nil
}

func (m *memFinanceStore) DeleteInstallment(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(userID, id)
	if _, ok := m.insts[key]; !ok {
		return finance.ErrRecordNotFound
	}
	delete(m.insts, key)
	return nil
}

func (m *memFinanceStore) ListInstallments(ctx context.Context, userID string) ([]finance.Installment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []finance.Installment
	for _, inst := range m.insts {
		if inst.UserID == userID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *memFinanceStore) CreateSavingsGoal(ctx context.Context, g finance.SavingsGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[storeKey(g.UserID, g.ID)] = g
	return nil
}

func (m *memFinanceStore) UpdateSavingsGoal(ctx context.Context, g finance.SavingsGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(g.UserID, g.ID)
	if _, ok := m.goals[key]; !ok {
		return finance.ErrRecordNotFound
	}
	m.goals[key] = g
	return nil
}

func (m *memFinanceStore) DeleteSavingsGoal(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(userID, id)
	if _, ok := m.goals[key]; !ok {
		return finance.ErrRecordNotFound
	}
	delete(m.goals, key)
	return nil
}

func (m *memFinanceStore) ListSavingsGoals(ctx context.Context, userID string) ([]finance.SavingsGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []finance.SavingsGoal
	for _, g := range m.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func newFinanceHandler(limiters finance.Limiters) (*FinanceHandler, *memFinanceStore) {
	store := newMemFinanceStore()
	return &FinanceHandler{Service: finance.NewService(store, limiters)}, store
}

func financeRequest(method, target, userID, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, userID)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateExpenseAssignsIDAndTimestamps(t *testing.T) {
	h, store := newFinanceHandler(finance.Limiters{})

	rec := httptest.NewRecorder()
	h.CreateExpense(rec, financeRequest(http.MethodPost, "/api/v1/expenses", "user-1",
		`{"category":"groceries","amount_cents":4250,"note":"weekly shop"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created finance.Expense
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.UserID != "user-1" {
		t.Fatalf("expected user-1, got %s", created.UserID)
	}
	if created.OccurredAt.IsZero() || created.CreatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	stored, _ := store.ListExpenses(context.Background(), "user-1")
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored expense, got %d", len(stored))
	}
}

func TestCreateExpenseRejectsInvalidPayloads(t *testing.T) {
	h, _ := newFinanceHandler(finance.Limiters{})

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"amount_cents":`},
		{"zero amount", `{"category":"groceries","amount_cents":0}`},
		{"missing category", `{"amount_cents":100}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CreateExpense(rec, financeRequest(http.MethodPost, "/api/v1/expenses", "user-1", tc.body))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestUpdateExpenseMissingRecord(t *testing.T) {
	h, _ := newFinanceHandler(finance.Limiters{})

	req := financeRequest(http.MethodPut, "/api/v1/expenses/nope", "user-1",
		`{"category":"groceries","amount_cents":100}`)
	req = withURLParam(req, "id", "nope")
	rec := httptest.NewRecorder()

	h.UpdateExpense(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if code := decodeAuthError(t, rec); code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}
}

func TestDeleteExpenseRateLimited(t *testing.T) {
	limiters := finance.Limiters{
		Delete: ratelimit.New(ratelimit.Config{
			Window:      time.Minute,
			MaxAttempts: 1,
			BlockFor:    10 * time.Minute,
		}),
	}
	h, store := newFinanceHandler(limiters)

	_ = store.CreateExpense(context.Background(), finance.Expense{
		ID: "e-1", UserID: "user-1", Category: "groceries", Amount: 100,
	})
	_ = store.CreateExpense(context.Background(), finance.Expense{
		ID: "e-2", UserID: "user-1", Category: "groceries", Amount: 200,
	})

	req := withURLParam(financeRequest(http.MethodDelete, "/api/v1/expenses/e-1", "user-1", ""), "id", "e-1")
	rec := httptest.NewRecorder()
	h.DeleteExpense(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected first delete to pass with 204, got %d", rec.Code)
	}

	req = withURLParam(financeRequest(http.MethodDelete, "/api/v1/expenses/e-2", "user-1", ""), "id", "e-2")
	rec = httptest.NewRecorder()
	h.DeleteExpense(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	if code := decodeAuthError(t, rec); code != "RATE_LIMITED" {
		t.Fatalf("expected RATE_LIMITED, got %s", code)
	}
}

func TestListIncomesScopedToUser(t *testing.T) {
	h, store := newFinanceHandler(finance.Limiters{})

	_ = store.CreateIncome(context.Background(), finance.Income{
		ID: "i-1", UserID: "user-1", Source: "salary", Amount: 500000,
	})
	_ = store.CreateIncome(context.Background(), finance.Income{
		ID: "i-2", UserID: "user-2", Source: "salary", Amount: 600000,
	})

	rec := httptest.NewRecorder()
	h.ListIncomes(rec, financeRequest(http.MethodGet, "/api/v1/incomes", "user-1", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp struct {
		Incomes []finance.Income `json:"incomes"`
		Count   int              `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Incomes[0].ID != "i-1" {
		t.Fatalf("expected only user-1 incomes, got %+v", resp)
	}
}

func TestCreateInstallmentValidatesDueDay(t *testing.T) {
	h, _ := newFinanceHandler(finance.Limiters{})

	rec := httptest.NewRecorder()
	h.CreateInstallment(rec, financeRequest(http.MethodPost, "/api/v1/installments", "user-1",
		`{"description":"laptop","total_amount_cents":120000,"installment_count":12,"due_day":42}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if code := decodeAuthError(t, rec); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}
}

func TestSavingsGoalLifecycle(t *testing.T) {
	h, _ := newFinanceHandler(finance.Limiters{})

	rec := httptest.NewRecorder()
	h.CreateSavingsGoal(rec, financeRequest(http.MethodPost, "/api/v1/savings-goals", "user-1",
		`{"name":"emergency fund","target_amount_cents":1000000}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created finance.SavingsGoal
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req := financeRequest(http.MethodPut, "/api/v1/savings-goals/"+created.ID, "user-1",
		`{"name":"emergency fund","target_amount_cents":1000000,"saved_amount_cents":250000}`)
	req = withURLParam(req, "id", created.ID)
	rec = httptest.NewRecorder()
	h.UpdateSavingsGoal(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = withURLParam(financeRequest(http.MethodDelete, "/api/v1/savings-goals/"+created.ID, "user-1", ""), "id", created.ID)
	rec = httptest.NewRecorder()
	h.DeleteSavingsGoal(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListSavingsGoals(rec, financeRequest(http.MethodGet, "/api/v1/savings-goals", "user-1", ""))
	var resp struct {
		Goals []finance.SavingsGoal `json:"savings_goals"`
		Count int                   `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("expected empty listing after delete, got %d", resp.Count)
	}
}
