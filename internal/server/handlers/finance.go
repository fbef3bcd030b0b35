package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerkeep/ledgerkeep/internal/core/finance"
	"github.com/ledgerkeep/ledgerkeep/internal/core/ratelimit"
	apperrors "github.com/ledgerkeep/ledgerkeep/internal/errors"
	"github.com/ledgerkeep/ledgerkeep/internal/metrics"
	"github.com/ledgerkeep/ledgerkeep/internal/server/middleware"
)

// FinanceHandler serves the financial record CRUD endpoints. The underlying
// service enforces the per-operation rate limits; handlers only translate
// its errors into API responses.
type FinanceHandler struct {
	Service *finance.Service
}

func (h *FinanceHandler) respondServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var limitErr *ratelimit.LimitExceededError
	switch {
	case errors.As(err, &limitErr):
		metrics.RecordRateLimitHit(operation)
		respondWithError(w, r, apperrors.NewRateLimitedError(
			"Too many "+operation+" requests", limitErr.RetryAfterSeconds))
	case errors.Is(err, finance.ErrRecordNotFound):
		respondWithError(w, r, apperrors.NewNotFoundError("Record not found"))
	case isValidationError(err):
		respondWithError(w, r, apperrors.NewValidationError(err.Error()))
	default:
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Storage operation failed"))
	}
}

func isValidationError(err error) bool {
	var vErr *finance.ValidationError
	return errors.As(err, &vErr)
}

// ListExpenses handles GET /api/v1/expenses.
func (h *FinanceHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	expenses, err := h.Service.ListExpenses(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses, "count": len(expenses)})
}

// CreateExpense handles POST /api/v1/expenses.
func (h *FinanceHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var e finance.Expense
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid expense payload"))
		return
	}
	e.UserID = middleware.GetUserID(r.Context())

	created, err := h.Service.CreateExpense(r.Context(), e)
	if err != nil {
		h.respondServiceError(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateExpense handles PUT /api/v1/expenses/{id}.
func (h *FinanceHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var e finance.Expense
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid expense payload"))
		return
	}
	e.ID = chi.URLParam(r, "id")
	e.UserID = middleware.GetUserID(r.Context())

	if err := h.Service.UpdateExpense(r.Context(), e); err != nil {
		h.respondServiceError(w, r, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteExpense handles DELETE /api/v1/expenses/{id}.
func (h *FinanceHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.Service.DeleteExpense(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListIncomes handles GET /api/v1/incomes.
func (h *FinanceHandler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	incomes, err := h.Service.ListIncomes(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incomes": incomes, "count": len(incomes)})
}

// CreateIncome handles POST /api/v1/incomes.
func (h *FinanceHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var in finance.Income
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid income payload"))
		return
	}
	in.UserID = middleware.GetUserID(r.Context())

	created, err := h.Service.CreateIncome(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateIncome handles PUT /api/v1/incomes/{id}.
func (h *FinanceHandler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	var in finance.Income
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid income payload"))
		return
	}
	in.ID = chi.URLParam(r, "id")
	in.UserID = middleware.GetUserID(r.Context())

	if err := h.Service.UpdateIncome(r.Context(), in); err != nil {
		h.respondServiceError(w, r, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// DeleteIncome handles DELETE /api/v1/incomes/{id}.
func (h *FinanceHandler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.Service.DeleteIncome(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListInstallments handles GET /api/v1/installments.
func (h *FinanceHandler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	installments, err := h.Service.ListInstallments(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"installments": installments, "count": len(installments)})
}

// CreateInstallment handles POST /api/v1/installments.
func (h *FinanceHandler) CreateInstallment(w http.ResponseWriter, r *http.Request) {
	var inst finance.Installment
	if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid installment payload"))
		return
	}
	inst.UserID = middleware.GetUserID(r.Context())

	created, err := h.Service.CreateInstallment(r.Context(), inst)
	if err != nil {
		h.respondServiceError(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateInstallment handles PUT /api/v1/installments/{id}.
func (h *FinanceHandler) UpdateInstallment(w http.ResponseWriter, r *http.Request) {
	var inst finance.Installment
	if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid installment payload"))
		return
	}
	inst.ID = chi.URLParam(r, "id")
	inst.UserID = middleware.GetUserID(r.Context())

	if err := h.Service.UpdateInstallment(r.Context(), inst); err != nil {
		h.respondServiceError(w, r, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// DeleteInstallment handles DELETE /api/v1/installments/{id}.
func (h *FinanceHandler) DeleteInstallment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.Service.DeleteInstallment(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSavingsGoals handles GET /api/v1/savings-goals.
func (h *FinanceHandler) ListSavingsGoals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	goals, err := h.Service.ListSavingsGoals(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"savings_goals": goals, "count": len(goals)})
}

// CreateSavingsGoal handles POST /api/v1/savings-goals.
func (h *FinanceHandler) CreateSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var g finance.SavingsGoal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid savings goal payload"))
		return
	}
	g.UserID = middleware.GetUserID(r.Context())

	created, err := h.Service.CreateSavingsGoal(r.Context(), g)
	if err != nil {
		h.respondServiceError(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateSavingsGoal handles PUT /api/v1/savings-goals/{id}.
func (h *FinanceHandler) UpdateSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var g finance.SavingsGoal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid savings goal payload"))
		return
	}
	g.ID = chi.URLParam(r, "id")
	g.UserID = middleware.GetUserID(r.Context())

	if err := h.Service.UpdateSavingsGoal(r.Context(), g); err != nil {
		h.respondServiceError(w, r, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// DeleteSavingsGoal handles DELETE /api/v1/savings-goals/{id}.
func (h *FinanceHandler) DeleteSavingsGoal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.Service.DeleteSavingsGoal(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
