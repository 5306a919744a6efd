package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"budget/internal/core"
)

type expensePayload struct {
	ID          int64       `json:"id"`
	Amount      json.Number `json:"amount"`
	Type        string      `json:"type"`
	CategoryID  *int64      `json:"categoryId"`
	Description string      `json:"description"`
	Timestamp   int64       `json:"timestamp"`
	IsDeleted   bool        `json:"isDeleted"`
}

func expenseToPayload(t core.ExpenseTransaction) expensePayload {
	return expensePayload{
		ID:          t.ID,
		Amount:      amountNumber(t.Amount),
		Type:        string(t.Type),
		CategoryID:  t.CategoryID,
		Description: t.Description,
		Timestamp:   t.Timestamp,
		IsDeleted:   t.IsDeleted,
	}
}

func (s *Server) expenseFromPayload(req expensePayload) (core.ExpenseTransaction, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.ExpenseTransaction{}, err
	}
	ts := req.Timestamp
	if ts == 0 {
		ts = core.Millis(time.Now())
	}
	return core.ExpenseTransaction{
		ID:          req.ID,
		Amount:      amount,
		Type:        core.TransactionType(req.Type),
		CategoryID:  req.CategoryID,
		Description: sanitizeInput(req.Description),
		Timestamp:   ts,
	}, nil
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := expenseFilterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		transactions, err := s.storage.ListExpenseTransactions(r.Context(), filter)
		if err != nil {
			slog.ErrorContext(r.Context(), "List expenses failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		payload := make([]expensePayload, 0, len(transactions))
		for _, t := range transactions {
			payload = append(payload, expenseToPayload(t))
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPost:
		var req expensePayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		tx, err := s.expenseFromPayload(req)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount")
			return
		}
		id, err := s.ledger.CreateExpense(r.Context(), tx)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		created, err := s.storage.GetExpenseTransaction(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, expenseToPayload(*created))

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	id, action, err := pathID(r.URL.Path, "/api/expenses/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense path")
		return
	}
	if action == "restore" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		if err := s.ledger.RestoreExpense(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		restored, err := s.storage.GetExpenseTransaction(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expenseToPayload(*restored))
		return
	}
	if action != "" {
		writeError(w, http.StatusBadRequest, "invalid expense path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		tx, err := s.storage.GetExpenseTransaction(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expenseToPayload(*tx))

	case http.MethodPut:
		var req expensePayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		tx, err := s.expenseFromPayload(req)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount")
			return
		}
		tx.ID = id
		if err := s.ledger.UpdateExpense(r.Context(), tx); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		updated, err := s.storage.GetExpenseTransaction(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expenseToPayload(*updated))

	case http.MethodDelete:
		if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)

	default:
		methodNotAllowed(w, "GET, PUT, DELETE")
	}
}
