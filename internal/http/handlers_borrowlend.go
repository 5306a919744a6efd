package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"budget/internal/core"
)

type borrowLendPayload struct {
	ID          int64       `json:"id"`
	PersonID    int64       `json:"personId"`
	Amount      json.Number `json:"amount"`
	Direction   string      `json:"direction"`
	Description string      `json:"description"`
	Timestamp   int64       `json:"timestamp"`
	IsDeleted   bool        `json:"isDeleted"`
}

type settlementPayload struct {
	ID             int64       `json:"id"`
	PersonID       int64       `json:"personId"`
	TransactionID  *int64      `json:"transactionId"`
	Amount         json.Number `json:"amount"`
	SettlementType string      `json:"settlementType"`
	Timestamp      int64       `json:"timestamp"`
}

func borrowLendToPayload(t core.BorrowLendTransaction) borrowLendPayload {
	return borrowLendPayload{
		ID:          t.ID,
		PersonID:    t.PersonID,
		Amount:      amountNumber(t.Amount),
		Direction:   string(t.Direction),
		Description: t.Description,
		Timestamp:   t.Timestamp,
		IsDeleted:   t.IsDeleted,
	}
}

func settlementToPayload(s core.Settlement) settlementPayload {
	return settlementPayload{
		ID:             s.ID,
		PersonID:       s.PersonID,
		TransactionID:  s.TransactionID,
		Amount:         amountNumber(s.Amount),
		SettlementType: string(s.SettlementType),
		Timestamp:      s.Timestamp,
	}
}

func borrowLendFromPayload(req borrowLendPayload) (core.BorrowLendTransaction, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.BorrowLendTransaction{}, err
	}
	ts := req.Timestamp
	if ts == 0 {
		ts = core.Millis(time.Now())
	}
	return core.BorrowLendTransaction{
		ID:          req.ID,
		PersonID:    req.PersonID,
		Amount:      amount,
		Direction:   core.Direction(req.Direction),
		Description: sanitizeInput(req.Description),
		Timestamp:   ts,
	}, nil
}

func (s *Server) handleBorrowLend(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		transactions, err := s.storage.ListBorrowLendTransactions(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "List borrow/lend transactions failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		payload := make([]borrowLendPayload, 0, len(transactions))
		for _, t := range transactions {
			payload = append(payload, borrowLendToPayload(t))
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPost:
		var req borrowLendPayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		tx, err := borrowLendFromPayload(req)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount")
			return
		}
		id, err := s.ledger.CreateBorrowLend(r.Context(), tx)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		created, err := s.storage.GetBorrowLendTransaction(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, borrowLendToPayload(*created))

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleBorrowLendByID(w http.ResponseWriter, r *http.Request) {
	id, action, err := pathID(r.URL.Path, "/api/borrow-lend/")
	if err != nil || action != "" {
		writeError(w, http.StatusBadRequest, "invalid transaction path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		tx, err := s.storage.GetBorrowLendTransaction(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, borrowLendToPayload(*tx))

	case http.MethodPut:
		var req borrowLendPayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		tx, err := borrowLendFromPayload(req)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount")
			return
		}
		tx.ID = id
		if err := s.ledger.UpdateBorrowLend(r.Context(), tx); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		updated, err := s.storage.GetBorrowLendTransaction(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, borrowLendToPayload(*updated))

	case http.MethodDelete:
		if err := s.ledger.DeleteBorrowLend(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)

	default:
		methodNotAllowed(w, "GET, PUT, DELETE")
	}
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settlements, err := s.storage.ListSettlements(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "List settlements failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		payload := make([]settlementPayload, 0, len(settlements))
		for _, st := range settlements {
			payload = append(payload, settlementToPayload(st))
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPost:
		var req settlementPayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount")
			return
		}
		ts := req.Timestamp
		if ts == 0 {
			ts = core.Millis(time.Now())
		}
		id, err := s.ledger.CreateSettlement(r.Context(), core.Settlement{
			PersonID:       req.PersonID,
			TransactionID:  req.TransactionID,
			Amount:         amount,
			SettlementType: core.SettlementType(req.SettlementType),
			Timestamp:      ts,
		})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		created, err := s.storage.GetSettlement(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, settlementToPayload(*created))

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleSettlementByID(w http.ResponseWriter, r *http.Request) {
	id, action, err := pathID(r.URL.Path, "/api/settlements/")
	if err != nil || action != "" {
		writeError(w, http.StatusBadRequest, "invalid settlement path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		st, err := s.storage.GetSettlement(r.Context(), id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settlementToPayload(*st))

	case http.MethodDelete:
		if err := s.ledger.DeleteSettlement(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)

	default:
		methodNotAllowed(w, "GET, DELETE")
	}
}
