package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budget/internal/amqp"
	"budget/internal/services"
)

type expensePreviewPayload struct {
	TotalRows    int                 `json:"totalRows"`
	InvalidRows  int                 `json:"invalidRows"`
	Transactions []expensePreviewRow `json:"transactions"`
}

type expensePreviewRow struct {
	Amount       json.Number `json:"amount"`
	Type         string      `json:"type"`
	CategoryName string      `json:"categoryName"`
	Description  string      `json:"description"`
	Timestamp    int64       `json:"timestamp"`
}

type borrowLendPreviewPayload struct {
	TotalRows    int                    `json:"totalRows"`
	InvalidRows  int                    `json:"invalidRows"`
	Transactions []borrowLendPreviewRow `json:"transactions"`
	Settlements  []settlementPreviewRow `json:"settlements"`
}

type borrowLendPreviewRow struct {
	PersonName  string      `json:"personName"`
	Amount      json.Number `json:"amount"`
	Direction   string      `json:"direction"`
	Description string      `json:"description"`
	Timestamp   int64       `json:"timestamp"`
}

type settlementPreviewRow struct {
	PersonName     string      `json:"personName"`
	Amount         json.Number `json:"amount"`
	SettlementType string      `json:"settlementType"`
	Timestamp      int64       `json:"timestamp"`
}

type confirmResultPayload struct {
	CommittedRows int `json:"committedRows"`
}

func writeImportError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrNoImportPending) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}

// handleExpenseImport parses the posted CSV into a pending preview. Nothing
// is written until the confirm call.
func (s *Server) handleExpenseImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	preview, err := s.expImports.Prepare(r.Context(), r.Body)
	if err != nil {
		writeImportError(w, err)
		return
	}
	s.metrics.observeImport("expenses", len(preview.Transactions), preview.InvalidRows)
	slog.InfoContext(r.Context(), "Expense import prepared",
		"total_rows", preview.TotalRows,
		"invalid_rows", preview.InvalidRows,
		"parsed_rows", len(preview.Transactions))

	payload := expensePreviewPayload{
		TotalRows:    preview.TotalRows,
		InvalidRows:  preview.InvalidRows,
		Transactions: make([]expensePreviewRow, 0, len(preview.Transactions)),
	}
	for i, t := range preview.Transactions {
		payload.Transactions = append(payload.Transactions, expensePreviewRow{
			Amount:       amountNumber(t.Amount),
			Type:         string(t.Type),
			CategoryName: preview.CategoryNames[i],
			Description:  t.Description,
			Timestamp:    t.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleExpenseImportConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	committed, err := s.expImports.Confirm(r.Context())
	if err != nil {
		writeImportError(w, err)
		return
	}
	slog.InfoContext(r.Context(), "Expense import confirmed", "committed_rows", committed)
	s.ledger.AnnounceImport(r.Context(), amqp.EntityExpense, amqp.OpImport)
	writeJSON(w, http.StatusOK, confirmResultPayload{CommittedRows: committed})
}

func (s *Server) handleExpenseImportCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if err := s.expImports.Cancel(); err != nil {
		writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleBorrowLendImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	preview, err := s.blImports.Prepare(r.Context(), r.Body)
	if err != nil {
		writeImportError(w, err)
		return
	}
	parsed := len(preview.Transactions) + len(preview.Settlements)
	s.metrics.observeImport("borrow_lend", parsed, preview.InvalidRows)
	slog.InfoContext(r.Context(), "Borrow/lend import prepared",
		"total_rows", preview.TotalRows,
		"invalid_rows", preview.InvalidRows,
		"parsed_rows", parsed)

	payload := borrowLendPreviewPayload{
		TotalRows:    preview.TotalRows,
		InvalidRows:  preview.InvalidRows,
		Transactions: make([]borrowLendPreviewRow, 0, len(preview.Transactions)),
		Settlements:  make([]settlementPreviewRow, 0, len(preview.Settlements)),
	}
	for _, p := range preview.Transactions {
		payload.Transactions = append(payload.Transactions, borrowLendPreviewRow{
			PersonName:  p.PersonName,
			Amount:      amountNumber(p.Transaction.Amount),
			Direction:   string(p.Transaction.Direction),
			Description: p.Transaction.Description,
			Timestamp:   p.Transaction.Timestamp,
		})
	}
	for _, p := range preview.Settlements {
		payload.Settlements = append(payload.Settlements, settlementPreviewRow{
			PersonName:     p.PersonName,
			Amount:         amountNumber(p.Settlement.Amount),
			SettlementType: string(p.Settlement.SettlementType),
			Timestamp:      p.Settlement.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleBorrowLendImportConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	committed, err := s.blImports.Confirm(r.Context())
	if err != nil {
		writeImportError(w, err)
		return
	}
	slog.InfoContext(r.Context(), "Borrow/lend import confirmed", "committed_rows", committed)
	s.ledger.AnnounceImport(r.Context(), amqp.EntityBorrowLend, amqp.OpImport)
	writeJSON(w, http.StatusOK, confirmResultPayload{CommittedRows: committed})
}

func (s *Server) handleBorrowLendImportCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if err := s.blImports.Cancel(); err != nil {
		writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
