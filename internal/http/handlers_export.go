package http

import (
	"log/slog"
	"net/http"

	"budget/internal/amqp"
	"budget/internal/export"
	"budget/internal/storage"
)

// handleExportExpensesCSV streams the expense ledger as a CSV download.
func (s *Server) handleExportExpensesCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	transactions, err := s.storage.ListExpenseTransactions(r.Context(), storage.ExpenseFilter{})
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses for export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Deactivated categories stay in the lookup so their transactions
	// export with a name.
	categories, err := s.storage.ListCategories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories for export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	if err := export.WriteExpenses(w, transactions, names); err != nil {
		slog.ErrorContext(r.Context(), "Expense CSV export failed", "error", err)
	}
}

func (s *Server) handleExportBorrowLendCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	transactions, err := s.storage.ListBorrowLendTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions for export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	settlements, err := s.storage.ListSettlements(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List settlements for export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	persons, err := s.storage.ListActivePersons(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List persons for export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	names := make(map[int64]string, len(persons))
	for _, p := range persons {
		names[p.ID] = p.Name
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="borrow_lend.csv"`)
	if err := export.WriteBorrowLend(w, names, transactions, settlements); err != nil {
		slog.ErrorContext(r.Context(), "Borrow/lend CSV export failed", "error", err)
	}
}

// handleBackupExport streams a full JSON snapshot of every collection.
func (s *Server) handleBackupExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="budget_backup.json"`)
	if err := s.backups.Export(r.Context(), w); err != nil {
		slog.ErrorContext(r.Context(), "Backup export failed", "error", err)
	}
}

// handleBackupRestore replays a snapshot into the database. Existing rows
// with matching IDs are overwritten.
func (s *Server) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if err := s.backups.Restore(r.Context(), r.Body); err != nil {
		slog.ErrorContext(r.Context(), "Backup restore failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	slog.InfoContext(r.Context(), "Backup restored")
	for _, entity := range []string{
		amqp.EntityCategory, amqp.EntityExpense, amqp.EntityPerson,
		amqp.EntityBorrowLend, amqp.EntitySettlement,
	} {
		s.ledger.AnnounceImport(r.Context(), entity, amqp.OpRestore)
	}
	writeJSON(w, http.StatusNoContent, nil)
}
