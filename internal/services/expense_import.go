package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"budget/internal/export"
	"budget/internal/storage"
)

// ErrNoImportPending means confirm or cancel was called with nothing
// prepared.
var ErrNoImportPending = errors.New("no import pending")

// ExpenseImporter runs the two-phase expense CSV import: Prepare parses the
// file into a preview without touching the ledger, Confirm resolves category
// names and commits every parsed row, Cancel discards the preview.
type ExpenseImporter struct {
	storage  *storage.Repository
	resolver *Resolver

	mu      sync.Mutex
	pending *export.ExpenseImportPreview
}

func NewExpenseImporter(storage *storage.Repository, resolver *Resolver) *ExpenseImporter {
	return &ExpenseImporter{storage: storage, resolver: resolver}
}

// Prepare parses the CSV and stores the preview as the single pending
// import, replacing any preview still awaiting confirmation.
func (i *ExpenseImporter) Prepare(ctx context.Context, r io.Reader) (*export.ExpenseImportPreview, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	preview, err := export.ParseExpenses(r)
	if err != nil {
		return nil, fmt.Errorf("prepare expense import: %w", err)
	}
	i.pending = preview

	slog.InfoContext(ctx, "Prepared expense import",
		"total_rows", preview.TotalRows,
		"parsed", len(preview.Transactions),
		"invalid_rows", preview.InvalidRows)
	return preview, nil
}

// Confirm commits every parsed row, creating categories for unseen names.
// A failed insert stops the confirmation but earlier rows stay committed;
// the count of committed rows is returned either way. The pending preview
// is consumed regardless of outcome.
func (i *ExpenseImporter) Confirm(ctx context.Context) (int, error) {
	i.mu.Lock()
	pending := i.pending
	i.pending = nil
	i.mu.Unlock()

	if pending == nil {
		return 0, ErrNoImportPending
	}

	committed := 0
	for idx, tx := range pending.Transactions {
		if name := pending.CategoryNames[idx]; name != "" {
			id, err := i.resolver.ResolveCategory(ctx, name)
			if err != nil {
				return committed, fmt.Errorf("confirm expense import: %w", err)
			}
			tx.CategoryID = &id
		}
		if _, err := i.storage.InsertExpenseTransaction(ctx, tx); err != nil {
			return committed, fmt.Errorf("confirm expense import: insert row %d: %w", idx, err)
		}
		committed++
	}

	slog.InfoContext(ctx, "Confirmed expense import", "committed", committed)
	return committed, nil
}

// Cancel discards the pending preview.
func (i *ExpenseImporter) Cancel() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pending == nil {
		return ErrNoImportPending
	}
	i.pending = nil
	return nil
}
