package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"budget/internal/export"
	"budget/internal/storage"
)

// BorrowLendImporter runs the two-phase borrow/lend CSV import. Person names
// resolve at confirmation time, creating missing persons rather than failing.
type BorrowLendImporter struct {
	storage  *storage.Repository
	resolver *Resolver

	mu      sync.Mutex
	pending *export.BorrowLendImportPreview
}

func NewBorrowLendImporter(storage *storage.Repository, resolver *Resolver) *BorrowLendImporter {
	return &BorrowLendImporter{storage: storage, resolver: resolver}
}

// Prepare parses the CSV and stores the preview as the single pending
// import, replacing any preview still awaiting confirmation.
func (i *BorrowLendImporter) Prepare(ctx context.Context, r io.Reader) (*export.BorrowLendImportPreview, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	preview, err := export.ParseBorrowLend(r)
	if err != nil {
		return nil, fmt.Errorf("prepare borrow/lend import: %w", err)
	}
	i.pending = preview

	slog.InfoContext(ctx, "Prepared borrow/lend import",
		"total_rows", preview.TotalRows,
		"transactions", len(preview.Transactions),
		"settlements", len(preview.Settlements),
		"invalid_rows", preview.InvalidRows)
	return preview, nil
}

// Confirm commits all parsed transactions, then all parsed settlements.
// Earlier rows stay committed if a later insert fails. The pending preview
// is consumed regardless of outcome.
func (i *BorrowLendImporter) Confirm(ctx context.Context) (int, error) {
	i.mu.Lock()
	pending := i.pending
	i.pending = nil
	i.mu.Unlock()

	if pending == nil {
		return 0, ErrNoImportPending
	}

	committed := 0
	for idx, row := range pending.Transactions {
		personID, err := i.resolver.ResolvePerson(ctx, row.PersonName)
		if err != nil {
			return committed, fmt.Errorf("confirm borrow/lend import: %w", err)
		}
		tx := row.Transaction
		tx.PersonID = personID
		if _, err := i.storage.InsertBorrowLendTransaction(ctx, tx); err != nil {
			return committed, fmt.Errorf("confirm borrow/lend import: insert transaction %d: %w", idx, err)
		}
		committed++
	}
	for idx, row := range pending.Settlements {
		personID, err := i.resolver.ResolvePerson(ctx, row.PersonName)
		if err != nil {
			return committed, fmt.Errorf("confirm borrow/lend import: %w", err)
		}
		sett := row.Settlement
		sett.PersonID = personID
		if _, err := i.storage.InsertSettlement(ctx, sett); err != nil {
			return committed, fmt.Errorf("confirm borrow/lend import: insert settlement %d: %w", idx, err)
		}
		committed++
	}

	slog.InfoContext(ctx, "Confirmed borrow/lend import", "committed", committed)
	return committed, nil
}

// Cancel discards the pending preview.
func (i *BorrowLendImporter) Cancel() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pending == nil {
		return ErrNoImportPending
	}
	i.pending = nil
	return nil
}
