package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/storage"
)

// BackupService snapshots the whole ledger to a JSON file and restores from
// one. Restore is a raw upsert: records land with their original ids and
// overwrite whatever currently holds those ids.
type BackupService struct {
	storage *storage.Repository
}

func NewBackupService(storage *storage.Repository) *BackupService {
	return &BackupService{storage: storage}
}

// Snapshot collects the active state of all five collections.
func (s *BackupService) Snapshot(ctx context.Context) (*export.Snapshot, error) {
	categories, err := s.storage.ListActiveCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot categories: %w", err)
	}
	expenses, err := s.storage.ListExpenseTransactions(ctx, storage.ExpenseFilter{})
	if err != nil {
		return nil, fmt.Errorf("snapshot expense transactions: %w", err)
	}
	persons, err := s.storage.ListActivePersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot persons: %w", err)
	}
	borrowLend, err := s.storage.ListBorrowLendTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot borrow/lend transactions: %w", err)
	}
	settlements, err := s.storage.ListSettlements(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot settlements: %w", err)
	}

	return &export.Snapshot{
		Version:                export.BackupVersion,
		Timestamp:              core.Millis(time.Now()),
		Categories:             categories,
		ExpenseTransactions:    expenses,
		Persons:                persons,
		BorrowLendTransactions: borrowLend,
		Settlements:            settlements,
	}, nil
}

// Export writes a snapshot of the ledger to w.
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := export.WriteBackup(w, *snap); err != nil {
		return fmt.Errorf("export backup: %w", err)
	}
	slog.InfoContext(ctx, "Exported backup",
		"categories", len(snap.Categories),
		"expense_transactions", len(snap.ExpenseTransactions),
		"persons", len(snap.Persons),
		"borrow_lend_transactions", len(snap.BorrowLendTransactions),
		"settlements", len(snap.Settlements))
	return nil
}

// Restore reads a snapshot from r and upserts every record with its original
// id. Earlier records stay written if a later upsert fails.
func (s *BackupService) Restore(ctx context.Context, r io.Reader) error {
	snap, err := export.ReadBackup(r)
	if err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	for _, c := range snap.Categories {
		if err := s.storage.ReplaceCategory(ctx, c); err != nil {
			return fmt.Errorf("restore category %d: %w", c.ID, err)
		}
	}
	for _, p := range snap.Persons {
		if err := s.storage.ReplacePerson(ctx, p); err != nil {
			return fmt.Errorf("restore person %d: %w", p.ID, err)
		}
	}
	for _, t := range snap.ExpenseTransactions {
		if err := s.storage.ReplaceExpenseTransaction(ctx, t); err != nil {
			return fmt.Errorf("restore expense transaction %d: %w", t.ID, err)
		}
	}
	for _, t := range snap.BorrowLendTransactions {
		if err := s.storage.ReplaceBorrowLendTransaction(ctx, t); err != nil {
			return fmt.Errorf("restore borrow/lend transaction %d: %w", t.ID, err)
		}
	}
	for _, sett := range snap.Settlements {
		if err := s.storage.ReplaceSettlement(ctx, sett); err != nil {
			return fmt.Errorf("restore settlement %d: %w", sett.ID, err)
		}
	}

	slog.InfoContext(ctx, "Restored backup", "version", snap.Version, "taken_at", snap.Timestamp)
	return nil
}
