package storage

import (
	"context"
	"fmt"

	"budget/internal/core"
)

// The Replace* methods re-insert records carrying their original ids, used
// only by backup restore. INSERT OR REPLACE means an id collision silently
// overwrites the stored row, so restoring onto a non-empty database can
// clobber unrelated data sharing ids. That is the documented policy, not an
// accident.

func (r *Repository) ReplaceCategory(ctx context.Context, c core.ExpenseCategory) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO expense_categories (id, name, is_predefined, is_active)
		 VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.IsPredefined, c.IsActive,
	)
	if err != nil {
		return fmt.Errorf("replace category: %w", err)
	}
	r.watcher.notify(KindCategory)
	return nil
}

func (r *Repository) ReplaceExpenseTransaction(ctx context.Context, t core.ExpenseTransaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO expense_transactions (id, amount, type, category_id, description, timestamp, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount, string(t.Type), nullableID(t.CategoryID), t.Description, t.Timestamp, t.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("replace expense transaction: %w", err)
	}
	r.watcher.notify(KindExpense)
	return nil
}

func (r *Repository) ReplacePerson(ctx context.Context, p core.Person) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO persons (id, name, is_merged, merged_into_person_id)
		 VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.IsMerged, nullableID(p.MergedIntoPersonID),
	)
	if err != nil {
		return fmt.Errorf("replace person: %w", err)
	}
	r.watcher.notify(KindPerson)
	return nil
}

func (r *Repository) ReplaceBorrowLendTransaction(ctx context.Context, t core.BorrowLendTransaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO borrow_lend_transactions (id, person_id, amount, direction, description, timestamp, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PersonID, t.Amount, string(t.Direction), t.Description, t.Timestamp, t.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("replace borrow/lend transaction: %w", err)
	}
	r.watcher.notify(KindBorrowLend)
	return nil
}

func (r *Repository) ReplaceSettlement(ctx context.Context, s core.Settlement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settlements (id, person_id, transaction_id, amount, settlement_type, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.PersonID, nullableID(s.TransactionID), s.Amount, string(s.SettlementType), s.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("replace settlement: %w", err)
	}
	r.watcher.notify(KindSettlement)
	return nil
}
