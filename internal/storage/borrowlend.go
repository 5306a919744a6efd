package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budget/internal/core"
)

func (r *Repository) InsertBorrowLendTransaction(ctx context.Context, t core.BorrowLendTransaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO borrow_lend_transactions (person_id, amount, direction, description, timestamp, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.PersonID, t.Amount, string(t.Direction), t.Description, t.Timestamp, t.IsDeleted,
	)
	if err != nil {
		return 0, fmt.Errorf("insert borrow/lend transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.watcher.notify(KindBorrowLend)
	return id, nil
}

func (r *Repository) UpdateBorrowLendTransaction(ctx context.Context, t core.BorrowLendTransaction) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE borrow_lend_transactions
		 SET person_id = ?, amount = ?, direction = ?, description = ?, timestamp = ?, is_deleted = ?
		 WHERE id = ?`,
		t.PersonID, t.Amount, string(t.Direction), t.Description, t.Timestamp, t.IsDeleted, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update borrow/lend transaction: %w", err)
	}
	r.watcher.notify(KindBorrowLend)
	return nil
}

func (r *Repository) SoftDeleteBorrowLendTransaction(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE borrow_lend_transactions SET is_deleted = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("soft delete borrow/lend transaction: %w", err)
	}
	r.watcher.notify(KindBorrowLend)
	return nil
}

func (r *Repository) GetBorrowLendTransaction(ctx context.Context, id int64) (*core.BorrowLendTransaction, error) {
	t := &core.BorrowLendTransaction{}
	var direction string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, person_id, amount, direction, description, timestamp, is_deleted
		 FROM borrow_lend_transactions WHERE id = ?`, id,
	).Scan(&t.ID, &t.PersonID, &t.Amount, &direction, &t.Description, &t.Timestamp, &t.IsDeleted)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get borrow/lend transaction: %w", err)
	}
	t.Direction = core.Direction(direction)
	return t, nil
}

// ListBorrowLendTransactions returns all non-deleted rows, most recent first.
func (r *Repository) ListBorrowLendTransactions(ctx context.Context) ([]core.BorrowLendTransaction, error) {
	return r.listBorrowLend(ctx,
		`SELECT id, person_id, amount, direction, description, timestamp, is_deleted
		 FROM borrow_lend_transactions WHERE is_deleted = 0 ORDER BY timestamp DESC, id DESC`)
}

func (r *Repository) ListBorrowLendTransactionsForPerson(ctx context.Context, personID int64) ([]core.BorrowLendTransaction, error) {
	return r.listBorrowLend(ctx,
		`SELECT id, person_id, amount, direction, description, timestamp, is_deleted
		 FROM borrow_lend_transactions WHERE person_id = ? AND is_deleted = 0 ORDER BY timestamp DESC, id DESC`,
		personID)
}

func (r *Repository) listBorrowLend(ctx context.Context, query string, args ...any) ([]core.BorrowLendTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list borrow/lend transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.BorrowLendTransaction
	for rows.Next() {
		var t core.BorrowLendTransaction
		var direction string
		if err := rows.Scan(&t.ID, &t.PersonID, &t.Amount, &direction, &t.Description, &t.Timestamp, &t.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan borrow/lend transaction: %w", err)
		}
		t.Direction = core.Direction(direction)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate borrow/lend transactions: %w", err)
	}
	return transactions, nil
}
