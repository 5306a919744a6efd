package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"budget/internal/core"
)

// ExpenseFilter narrows ListExpenseTransactions. Zero value means all
// non-deleted rows.
type ExpenseFilter struct {
	Type       *core.TransactionType
	CategoryID *int64
	Search     string
}

func (r *Repository) InsertExpenseTransaction(ctx context.Context, t core.ExpenseTransaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_transactions (amount, type, category_id, description, timestamp, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Amount, string(t.Type), nullableID(t.CategoryID), t.Description, t.Timestamp, t.IsDeleted,
	)
	if err != nil {
		return 0, fmt.Errorf("insert expense transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.watcher.notify(KindExpense)
	return id, nil
}

func (r *Repository) UpdateExpenseTransaction(ctx context.Context, t core.ExpenseTransaction) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expense_transactions
		 SET amount = ?, type = ?, category_id = ?, description = ?, timestamp = ?, is_deleted = ?
		 WHERE id = ?`,
		t.Amount, string(t.Type), nullableID(t.CategoryID), t.Description, t.Timestamp, t.IsDeleted, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update expense transaction: %w", err)
	}
	r.watcher.notify(KindExpense)
	return nil
}

func (r *Repository) SoftDeleteExpenseTransaction(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expense_transactions SET is_deleted = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("soft delete expense transaction: %w", err)
	}
	r.watcher.notify(KindExpense)
	return nil
}

func (r *Repository) RestoreExpenseTransaction(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expense_transactions SET is_deleted = 0 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("restore expense transaction: %w", err)
	}
	r.watcher.notify(KindExpense)
	return nil
}

// GetExpenseTransaction looks a row up by id regardless of its soft-delete
// flag, so deleted rows stay reachable for restore.
func (r *Repository) GetExpenseTransaction(ctx context.Context, id int64) (*core.ExpenseTransaction, error) {
	t := &core.ExpenseTransaction{}
	var categoryID sql.NullInt64
	var txType string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, amount, type, category_id, description, timestamp, is_deleted
		 FROM expense_transactions WHERE id = ?`, id,
	).Scan(&t.ID, &t.Amount, &txType, &categoryID, &t.Description, &t.Timestamp, &t.IsDeleted)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense transaction: %w", err)
	}
	t.Type = core.TransactionType(txType)
	t.CategoryID = scanNullableID(categoryID)
	return t, nil
}

// ListExpenseTransactions returns non-deleted rows, most recent first.
func (r *Repository) ListExpenseTransactions(ctx context.Context, filter ExpenseFilter) ([]core.ExpenseTransaction, error) {
	query := `SELECT id, amount, type, category_id, description, timestamp, is_deleted
	          FROM expense_transactions WHERE is_deleted = 0`
	var args []any

	if filter.Type != nil {
		query += ` AND type = ?`
		args = append(args, string(*filter.Type))
	}
	if filter.CategoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, *filter.CategoryID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		query += ` AND description LIKE ?`
		args = append(args, "%"+s+"%")
	}
	query += ` ORDER BY timestamp DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expense transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.ExpenseTransaction
	for rows.Next() {
		var t core.ExpenseTransaction
		var categoryID sql.NullInt64
		var txType string
		if err := rows.Scan(&t.ID, &t.Amount, &txType, &categoryID, &t.Description, &t.Timestamp, &t.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan expense transaction: %w", err)
		}
		t.Type = core.TransactionType(txType)
		t.CategoryID = scanNullableID(categoryID)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense transactions: %w", err)
	}
	return transactions, nil
}
