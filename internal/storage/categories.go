package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"budget/internal/core"
)

// ErrNotFound is returned by GetBy* lookups when no row matches.
var ErrNotFound = errors.New("not found")

// InsertCategory inserts a category and returns its id. The UNIQUE index on
// name is the authoritative duplicate guard: on a name collision the insert
// is a no-op and the existing row's id is returned instead.
func (r *Repository) InsertCategory(ctx context.Context, c core.ExpenseCategory) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_categories (name, is_predefined, is_active)
		 VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		c.Name, c.IsPredefined, c.IsActive,
	)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := r.GetCategoryByName(ctx, c.Name)
		if err != nil {
			return 0, fmt.Errorf("lookup existing category: %w", err)
		}
		return existing.ID, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.watcher.notify(KindCategory)
	return id, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.ExpenseCategory) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expense_categories SET name = ?, is_predefined = ?, is_active = ? WHERE id = ?`,
		c.Name, c.IsPredefined, c.IsActive, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	r.watcher.notify(KindCategory)
	return nil
}

// DeactivateCategory soft-removes a category. Rows referencing it keep their
// category id; only hard deletion (never issued here) would null them.
func (r *Repository) DeactivateCategory(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expense_categories SET is_active = 0 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("deactivate category: %w", err)
	}
	r.watcher.notify(KindCategory)
	return nil
}

func (r *Repository) GetCategoryByID(ctx context.Context, id int64) (*core.ExpenseCategory, error) {
	c := &core.ExpenseCategory{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_predefined, is_active FROM expense_categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.IsPredefined, &c.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return c, nil
}

// GetCategoryByName does an exact, case-sensitive lookup across all
// categories, active or not.
func (r *Repository) GetCategoryByName(ctx context.Context, name string) (*core.ExpenseCategory, error) {
	c := &core.ExpenseCategory{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_predefined, is_active FROM expense_categories WHERE name = ? LIMIT 1`, name,
	).Scan(&c.ID, &c.Name, &c.IsPredefined, &c.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return c, nil
}

func (r *Repository) ListActiveCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, is_predefined, is_active FROM expense_categories WHERE is_active = 1 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active categories: %w", err)
	}
	defer rows.Close()
	return scanCategories(rows)
}

// ListCategories returns every category including deactivated ones, so
// exports can still name categories that old transactions reference.
func (r *Repository) ListCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, is_predefined, is_active FROM expense_categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	return scanCategories(rows)
}

func scanCategories(rows *sql.Rows) ([]core.ExpenseCategory, error) {
	var categories []core.ExpenseCategory
	for rows.Next() {
		var c core.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.IsPredefined, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}
