package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

// InsertPerson inserts a person and returns the new id. Person names carry
// no uniqueness constraint; duplicate-name dedup is the resolver's
// best-effort lookup only.
func (r *Repository) InsertPerson(ctx context.Context, p core.Person) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO persons (name, is_merged, merged_into_person_id) VALUES (?, ?, ?)`,
		p.Name, p.IsMerged, nullableID(p.MergedIntoPersonID),
	)
	if err != nil {
		return 0, fmt.Errorf("insert person: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	r.watcher.notify(KindPerson)
	return id, nil
}

func (r *Repository) UpdatePerson(ctx context.Context, p core.Person) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE persons SET name = ?, is_merged = ?, merged_into_person_id = ? WHERE id = ?`,
		p.Name, p.IsMerged, nullableID(p.MergedIntoPersonID), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	r.watcher.notify(KindPerson)
	return nil
}

// DeletePerson hard-deletes a person. Transactions and settlements cascade
// at the schema level, so the dependent collections change too.
func (r *Repository) DeletePerson(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}

	slog.InfoContext(ctx, "Person deleted with cascading transactions", "id", id)
	r.watcher.notify(KindPerson)
	r.watcher.notify(KindBorrowLend)
	r.watcher.notify(KindSettlement)
	return nil
}

func (r *Repository) GetPersonByID(ctx context.Context, id int64) (*core.Person, error) {
	p := &core.Person{}
	var merged sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_merged, merged_into_person_id FROM persons WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.IsMerged, &merged)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get person by id: %w", err)
	}
	p.MergedIntoPersonID = scanNullableID(merged)
	return p, nil
}

func (r *Repository) GetPersonByName(ctx context.Context, name string) (*core.Person, error) {
	p := &core.Person{}
	var merged sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_merged, merged_into_person_id FROM persons WHERE name = ? LIMIT 1`, name,
	).Scan(&p.ID, &p.Name, &p.IsMerged, &merged)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get person by name: %w", err)
	}
	p.MergedIntoPersonID = scanNullableID(merged)
	return p, nil
}

// ListActivePersons returns all persons not hidden by a merge.
func (r *Repository) ListActivePersons(ctx context.Context) ([]core.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, is_merged, merged_into_person_id FROM persons WHERE is_merged = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active persons: %w", err)
	}
	defer rows.Close()

	var persons []core.Person
	for rows.Next() {
		var p core.Person
		var merged sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.IsMerged, &merged); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		p.MergedIntoPersonID = scanNullableID(merged)
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return persons, nil
}
