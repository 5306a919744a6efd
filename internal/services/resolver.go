package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
	"budget/internal/storage"
)

var (
	// ErrSamePerson rejects a merge of a person into itself.
	ErrSamePerson = errors.New("cannot merge a person into itself")
)

// Resolver maps external names to ledger ids, creating missing entities on
// the fly. Import confirmation relies on it never failing over a name that
// does not exist yet.
type Resolver struct {
	storage *storage.Repository
}

func NewResolver(storage *storage.Repository) *Resolver {
	return &Resolver{storage: storage}
}

// ResolveCategory returns the id of the category with the exact given name,
// inserting a new active one if none exists. Lookup spans inactive categories
// too, so a deactivated category is reused rather than duplicated. The name
// uniqueness constraint in the store is the authoritative guard against
// concurrent duplicate inserts.
func (r *Resolver) ResolveCategory(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, core.ErrEmptyName
	}

	existing, err := r.storage.GetCategoryByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("resolve category %q: %w", name, err)
	}

	id, err := r.storage.InsertCategory(ctx, core.ExpenseCategory{
		Name:     name,
		IsActive: true,
	})
	if err != nil {
		return 0, fmt.Errorf("create category %q: %w", name, err)
	}
	slog.InfoContext(ctx, "Created category during resolution", "name", name, "id", id)
	return id, nil
}

// ResolvePerson returns the id of the person with the exact given name,
// inserting a new one if none exists. Person names carry no uniqueness
// constraint; with duplicates the lookup settles on one of them.
func (r *Resolver) ResolvePerson(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, core.ErrEmptyName
	}

	existing, err := r.storage.GetPersonByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("resolve person %q: %w", name, err)
	}

	id, err := r.storage.InsertPerson(ctx, core.Person{Name: name})
	if err != nil {
		return 0, fmt.Errorf("create person %q: %w", name, err)
	}
	slog.InfoContext(ctx, "Created person during resolution", "name", name, "id", id)
	return id, nil
}

// MergePersons hides the source person behind the target. Existing
// transactions and settlements stay attached to the source id and drop out
// of the target's balance; history is not reattached.
func (r *Resolver) MergePersons(ctx context.Context, sourceID, targetID int64) error {
	if sourceID == targetID {
		return ErrSamePerson
	}

	source, err := r.storage.GetPersonByID(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("load source person %d: %w", sourceID, err)
	}
	if _, err := r.storage.GetPersonByID(ctx, targetID); err != nil {
		return fmt.Errorf("load target person %d: %w", targetID, err)
	}

	source.IsMerged = true
	source.MergedIntoPersonID = &targetID
	if err := r.storage.UpdatePerson(ctx, *source); err != nil {
		return fmt.Errorf("merge person %d into %d: %w", sourceID, targetID, err)
	}

	slog.InfoContext(ctx, "Merged person", "source_id", sourceID, "target_id", targetID)
	return nil
}
