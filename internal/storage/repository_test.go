package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestInsertCategoryDeduplicatesByName(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.InsertCategory(ctx, core.ExpenseCategory{Name: "Food", IsActive: true})
	if err != nil {
		t.Fatalf("InsertCategory: %v", err)
	}
	second, err := repo.InsertCategory(ctx, core.ExpenseCategory{Name: "Food", IsActive: true})
	if err != nil {
		t.Fatalf("InsertCategory duplicate: %v", err)
	}
	if first != second {
		t.Errorf("duplicate insert returned id %d, want existing id %d", second, first)
	}

	categories, err := repo.ListActiveCategories(ctx)
	if err != nil {
		t.Fatalf("ListActiveCategories: %v", err)
	}
	if len(categories) != 1 {
		t.Errorf("got %d categories, want exactly 1", len(categories))
	}
}

func TestListCategoriesIncludesDeactivated(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.InsertCategory(ctx, core.ExpenseCategory{Name: "Travel", IsActive: true})
	if err != nil {
		t.Fatalf("InsertCategory: %v", err)
	}
	if err := repo.DeactivateCategory(ctx, id); err != nil {
		t.Fatalf("DeactivateCategory: %v", err)
	}

	active, err := repo.ListActiveCategories(ctx)
	if err != nil {
		t.Fatalf("ListActiveCategories: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active list still has %d categories", len(active))
	}

	all, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(all) != 1 || all[0].Name != "Travel" || all[0].IsActive {
		t.Errorf("full list = %+v, want the deactivated Travel row", all)
	}
}

func TestSoftDeletedExpenseExcludedFromListButReachableByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.InsertExpenseTransaction(ctx, core.ExpenseTransaction{
		Amount:      decimal.NewFromFloat(12.50),
		Type:        core.Expense,
		Description: "lunch",
		Timestamp:   core.Millis(time.Now()),
	})
	if err != nil {
		t.Fatalf("InsertExpenseTransaction: %v", err)
	}

	if err := repo.SoftDeleteExpenseTransaction(ctx, id); err != nil {
		t.Fatalf("SoftDeleteExpenseTransaction: %v", err)
	}

	listed, err := repo.ListExpenseTransactions(ctx, ExpenseFilter{})
	if err != nil {
		t.Fatalf("ListExpenseTransactions: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("soft-deleted transaction still listed: %+v", listed)
	}

	got, err := repo.GetExpenseTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetExpenseTransaction after soft delete: %v", err)
	}
	if !got.IsDeleted {
		t.Error("direct lookup should return the row with IsDeleted set")
	}

	if err := repo.RestoreExpenseTransaction(ctx, id); err != nil {
		t.Fatalf("RestoreExpenseTransaction: %v", err)
	}
	listed, err = repo.ListExpenseTransactions(ctx, ExpenseFilter{})
	if err != nil {
		t.Fatalf("ListExpenseTransactions after restore: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("got %d transactions after restore, want 1", len(listed))
	}
}

func TestExpenseFilterByTypeAndSearch(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	now := core.Millis(time.Now())
	rows := []core.ExpenseTransaction{
		{Amount: decimal.NewFromInt(20), Type: core.Expense, Description: "groceries", Timestamp: now},
		{Amount: decimal.NewFromInt(900), Type: core.Income, Description: "salary", Timestamp: now + 1},
		{Amount: decimal.NewFromInt(5), Type: core.Expense, Description: "coffee", Timestamp: now + 2},
	}
	for _, row := range rows {
		if _, err := repo.InsertExpenseTransaction(ctx, row); err != nil {
			t.Fatalf("InsertExpenseTransaction: %v", err)
		}
	}

	expense := core.Expense
	got, err := repo.ListExpenseTransactions(ctx, ExpenseFilter{Type: &expense})
	if err != nil {
		t.Fatalf("ListExpenseTransactions: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("type filter returned %d rows, want 2", len(got))
	}
	// Most recent first.
	if len(got) == 2 && got[0].Description != "coffee" {
		t.Errorf("first row = %q, want most recent (coffee)", got[0].Description)
	}

	got, err = repo.ListExpenseTransactions(ctx, ExpenseFilter{Search: "groc"})
	if err != nil {
		t.Fatalf("ListExpenseTransactions search: %v", err)
	}
	if len(got) != 1 || got[0].Description != "groceries" {
		t.Errorf("search filter returned %+v, want only groceries", got)
	}
}

func TestDeletePersonCascades(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	personID, err := repo.InsertPerson(ctx, core.Person{Name: "Alice"})
	if err != nil {
		t.Fatalf("InsertPerson: %v", err)
	}

	txID, err := repo.InsertBorrowLendTransaction(ctx, core.BorrowLendTransaction{
		PersonID:  personID,
		Amount:    decimal.NewFromInt(100),
		Direction: core.Lent,
		Timestamp: core.Millis(time.Now()),
	})
	if err != nil {
		t.Fatalf("InsertBorrowLendTransaction: %v", err)
	}
	if _, err := repo.InsertSettlement(ctx, core.Settlement{
		PersonID:       personID,
		TransactionID:  &txID,
		Amount:         decimal.NewFromInt(40),
		SettlementType: core.Partial,
		Timestamp:      core.Millis(time.Now()),
	}); err != nil {
		t.Fatalf("InsertSettlement: %v", err)
	}

	if err := repo.DeletePerson(ctx, personID); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}

	txs, err := repo.ListBorrowLendTransactions(ctx)
	if err != nil {
		t.Fatalf("ListBorrowLendTransactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("transactions survived person delete: %+v", txs)
	}
	settlements, err := repo.ListSettlements(ctx)
	if err != nil {
		t.Fatalf("ListSettlements: %v", err)
	}
	if len(settlements) != 0 {
		t.Errorf("settlements survived person delete: %+v", settlements)
	}
}

func TestReplaceOverwritesOnIDCollision(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.InsertPerson(ctx, core.Person{Name: "Bob"})
	if err != nil {
		t.Fatalf("InsertPerson: %v", err)
	}

	if err := repo.ReplacePerson(ctx, core.Person{ID: id, Name: "Robert"}); err != nil {
		t.Fatalf("ReplacePerson: %v", err)
	}

	got, err := repo.GetPersonByID(ctx, id)
	if err != nil {
		t.Fatalf("GetPersonByID: %v", err)
	}
	if got.Name != "Robert" {
		t.Errorf("after replace, name = %q, want Robert", got.Name)
	}
}

func TestWatchSignalsOnMutation(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	ch, cancel := repo.Watch(KindPerson)
	defer cancel()

	if _, err := repo.InsertPerson(ctx, core.Person{Name: "Carol"}); err != nil {
		t.Fatalf("InsertPerson: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change notification after insert")
	}

	// Bursts coalesce: two quick mutations leave at most one pending signal.
	if _, err := repo.InsertPerson(ctx, core.Person{Name: "Dave"}); err != nil {
		t.Fatalf("InsertPerson: %v", err)
	}
	if _, err := repo.InsertPerson(ctx, core.Person{Name: "Eve"}); err != nil {
		t.Fatalf("InsertPerson: %v", err)
	}
	<-ch
	select {
	case <-ch:
		t.Error("expected coalesced notifications, got a second pending signal")
	default:
	}
}
