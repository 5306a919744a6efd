package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"budget/internal/core"
	"budget/internal/storage"
)

const expenseCSV = `Date,Type,Amount,Category,Description
2024-03-01 12:30:00,EXPENSE,12.5,Food,lunch
2024-03-02 09:00:00,INCOME,2000,,salary
broken,row
`

const borrowLendCSV = `Person Name,Direction,Amount,Description,Transaction Date,Settlement Type,Settlement Amount,Settlement Date
Alice,LENT,100,tickets,2024-02-10 18:00:00,NONE,0,N/A
Alice,SETTLEMENT,0,Settlement Payment,N/A,PARTIAL,40,2024-02-20 10:00:00
Bob,BORROWED,30,cash,2024-02-11 09:00:00,NONE,0,N/A
`

func TestExpenseImportTwoPhase(t *testing.T) {
	repo := newTestRepository(t)
	importer := NewExpenseImporter(repo, NewResolver(repo))
	ctx := context.Background()

	preview, err := importer.Prepare(ctx, strings.NewReader(expenseCSV))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if preview.TotalRows != 3 || preview.InvalidRows != 1 || len(preview.Transactions) != 2 {
		t.Fatalf("preview = %d total / %d invalid / %d parsed", preview.TotalRows, preview.InvalidRows, len(preview.Transactions))
	}

	// Nothing committed before confirmation.
	stored, err := repo.ListExpenseTransactions(ctx, storage.ExpenseFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("prepare wrote %d rows to the ledger", len(stored))
	}

	committed, err := importer.Confirm(ctx)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if committed != 2 {
		t.Errorf("committed = %d, want 2", committed)
	}

	stored, err = repo.ListExpenseTransactions(ctx, storage.ExpenseFilter{})
	if err != nil {
		t.Fatalf("list after confirm: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d transactions, want 2", len(stored))
	}

	// The category was created during confirmation and attached to the
	// expense row; the income row carries none.
	cat, err := repo.GetCategoryByName(ctx, "Food")
	if err != nil {
		t.Fatalf("category not created: %v", err)
	}
	for _, tx := range stored {
		switch tx.Type {
		case core.Expense:
			if tx.CategoryID == nil || *tx.CategoryID != cat.ID {
				t.Errorf("expense row category = %v, want %d", tx.CategoryID, cat.ID)
			}
		case core.Income:
			if tx.CategoryID != nil {
				t.Errorf("income row has category %d", *tx.CategoryID)
			}
		}
	}
}

func TestExpenseImportPrepareReplacesPending(t *testing.T) {
	repo := newTestRepository(t)
	importer := NewExpenseImporter(repo, NewResolver(repo))
	ctx := context.Background()

	if _, err := importer.Prepare(ctx, strings.NewReader(expenseCSV)); err != nil {
		t.Fatalf("first prepare: %v", err)
	}

	// A second upload discards the earlier preview.
	second := "Date,Type,Amount,Category,Description\n2024-04-01 08:00:00,EXPENSE,7,Transport,bus\n"
	preview, err := importer.Prepare(ctx, strings.NewReader(second))
	if err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	if len(preview.Transactions) != 1 {
		t.Fatalf("second preview has %d transactions, want 1", len(preview.Transactions))
	}

	committed, err := importer.Confirm(ctx)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if committed != 1 {
		t.Errorf("committed = %d, want 1", committed)
	}
	stored, err := repo.ListExpenseTransactions(ctx, storage.ExpenseFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || stored[0].Description != "bus" {
		t.Fatalf("stored rows = %+v, want only the replacement upload", stored)
	}

	// The confirm consumed the preview, so nothing remains pending.
	if _, err := importer.Confirm(ctx); !errors.Is(err, ErrNoImportPending) {
		t.Errorf("confirm error = %v, want ErrNoImportPending", err)
	}
}

func TestExpenseImportNothingPending(t *testing.T) {
	repo := newTestRepository(t)
	importer := NewExpenseImporter(repo, NewResolver(repo))

	if _, err := importer.Confirm(context.Background()); !errors.Is(err, ErrNoImportPending) {
		t.Errorf("confirm error = %v, want ErrNoImportPending", err)
	}
	if err := importer.Cancel(); !errors.Is(err, ErrNoImportPending) {
		t.Errorf("cancel error = %v, want ErrNoImportPending", err)
	}
}

func TestBorrowLendImportCreatesPersons(t *testing.T) {
	repo := newTestRepository(t)
	importer := NewBorrowLendImporter(repo, NewResolver(repo))
	ctx := context.Background()

	preview, err := importer.Prepare(ctx, strings.NewReader(borrowLendCSV))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if len(preview.Transactions) != 2 || len(preview.Settlements) != 1 {
		t.Fatalf("preview = %d transactions / %d settlements", len(preview.Transactions), len(preview.Settlements))
	}

	committed, err := importer.Confirm(ctx)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if committed != 3 {
		t.Errorf("committed = %d, want 3", committed)
	}

	alice, err := repo.GetPersonByName(ctx, "Alice")
	if err != nil {
		t.Fatalf("Alice not created: %v", err)
	}
	if _, err := repo.GetPersonByName(ctx, "Bob"); err != nil {
		t.Fatalf("Bob not created: %v", err)
	}

	// Both Alice rows resolved to the same person.
	settlements, err := repo.ListSettlementsForPerson(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list settlements: %v", err)
	}
	if len(settlements) != 1 || !settlements[0].Amount.Equal(dec("40")) {
		t.Fatalf("Alice settlements = %+v", settlements)
	}

	// And the resulting balances follow from the imported rows.
	persons, err := repo.ListActivePersons(ctx)
	if err != nil {
		t.Fatalf("list persons: %v", err)
	}
	transactions, err := repo.ListBorrowLendTransactions(ctx)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	allSettlements, err := repo.ListSettlements(ctx)
	if err != nil {
		t.Fatalf("list all settlements: %v", err)
	}
	for _, b := range ComputePersonBalances(persons, transactions, allSettlements) {
		switch b.Person.Name {
		case "Alice":
			if !b.NetBalance.Equal(dec("60")) {
				t.Errorf("Alice balance = %s, want 60", b.NetBalance)
			}
		case "Bob":
			if !b.NetBalance.Equal(dec("-30")) {
				t.Errorf("Bob balance = %s, want -30", b.NetBalance)
			}
		}
	}
}
