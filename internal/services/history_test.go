package services

import (
	"testing"

	"budget/internal/core"
)

func TestComposeHistoryOrdersDescending(t *testing.T) {
	transactions := []core.BorrowLendTransaction{
		{ID: 1, PersonID: 1, Amount: dec("10"), Direction: core.Lent, Timestamp: 100},
		{ID: 2, PersonID: 1, Amount: dec("20"), Direction: core.Lent, Timestamp: 300},
	}
	settlements := []core.Settlement{
		{ID: 1, PersonID: 1, Amount: dec("5"), SettlementType: core.Partial, Timestamp: 200},
	}

	history := ComposeHistory(1, transactions, settlements)
	if len(history) != 3 {
		t.Fatalf("got %d entries, want 3", len(history))
	}

	wantTimestamps := []int64{300, 200, 100}
	wantKinds := []HistoryKind{HistoryTransaction, HistorySettlement, HistoryTransaction}
	for i, entry := range history {
		if entry.Timestamp() != wantTimestamps[i] {
			t.Errorf("entry %d timestamp = %d, want %d", i, entry.Timestamp(), wantTimestamps[i])
		}
		if entry.Kind != wantKinds[i] {
			t.Errorf("entry %d kind = %s, want %s", i, entry.Kind, wantKinds[i])
		}
	}
}

func TestComposeHistoryStableOnTies(t *testing.T) {
	transactions := []core.BorrowLendTransaction{
		{ID: 1, PersonID: 1, Amount: dec("10"), Direction: core.Lent, Timestamp: 100},
		{ID: 2, PersonID: 1, Amount: dec("20"), Direction: core.Lent, Timestamp: 100},
	}
	settlements := []core.Settlement{
		{ID: 1, PersonID: 1, Amount: dec("5"), SettlementType: core.Partial, Timestamp: 100},
	}

	history := ComposeHistory(1, transactions, settlements)
	if len(history) != 3 {
		t.Fatalf("got %d entries, want 3", len(history))
	}
	// Input order survives a timestamp tie: transactions first, in id order,
	// then the settlement.
	if history[0].Transaction == nil || history[0].Transaction.ID != 1 {
		t.Errorf("entry 0 = %+v, want transaction 1", history[0])
	}
	if history[1].Transaction == nil || history[1].Transaction.ID != 2 {
		t.Errorf("entry 1 = %+v, want transaction 2", history[1])
	}
	if history[2].Kind != HistorySettlement {
		t.Errorf("entry 2 kind = %s, want settlement", history[2].Kind)
	}
}

func TestComposeHistoryFilters(t *testing.T) {
	transactions := []core.BorrowLendTransaction{
		{ID: 1, PersonID: 1, Amount: dec("10"), Direction: core.Lent, Timestamp: 100},
		{ID: 2, PersonID: 2, Amount: dec("20"), Direction: core.Lent, Timestamp: 200},
		{ID: 3, PersonID: 1, Amount: dec("30"), Direction: core.Lent, Timestamp: 300, IsDeleted: true},
	}
	settlements := []core.Settlement{
		{ID: 1, PersonID: 2, Amount: dec("5"), SettlementType: core.Partial, Timestamp: 150},
	}

	history := ComposeHistory(1, transactions, settlements)
	if len(history) != 1 {
		t.Fatalf("got %d entries, want 1", len(history))
	}
	if history[0].Transaction == nil || history[0].Transaction.ID != 1 {
		t.Errorf("entry = %+v, want transaction 1", history[0])
	}
}
