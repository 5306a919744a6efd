package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/storage"
)

func newTestRepository(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputePersonBalances(t *testing.T) {
	alice := core.Person{ID: 1, Name: "Alice"}
	bob := core.Person{ID: 2, Name: "Bob"}

	tests := []struct {
		name         string
		transactions []core.BorrowLendTransaction
		settlements  []core.Settlement
		want         map[int64]string
	}{
		{
			name: "no settlements is lent minus borrowed",
			transactions: []core.BorrowLendTransaction{
				{PersonID: 1, Amount: dec("100"), Direction: core.Lent},
				{PersonID: 1, Amount: dec("30"), Direction: core.Borrowed},
				{PersonID: 2, Amount: dec("20"), Direction: core.Borrowed},
			},
			want: map[int64]string{1: "70", 2: "-20"},
		},
		{
			name: "exact settlement zeroes the balance",
			transactions: []core.BorrowLendTransaction{
				{PersonID: 1, Amount: dec("100"), Direction: core.Lent},
			},
			settlements: []core.Settlement{
				{PersonID: 1, Amount: dec("100"), SettlementType: core.Full},
			},
			want: map[int64]string{1: "0", 2: "0"},
		},
		{
			name: "over-settlement flips the sign",
			transactions: []core.BorrowLendTransaction{
				{PersonID: 1, Amount: dec("100"), Direction: core.Lent},
			},
			settlements: []core.Settlement{
				{PersonID: 1, Amount: dec("150"), SettlementType: core.Full},
			},
			want: map[int64]string{1: "-50", 2: "0"},
		},
		{
			name: "settlement moves a borrowed balance toward zero",
			transactions: []core.BorrowLendTransaction{
				{PersonID: 1, Amount: dec("100"), Direction: core.Borrowed},
			},
			settlements: []core.Settlement{
				{PersonID: 1, Amount: dec("40"), SettlementType: core.Partial},
			},
			want: map[int64]string{1: "-60", 2: "0"},
		},
		{
			name: "deleted transactions are ignored",
			transactions: []core.BorrowLendTransaction{
				{PersonID: 1, Amount: dec("100"), Direction: core.Lent},
				{PersonID: 1, Amount: dec("999"), Direction: core.Lent, IsDeleted: true},
			},
			want: map[int64]string{1: "100", 2: "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances := ComputePersonBalances([]core.Person{alice, bob}, tt.transactions, tt.settlements)
			if len(balances) != 2 {
				t.Fatalf("got %d balances, want 2", len(balances))
			}
			for _, b := range balances {
				want := dec(tt.want[b.Person.ID])
				if !b.NetBalance.Equal(want) {
					t.Errorf("person %d balance = %s, want %s", b.Person.ID, b.NetBalance, want)
				}
			}
		})
	}
}

func TestComputeTotalsAggregateInvariant(t *testing.T) {
	balances := []core.PersonBalance{
		{Person: core.Person{ID: 1}, NetBalance: dec("70")},
		{Person: core.Person{ID: 2}, NetBalance: dec("-20")},
		{Person: core.Person{ID: 3}, NetBalance: dec("0")},
		{Person: core.Person{ID: 4}, NetBalance: dec("12.5")},
	}

	totals := ComputeTotals(balances)
	if !totals.TotalLent.Equal(dec("82.5")) {
		t.Errorf("TotalLent = %s, want 82.5", totals.TotalLent)
	}
	if !totals.TotalBorrowed.Equal(dec("20")) {
		t.Errorf("TotalBorrowed = %s, want 20", totals.TotalBorrowed)
	}
	if !totals.Net.Equal(totals.TotalLent.Sub(totals.TotalBorrowed)) {
		t.Errorf("Net = %s, want TotalLent - TotalBorrowed", totals.Net)
	}
}

func TestComputeMonthSummary(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.Local)
	monthStart := core.Millis(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local))

	transactions := []core.ExpenseTransaction{
		{Amount: dec("50"), Type: core.Expense, Timestamp: monthStart},
		{Amount: dec("25"), Type: core.Expense, Timestamp: monthStart + 1000},
		{Amount: dec("2000"), Type: core.Income, Timestamp: monthStart + 2000},
		{Amount: dec("999"), Type: core.Expense, Timestamp: monthStart - 1},
		{Amount: dec("888"), Type: core.Expense, Timestamp: monthStart + 3000, IsDeleted: true},
	}

	summary := ComputeMonthSummary(transactions, now)
	if !summary.TotalExpenses.Equal(dec("75")) {
		t.Errorf("TotalExpenses = %s, want 75", summary.TotalExpenses)
	}
	if !summary.TotalIncome.Equal(dec("2000")) {
		t.Errorf("TotalIncome = %s, want 2000", summary.TotalIncome)
	}
	if !summary.NetBalance.Equal(dec("1925")) {
		t.Errorf("NetBalance = %s, want 1925", summary.NetBalance)
	}
}

func TestBalanceServiceRecomputesOnChange(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	service := NewBalanceService(repo)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go service.Run(runCtx)

	personID, err := repo.InsertPerson(ctx, core.Person{Name: "Alice"})
	if err != nil {
		t.Fatalf("insert person: %v", err)
	}
	if _, err := repo.InsertBorrowLendTransaction(ctx, core.BorrowLendTransaction{
		PersonID: personID, Amount: dec("100"), Direction: core.Lent, Timestamp: 1,
	}); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		balances := service.Balances()
		if len(balances) == 1 && balances[0].NetBalance.Equal(dec("100")) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("balances never reflected the inserted transaction: %+v", balances)
		case <-time.After(10 * time.Millisecond):
		}
	}

	if totals := service.Totals(); !totals.TotalLent.Equal(dec("100")) {
		t.Errorf("TotalLent = %s, want 100", totals.TotalLent)
	}
}

func TestBalanceServiceSubscribeSignalsAfterRecompute(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	service := NewBalanceService(repo)
	updates, cancel := service.Subscribe()
	defer cancel()

	if err := service.Recompute(ctx); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("no update signal after recompute")
	}
}
