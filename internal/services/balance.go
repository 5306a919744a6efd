package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/storage"
)

// ComputePersonBalances derives the net position for every person.
// Settlements always move a balance toward zero regardless of direction, so
// a settlement larger than the outstanding amount flips the sign rather than
// clamping at zero.
func ComputePersonBalances(persons []core.Person, transactions []core.BorrowLendTransaction, settlements []core.Settlement) []core.PersonBalance {
	lent := make(map[int64]decimal.Decimal)
	borrowed := make(map[int64]decimal.Decimal)
	settled := make(map[int64]decimal.Decimal)

	for _, t := range transactions {
		if t.IsDeleted {
			continue
		}
		switch t.Direction {
		case core.Lent:
			lent[t.PersonID] = lent[t.PersonID].Add(t.Amount)
		case core.Borrowed:
			borrowed[t.PersonID] = borrowed[t.PersonID].Add(t.Amount)
		}
	}
	for _, s := range settlements {
		settled[s.PersonID] = settled[s.PersonID].Add(s.Amount)
	}

	balances := make([]core.PersonBalance, 0, len(persons))
	for _, p := range persons {
		netTransactions := lent[p.ID].Sub(borrowed[p.ID])
		net := netTransactions
		if netTransactions.Sign() >= 0 {
			net = netTransactions.Sub(settled[p.ID])
		} else {
			net = netTransactions.Add(settled[p.ID])
		}
		balances = append(balances, core.PersonBalance{Person: p, NetBalance: net})
	}
	return balances
}

// ComputeTotals sums the positive balances into TotalLent and the magnitude
// of the negative ones into TotalBorrowed. Net is their difference.
func ComputeTotals(balances []core.PersonBalance) core.BorrowLendTotals {
	var totals core.BorrowLendTotals
	for _, b := range balances {
		switch {
		case b.NetBalance.Sign() > 0:
			totals.TotalLent = totals.TotalLent.Add(b.NetBalance)
		case b.NetBalance.Sign() < 0:
			totals.TotalBorrowed = totals.TotalBorrowed.Add(b.NetBalance.Neg())
		}
	}
	totals.Net = totals.TotalLent.Sub(totals.TotalBorrowed)
	return totals
}

// ComputeMonthSummary sums non-deleted expense and income transactions from
// the first of the current month at midnight local time.
func ComputeMonthSummary(transactions []core.ExpenseTransaction, now time.Time) core.MonthSummary {
	from := core.Millis(core.StartOfMonth(now))

	var summary core.MonthSummary
	for _, t := range transactions {
		if t.IsDeleted || t.Timestamp < from {
			continue
		}
		switch t.Type {
		case core.Expense:
			summary.TotalExpenses = summary.TotalExpenses.Add(t.Amount)
		case core.Income:
			summary.TotalIncome = summary.TotalIncome.Add(t.Amount)
		}
	}
	summary.NetBalance = summary.TotalIncome.Sub(summary.TotalExpenses)
	return summary
}

// BalanceService keeps the derived balances current by recomputing them from
// scratch whenever the underlying person, borrow/lend, or settlement data
// changes. Reads never block writers: callers get the latest snapshot.
type BalanceService struct {
	storage *storage.Repository

	mu       sync.RWMutex
	balances []core.PersonBalance
	totals   core.BorrowLendTotals

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}

	recomputes atomic.Int64
}

func NewBalanceService(storage *storage.Repository) *BalanceService {
	return &BalanceService{
		storage: storage,
		subs:    make(map[chan struct{}]struct{}),
	}
}

// Run recomputes once, then blocks recomputing on every ledger change until
// the context is cancelled.
func (s *BalanceService) Run(ctx context.Context) error {
	changes, cancel := s.storage.Watch(storage.KindPerson, storage.KindBorrowLend, storage.KindSettlement)
	defer cancel()

	if err := s.Recompute(ctx); err != nil {
		return fmt.Errorf("initial balance computation: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
			if err := s.Recompute(ctx); err != nil {
				slog.ErrorContext(ctx, "Failed to recompute balances", "error", err)
			}
		}
	}
}

// Recompute reloads the ledger and rebuilds every person balance.
func (s *BalanceService) Recompute(ctx context.Context) error {
	persons, err := s.storage.ListActivePersons(ctx)
	if err != nil {
		return fmt.Errorf("list persons: %w", err)
	}
	transactions, err := s.storage.ListBorrowLendTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list borrow/lend transactions: %w", err)
	}
	settlements, err := s.storage.ListSettlements(ctx)
	if err != nil {
		return fmt.Errorf("list settlements: %w", err)
	}

	balances := ComputePersonBalances(persons, transactions, settlements)
	totals := ComputeTotals(balances)

	s.mu.Lock()
	s.balances = balances
	s.totals = totals
	s.mu.Unlock()

	s.recomputes.Add(1)
	s.notifySubscribers()
	return nil
}

// RecomputeCount reports how many recomputations have completed since start.
func (s *BalanceService) RecomputeCount() int64 {
	return s.recomputes.Load()
}

// Balances returns the latest computed snapshot.
func (s *BalanceService) Balances() []core.PersonBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.PersonBalance, len(s.balances))
	copy(out, s.balances)
	return out
}

// Totals returns the latest aggregate position.
func (s *BalanceService) Totals() core.BorrowLendTotals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

// MonthSummary computes the current-month expense summary on demand; it is
// clock-dependent so it is not cached with the balances.
func (s *BalanceService) MonthSummary(ctx context.Context) (core.MonthSummary, error) {
	transactions, err := s.storage.ListExpenseTransactions(ctx, storage.ExpenseFilter{})
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("list expense transactions: %w", err)
	}
	return ComputeMonthSummary(transactions, time.Now()), nil
}

// Subscribe returns a channel that signals after each recomputation. Signals
// coalesce; slow consumers miss intermediate updates, never block the engine.
func (s *BalanceService) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *BalanceService) notifySubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
