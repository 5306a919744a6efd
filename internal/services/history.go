package services

import (
	"sort"

	"budget/internal/core"
)

// HistoryKind discriminates the two record kinds in a person's timeline.
type HistoryKind string

const (
	HistoryTransaction HistoryKind = "TRANSACTION"
	HistorySettlement  HistoryKind = "SETTLEMENT"
)

// HistoryEntry is one record in a person's timeline. Exactly one of
// Transaction or Settlement is set, matching Kind.
type HistoryEntry struct {
	Kind        HistoryKind
	Transaction *core.BorrowLendTransaction
	Settlement  *core.Settlement
}

// Timestamp returns the entry's event time in epoch milliseconds.
func (e HistoryEntry) Timestamp() int64 {
	if e.Kind == HistoryTransaction {
		return e.Transaction.Timestamp
	}
	return e.Settlement.Timestamp
}

// ComposeHistory merges one person's non-deleted transactions and settlements
// into a single timeline, most recent first. The sort is stable: records with
// equal timestamps keep their input order, transactions before settlements.
func ComposeHistory(personID int64, transactions []core.BorrowLendTransaction, settlements []core.Settlement) []HistoryEntry {
	var history []HistoryEntry

	for i := range transactions {
		t := &transactions[i]
		if t.IsDeleted || t.PersonID != personID {
			continue
		}
		history = append(history, HistoryEntry{Kind: HistoryTransaction, Transaction: t})
	}
	for i := range settlements {
		s := &settlements[i]
		if s.PersonID != personID {
			continue
		}
		history = append(history, HistoryEntry{Kind: HistorySettlement, Settlement: s})
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp() > history[j].Timestamp()
	})
	return history
}
