package core

import "github.com/shopspring/decimal"

// PersonBalance is the derived net position against one counterparty.
// Positive means the counterparty owes the user, negative means the user
// owes the counterparty.
type PersonBalance struct {
	Person     Person
	NetBalance decimal.Decimal
}

// BorrowLendTotals aggregates all person balances.
// Net is always TotalLent - TotalBorrowed.
type BorrowLendTotals struct {
	TotalLent     decimal.Decimal
	TotalBorrowed decimal.Decimal
	Net           decimal.Decimal
}

// MonthSummary holds the current-calendar-month expense figures.
type MonthSummary struct {
	TotalExpenses decimal.Decimal
	TotalIncome   decimal.Decimal
	NetBalance    decimal.Decimal
}
