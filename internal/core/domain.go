package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "EXPENSE"
	Income  TransactionType = "INCOME"

	Borrowed Direction = "BORROWED"
	Lent     Direction = "LENT"

	Partial SettlementType = "PARTIAL"
	Full    SettlementType = "FULL"
)

type (
	// TransactionType classifies an expense ledger entry.
	TransactionType string

	// Direction classifies a borrow/lend entry from the user's point of view:
	// LENT money went out to the counterparty, BORROWED money came in.
	Direction string

	// SettlementType records whether a repayment targeted a single
	// transaction (PARTIAL) or the whole outstanding balance (FULL).
	SettlementType string

	ExpenseCategory struct {
		ID           int64
		Name         string
		IsPredefined bool
		IsActive     bool
	}

	ExpenseTransaction struct {
		ID          int64
		Amount      decimal.Decimal
		Type        TransactionType
		CategoryID  *int64 // nil for INCOME or uncategorized rows
		Description string
		Timestamp   int64 // epoch millis
		IsDeleted   bool
	}

	Person struct {
		ID                 int64
		Name               string
		IsMerged           bool
		MergedIntoPersonID *int64
	}

	BorrowLendTransaction struct {
		ID          int64
		PersonID    int64
		Amount      decimal.Decimal
		Direction   Direction
		Description string
		Timestamp   int64 // epoch millis
		IsDeleted   bool
	}

	Settlement struct {
		ID             int64
		PersonID       int64
		TransactionID  *int64 // nil for full/aggregate settlements
		Amount         decimal.Decimal
		SettlementType SettlementType
		Timestamp      int64 // epoch millis
	}
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidSettlType = errors.New("invalid settlement type")
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrMissingPerson    = errors.New("missing person reference")
	ErrIncomeCategory   = errors.New("income cannot carry a category")
)

func (t TransactionType) IsValid() bool {
	return t == Expense || t == Income
}

func (d Direction) IsValid() bool {
	return d == Borrowed || d == Lent
}

func (s SettlementType) IsValid() bool {
	return s == Partial || s == Full
}

func (c ExpenseCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t ExpenseTransaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.Type == Income && t.CategoryID != nil {
		return ErrIncomeCategory
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t BorrowLendTransaction) Validate() error {
	if t.PersonID <= 0 {
		return ErrMissingPerson
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Direction.IsValid() {
		return ErrInvalidDirection
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (s Settlement) Validate() error {
	if s.PersonID <= 0 {
		return ErrMissingPerson
	}
	if !s.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !s.SettlementType.IsValid() {
		return ErrInvalidSettlType
	}
	return nil
}

// Millis converts a time to the epoch-millisecond representation used on
// every entity timestamp.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis is the inverse of Millis, in local time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// StartOfMonth returns the first instant of now's calendar month in now's
// location. Monthly summaries include everything from this point on.
func StartOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
