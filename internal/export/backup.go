package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// BackupVersion tags the snapshot format. There is no migration logic
// beyond the tag.
const BackupVersion = 1

// Snapshot is the full active state of all five collections.
type Snapshot struct {
	Version                int
	Timestamp              int64
	Categories             []core.ExpenseCategory
	ExpenseTransactions    []core.ExpenseTransaction
	Persons                []core.Person
	BorrowLendTransactions []core.BorrowLendTransaction
	Settlements            []core.Settlement
}

// Wire types pin the JSON field names and keep amounts exact: json.Number
// round-trips decimal values without a float detour.

type backupFile struct {
	Version                int                 `json:"version"`
	Timestamp              int64               `json:"timestamp"`
	ExpenseCategories      []jsonCategory      `json:"expenseCategories"`
	ExpenseTransactions    []jsonExpenseTx     `json:"expenseTransactions"`
	Persons                []jsonPerson        `json:"persons"`
	BorrowLendTransactions []jsonBorrowLendTx  `json:"borrowLendTransactions"`
	Settlements            []jsonSettlement    `json:"settlements"`
}

type jsonCategory struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IsPredefined bool   `json:"isPredefined"`
	IsActive     bool   `json:"isActive"`
}

type jsonExpenseTx struct {
	ID          int64       `json:"id"`
	Amount      json.Number `json:"amount"`
	Type        string      `json:"type"`
	CategoryID  *int64      `json:"categoryId"`
	Description string      `json:"description"`
	Timestamp   int64       `json:"timestamp"`
	IsDeleted   bool        `json:"isDeleted"`
}

type jsonPerson struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	IsMerged           bool   `json:"isMerged"`
	MergedIntoPersonID *int64 `json:"mergedIntoPersonId"`
}

type jsonBorrowLendTx struct {
	ID          int64       `json:"id"`
	PersonID    int64       `json:"personId"`
	Amount      json.Number `json:"amount"`
	Direction   string      `json:"direction"`
	Description string      `json:"description"`
	Timestamp   int64       `json:"timestamp"`
	IsDeleted   bool        `json:"isDeleted"`
}

type jsonSettlement struct {
	ID             int64       `json:"id"`
	PersonID       int64       `json:"personId"`
	TransactionID  *int64      `json:"transactionId"`
	Amount         json.Number `json:"amount"`
	SettlementType string      `json:"settlementType"`
	Timestamp      int64       `json:"timestamp"`
}

func amountNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	return decimal.NewFromString(n.String())
}

// WriteBackup serializes the snapshot as a single indented JSON object.
func WriteBackup(w io.Writer, snap Snapshot) error {
	file := backupFile{
		Version:                snap.Version,
		Timestamp:              snap.Timestamp,
		ExpenseCategories:      []jsonCategory{},
		ExpenseTransactions:    []jsonExpenseTx{},
		Persons:                []jsonPerson{},
		BorrowLendTransactions: []jsonBorrowLendTx{},
		Settlements:            []jsonSettlement{},
	}

	for _, c := range snap.Categories {
		file.ExpenseCategories = append(file.ExpenseCategories, jsonCategory{
			ID: c.ID, Name: c.Name, IsPredefined: c.IsPredefined, IsActive: c.IsActive,
		})
	}
	for _, t := range snap.ExpenseTransactions {
		file.ExpenseTransactions = append(file.ExpenseTransactions, jsonExpenseTx{
			ID: t.ID, Amount: amountNumber(t.Amount), Type: string(t.Type),
			CategoryID: t.CategoryID, Description: t.Description,
			Timestamp: t.Timestamp, IsDeleted: t.IsDeleted,
		})
	}
	for _, p := range snap.Persons {
		file.Persons = append(file.Persons, jsonPerson{
			ID: p.ID, Name: p.Name, IsMerged: p.IsMerged, MergedIntoPersonID: p.MergedIntoPersonID,
		})
	}
	for _, t := range snap.BorrowLendTransactions {
		file.BorrowLendTransactions = append(file.BorrowLendTransactions, jsonBorrowLendTx{
			ID: t.ID, PersonID: t.PersonID, Amount: amountNumber(t.Amount),
			Direction: string(t.Direction), Description: t.Description,
			Timestamp: t.Timestamp, IsDeleted: t.IsDeleted,
		})
	}
	for _, s := range snap.Settlements {
		file.Settlements = append(file.Settlements, jsonSettlement{
			ID: s.ID, PersonID: s.PersonID, TransactionID: s.TransactionID,
			Amount: amountNumber(s.Amount), SettlementType: string(s.SettlementType),
			Timestamp: s.Timestamp,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// ReadBackup parses a snapshot file. Malformed JSON or a malformed amount is
// fatal to the whole operation; there is no row-level tolerance here.
func ReadBackup(r io.Reader) (*Snapshot, error) {
	var file backupFile
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}

	snap := &Snapshot{
		Version:   file.Version,
		Timestamp: file.Timestamp,
	}

	for _, c := range file.ExpenseCategories {
		snap.Categories = append(snap.Categories, core.ExpenseCategory{
			ID: c.ID, Name: c.Name, IsPredefined: c.IsPredefined, IsActive: c.IsActive,
		})
	}
	for _, t := range file.ExpenseTransactions {
		amount, err := parseAmount(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("expense transaction %d: parse amount: %w", t.ID, err)
		}
		snap.ExpenseTransactions = append(snap.ExpenseTransactions, core.ExpenseTransaction{
			ID: t.ID, Amount: amount, Type: core.TransactionType(t.Type),
			CategoryID: t.CategoryID, Description: t.Description,
			Timestamp: t.Timestamp, IsDeleted: t.IsDeleted,
		})
	}
	for _, p := range file.Persons {
		snap.Persons = append(snap.Persons, core.Person{
			ID: p.ID, Name: p.Name, IsMerged: p.IsMerged, MergedIntoPersonID: p.MergedIntoPersonID,
		})
	}
	for _, t := range file.BorrowLendTransactions {
		amount, err := parseAmount(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("borrow/lend transaction %d: parse amount: %w", t.ID, err)
		}
		snap.BorrowLendTransactions = append(snap.BorrowLendTransactions, core.BorrowLendTransaction{
			ID: t.ID, PersonID: t.PersonID, Amount: amount,
			Direction: core.Direction(t.Direction), Description: t.Description,
			Timestamp: t.Timestamp, IsDeleted: t.IsDeleted,
		})
	}
	for _, s := range file.Settlements {
		amount, err := parseAmount(s.Amount)
		if err != nil {
			return nil, fmt.Errorf("settlement %d: parse amount: %w", s.ID, err)
		}
		snap.Settlements = append(snap.Settlements, core.Settlement{
			ID: s.ID, PersonID: s.PersonID, TransactionID: s.TransactionID,
			Amount: amount, SettlementType: core.SettlementType(s.SettlementType),
			Timestamp: s.Timestamp,
		})
	}

	return snap, nil
}
