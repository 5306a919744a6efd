package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// ExpenseImportPreview is the buffered result of parsing an expense CSV.
// Nothing is committed yet; CategoryNames runs parallel to Transactions and
// holds the raw category strings to be resolved at confirmation time.
type ExpenseImportPreview struct {
	Transactions  []core.ExpenseTransaction
	CategoryNames []string
	InvalidRows   int
	TotalRows     int
}

// PendingBorrowLend pairs a parsed transaction with the person name still to
// be resolved.
type PendingBorrowLend struct {
	Transaction core.BorrowLendTransaction
	PersonName  string
}

// PendingSettlement pairs a parsed settlement with the person name still to
// be resolved.
type PendingSettlement struct {
	Settlement core.Settlement
	PersonName string
}

// BorrowLendImportPreview is the buffered result of parsing a borrow/lend
// CSV.
type BorrowLendImportPreview struct {
	Transactions []PendingBorrowLend
	Settlements  []PendingSettlement
	InvalidRows  int
	TotalRows    int
}

// parseCSVTime parses the export timestamp layout. A malformed date is not a
// row error: it silently falls back to the current time.
func parseCSVTime(s string) int64 {
	t, err := time.ParseInLocation(csvTimeLayout, s, time.Local)
	if err != nil {
		return nowMillis()
	}
	return core.Millis(t)
}

// ParseExpenses reads an expense CSV, skipping the header line. Rows with
// fewer than 5 fields or a non-numeric amount are counted invalid and
// skipped; parsing never aborts on row content. Category ids stay nil until
// confirmation resolves the carried names.
func ParseExpenses(r io.Reader) (*ExpenseImportPreview, error) {
	preview := &ExpenseImportPreview{}
	scanner := bufio.NewScanner(r)

	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		line := scanner.Text()
		preview.TotalRows++

		parts := strings.Split(line, ",")
		if len(parts) < 5 {
			preview.InvalidRows++
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			preview.InvalidRows++
			continue
		}
		txType := core.TransactionType(parts[1])
		if !txType.IsValid() {
			preview.InvalidRows++
			continue
		}

		categoryName := ""
		if txType == core.Expense {
			categoryName = parts[3]
		}

		preview.Transactions = append(preview.Transactions, core.ExpenseTransaction{
			Amount:      amount,
			Type:        txType,
			CategoryID:  nil, // resolved at confirmation
			Description: parts[4],
			Timestamp:   parseCSVTime(parts[0]),
		})
		preview.CategoryNames = append(preview.CategoryNames, categoryName)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read expense csv: %w", err)
	}
	return preview, nil
}

// ParseBorrowLend reads a borrow/lend CSV, skipping the header line. A row
// whose direction field is the literal SETTLEMENT parses as a settlement,
// anything else as a transaction. Rows with fewer than 8 fields, a
// non-numeric amount, or an unknown direction/settlement type are counted
// invalid and skipped.
func ParseBorrowLend(r io.Reader) (*BorrowLendImportPreview, error) {
	preview := &BorrowLendImportPreview{}
	scanner := bufio.NewScanner(r)

	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		line := scanner.Text()
		preview.TotalRows++

		parts := strings.Split(line, ",")
		if len(parts) < 8 {
			preview.InvalidRows++
			continue
		}

		// Both amount columns must be numeric for either row kind: the
		// export format fills the unused one with 0.
		amount, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			preview.InvalidRows++
			continue
		}
		settlementAmount, err := decimal.NewFromString(strings.TrimSpace(parts[6]))
		if err != nil {
			preview.InvalidRows++
			continue
		}

		personName := parts[0]

		if parts[1] == "SETTLEMENT" {
			settlementType := core.SettlementType(parts[5])
			if !settlementType.IsValid() {
				preview.InvalidRows++
				continue
			}
			preview.Settlements = append(preview.Settlements, PendingSettlement{
				Settlement: core.Settlement{
					TransactionID:  nil,
					Amount:         settlementAmount,
					SettlementType: settlementType,
					Timestamp:      parseCSVTime(parts[7]),
				},
				PersonName: personName,
			})
			continue
		}

		direction := core.Direction(parts[1])
		if !direction.IsValid() {
			preview.InvalidRows++
			continue
		}
		preview.Transactions = append(preview.Transactions, PendingBorrowLend{
			Transaction: core.BorrowLendTransaction{
				Amount:      amount,
				Direction:   direction,
				Description: parts[3],
				Timestamp:   parseCSVTime(parts[4]),
			},
			PersonName: personName,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read borrow/lend csv: %w", err)
	}
	return preview, nil
}
