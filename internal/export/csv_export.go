// Package export holds the file codecs: line-oriented CSV for the two
// ledgers and the full-state JSON snapshot.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"budget/internal/core"
)

// CSV timestamp layout shared by export and import.
const csvTimeLayout = "2006-01-02 15:04:05"

const (
	expenseCSVHeader    = "Date,Type,Amount,Category,Description"
	borrowLendCSVHeader = "Person Name,Direction,Amount,Description,Transaction Date,Settlement Type,Settlement Amount,Settlement Date"
)

func formatCSVTime(ms int64) string {
	return core.FromMillis(ms).Format(csvTimeLayout)
}

// flattenCommas keeps the format comma-delimited without quoting: literal
// commas inside free text become spaces.
func flattenCommas(s string) string {
	return strings.ReplaceAll(s, ",", " ")
}

// WriteExpenses emits the expense ledger as CSV. categoryNames maps category
// ids to display names; INCOME rows and unresolved ids get a blank category
// column.
func WriteExpenses(w io.Writer, transactions []core.ExpenseTransaction, categoryNames map[int64]string) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, expenseCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range transactions {
		category := ""
		if t.Type == core.Expense && t.CategoryID != nil {
			category = categoryNames[*t.CategoryID]
		}
		_, err := fmt.Fprintf(bw, "%s,%s,%s,%s,%s\n",
			formatCSVTime(t.Timestamp),
			t.Type,
			t.Amount.String(),
			category,
			flattenCommas(t.Description),
		)
		if err != nil {
			return fmt.Errorf("write expense row: %w", err)
		}
	}
	return bw.Flush()
}

// WriteBorrowLend emits the borrow/lend ledger as CSV. Transactions and
// settlements become separate, uncorrelated rows: transaction rows carry
// NONE,0,N/A in the settlement columns, settlement rows carry
// SETTLEMENT,0,Settlement Payment,N/A in the transaction columns.
func WriteBorrowLend(w io.Writer, personNames map[int64]string, transactions []core.BorrowLendTransaction, settlements []core.Settlement) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, borrowLendCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	personName := func(id int64) string {
		if name, ok := personNames[id]; ok {
			return name
		}
		return "Unknown"
	}

	for _, t := range transactions {
		_, err := fmt.Fprintf(bw, "%s,%s,%s,%s,%s,NONE,0,N/A\n",
			personName(t.PersonID),
			t.Direction,
			t.Amount.String(),
			flattenCommas(t.Description),
			formatCSVTime(t.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("write transaction row: %w", err)
		}
	}

	for _, s := range settlements {
		_, err := fmt.Fprintf(bw, "%s,SETTLEMENT,0,Settlement Payment,N/A,%s,%s,%s\n",
			personName(s.PersonID),
			s.SettlementType,
			s.Amount.String(),
			formatCSVTime(s.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("write settlement row: %w", err)
		}
	}
	return bw.Flush()
}

// nowMillis is swappable in tests that pin the date-parse fallback.
var nowMillis = func() int64 { return core.Millis(time.Now()) }
