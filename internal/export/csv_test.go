package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func millis(s string) int64 {
	t, err := time.ParseInLocation(csvTimeLayout, s, time.Local)
	if err != nil {
		panic(err)
	}
	return core.Millis(t)
}

func TestWriteExpenses(t *testing.T) {
	catID := int64(7)
	transactions := []core.ExpenseTransaction{
		{Amount: decimal.NewFromFloat(12.5), Type: core.Expense, CategoryID: &catID,
			Description: "lunch, with drinks", Timestamp: millis("2024-03-01 12:30:00")},
		{Amount: decimal.NewFromInt(2000), Type: core.Income,
			Description: "salary", Timestamp: millis("2024-03-02 09:00:00")},
	}

	var buf bytes.Buffer
	if err := WriteExpenses(&buf, transactions, map[int64]string{catID: "Food"}); err != nil {
		t.Fatalf("WriteExpenses: %v", err)
	}

	want := "Date,Type,Amount,Category,Description\n" +
		"2024-03-01 12:30:00,EXPENSE,12.5,Food,lunch  with drinks\n" +
		"2024-03-02 09:00:00,INCOME,2000,,salary\n"
	if buf.String() != want {
		t.Errorf("WriteExpenses output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteBorrowLendRowShapes(t *testing.T) {
	transactions := []core.BorrowLendTransaction{
		{PersonID: 1, Amount: decimal.NewFromInt(100), Direction: core.Lent,
			Description: "concert tickets", Timestamp: millis("2024-02-10 18:00:00")},
	}
	settlements := []core.Settlement{
		{PersonID: 1, Amount: decimal.NewFromInt(40), SettlementType: core.Partial,
			Timestamp: millis("2024-02-20 10:00:00")},
	}

	var buf bytes.Buffer
	if err := WriteBorrowLend(&buf, map[int64]string{1: "Alice"}, transactions, settlements); err != nil {
		t.Fatalf("WriteBorrowLend: %v", err)
	}

	want := borrowLendCSVHeader + "\n" +
		"Alice,LENT,100,concert tickets,2024-02-10 18:00:00,NONE,0,N/A\n" +
		"Alice,SETTLEMENT,0,Settlement Payment,N/A,PARTIAL,40,2024-02-20 10:00:00\n"
	if buf.String() != want {
		t.Errorf("WriteBorrowLend output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteBorrowLendUnknownPerson(t *testing.T) {
	transactions := []core.BorrowLendTransaction{
		{PersonID: 99, Amount: decimal.NewFromInt(5), Direction: core.Borrowed,
			Timestamp: millis("2024-02-10 18:00:00")},
	}

	var buf bytes.Buffer
	if err := WriteBorrowLend(&buf, map[int64]string{}, transactions, nil); err != nil {
		t.Fatalf("WriteBorrowLend: %v", err)
	}
	if !strings.Contains(buf.String(), "Unknown,BORROWED") {
		t.Errorf("missing Unknown placeholder in:\n%s", buf.String())
	}
}

func TestParseExpensesRoundTrip(t *testing.T) {
	catID := int64(3)
	original := []core.ExpenseTransaction{
		{Amount: decimal.NewFromFloat(12.5), Type: core.Expense, CategoryID: &catID,
			Description: "lunch", Timestamp: millis("2024-03-01 12:30:00")},
		{Amount: decimal.NewFromFloat(0.99), Type: core.Expense, CategoryID: &catID,
			Description: "gum", Timestamp: millis("2024-03-02 08:00:00")},
		{Amount: decimal.NewFromInt(2000), Type: core.Income,
			Description: "salary", Timestamp: millis("2024-03-03 09:00:00")},
	}

	var buf bytes.Buffer
	if err := WriteExpenses(&buf, original, map[int64]string{catID: "Food"}); err != nil {
		t.Fatalf("WriteExpenses: %v", err)
	}

	preview, err := ParseExpenses(&buf)
	if err != nil {
		t.Fatalf("ParseExpenses: %v", err)
	}

	if preview.TotalRows != len(original) || preview.InvalidRows != 0 {
		t.Fatalf("preview counts = %d/%d invalid, want %d/0", preview.TotalRows, preview.InvalidRows, len(original))
	}
	if len(preview.Transactions) != len(original) {
		t.Fatalf("parsed %d transactions, want %d", len(preview.Transactions), len(original))
	}

	for i, got := range preview.Transactions {
		want := original[i]
		if !got.Amount.Equal(want.Amount) {
			t.Errorf("row %d amount = %s, want %s", i, got.Amount, want.Amount)
		}
		if got.Type != want.Type {
			t.Errorf("row %d type = %s, want %s", i, got.Type, want.Type)
		}
		if got.Description != want.Description {
			t.Errorf("row %d description = %q, want %q", i, got.Description, want.Description)
		}
		if got.Timestamp != want.Timestamp {
			t.Errorf("row %d timestamp = %d, want %d", i, got.Timestamp, want.Timestamp)
		}
		if got.CategoryID != nil {
			t.Errorf("row %d category id resolved before confirmation", i)
		}
	}
	// Category carried by name, not id.
	if preview.CategoryNames[0] != "Food" || preview.CategoryNames[2] != "" {
		t.Errorf("category names = %v, want [Food Food ]", preview.CategoryNames)
	}
}

func TestParseExpensesMalformedRowTolerance(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(expenseCSVHeader + "\n")
	for i := 0; i < 7; i++ {
		sb.WriteString("2024-03-01 12:00:00,EXPENSE,10,Food,row\n")
	}
	sb.WriteString("too,short\n")
	sb.WriteString("also,too,short\n")
	sb.WriteString("\n")

	preview, err := ParseExpenses(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ParseExpenses: %v", err)
	}
	if preview.TotalRows != 10 {
		t.Errorf("TotalRows = %d, want 10", preview.TotalRows)
	}
	if preview.InvalidRows != 3 {
		t.Errorf("InvalidRows = %d, want 3", preview.InvalidRows)
	}
	if len(preview.Transactions) != 7 {
		t.Errorf("parsed %d transactions, want 7", len(preview.Transactions))
	}
}

func TestParseExpensesBadAmountIsInvalidRow(t *testing.T) {
	input := expenseCSVHeader + "\n" +
		"2024-03-01 12:00:00,EXPENSE,abc,Food,bad amount\n" +
		"2024-03-01 12:00:00,EXPENSE,10,Food,good\n"

	preview, err := ParseExpenses(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseExpenses: %v", err)
	}
	if preview.InvalidRows != 1 || len(preview.Transactions) != 1 {
		t.Errorf("got %d invalid / %d parsed, want 1/1", preview.InvalidRows, len(preview.Transactions))
	}
}

func TestParseExpensesBadDateFallsBackToNow(t *testing.T) {
	fixed := millis("2024-06-15 10:00:00")
	restore := nowMillis
	nowMillis = func() int64 { return fixed }
	defer func() { nowMillis = restore }()

	input := expenseCSVHeader + "\n" +
		"not-a-date,EXPENSE,10,Food,fuzzy date\n"

	preview, err := ParseExpenses(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseExpenses: %v", err)
	}
	if preview.InvalidRows != 0 {
		t.Fatalf("bad date counted as invalid row")
	}
	if got := preview.Transactions[0].Timestamp; got != fixed {
		t.Errorf("fallback timestamp = %d, want %d", got, fixed)
	}
}

func TestParseBorrowLendDiscriminatesRowKinds(t *testing.T) {
	input := borrowLendCSVHeader + "\n" +
		"Alice,LENT,100,tickets,2024-02-10 18:00:00,NONE,0,N/A\n" +
		"Bob,BORROWED,30,cash,2024-02-11 09:00:00,NONE,0,N/A\n" +
		"Alice,SETTLEMENT,0,Settlement Payment,N/A,PARTIAL,40,2024-02-20 10:00:00\n" +
		"Carol,SETTLEMENT,0,Settlement Payment,N/A,FULL,15,2024-02-21 10:00:00\n" +
		"broken,row\n"

	preview, err := ParseBorrowLend(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseBorrowLend: %v", err)
	}

	if preview.TotalRows != 5 || preview.InvalidRows != 1 {
		t.Fatalf("counts = %d total / %d invalid, want 5/1", preview.TotalRows, preview.InvalidRows)
	}
	if len(preview.Transactions) != 2 || len(preview.Settlements) != 2 {
		t.Fatalf("parsed %d transactions / %d settlements, want 2/2",
			len(preview.Transactions), len(preview.Settlements))
	}

	tx := preview.Transactions[0]
	if tx.PersonName != "Alice" || tx.Transaction.Direction != core.Lent || !tx.Transaction.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("first transaction = %+v", tx)
	}

	sett := preview.Settlements[0]
	if sett.PersonName != "Alice" || sett.Settlement.SettlementType != core.Partial {
		t.Errorf("first settlement = %+v", sett)
	}
	if !sett.Settlement.Amount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("settlement amount = %s, want 40", sett.Settlement.Amount)
	}
	if sett.Settlement.TransactionID != nil {
		t.Error("imported settlement should not be tied to a transaction")
	}
	if sett.Settlement.Timestamp != millis("2024-02-20 10:00:00") {
		t.Errorf("settlement timestamp = %d", sett.Settlement.Timestamp)
	}
}

func TestBorrowLendCSVRoundTrip(t *testing.T) {
	transactions := []core.BorrowLendTransaction{
		{PersonID: 1, Amount: decimal.NewFromFloat(99.95), Direction: core.Lent,
			Description: "loan", Timestamp: millis("2024-01-05 08:00:00")},
	}
	settlements := []core.Settlement{
		{PersonID: 1, Amount: decimal.NewFromFloat(50.5), SettlementType: core.Full,
			Timestamp: millis("2024-01-06 08:00:00")},
	}

	var buf bytes.Buffer
	if err := WriteBorrowLend(&buf, map[int64]string{1: "Alice"}, transactions, settlements); err != nil {
		t.Fatalf("WriteBorrowLend: %v", err)
	}
	preview, err := ParseBorrowLend(&buf)
	if err != nil {
		t.Fatalf("ParseBorrowLend: %v", err)
	}
	if preview.InvalidRows != 0 {
		t.Fatalf("round trip produced %d invalid rows", preview.InvalidRows)
	}
	if !preview.Transactions[0].Transaction.Amount.Equal(decimal.NewFromFloat(99.95)) {
		t.Errorf("transaction amount = %s", preview.Transactions[0].Transaction.Amount)
	}
	if !preview.Settlements[0].Settlement.Amount.Equal(decimal.NewFromFloat(50.5)) {
		t.Errorf("settlement amount = %s", preview.Settlements[0].Settlement.Amount)
	}
}
