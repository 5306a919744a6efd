package memory

import (
	"context"
	"fmt"
	"sync"

	"budget/internal/core"
)

// Mirror is an in-memory stand-in for a spreadsheet, used in tests and when
// no Google Sheet is configured.
type Mirror struct {
	mu   sync.Mutex
	rows []Row
}

type Row struct {
	Transaction  core.ExpenseTransaction
	CategoryName string
}

func New() *Mirror {
	return &Mirror{}
}

// AppendExpense stores the row and returns a synthetic reference.
func (m *Mirror) AppendExpense(_ context.Context, t core.ExpenseTransaction, categoryName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, Row{Transaction: t, CategoryName: categoryName})
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (m *Mirror) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}
