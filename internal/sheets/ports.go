package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseMirror appends expense rows to an external sheet.
	ExpenseMirror interface {
		AppendExpense(ctx context.Context, t core.ExpenseTransaction, categoryName string) (rowRef string, err error)
	}
)
