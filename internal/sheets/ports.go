package sheets

import (
	"context"

	"contas/internal/core"
)

// Ports for outbound adapters.
type (
	// BillWriter appends one bill row to the monthly report sheet.
	BillWriter interface {
		Append(ctx context.Context, b core.Bill) (rowRef string, err error)
	}

	// BillDeleter removes a bill row by id.
	BillDeleter interface {
		DeleteBill(ctx context.Context, id string) error
	}
)
