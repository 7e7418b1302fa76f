// Package storage provides the bill record store abstraction and its
// SQLite and in-memory implementations.
package storage

import (
	"context"

	"contas/internal/core"
)

// Patch is a partial update. Nil fields are left untouched; Update is a
// merge, never a full replace.
type Patch struct {
	Description *string
	AmountCents *int64
	DueDate     *core.Date
	PaymentDate *core.Date
	Method      *core.PaymentMethod
	Bank        *string
	Notes       *string
	Frequency   *core.Frequency
	Status      *core.Status
}

// Apply merges the patch into b. Clearing the payment date is expressed by
// patching it with the zero Date.
func (p Patch) Apply(b core.Bill) core.Bill {
	if p.Description != nil {
		b.Description = core.NormalizeDescription(*p.Description)
	}
	if p.AmountCents != nil {
		b.Amount = core.Money{Cents: *p.AmountCents}
	}
	if p.DueDate != nil {
		b.DueDate = *p.DueDate
	}
	if p.PaymentDate != nil {
		b.PaymentDate = *p.PaymentDate
	}
	if p.Method != nil {
		b.Method = *p.Method
	}
	if p.Bank != nil {
		b.Bank = *p.Bank
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.Frequency != nil {
		b.Frequency = *p.Frequency
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	return b
}

// Store is the bill record store. All operations address records by exact
// id; GroupIndex-style access goes through ListByGroup.
type Store interface {
	// List returns every bill in the store.
	List(ctx context.Context) ([]core.Bill, error)

	// Get returns the bill with the given id or core.ErrNotFound.
	Get(ctx context.Context, id string) (core.Bill, error)

	// Insert persists a new bill. The store assigns the id and returns the
	// stored record.
	Insert(ctx context.Context, b core.Bill) (core.Bill, error)

	// Update applies a partial merge to an existing bill.
	Update(ctx context.Context, id string, p Patch) (core.Bill, error)

	// Delete removes the bill with the given id or returns core.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ListByGroup returns all members of an installment group sorted by
	// installment index. An unknown group yields an empty slice.
	ListByGroup(ctx context.Context, groupID string) ([]core.Bill, error)

	// InsertGroup persists all bills of a new installment plan in one
	// transaction. Either every row is written or none is.
	InsertGroup(ctx context.Context, bills []core.Bill) ([]core.Bill, error)

	// ApplyCascade atomically marks one bill paid and deletes the given
	// sibling ids. Either the whole cascade applies or none of it does.
	ApplyCascade(ctx context.Context, paid core.Bill, deleteIDs []string) error

	// Close releases any resources held by the store.
	Close() error
}
