// Package services provides business logic and orchestration over the bill
// store: CRUD, installment group creation, payment cascades, dashboard
// aggregation and the remote replica poller.
package services

import (
	"context"
	"time"

	"contas/internal/core"
	"contas/internal/storage"
)

// BillInput carries the user-editable fields of a bill.
type BillInput struct {
	Description string
	AmountCents int64
	DueDate     core.Date
	Method      core.PaymentMethod
	Bank        string
	Notes       string
	Frequency   core.Frequency
}

// Contas is the operation surface the transport layer depends on. It is
// implemented by Local (authoritative store) and Edge (optimistic replica
// of an upstream store).
type Contas interface {
	List(ctx context.Context) ([]core.Bill, error)
	Get(ctx context.Context, id string) (core.Bill, error)
	Create(ctx context.Context, in BillInput) (core.Bill, error)
	Update(ctx context.Context, id string, p storage.Patch) (core.Bill, error)
	Delete(ctx context.Context, id string) error
	CreateGroup(ctx context.Context, common GroupCommon, installments []InstallmentInput) ([]core.Bill, error)
	Pay(ctx context.Context, id string, policy CascadePolicy, today time.Time) (CascadeResult, error)
}

// Local composes the store-backed services into the full operation surface.
type Local struct {
	*BillService
	*GroupService
	*PaymentService
}

var _ Contas = Local{}

// NewLocal wires the store-backed services. amqpClient may be nil; bill
// events are then skipped.
func NewLocal(store storage.Store, amqpClient BillEventPublisher) Local {
	return Local{
		BillService:    NewBillService(store, amqpClient),
		GroupService:   NewGroupService(store, amqpClient),
		PaymentService: NewPaymentService(store, amqpClient),
	}
}
