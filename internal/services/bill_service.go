package services

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/core"
	"contas/internal/storage"
)

// BillEventPublisher publishes bill events for the report worker. Satisfied
// by *amqp.Client.
type BillEventPublisher interface {
	PublishBillSync(ctx context.Context, id string, version int64) error
	PublishBillDelete(ctx context.Context, id string) error
}

// BillService orchestrates standalone bill operations against the store and
// publishes report events after successful writes.
type BillService struct {
	store  storage.Store
	events BillEventPublisher
}

func NewBillService(store storage.Store, events BillEventPublisher) *BillService {
	return &BillService{store: store, events: events}
}

func (s *BillService) List(ctx context.Context) ([]core.Bill, error) {
	return s.store.List(ctx)
}

func (s *BillService) Get(ctx context.Context, id string) (core.Bill, error) {
	return s.store.Get(ctx, id)
}

// Create validates and persists a new standalone bill, then publishes a sync
// event. Publish failures never fail the request; the bill is already saved.
func (s *BillService) Create(ctx context.Context, in BillInput) (core.Bill, error) {
	b := billFromInput(in)
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}

	saved, err := s.store.Insert(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}

	s.publishSync(ctx, saved)
	return saved, nil
}

// Update applies a partial merge to an existing bill. The merged record is
// validated before anything is written.
func (s *BillService) Update(ctx context.Context, id string, p storage.Patch) (core.Bill, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Bill{}, err
	}
	if err := p.Apply(current).Validate(); err != nil {
		return core.Bill{}, err
	}

	updated, err := s.store.Update(ctx, id, p)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill: %w", err)
	}

	s.publishSync(ctx, updated)
	return updated, nil
}

// Delete removes a bill and publishes a delete event.
func (s *BillService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if s.events == nil {
		return nil
	}
	if err := s.events.PublishBillDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete event",
			"id", id, "error", err)
		// Don't fail the request - the bill is already deleted locally
	}
	return nil
}

func (s *BillService) publishSync(ctx context.Context, b core.Bill) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBillSync(ctx, b.ID, eventVersion(b)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event",
			"id", b.ID, "error", err)
	}
}

// eventVersion orders sync events for one record. It is the record's
// last-modified time in Unix milliseconds; consumers drop anything older
// than what they last applied.
func eventVersion(b core.Bill) int64 {
	return b.UpdatedAt.UnixMilli()
}

func billFromInput(in BillInput) core.Bill {
	freq := in.Frequency
	if freq == "" {
		freq = core.Once
	}
	return core.Bill{
		Description: core.NormalizeDescription(in.Description),
		Amount:      core.Money{Cents: in.AmountCents},
		DueDate:     in.DueDate,
		Method:      in.Method,
		Bank:        in.Bank,
		Notes:       in.Notes,
		Frequency:   freq,
		Status:      core.StatusPending,
	}
}
