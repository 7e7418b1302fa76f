package services

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/core"
	"contas/internal/storage"

	"github.com/google/uuid"
)

// GroupCommon holds the fields shared by every installment of a plan.
// They are write-once at group creation.
type GroupCommon struct {
	Description string
	Method      core.PaymentMethod
	Bank        string
	Notes       string
	Frequency   core.Frequency
}

// InstallmentInput is the per-installment part of a plan: its own amount
// and due date.
type InstallmentInput struct {
	AmountCents int64
	DueDate     core.Date
}

// GroupService turns one "N installments" intent into N persisted bills
// sharing a freshly generated group id.
type GroupService struct {
	store  storage.Store
	events BillEventPublisher
}

func NewGroupService(store storage.Store, events BillEventPublisher) *GroupService {
	return &GroupService{store: store, events: events}
}

// CreateGroup validates the whole plan eagerly and inserts all installments
// atomically. A single "installment" is not a group; callers model it as a
// standalone bill.
func (s *GroupService) CreateGroup(ctx context.Context, common GroupCommon, installments []InstallmentInput) ([]core.Bill, error) {
	bills, err := BuildGroup(common, installments)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.InsertGroup(ctx, bills)
	if err != nil {
		return nil, fmt.Errorf("save installment group: %w", err)
	}

	slog.InfoContext(ctx, "Installment group created",
		"group_id", saved[0].GroupID,
		"installments", len(saved),
		"description", saved[0].Description)

	if s.events != nil {
		for _, b := range saved {
			if err := s.events.PublishBillSync(ctx, b.ID, eventVersion(b)); err != nil {
				slog.ErrorContext(ctx, "Failed to publish sync event",
					"id", b.ID, "error", err)
			}
		}
	}

	return saved, nil
}

// BuildGroup validates a plan and materializes its bills with a new group
// id, contiguous indices 1..N and installment_count N on every member. The
// first failing installment aborts the whole plan; no partial output.
func BuildGroup(common GroupCommon, installments []InstallmentInput) ([]core.Bill, error) {
	if len(installments) < 2 {
		return nil, core.ErrGroupTooSmall
	}

	groupID := uuid.NewString()
	freq := common.Frequency
	if freq == "" {
		freq = core.Monthly
	}

	bills := make([]core.Bill, 0, len(installments))
	for i, in := range installments {
		b := core.Bill{
			Description:      core.NormalizeDescription(common.Description),
			Amount:           core.Money{Cents: in.AmountCents},
			DueDate:          in.DueDate,
			Method:           common.Method,
			Bank:             common.Bank,
			Notes:            common.Notes,
			Frequency:        freq,
			Status:           core.StatusPending,
			GroupID:          groupID,
			InstallmentIndex: i + 1,
			InstallmentCount: len(installments),
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("installment %d: %w", i+1, err)
		}
		bills = append(bills, b)
	}

	return bills, nil
}
