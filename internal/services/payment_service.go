package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contas/internal/core"
	"contas/internal/storage"
)

const (
	// PolicyOnlyThis pays the target installment and touches nothing else.
	PolicyOnlyThis PolicyKind = "ONLY_THIS"
	// PolicyAll pays the target and deletes every future sibling: the rest
	// of the plan is settled in one payment.
	PolicyAll PolicyKind = "ALL"
	// PolicyCount pays the target plus the next k-1 future installments,
	// which are deleted as consumed by the bulk payment.
	PolicyCount PolicyKind = "COUNT"
)

type PolicyKind string

// CascadePolicy selects how a payment propagates across the target's group.
type CascadePolicy struct {
	Kind  PolicyKind
	Count int // only meaningful for PolicyCount
}

func OnlyThis() CascadePolicy     { return CascadePolicy{Kind: PolicyOnlyThis} }
func All() CascadePolicy          { return CascadePolicy{Kind: PolicyAll} }
func CountOf(k int) CascadePolicy { return CascadePolicy{Kind: PolicyCount, Count: k} }

// CascadeResult reports what a payment cascade applied: the paid bill and
// the sibling ids removed by the cascade.
type CascadeResult struct {
	Paid       core.Bill
	DeletedIDs []string
}

// PaymentService executes payment cascades. Against a Store the whole
// cascade is one atomic operation.
type PaymentService struct {
	store  storage.Store
	events BillEventPublisher
}

func NewPaymentService(store storage.Store, events BillEventPublisher) *PaymentService {
	return &PaymentService{store: store, events: events}
}

// Pay marks the target bill paid as of today and applies the cascade
// policy. Validation happens before any mutation; an invalid policy leaves
// the store untouched.
func (s *PaymentService) Pay(ctx context.Context, id string, policy CascadePolicy, today time.Time) (CascadeResult, error) {
	target, err := s.store.Get(ctx, id)
	if err != nil {
		return CascadeResult{}, err
	}

	var deleteIDs []string
	if policy.Kind != PolicyOnlyThis {
		deleteIDs, err = s.cascadeTargets(ctx, target, policy)
		if err != nil {
			return CascadeResult{}, err
		}
	}

	paid := markPaid(target, today)
	if err := s.store.ApplyCascade(ctx, paid, deleteIDs); err != nil {
		return CascadeResult{}, fmt.Errorf("apply cascade: %w", err)
	}

	slog.InfoContext(ctx, "Installment paid",
		"id", paid.ID,
		"policy", string(policy.Kind),
		"deleted", len(deleteIDs))

	if s.events != nil {
		if err := s.events.PublishBillSync(ctx, paid.ID, eventVersion(paid)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync event", "id", paid.ID, "error", err)
		}
		for _, did := range deleteIDs {
			if err := s.events.PublishBillDelete(ctx, did); err != nil {
				slog.ErrorContext(ctx, "Failed to publish delete event", "id", did, "error", err)
			}
		}
	}

	return CascadeResult{Paid: paid, DeletedIDs: deleteIDs}, nil
}

// cascadeTargets resolves which sibling ids the policy consumes. Indices
// below the target are never touched; survivors keep their original
// numbering.
func (s *PaymentService) cascadeTargets(ctx context.Context, target core.Bill, policy CascadePolicy) ([]string, error) {
	if !target.Grouped() {
		return nil, fmt.Errorf("bill %s is not part of an installment group: %w", target.ID, core.ErrGroupConflict)
	}

	siblings, err := s.store.ListByGroup(ctx, target.GroupID)
	if err != nil {
		return nil, fmt.Errorf("list group %s: %w", target.GroupID, err)
	}
	if len(siblings) == 0 {
		return nil, fmt.Errorf("group %s no longer exists: %w", target.GroupID, core.ErrGroupConflict)
	}

	return CascadeTargets(siblings, target.InstallmentIndex, policy)
}

// CascadeTargets picks the future sibling ids a policy deletes, given the
// group members sorted by installment index. Pure; shared with the edge
// replica path.
func CascadeTargets(siblings []core.Bill, targetIndex int, policy CascadePolicy) ([]string, error) {
	var future []core.Bill
	for _, b := range siblings {
		if b.InstallmentIndex > targetIndex {
			future = append(future, b)
		}
	}

	switch policy.Kind {
	case PolicyAll:
		ids := make([]string, 0, len(future))
		for _, b := range future {
			ids = append(ids, b.ID)
		}
		return ids, nil

	case PolicyCount:
		// k covers the target itself plus k-1 future installments; the
		// next-due ones are consumed, never arbitrary picks.
		if policy.Count < 2 || policy.Count > len(future)+1 {
			return nil, fmt.Errorf("count %d with %d future installments: %w",
				policy.Count, len(future), core.ErrCountOutOfRange)
		}
		ids := make([]string, 0, policy.Count-1)
		for _, b := range future[:policy.Count-1] {
			ids = append(ids, b.ID)
		}
		return ids, nil

	default:
		return nil, fmt.Errorf("unknown cascade policy %q", policy.Kind)
	}
}

func markPaid(b core.Bill, today time.Time) core.Bill {
	b.Status = core.StatusPaid
	b.PaymentDate = core.NewDate(today.Year(), int(today.Month()), today.Day())
	return b
}
