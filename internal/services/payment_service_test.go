package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"contas/internal/core"
	"contas/internal/storage"
)

func seedGroup(t *testing.T, store storage.Store, amounts []int64) []core.Bill {
	t.Helper()

	installments := make([]InstallmentInput, 0, len(amounts))
	for i, cents := range amounts {
		installments = append(installments, InstallmentInput{
			AmountCents: cents,
			DueDate:     core.NewDate(2026, 9+i, 10),
		})
	}
	bills, err := BuildGroup(GroupCommon{Description: "TV", Method: core.Card, Bank: "NUBANK"}, installments)
	if err != nil {
		t.Fatalf("BuildGroup() error = %v", err)
	}
	saved, err := store.InsertGroup(context.Background(), bills)
	if err != nil {
		t.Fatalf("InsertGroup() error = %v", err)
	}
	return saved
}

func TestPayOnlyThis(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewPaymentService(store, nil)
	group := seedGroup(t, store, []int64{10000, 10000, 10000})

	today := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	res, err := svc.Pay(ctx, group[0].ID, OnlyThis(), today)
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if res.Paid.Status != core.StatusPaid {
		t.Errorf("expected PAID, got %s", res.Paid.Status)
	}
	if res.Paid.PaymentDate.String() != "2026-09-01" {
		t.Errorf("expected payment date 2026-09-01, got %s", res.Paid.PaymentDate)
	}
	if len(res.DeletedIDs) != 0 {
		t.Errorf("ONLY_THIS must not delete siblings, got %v", res.DeletedIDs)
	}

	members, _ := store.ListByGroup(ctx, group[0].GroupID)
	if len(members) != 3 {
		t.Errorf("expected 3 surviving members, got %d", len(members))
	}
}

func TestPayAllDeletesEveryFutureSibling(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewPaymentService(store, nil)
	group := seedGroup(t, store, []int64{10000, 10000, 10000, 10000})

	// Pay installment 2 with ALL: 3 and 4 are consumed, 1 is untouched.
	res, err := svc.Pay(ctx, group[1].ID, All(), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if len(res.DeletedIDs) != 2 {
		t.Fatalf("expected 2 deletions, got %v", res.DeletedIDs)
	}

	members, _ := store.ListByGroup(ctx, group[0].GroupID)
	if len(members) != 2 {
		t.Fatalf("expected members 1 and 2 to survive, got %d", len(members))
	}
	if members[0].InstallmentIndex != 1 || members[1].InstallmentIndex != 2 {
		t.Errorf("expected surviving indices 1 and 2, got %d and %d",
			members[0].InstallmentIndex, members[1].InstallmentIndex)
	}
	if members[1].Status != core.StatusPaid {
		t.Errorf("expected installment 2 paid, got %s", members[1].Status)
	}
	if members[0].Status != core.StatusPending {
		t.Errorf("expected installment 1 untouched, got %s", members[0].Status)
	}
}

func TestPayCountConsumesNextDueInstallments(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewPaymentService(store, nil)
	group := seedGroup(t, store, []int64{10000, 10000, 10000})

	// COUNT(2) on installment 1: installment 2 is consumed, installment 3
	// survives with its original numbering.
	res, err := svc.Pay(ctx, group[0].ID, CountOf(2), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if len(res.DeletedIDs) != 1 || res.DeletedIDs[0] != group[1].ID {
		t.Fatalf("expected deletion of installment 2, got %v", res.DeletedIDs)
	}

	survivor, err := store.Get(ctx, group[2].ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if survivor.InstallmentIndex != 3 || survivor.InstallmentCount != 3 {
		t.Errorf("expected survivor to stay 3/3, got %d/%d",
			survivor.InstallmentIndex, survivor.InstallmentCount)
	}
	if survivor.Status != core.StatusPending {
		t.Errorf("expected survivor untouched, got %s", survivor.Status)
	}
}

func TestPayCountOutOfRangeLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewPaymentService(store, nil)
	group := seedGroup(t, store, []int64{10000, 10000, 10000})

	for _, k := range []int{1, 4, 0, -1} {
		_, err := svc.Pay(ctx, group[0].ID, CountOf(k), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
		if !errors.Is(err, core.ErrCountOutOfRange) {
			t.Errorf("CountOf(%d): expected ErrCountOutOfRange, got %v", k, err)
		}
	}

	members, _ := store.ListByGroup(ctx, group[0].GroupID)
	if len(members) != 3 {
		t.Fatalf("expected all 3 members intact, got %d", len(members))
	}
	for _, m := range members {
		if m.Status != core.StatusPending {
			t.Errorf("expected member %d untouched, got %s", m.InstallmentIndex, m.Status)
		}
	}
}

func TestPayCascadeOnStandaloneBill(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc := NewPaymentService(store, nil)

	saved, err := store.Insert(ctx, core.Bill{
		Description: "LUZ",
		Amount:      core.Money{Cents: 5000},
		DueDate:     core.NewDate(2026, 9, 10),
		Method:      core.Pix,
		Bank:        "NUBANK",
		Frequency:   core.Monthly,
		Status:      core.StatusPending,
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if _, err := svc.Pay(ctx, saved.ID, All(), time.Now()); !errors.Is(err, core.ErrGroupConflict) {
		t.Errorf("ALL on standalone bill: expected ErrGroupConflict, got %v", err)
	}

	// ONLY_THIS is fine for standalone bills.
	res, err := svc.Pay(ctx, saved.ID, OnlyThis(), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if res.Paid.Status != core.StatusPaid {
		t.Errorf("expected PAID, got %s", res.Paid.Status)
	}
}

func TestPayUnknownBill(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewPaymentService(store, nil)

	_, err := svc.Pay(context.Background(), "missing", OnlyThis(), time.Now())
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCascadeTargetsLastInstallment(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewPaymentService(store, nil)
	group := seedGroup(t, store, []int64{10000, 10000})

	// ALL on the last installment has no future siblings: nothing deleted.
	res, err := svc.Pay(context.Background(), group[1].ID, All(), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if len(res.DeletedIDs) != 0 {
		t.Errorf("expected no deletions, got %v", res.DeletedIDs)
	}
}
