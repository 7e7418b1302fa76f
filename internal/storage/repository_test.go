package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"contas/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "contas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b, err := repo.Insert(ctx, core.Bill{
		Description: "ENERGIA ELÉTRICA",
		Amount:      core.Money{Cents: 35000},
		DueDate:     core.NewDate(2025, 12, 10),
		Method:      core.Boleto,
		Bank:        "BANCO DO BRASIL",
		Notes:       "dezembro",
		Frequency:   core.Once,
		Status:      core.StatusPending,
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Description != "ENERGIA ELÉTRICA" || got.Amount.Cents != 35000 {
		t.Errorf("Get() = %+v", got)
	}
	if got.DueDate.String() != "2025-12-10" {
		t.Errorf("Get() due date = %s", got.DueDate)
	}
	if !got.PaymentDate.IsZero() {
		t.Errorf("Get() payment date should be zero for pending bill")
	}

	paidStatus := core.StatusPaid
	payDate := core.NewDate(2025, 12, 5)
	updated, err := repo.Update(ctx, b.ID, Patch{Status: &paidStatus, PaymentDate: &payDate})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Status != core.StatusPaid || updated.PaymentDate.String() != "2025-12-05" {
		t.Errorf("Update() = %+v", updated)
	}

	if _, err := repo.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get(nope) = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_GroupLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var plan []core.Bill
	for idx := 1; idx <= 3; idx++ {
		plan = append(plan, core.Bill{
			Description:      "FINANCIAMENTO",
			Amount:           core.Money{Cents: 10000},
			DueDate:          core.NewDate(2025, idx, 10),
			Method:           core.Pix,
			Status:           core.StatusPending,
			GroupID:          "g-test",
			InstallmentIndex: idx,
			InstallmentCount: 3,
		})
	}

	inserted, err := repo.InsertGroup(ctx, plan)
	if err != nil {
		t.Fatalf("InsertGroup() error = %v", err)
	}
	if len(inserted) != 3 {
		t.Fatalf("InsertGroup() returned %d bills", len(inserted))
	}

	group, err := repo.ListByGroup(ctx, "g-test")
	if err != nil {
		t.Fatalf("ListByGroup() error = %v", err)
	}
	if len(group) != 3 {
		t.Fatalf("ListByGroup() returned %d bills", len(group))
	}

	paid := group[0]
	paid.Status = core.StatusPaid
	paid.PaymentDate = core.NewDate(2025, 1, 10)
	if err := repo.ApplyCascade(ctx, paid, []string{group[1].ID}); err != nil {
		t.Fatalf("ApplyCascade() error = %v", err)
	}

	after, _ := repo.ListByGroup(ctx, "g-test")
	if len(after) != 2 {
		t.Fatalf("group has %d members after cascade, want 2", len(after))
	}
	if after[0].Status != core.StatusPaid {
		t.Error("installment 1 should be paid")
	}
	// survivors keep their original indices, no renumbering
	if after[1].InstallmentIndex != 3 || after[1].InstallmentCount != 3 {
		t.Errorf("survivor numbering = %d/%d, want 3/3",
			after[1].InstallmentIndex, after[1].InstallmentCount)
	}
}
