package services

import (
	"testing"
	"time"

	"contas/internal/core"
)

func septBill(id string, day int, cents int64, paid bool) core.Bill {
	b := core.Bill{
		ID:          id,
		Description: "BILL " + id,
		Amount:      core.Money{Cents: cents},
		DueDate:     core.NewDate(2026, 9, day),
		Method:      core.Pix,
		Bank:        "NUBANK",
		Frequency:   core.Monthly,
		Status:      core.StatusPending,
	}
	if paid {
		b.Status = core.StatusPaid
		b.PaymentDate = core.NewDate(2026, 9, 1)
	}
	return b
}

func TestAggregate(t *testing.T) {
	today := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)

	t.Run("paid and overdue split", func(t *testing.T) {
		bills := []core.Bill{
			septBill("a", 3, 5000, true),  // paid 50.00
			septBill("b", 4, 3000, false), // due yesterday: overdue 30.00
		}
		stats := Aggregate(bills, 2026, 9, today)

		if stats.Total != 2 {
			t.Errorf("Total = %d, want 2", stats.Total)
		}
		if stats.PaidCount != 1 || stats.OverdueCount != 1 {
			t.Errorf("PaidCount = %d, OverdueCount = %d, want 1 and 1", stats.PaidCount, stats.OverdueCount)
		}
		if stats.TotalCents != 8000 {
			t.Errorf("TotalCents = %d, want 8000", stats.TotalCents)
		}
		if stats.PaidCents != 5000 || stats.PendingCents != 3000 {
			t.Errorf("PaidCents = %d, PendingCents = %d, want 5000 and 3000", stats.PaidCents, stats.PendingCents)
		}
	})

	t.Run("derived buckets", func(t *testing.T) {
		bills := []core.Bill{
			septBill("a", 5, 1000, false),  // due today: overdue
			septBill("b", 15, 1000, false), // 10 days out: imminent
			septBill("c", 30, 1000, false), // 25 days out: pending
			septBill("d", 20, 1000, true),  // paid regardless of date
		}
		stats := Aggregate(bills, 2026, 9, today)

		if stats.OverdueCount != 1 || stats.ImminentCount != 1 || stats.PendingCount != 1 || stats.PaidCount != 1 {
			t.Errorf("buckets = overdue %d, imminent %d, pending %d, paid %d; want 1 each",
				stats.OverdueCount, stats.ImminentCount, stats.PendingCount, stats.PaidCount)
		}
	})

	t.Run("other months excluded", func(t *testing.T) {
		bills := []core.Bill{
			septBill("a", 10, 5000, false),
			{ID: "oct", Description: "OCT", Amount: core.Money{Cents: 9000},
				DueDate: core.NewDate(2026, 10, 10), Status: core.StatusPending},
		}
		stats := Aggregate(bills, 2026, 9, today)
		if stats.Total != 1 || stats.TotalCents != 5000 {
			t.Errorf("Total = %d, TotalCents = %d; want 1 and 5000", stats.Total, stats.TotalCents)
		}
	})

	t.Run("empty month", func(t *testing.T) {
		stats := Aggregate(nil, 2026, 9, today)
		if stats != (MonthStats{}) {
			t.Errorf("expected zero stats, got %+v", stats)
		}
	})
}

func TestFilterMonth(t *testing.T) {
	bills := []core.Bill{
		septBill("a", 10, 5000, false),
		{ID: "oct", DueDate: core.NewDate(2026, 10, 1)},
		{ID: "lastyear", DueDate: core.NewDate(2025, 9, 10)},
	}
	got := FilterMonth(bills, 2026, 9)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only bill a, got %v", got)
	}
}

func TestSortByDueDate(t *testing.T) {
	bills := []core.Bill{
		septBill("b", 20, 1000, false),
		septBill("c", 10, 1000, false),
		septBill("a", 20, 1000, false),
	}
	SortByDueDate(bills)
	if bills[0].ID != "c" || bills[1].ID != "a" || bills[2].ID != "b" {
		t.Errorf("unexpected order: %s, %s, %s", bills[0].ID, bills[1].ID, bills[2].ID)
	}
}

func TestFilter(t *testing.T) {
	today := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	bills := []core.Bill{
		septBill("a", 3, 5000, false), // overdue, NUBANK
		septBill("b", 25, 3000, false),
		{ID: "c", Description: "INTERNET", Amount: core.Money{Cents: 8000},
			DueDate: core.NewDate(2026, 9, 25), Method: core.Boleto, Bank: "ITAU",
			Frequency: core.Monthly, Status: core.StatusPending},
	}

	t.Run("by bank", func(t *testing.T) {
		got := Filter(bills, FilterOptions{Bank: "ITAU"}, today)
		if len(got) != 1 || got[0].ID != "c" {
			t.Errorf("expected only c, got %v", got)
		}
	})

	t.Run("by derived status", func(t *testing.T) {
		got := Filter(bills, FilterOptions{Status: core.StatusOverdue}, today)
		if len(got) != 1 || got[0].ID != "a" {
			t.Errorf("expected only a, got %v", got)
		}
	})

	t.Run("search matches description bank and method", func(t *testing.T) {
		if got := Filter(bills, FilterOptions{Search: "internet"}, today); len(got) != 1 {
			t.Errorf("description search: expected 1, got %d", len(got))
		}
		if got := Filter(bills, FilterOptions{Search: "nubank"}, today); len(got) != 2 {
			t.Errorf("bank search: expected 2, got %d", len(got))
		}
		if got := Filter(bills, FilterOptions{Search: "boleto"}, today); len(got) != 1 {
			t.Errorf("method search: expected 1, got %d", len(got))
		}
	})

	t.Run("filters combine", func(t *testing.T) {
		got := Filter(bills, FilterOptions{Bank: "NUBANK", Status: core.StatusPending}, today)
		if len(got) != 1 || got[0].ID != "b" {
			t.Errorf("expected only b, got %v", got)
		}
	})
}
