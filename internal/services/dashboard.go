package services

import (
	"sort"
	"strings"
	"time"

	"contas/internal/core"
)

// MonthStats is the dashboard summary for one calendar month.
type MonthStats struct {
	Total         int
	PaidCount     int
	OverdueCount  int
	ImminentCount int
	PendingCount  int
	TotalCents    int64
	PaidCents     int64
	PendingCents  int64
}

// FilterMonth returns the bills whose due date falls in the given month.
func FilterMonth(bills []core.Bill, year, month int) []core.Bill {
	var out []core.Bill
	for _, b := range bills {
		if b.DueDate.InMonth(year, month) {
			out = append(out, b)
		}
	}
	return out
}

// SortByDueDate orders bills by due date for rendering, id as tiebreaker.
func SortByDueDate(bills []core.Bill) {
	sort.Slice(bills, func(i, j int) bool {
		if !bills[i].DueDate.Equal(bills[j].DueDate.Time) {
			return bills[i].DueDate.Before(bills[j].DueDate.Time)
		}
		return bills[i].ID < bills[j].ID
	})
}

// Aggregate folds one month of bills into dashboard stats. Amounts sum
// unconditionally into TotalCents and split into PaidCents/PendingCents by
// derived state. Single pass, recomputed on every call, no caching.
func Aggregate(bills []core.Bill, year, month int, today time.Time) MonthStats {
	var stats MonthStats
	for _, b := range bills {
		if !b.DueDate.InMonth(year, month) {
			continue
		}
		stats.Total++
		stats.TotalCents += b.Amount.Cents

		switch core.DeriveStatus(b, today) {
		case core.StatusPaid:
			stats.PaidCount++
			stats.PaidCents += b.Amount.Cents
		case core.StatusOverdue:
			stats.OverdueCount++
			stats.PendingCents += b.Amount.Cents
		case core.StatusImminent:
			stats.ImminentCount++
			stats.PendingCents += b.Amount.Cents
		default:
			stats.PendingCount++
			stats.PendingCents += b.Amount.Cents
		}
	}
	return stats
}

// FilterOptions narrows a month's bill list the way the list view does.
// Status filters on the derived state.
type FilterOptions struct {
	Bank   string
	Status core.Status
	Search string
}

// Filter applies the list-view filters on top of a month scope.
func Filter(bills []core.Bill, opts FilterOptions, today time.Time) []core.Bill {
	var out []core.Bill
	for _, b := range bills {
		if opts.Bank != "" && b.Bank != opts.Bank {
			continue
		}
		if opts.Status != "" && core.DeriveStatus(b, today) != opts.Status {
			continue
		}
		if opts.Search != "" && !matchesSearch(b, opts.Search) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func matchesSearch(b core.Bill, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(b.Description), term) ||
		strings.Contains(strings.ToLower(b.Bank), term) ||
		strings.Contains(strings.ToLower(string(b.Method)), term)
}
