// Package core holds the bill domain model and the status derivation rules.
//
// This file implements the lifecycle state derivation: the persisted record
// only distinguishes PENDING from PAID, the display state (OVERDUE, IMMINENT)
// is computed from the due date on every read.
package core

import "time"

// ImminentWindowDays is the look-ahead window for the IMMINENT state.
const ImminentWindowDays = 15

// DeriveStatus maps a bill and a reference date to its lifecycle state.
//
// Payment is sticky: a paid bill is PAID no matter how its due date relates
// to today. For unpaid bills the boundary is inclusive: a bill due today is
// already OVERDUE. Pure and total; never performs I/O.
func DeriveStatus(b Bill, today time.Time) Status {
	if b.Status == StatusPaid {
		return StatusPaid
	}

	days := daysUntil(today, b.DueDate.Time)
	switch {
	case days <= 0:
		return StatusOverdue
	case days <= ImminentWindowDays:
		return StatusImminent
	default:
		return StatusPending
	}
}

// daysUntil returns the whole calendar days from today to due, with the
// time of day stripped from both sides.
func daysUntil(today, due time.Time) int {
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(t) / (24 * time.Hour))
}
