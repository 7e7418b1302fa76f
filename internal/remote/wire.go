package remote

import (
	"fmt"
	"time"

	"contas/internal/core"
)

// wireBill is the JSON shape the upstream API speaks. Dates travel as
// YYYY-MM-DD strings; timestamps as RFC 3339.
type wireBill struct {
	ID               string `json:"id"`
	Description      string `json:"description"`
	AmountCents      int64  `json:"amount_cents"`
	DueDate          string `json:"due_date"`
	PaymentDate      string `json:"payment_date,omitempty"`
	Method           string `json:"method"`
	Bank             string `json:"bank"`
	Notes            string `json:"notes,omitempty"`
	Frequency        string `json:"frequency"`
	Status           string `json:"status"`
	GroupID          string `json:"group_id,omitempty"`
	InstallmentIndex int    `json:"installment_index,omitempty"`
	InstallmentCount int    `json:"installment_count,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

func toWire(b core.Bill) wireBill {
	return wireBill{
		ID:               b.ID,
		Description:      b.Description,
		AmountCents:      b.Amount.Cents,
		DueDate:          b.DueDate.String(),
		PaymentDate:      b.PaymentDate.String(),
		Method:           string(b.Method),
		Bank:             b.Bank,
		Notes:            b.Notes,
		Frequency:        string(b.Frequency),
		Status:           string(b.Status),
		GroupID:          b.GroupID,
		InstallmentIndex: b.InstallmentIndex,
		InstallmentCount: b.InstallmentCount,
	}
}

func (w wireBill) toBill() (core.Bill, error) {
	due, err := core.ParseDate(w.DueDate)
	if err != nil {
		return core.Bill{}, fmt.Errorf("bill %s: bad due date %q: %w", w.ID, w.DueDate, err)
	}
	b := core.Bill{
		ID:               w.ID,
		Description:      w.Description,
		Amount:           core.Money{Cents: w.AmountCents},
		DueDate:          due,
		Method:           core.PaymentMethod(w.Method),
		Bank:             w.Bank,
		Notes:            w.Notes,
		Frequency:        core.Frequency(w.Frequency),
		Status:           core.Status(w.Status),
		GroupID:          w.GroupID,
		InstallmentIndex: w.InstallmentIndex,
		InstallmentCount: w.InstallmentCount,
	}
	if w.PaymentDate != "" {
		pd, err := core.ParseDate(w.PaymentDate)
		if err != nil {
			return core.Bill{}, fmt.Errorf("bill %s: bad payment date %q: %w", w.ID, w.PaymentDate, err)
		}
		b.PaymentDate = pd
	}
	if w.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
			b.CreatedAt = t
		}
	}
	if w.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, w.UpdatedAt); err == nil {
			b.UpdatedAt = t
		}
	}
	return b, nil
}

func fromWire(ws []wireBill) ([]core.Bill, error) {
	bills := make([]core.Bill, 0, len(ws))
	for _, w := range ws {
		b, err := w.toBill()
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, nil
}
