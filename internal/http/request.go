// Package http provides HTTP server and handler implementations.
//
// This file holds the wire DTOs and request parsing helpers shared by the
// bill handlers.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"contas/internal/core"
	"contas/internal/services"
	"contas/internal/storage"
)

// billJSON is the wire shape of a bill. DerivedStatus carries the
// display state computed against today; Status stays the persisted one.
type billJSON struct {
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
	DerivedStatus    string `json:"derived_status,omitempty"`
	GroupID          string `json:"group_id,omitempty"`
	InstallmentIndex int    `json:"installment_index,omitempty"`
	InstallmentCount int    `json:"installment_count,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

func toBillJSON(b core.Bill, today time.Time) billJSON {
	out := billJSON{
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
		DerivedStatus:    string(core.DeriveStatus(b, today)),
		GroupID:          b.GroupID,
		InstallmentIndex: b.InstallmentIndex,
		InstallmentCount: b.InstallmentCount,
	}
	if !b.CreatedAt.IsZero() {
		out.CreatedAt = b.CreatedAt.Format(time.RFC3339)
	}
	if !b.UpdatedAt.IsZero() {
		out.UpdatedAt = b.UpdatedAt.Format(time.RFC3339)
	}
	return out
}

func toBillListJSON(bills []core.Bill, today time.Time) []billJSON {
	out := make([]billJSON, 0, len(bills))
	for _, b := range bills {
		out = append(out, toBillJSON(b, today))
	}
	return out
}

// createRequest is the POST /api/contas payload. The amount arrives either
// as integer cents or as a decimal string ("123.45"); cents win when both
// are present.
type createRequest struct {
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
	Method      string `json:"method"`
	Bank        string `json:"bank"`
	Notes       string `json:"notes"`
	Frequency   string `json:"frequency"`
}

func (r createRequest) toInput() (services.BillInput, error) {
	due, err := core.ParseDate(r.DueDate)
	if err != nil {
		return services.BillInput{}, fmt.Errorf("due_date: %w", err)
	}
	cents, err := amountCents(r.AmountCents, r.Amount)
	if err != nil {
		return services.BillInput{}, err
	}
	return services.BillInput{
		Description: r.Description,
		AmountCents: cents,
		DueDate:     due,
		Method:      core.PaymentMethod(r.Method),
		Bank:        r.Bank,
		Notes:       r.Notes,
		Frequency:   core.Frequency(r.Frequency),
	}, nil
}

// amountCents resolves the two accepted amount encodings.
func amountCents(cents int64, decimal string) (int64, error) {
	if cents != 0 || decimal == "" {
		return cents, nil
	}
	parsed, err := core.ParseDecimalToCents(decimal)
	if err != nil {
		return 0, fmt.Errorf("amount: %w", err)
	}
	return parsed, nil
}

// patchRequest is the PATCH /api/contas/{id} payload. Absent fields stay
// untouched; payment_date set to null or "" clears it.
type patchRequest struct {
	Description *string `json:"description"`
	AmountCents *int64  `json:"amount_cents"`
	Amount      *string `json:"amount"`
	DueDate     *string `json:"due_date"`
	PaymentDate *string `json:"payment_date"`
	Method      *string `json:"method"`
	Bank        *string `json:"bank"`
	Notes       *string `json:"notes"`
	Frequency   *string `json:"frequency"`
	Status      *string `json:"status"`
}

func (r patchRequest) toPatch() (storage.Patch, error) {
	var p storage.Patch
	p.Description = r.Description
	p.AmountCents = r.AmountCents
	p.Bank = r.Bank
	p.Notes = r.Notes

	if p.AmountCents == nil && r.Amount != nil {
		cents, err := core.ParseDecimalToCents(*r.Amount)
		if err != nil {
			return storage.Patch{}, fmt.Errorf("amount: %w", err)
		}
		p.AmountCents = &cents
	}

	if r.DueDate != nil {
		due, err := core.ParseDate(*r.DueDate)
		if err != nil {
			return storage.Patch{}, fmt.Errorf("due_date: %w", err)
		}
		p.DueDate = &due
	}
	if r.PaymentDate != nil {
		if *r.PaymentDate == "" {
			p.PaymentDate = &core.Date{}
		} else {
			pd, err := core.ParseDate(*r.PaymentDate)
			if err != nil {
				return storage.Patch{}, fmt.Errorf("payment_date: %w", err)
			}
			p.PaymentDate = &pd
		}
	}
	if r.Method != nil {
		m := core.PaymentMethod(*r.Method)
		p.Method = &m
	}
	if r.Frequency != nil {
		f := core.Frequency(*r.Frequency)
		p.Frequency = &f
	}
	if r.Status != nil {
		s := core.Status(*r.Status)
		p.Status = &s
	}
	return p, nil
}

// groupRequest is the POST /api/contas/group payload.
type groupRequest struct {
	Description  string      `json:"description"`
	Method       string      `json:"method"`
	Bank         string      `json:"bank"`
	Notes        string      `json:"notes"`
	Frequency    string      `json:"frequency"`
	Installments []groupLine `json:"installments"`
}

type groupLine struct {
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
}

func (r groupRequest) toInputs() (services.GroupCommon, []services.InstallmentInput, error) {
	common := services.GroupCommon{
		Description: r.Description,
		Method:      core.PaymentMethod(r.Method),
		Bank:        r.Bank,
		Notes:       r.Notes,
		Frequency:   core.Frequency(r.Frequency),
	}
	installments := make([]services.InstallmentInput, 0, len(r.Installments))
	for i, line := range r.Installments {
		due, err := core.ParseDate(line.DueDate)
		if err != nil {
			return services.GroupCommon{}, nil, fmt.Errorf("installment %d: due_date: %w", i+1, err)
		}
		cents, err := amountCents(line.AmountCents, line.Amount)
		if err != nil {
			return services.GroupCommon{}, nil, fmt.Errorf("installment %d: %w", i+1, err)
		}
		installments = append(installments, services.InstallmentInput{
			AmountCents: cents,
			DueDate:     due,
		})
	}
	return common, installments, nil
}

// payRequest is the POST /api/contas/{id}/pay payload.
type payRequest struct {
	Policy string `json:"policy"`
	Count  int    `json:"count"`
}

func (r payRequest) toPolicy() (services.CascadePolicy, error) {
	switch strings.ToUpper(strings.TrimSpace(r.Policy)) {
	case "", string(services.PolicyOnlyThis):
		return services.OnlyThis(), nil
	case string(services.PolicyAll):
		return services.All(), nil
	case string(services.PolicyCount):
		return services.CountOf(r.Count), nil
	default:
		return services.CascadePolicy{}, fmt.Errorf("unknown payment policy %q", r.Policy)
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusParam normalizes a status query value to its canonical form.
func statusParam(s string) core.Status {
	return core.Status(strings.ToUpper(strings.TrimSpace(s)))
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// the current date as defaults.
func ParseMonthParams(query url.Values) MonthParams {
	now := time.Now()
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}

	return params
}
