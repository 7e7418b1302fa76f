package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// Persisted payment states. Everything else (OVERDUE, IMMINENT) is
	// derived at read time and never written to the store.
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"

	// Derived display states.
	StatusOverdue  Status = "OVERDUE"
	StatusImminent Status = "IMMINENT"
)

const (
	Pix      PaymentMethod = "PIX"
	Boleto   PaymentMethod = "BOLETO"
	Transfer PaymentMethod = "TRANSFER"
	Debit    PaymentMethod = "DEBIT"
	Card     PaymentMethod = "CARD"
	Cash     PaymentMethod = "CASH"
)

const (
	Once    Frequency = "ONCE"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

type (
	Status        string
	PaymentMethod string
	Frequency     string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Bill is one payable obligation. Grouped bills (installments of one
	// payment plan) share a GroupID and carry a 1-based InstallmentIndex
	// plus the InstallmentCount the plan was created with.
	Bill struct {
		ID               string
		Description      string
		Amount           Money
		DueDate          Date
		PaymentDate      Date // zero unless Status == StatusPaid
		Method           PaymentMethod
		Bank             string
		Notes            string
		Frequency        Frequency
		Status           Status // StatusPending or StatusPaid only
		GroupID          string
		InstallmentIndex int // 0 when not grouped
		InstallmentCount int // 0 when not grouped
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}
)

// LocalIDPrefix marks identifiers minted on a disconnected edge before the
// authoritative store has acknowledged the record.
const LocalIDPrefix = "local_"

// IsLocalID reports whether id was assigned locally and never synced.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a Date from year, month, day with no time component.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// Month returns the month as an int (1-12).
func (d Date) Month() int { return int(d.Time.Month()) }

// Year returns the year.
func (d Date) Year() int { return d.Time.Year() }

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// InMonth reports whether the date falls in the given calendar month.
func (d Date) InMonth(year, month int) bool {
	return d.Year() == year && d.Month() == month
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeDescription applies the write-time normalization rule:
// descriptions are stored uppercase with surrounding whitespace removed.
func NormalizeDescription(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Grouped reports whether the bill belongs to an installment plan.
func (b Bill) Grouped() bool {
	return b.GroupID != ""
}

func (b Bill) Validate() error {
	if err := b.DueDate.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(b.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(b.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.Status != StatusPending && b.Status != StatusPaid {
		return ErrInvalidStatus
	}

	// payment_date present iff paid
	if b.Status == StatusPaid && b.PaymentDate.IsZero() {
		return ErrMissingPaymentDate
	}
	if b.Status == StatusPending && !b.PaymentDate.IsZero() {
		return ErrUnexpectedPaymentDate
	}

	// installment fields are both present or both absent
	if (b.InstallmentIndex == 0) != (b.InstallmentCount == 0) {
		return ErrInvalidInstallment
	}
	if b.InstallmentIndex != 0 {
		if b.GroupID == "" {
			return ErrInvalidInstallment
		}
		if b.InstallmentIndex < 1 || b.InstallmentIndex > b.InstallmentCount {
			return ErrInvalidInstallment
		}
	}

	return nil
}
