package core

import (
	"errors"
	"testing"
)

func validBill() Bill {
	return Bill{
		ID:          "b1",
		Description: "ELECTRICITY",
		Amount:      Money{Cents: 35000},
		DueDate:     NewDate(2025, 12, 10),
		Method:      Boleto,
		Bank:        "BANCO DO BRASIL",
		Frequency:   Once,
		Status:      StatusPending,
	}
}

func TestBill_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Bill)
		wantErr error
	}{
		{
			name:    "valid standalone bill",
			mutate:  func(b *Bill) {},
			wantErr: nil,
		},
		{
			name:    "zero due date",
			mutate:  func(b *Bill) { b.DueDate = Date{} },
			wantErr: ErrInvalidDate,
		},
		{
			name:    "empty description",
			mutate:  func(b *Bill) { b.Description = "   " },
			wantErr: ErrEmptyDescription,
		},
		{
			name:    "zero amount",
			mutate:  func(b *Bill) { b.Amount = Money{} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(b *Bill) { b.Amount = Money{Cents: -100} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "derived state is not a persisted status",
			mutate:  func(b *Bill) { b.Status = StatusOverdue },
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "paid without payment date",
			mutate:  func(b *Bill) { b.Status = StatusPaid },
			wantErr: ErrMissingPaymentDate,
		},
		{
			name: "pending with payment date",
			mutate: func(b *Bill) {
				b.PaymentDate = NewDate(2025, 12, 1)
			},
			wantErr: ErrUnexpectedPaymentDate,
		},
		{
			name: "paid with payment date is valid",
			mutate: func(b *Bill) {
				b.Status = StatusPaid
				b.PaymentDate = NewDate(2025, 12, 1)
			},
			wantErr: nil,
		},
		{
			name:    "index without count",
			mutate:  func(b *Bill) { b.InstallmentIndex = 1 },
			wantErr: ErrInvalidInstallment,
		},
		{
			name:    "count without index",
			mutate:  func(b *Bill) { b.InstallmentCount = 3 },
			wantErr: ErrInvalidInstallment,
		},
		{
			name: "installment fields without group id",
			mutate: func(b *Bill) {
				b.InstallmentIndex = 1
				b.InstallmentCount = 3
			},
			wantErr: ErrInvalidInstallment,
		},
		{
			name: "index beyond count",
			mutate: func(b *Bill) {
				b.GroupID = "g1"
				b.InstallmentIndex = 4
				b.InstallmentCount = 3
			},
			wantErr: ErrInvalidInstallment,
		},
		{
			name: "valid grouped bill",
			mutate: func(b *Bill) {
				b.GroupID = "g1"
				b.InstallmentIndex = 2
				b.InstallmentCount = 3
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBill()
			tt.mutate(&b)
			err := b.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsLocalID(t *testing.T) {
	if !IsLocalID("local_123abc") {
		t.Error("local_ prefixed id should be local")
	}
	if IsLocalID("9f2c1a") {
		t.Error("server-assigned id should not be local")
	}
}

func TestNormalizeDescription(t *testing.T) {
	if got := NormalizeDescription("  energia elétrica "); got != "ENERGIA ELÉTRICA" {
		t.Errorf("NormalizeDescription() = %q", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-10")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Year() != 2025 || d.Month() != 1 || d.Day() != 10 {
		t.Errorf("ParseDate() = %v", d)
	}

	if _, err := ParseDate("10/01/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("ParseDate(bad) error = %v, want ErrInvalidDate", err)
	}
}
