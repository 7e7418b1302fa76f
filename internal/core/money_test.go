package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"123.45", 12345, false},
		{"123,45", 12345, false},
		{"0.5", 50, false},
		{"7", 700, false},
		{" 12.30 ", 1230, false},
		{"1.005", 101, false}, // half-up on the third decimal
		{"1.004", 100, false},
		{".99", 99, false},
		{"", 0, true},
		{"0", 0, true},
		{"0.00", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"12a.30", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseDecimalToCents(%q) error = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoneyFloat64(t *testing.T) {
	if got := (Money{Cents: 12345}).Float64(); got != 123.45 {
		t.Errorf("Float64() = %v, want 123.45", got)
	}
	if got := (Money{}).Float64(); got != 0 {
		t.Errorf("Float64() = %v, want 0", got)
	}
}
