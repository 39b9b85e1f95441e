package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{"INR whole", "500", "inr", "₹500.00"},
		{"INR fraction", "1250.5", "inr", "₹1,250.50"},
		{"INR millions", "1234567.89", "inr", "₹1,234,567.89"},
		{"USD", "49", "usd", "$49.00"},
		{"EUR upper-case code", "199", "EUR", "€199.00"},
		{"JPY no decimals", "100", "jpy", "¥100"},
		{"Unknown code", "12.3", "xyz", "XYZ 12.30"},
		{"Negative", "-1000", "gbp", "-£1,000.00"},
		{"Zero", "0", "inr", "₹0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(decimal.RequireFromString(tt.amount), tt.currency)
			if got != tt.want {
				t.Errorf("Format(%s, %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestFitsCurrency(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     bool
	}{
		{"10", "inr", true},
		{"10.5", "inr", true},
		{"10.55", "inr", true},
		{"10.550", "inr", true},
		{"10.555", "inr", false},
		{"100", "jpy", true},
		{"100.5", "jpy", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount+"/"+tt.currency, func(t *testing.T) {
			got := FitsCurrency(decimal.RequireFromString(tt.amount), tt.currency)
			if got != tt.want {
				t.Errorf("FitsCurrency(%s, %s) = %v, want %v", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 150.75 ")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	if !d.Equal(decimal.RequireFromString("150.75")) {
		t.Errorf("got %s, want 150.75", d)
	}

	if _, err := ParseAmount("abc"); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestSum(t *testing.T) {
	if !Sum().IsZero() {
		t.Error("empty sum should be zero")
	}

	got := Sum(
		decimal.RequireFromString("0.1"),
		decimal.RequireFromString("0.2"),
		decimal.RequireFromString("99.7"),
	)
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Sum = %s, want 100", got)
	}
}

func TestDate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2024, 3, 1, 23, 30, 0, 0, ist)

	got := Date(in)
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Date = %v, want %v", got, want)
	}
	if !Date(time.Time{}).IsZero() {
		t.Error("zero time should stay zero")
	}

	parsed, err := ParseDate("2024-12-31")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !parsed.Equal(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDate = %v", parsed)
	}
	if _, err := ParseDate("31/12/2024"); err == nil {
		t.Error("expected error for wrong layout")
	}
}
