package types

import (
	"encoding/json"
	"math"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(750), 750, "usd", "$7.50"},
		{"EUR", EUR(1125), 1125, "eur", "€11.25"},
		{"GBP", GBP(375), 375, "gbp", "£3.75"},
		{"JPY", JPY(800), 800, "jpy", "¥800"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestFromMajor(t *testing.T) {
	tests := []struct {
		name     string
		major    float64
		currency string
		want     Money
	}{
		{"whole hour at 7.50", 7.50, "usd", USD(750)},
		{"ninety minutes at 7.50", 11.25, "usd", USD(1125)},
		{"zero", 0, "usd", USD(0)},
		{"half cent rounds up", 0.125, "usd", USD(13)},
		{"below half cent rounds down", 0.1249, "usd", USD(12)},
		{"one second at 7.50", 1.0 / 3600 * 7.50, "usd", USD(0)},
		{"uppercase currency", 3.75, "USD", USD(375)},
		{"zero-decimal currency", 99.5, "jpy", JPY(100)},
		{"three-decimal currency", 1.2346, "kwd", Money{Amount: 1235, Currency: "kwd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromMajor(tt.major, tt.currency)
			if err != nil {
				t.Fatalf("FromMajor: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFromMajorRejects(t *testing.T) {
	tests := []struct {
		name     string
		major    float64
		currency string
	}{
		{"NaN", math.NaN(), "usd"},
		{"+Inf", math.Inf(1), "usd"},
		{"empty currency", 1, " "},
		{"overflow", 1e300, "usd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromMajor(tt.major, tt.currency); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMoneyMajor(t *testing.T) {
	if got := USD(1125).Major(); got != 11.25 {
		t.Errorf("USD(1125).Major() = %v, want 11.25", got)
	}
	if got := JPY(800).Major(); got != 800 {
		t.Errorf("JPY(800).Major() = %v, want 800", got)
	}
}

func TestMoneyAdd(t *testing.T) {
	if got := USD(750).Add(USD(375)); !got.Equal(USD(1125)) {
		t.Errorf("got %v, want $11.25", got)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on currency mismatch")
		}
	}()
	USD(100).Add(EUR(100))
}

func TestMoneyPredicates(t *testing.T) {
	if !Zero("usd").IsZero() {
		t.Error("Zero should be zero")
	}
	if USD(1).IsZero() {
		t.Error("USD(1) should not be zero")
	}
	if !USD(-1).IsNegative() {
		t.Error("USD(-1) should be negative")
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money Money
		want  string
	}{
		{USD(1125), "11.25"},
		{USD(5), "0.05"},
		{USD(-375), "-3.75"},
		{JPY(100), "100"},
		{Money{Amount: 1235, Currency: "kwd"}, "1.235"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(USD(1125))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["amount"] != float64(1125) {
		t.Errorf("amount: got %v", decoded["amount"])
	}
	if decoded["currency"] != "usd" {
		t.Errorf("currency: got %v", decoded["currency"])
	}
	if decoded["display"] != "$11.25" {
		t.Errorf("display: got %v", decoded["display"])
	}
}

func TestCurrencySymbols(t *testing.T) {
	tests := []struct {
		currency string
		want     string
	}{
		{"usd", "$"},
		{"EUR", "€"},
		{"gbp", "£"},
		{"chf", "CHF "},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			if got := currencySymbol(tt.currency); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func BenchmarkFromMajor(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = FromMajor(11.25, "usd") //nolint:errcheck // benchmark
	}
}
