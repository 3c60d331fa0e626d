// Package types provides value types shared across carpark packages.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Money is a settled amount in the smallest unit of its currency.
//
// Fees are computed as float64 major units (a parking charge is a pure
// duration-times-rate product); Money is what that figure becomes once it is
// rounded to something a till can hand back.
//
//	FromMajor(11.25, "usd") = USD(1125)
//	FromMajor(0.125, "usd") = USD(13)
//	FromMajor(99.5, "jpy")  = JPY(100)
type Money struct {
	Amount   int64  `json:"amount"`   // minor units (cents, pence, yen)
	Currency string `json:"currency"` // ISO 4217 lowercase
}

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// GBP creates a Money value in British Pounds (pence).
func GBP(pence int64) Money { return Money{Amount: pence, Currency: "gbp"} }

// JPY creates a Money value in Japanese Yen (no decimal).
func JPY(yen int64) Money { return Money{Amount: yen, Currency: "jpy"} }

// Zero returns a zero Money value in the given currency.
func Zero(currency string) Money { return Money{Currency: strings.ToLower(currency)} }

// FromMajor converts a major-unit amount (e.g. 3.75 dollars) to Money,
// rounding half away from zero to the currency's minor unit.
func FromMajor(major float64, currency string) (Money, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return Money{}, fmt.Errorf("money: empty currency")
	}
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return Money{}, fmt.Errorf("money: %v is not a finite amount", major)
	}

	scaled := math.Round(major * math.Pow10(CurrencyDecimals(currency)))
	if scaled >= math.MaxInt64 || scaled < math.MinInt64 {
		return Money{}, fmt.Errorf("money: %v %s overflows", major, currency)
	}

	return Money{Amount: int64(scaled), Currency: currency}, nil
}

// Major returns the amount in major units.
func (m Money) Major() float64 {
	return float64(m.Amount) / math.Pow10(CurrencyDecimals(m.Currency))
}

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// FormatMajor returns the amount in major units without a symbol:
// "11.25" for USD(1125), "100" for JPY(100).
func (m Money) FormatMajor() string {
	decimals := CurrencyDecimals(m.Currency)
	if decimals == 0 {
		return fmt.Sprintf("%d", m.Amount)
	}

	divisor := int64(math.Pow10(decimals))
	abs := m.Amount
	sign := ""
	if abs < 0 {
		abs = -abs
		sign = "-"
	}

	return fmt.Sprintf("%s%d.%0*d", sign, abs/divisor, decimals, abs%divisor)
}

// String returns the amount with its currency symbol, e.g. "$11.25".
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON includes a display string next to the raw fields.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

func currencySymbol(currency string) string {
	switch strings.ToLower(currency) {
	case "usd":
		return "$"
	case "eur":
		return "€"
	case "gbp":
		return "£"
	case "jpy", "cny":
		return "¥"
	case "cad":
		return "C$"
	case "aud":
		return "A$"
	default:
		return strings.ToUpper(currency) + " "
	}
}

// CurrencyDecimals returns the number of minor-unit digits for a currency.
func CurrencyDecimals(currency string) int {
	switch strings.ToLower(currency) {
	case "jpy", "krw", "vnd", "clp", "pyg", "idr":
		return 0
	case "bhd", "kwd", "omr", "jod", "tnd":
		return 3
	default:
		return 2
	}
}
