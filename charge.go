package carpark

import (
	"fmt"
	"math"

	"github.com/xraph/carpark/types"
)

// DefaultRatePerHour is the hourly rate used when none is configured.
const DefaultRatePerHour = 7.50

// DefaultCurrency is the currency fees are settled in when none is configured.
const DefaultCurrency = "usd"

// ComputeCharge prices a stay: (durationSeconds / 3600) * ratePerHour, with
// no rounding. The rate must be positive and finite.
func ComputeCharge(durationSeconds int64, ratePerHour float64) (float64, error) {
	if err := validateRate(ratePerHour); err != nil {
		return 0, err
	}
	if durationSeconds < 0 {
		return 0, fmt.Errorf("%w: %d seconds", ErrInvalidDuration, durationSeconds)
	}
	return float64(durationSeconds) / 3600 * ratePerHour, nil
}

func validateRate(ratePerHour float64) error {
	if math.IsNaN(ratePerHour) || math.IsInf(ratePerHour, 0) || ratePerHour <= 0 {
		return fmt.Errorf("%w: rate per hour must be positive and finite, got %v", ErrInvalidConfiguration, ratePerHour)
	}
	return nil
}

// Fee is a priced stay: the exact charge and the amount actually billed.
type Fee struct {
	Seconds     int64       `json:"timeParked"`
	RatePerHour float64     `json:"rate"`
	Raw         float64     `json:"fee"`
	Amount      types.Money `json:"amount"`
}
