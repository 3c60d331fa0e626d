package carpark_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/carpark"
)

func TestKindOf(t *testing.T) {
	driverErr := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want carpark.Kind
	}{
		{"nil", nil, ""},
		{"invalid input", carpark.ErrInvalidInput, carpark.KindInvalidInput},
		{"validation error", carpark.ValidationError{Field: "license", Message: "required"}, carpark.KindInvalidInput},
		{"wrapped not found", fmt.Errorf("get: %w", carpark.ErrNotFound), carpark.KindNotFound},
		{"already closed", carpark.ErrAlreadyClosed, carpark.KindAlreadyClosed},
		{"invalid duration", carpark.ErrInvalidDuration, carpark.KindInvalidDuration},
		{"invalid configuration", carpark.ErrInvalidConfiguration, carpark.KindInvalidConfiguration},
		{"unavailable wrapper", carpark.Unavailable("carpark/mongo: close", driverErr), carpark.KindStoreUnavailable},
		{"deadline", fmt.Errorf("list: %w", context.DeadlineExceeded), carpark.KindStoreUnavailable},
		{"canceled", context.Canceled, carpark.KindStoreUnavailable},
		{"unknown", driverErr, carpark.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := carpark.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnavailableKeepsDriverError(t *testing.T) {
	driverErr := errors.New("server selection timeout")
	err := carpark.Unavailable("carpark/mongo: create session", driverErr)

	if !errors.Is(err, carpark.ErrStoreUnavailable) {
		t.Error("expected ErrStoreUnavailable in chain")
	}
	if !errors.Is(err, driverErr) {
		t.Error("expected driver error in chain")
	}
	if carpark.Unavailable("op", nil) != nil {
		t.Error("Unavailable(nil) should be nil")
	}
}

func TestClassifiers(t *testing.T) {
	if !carpark.IsNotFound(fmt.Errorf("x: %w", carpark.ErrNotFound)) {
		t.Error("IsNotFound should see through wrapping")
	}
	if !carpark.IsClientError(carpark.ErrAlreadyClosed) {
		t.Error("AlreadyClosed is a client error")
	}
	if carpark.IsClientError(carpark.ErrStoreUnavailable) {
		t.Error("StoreUnavailable is not a client error")
	}
	if carpark.IsClientError(carpark.ErrInvalidConfiguration) {
		t.Error("InvalidConfiguration is not a client error")
	}
	if !carpark.IsRetryable(context.DeadlineExceeded) {
		t.Error("a timed-out store call is retryable")
	}
	if carpark.IsRetryable(carpark.ErrNotFound) {
		t.Error("NotFound is not retryable")
	}
}
