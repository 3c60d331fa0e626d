package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/store"
	"github.com/xraph/carpark/store/memory"
	"github.com/xraph/carpark/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(_ *testing.T) store.Store { return memory.New() })
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	sid, err := s.CreateSession(ctx, "ABC123", storetest.T0)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := s.CreateSession(ctx, "ABC123", storetest.T0); !errors.Is(err, carpark.ErrStoreUnavailable) {
		t.Errorf("CreateSession after Close = %v, want ErrStoreUnavailable", err)
	}
	if _, err := s.CloseSession(ctx, sid, storetest.T0); !errors.Is(err, carpark.ErrStoreUnavailable) {
		t.Errorf("CloseSession after Close = %v, want ErrStoreUnavailable", err)
	}
	if _, err := s.ListOpen(ctx); !errors.Is(err, carpark.ErrStoreUnavailable) {
		t.Errorf("ListOpen after Close = %v, want ErrStoreUnavailable", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, carpark.ErrStoreUnavailable) {
		t.Errorf("Ping after Close = %v, want ErrStoreUnavailable", err)
	}
}

func TestCanceledContextIsUnavailable(t *testing.T) {
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.CreateSession(ctx, "ABC123", storetest.T0); !errors.Is(err, carpark.ErrStoreUnavailable) {
		t.Errorf("CreateSession = %v, want ErrStoreUnavailable", err)
	}
	if _, err := s.FindOpenByLicense(ctx, "ABC123", 1); !errors.Is(err, carpark.ErrStoreUnavailable) {
		t.Errorf("FindOpenByLicense = %v, want ErrStoreUnavailable", err)
	}
}

func TestLicenseIsNormalized(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if _, err := s.CreateSession(ctx, "  abc123 ", storetest.T0); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := s.FindOpenByLicense(ctx, "ABC123", 1)
	if err != nil {
		t.Fatalf("FindOpenByLicense: %v", err)
	}
	if len(got) != 1 || got[0].License != "ABC123" {
		t.Errorf("got %+v, want one ABC123 session", got)
	}
}
