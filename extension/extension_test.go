package extension

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	got := mergeWithDefaults(Config{Rate: 3})
	want := DefaultConfig()
	want.Rate = 3
	if got != want {
		t.Errorf("mergeWithDefaults = %+v, want %+v", got, want)
	}
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{Rate: 10, BasePath: "/lot"}
	programmatic := Config{Rate: 2, Currency: "eur", DisableMigrate: true, StoreTimeout: time.Second}

	got := mergeConfigurations(yaml, programmatic)

	if got.Rate != 10 {
		t.Errorf("Rate = %v, want YAML's 10", got.Rate)
	}
	if got.BasePath != "/lot" {
		t.Errorf("BasePath = %q, want /lot", got.BasePath)
	}
	if got.Currency != "eur" {
		t.Errorf("Currency = %q, want programmatic eur", got.Currency)
	}
	if !got.DisableMigrate {
		t.Error("DisableMigrate should carry over from programmatic config")
	}
	if got.StoreTimeout != time.Second {
		t.Errorf("StoreTimeout = %v, want 1s", got.StoreTimeout)
	}
}

func quiet() carpark.Option {
	return carpark.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBuildAppliesConfig(t *testing.T) {
	e := New(
		WithStore(memory.New()),
		WithRate(10),
		WithCurrency("eur"),
		WithLedgerOption(quiet()),
	)
	e.config = mergeWithDefaults(e.config)
	e.build()

	if e.Ledger().Rate() != 10 || e.Ledger().Currency() != "eur" {
		t.Errorf("ledger rate/currency = %v %s", e.Ledger().Rate(), e.Ledger().Currency())
	}
	if e.Handler() == nil {
		t.Fatal("expected a handler when routes are enabled")
	}
}

func TestHandlerMountedUnderBasePath(t *testing.T) {
	e := New(WithStore(memory.New()), WithBasePath("/lot/"), WithLedgerOption(quiet()))
	e.config = mergeWithDefaults(e.config)
	e.build()
	if err := e.Ledger().Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = e.Ledger().Stop() }) //nolint:errcheck // test cleanup

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lot/api/fee?timeParked=3600", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /lot/api/fee = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fee?timeParked=3600", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET outside base path = %d, want 404", rec.Code)
	}
}

func TestDisableRoutes(t *testing.T) {
	e := New(WithStore(memory.New()), WithDisableRoutes(), WithLedgerOption(quiet()))
	e.config = mergeWithDefaults(e.config)
	e.build()

	if e.Handler() != nil {
		t.Error("expected no handler when routes are disabled")
	}
}

func TestMount(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path) //nolint:errcheck // test handler
	})

	tests := []struct {
		prefix, path, want string
	}{
		{"", "/api/fee", "/api/fee"},
		{"/", "/api/fee", "/api/fee"},
		{"carpark", "/carpark/api/fee", "/api/fee"},
		{"/carpark/", "/carpark/api/fee", "/api/fee"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mount(tt.prefix, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Body.String() != tt.want {
			t.Errorf("mount(%q) served %q as %q, want %q", tt.prefix, tt.path, rec.Body.String(), tt.want)
		}
	}
}

func TestStartBeforeRegister(t *testing.T) {
	e := New()
	if err := e.Start(context.Background()); err == nil {
		t.Error("expected Start before Register to fail")
	}
	if err := e.Health(context.Background()); err == nil {
		t.Error("expected Health before Register to fail")
	}
}
