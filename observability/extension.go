// Package observability provides a metrics extension for the carpark ledger
// that records session lifecycle counts through a MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/plugin"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnSessionOpened    = (*MetricsExtension)(nil)
	_ plugin.OnSessionClosed    = (*MetricsExtension)(nil)
	_ plugin.OnOutboundRejected = (*MetricsExtension)(nil)
	_ plugin.OnChargeComputed   = (*MetricsExtension)(nil)
	_ plugin.OnStoreError       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Gauge interface for metric gauges.
type Gauge interface {
	Inc()
	Dec()
	Set(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Gauge(name string) Gauge
	Histogram(name string) Histogram
}

// MetricsExtension records lot-wide lifecycle metrics.
// Register it as a ledger plugin to track sessions and fees.
type MetricsExtension struct {
	factory MetricFactory

	// Session metrics
	SessionsOpened  Counter
	SessionsClosed  Counter
	OpenSessions    Gauge
	ParkedSeconds   Histogram
	OutboundsDenied Counter
	AlreadyClosed   Counter
	UnknownSessions Counter

	// Fee metrics
	ChargesComputed Counter
	ChargeMinor     Histogram

	// Error metrics
	StoreErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		SessionsOpened:  factory.Counter("carpark.sessions.opened"),
		SessionsClosed:  factory.Counter("carpark.sessions.closed"),
		OpenSessions:    factory.Gauge("carpark.sessions.open"),
		ParkedSeconds:   factory.Histogram("carpark.sessions.parked_seconds"),
		OutboundsDenied: factory.Counter("carpark.outbound.rejected"),
		AlreadyClosed:   factory.Counter("carpark.outbound.already_closed"),
		UnknownSessions: factory.Counter("carpark.outbound.not_found"),

		ChargesComputed: factory.Counter("carpark.charges.computed"),
		ChargeMinor:     factory.Histogram("carpark.charges.amount_minor"),

		StoreErrors: factory.Counter("carpark.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit seeds the open sessions gauge from the store so a restart does not
// reset occupancy to zero.
func (m *MetricsExtension) OnInit(ctx context.Context, l any) error {
	ledger, ok := l.(*carpark.Ledger)
	if !ok {
		return nil
	}
	open, err := ledger.CurrentOccupancy(ctx)
	if err != nil {
		return err
	}
	m.OpenSessions.Set(float64(len(open)))
	return nil
}

// ──────────────────────────────────────────────────
// Session lifecycle hooks
// ──────────────────────────────────────────────────

// OnSessionOpened implements plugin.OnSessionOpened.
func (m *MetricsExtension) OnSessionOpened(_ context.Context, _ id.SessionID, _ string, _ time.Time) error {
	m.SessionsOpened.Inc()
	m.OpenSessions.Inc()
	return nil
}

// OnSessionClosed implements plugin.OnSessionClosed.
func (m *MetricsExtension) OnSessionClosed(_ context.Context, _ *session.Session, durationSeconds int64) error {
	m.SessionsClosed.Inc()
	m.OpenSessions.Dec()
	m.ParkedSeconds.Observe(float64(durationSeconds))
	return nil
}

// OnOutboundRejected implements plugin.OnOutboundRejected.
func (m *MetricsExtension) OnOutboundRejected(_ context.Context, _ id.SessionID, err error) error {
	m.OutboundsDenied.Inc()
	switch {
	case errors.Is(err, carpark.ErrAlreadyClosed):
		m.AlreadyClosed.Inc()
	case errors.Is(err, carpark.ErrNotFound):
		m.UnknownSessions.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Fee hooks
// ──────────────────────────────────────────────────

// OnChargeComputed implements plugin.OnChargeComputed.
func (m *MetricsExtension) OnChargeComputed(_ context.Context, _ int64, amount types.Money) error {
	m.ChargesComputed.Inc()
	m.ChargeMinor.Observe(float64(amount.Amount))
	return nil
}

// OnStoreError implements plugin.OnStoreError.
func (m *MetricsExtension) OnStoreError(_ context.Context, _ string, _ error) error {
	m.StoreErrors.Inc()
	return nil
}
