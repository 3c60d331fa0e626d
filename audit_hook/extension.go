// Package audithook bridges carpark lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on any
// particular audit store. Callers inject a RecorderFunc, or use LogRecorder to
// write the trail through slog.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/plugin"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnSessionOpened    = (*Extension)(nil)
	_ plugin.OnSessionClosed    = (*Extension)(nil)
	_ plugin.OnOutboundRejected = (*Extension)(nil)
	_ plugin.OnChargeComputed   = (*Extension)(nil)
	_ plugin.OnStoreError       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	ID         id.AuditID     `json:"id"`
	Time       time.Time      `json:"time"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes audit events as structured log records.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityError, SeverityCritical:
			level = slog.LevelError
		}
		logger.Log(ctx, level, "audit",
			"audit_id", evt.ID.String(),
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"outcome", evt.Outcome,
			"metadata", evt.Metadata,
		)
		return nil
	})
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Session lifecycle hooks
// ──────────────────────────────────────────────────

// OnSessionOpened implements plugin.OnSessionOpened.
func (e *Extension) OnSessionOpened(ctx context.Context, sessionID id.SessionID, license string, arrival time.Time) error {
	return e.record(ctx, ActionSessionOpened, SeverityInfo, OutcomeSuccess,
		ResourceSession, sessionID.String(), CategoryAccess, nil,
		"license", license,
		"arrival", arrival.Format(time.RFC3339),
	)
}

// OnSessionClosed implements plugin.OnSessionClosed.
func (e *Extension) OnSessionClosed(ctx context.Context, sess *session.Session, durationSeconds int64) error {
	return e.record(ctx, ActionSessionClosed, SeverityInfo, OutcomeSuccess,
		ResourceSession, sess.ID.String(), CategoryAccess, nil,
		"license", sess.License,
		"duration_seconds", durationSeconds,
	)
}

// OnOutboundRejected implements plugin.OnOutboundRejected. A second exit on
// the same ticket is worth a warning; store trouble is recorded as an error.
func (e *Extension) OnOutboundRejected(ctx context.Context, sessionID id.SessionID, err error) error {
	severity := SeverityWarning
	if errors.Is(err, carpark.ErrStoreUnavailable) {
		severity = SeverityError
	}
	return e.record(ctx, ActionOutboundRejected, severity, OutcomeFailure,
		ResourceSession, sessionID.String(), CategoryAccess, err,
		"kind", string(carpark.KindOf(err)),
	)
}

// ──────────────────────────────────────────────────
// Fee hooks
// ──────────────────────────────────────────────────

// OnChargeComputed implements plugin.OnChargeComputed.
func (e *Extension) OnChargeComputed(ctx context.Context, durationSeconds int64, amount types.Money) error {
	return e.record(ctx, ActionChargeComputed, SeverityInfo, OutcomeSuccess,
		ResourceCharge, "", CategoryBilling, nil,
		"duration_seconds", durationSeconds,
		"amount", amount.Amount,
		"currency", amount.Currency,
	)
}

// OnStoreError implements plugin.OnStoreError.
func (e *Extension) OnStoreError(ctx context.Context, op string, err error) error {
	return e.record(ctx, ActionStoreError, SeverityCritical, OutcomeFailure,
		ResourceStore, op, CategoryOperations, err,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID(),
		Time:       time.Now().UTC(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
