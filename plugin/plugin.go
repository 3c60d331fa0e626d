// Package plugin provides lifecycle hooks for the carpark ledger.
//
// A plugin implements Plugin plus any subset of the hook interfaces below.
// The Registry discovers which hooks a plugin implements once, at
// registration, and dispatches only to those. Hook errors are logged and
// never change the outcome of a ledger operation.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// OnInit is called once when the ledger starts. l is the *carpark.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called once when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// OnSessionOpened is called after a vehicle's inbound is recorded.
type OnSessionOpened interface {
	Plugin
	OnSessionOpened(ctx context.Context, sessionID id.SessionID, license string, arrival time.Time) error
}

// OnSessionClosed is called after a session's departure is recorded.
// sess is a copy; modifying it has no effect on the store.
type OnSessionClosed interface {
	Plugin
	OnSessionClosed(ctx context.Context, sess *session.Session, durationSeconds int64) error
}

// OnOutboundRejected is called when an outbound fails, e.g. for an unknown
// or already closed session.
type OnOutboundRejected interface {
	Plugin
	OnOutboundRejected(ctx context.Context, sessionID id.SessionID, err error) error
}

// OnChargeComputed is called after a stay has been priced.
type OnChargeComputed interface {
	Plugin
	OnChargeComputed(ctx context.Context, durationSeconds int64, amount types.Money) error
}

// OnStoreError is called when a store call fails for a reason other than
// the request itself, such as a timeout.
type OnStoreError interface {
	Plugin
	OnStoreError(ctx context.Context, op string, err error) error
}
