// Package store defines the aggregate persistence interface used by the
// carpark ledger. Backends live in the subpackages memory, sqlite, postgres
// and mongo.
package store

import (
	"context"

	"github.com/xraph/carpark/session"
)

// Store is the unified storage interface for the ledger: the session
// contract plus the lifecycle methods every backend provides.
type Store interface {
	session.Store

	// Migrate creates tables, collections and indexes. It is idempotent.
	Migrate(ctx context.Context) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend handle. The store is unusable afterwards.
	Close() error
}
