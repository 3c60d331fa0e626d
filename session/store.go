package session

import (
	"context"
	"time"

	"github.com/xraph/carpark/id"
)

// Store is the persistence contract for sessions.
//
// Implementations must make CreateSession and CloseSession single atomic
// operations: a close either sets the departure of an open session or
// changes nothing. Errors are reported with the carpark sentinel errors.
type Store interface {
	// CreateSession inserts a new open session and returns its fresh ID.
	// It never merges with an existing session for the same license.
	CreateSession(ctx context.Context, license string, arrival time.Time) (id.SessionID, error)

	// CloseSession sets the departure of an open session in one conditional
	// update and returns the closed record. It fails with ErrNotFound for an
	// unknown ID, ErrAlreadyClosed if a departure is already set and
	// ErrInvalidDuration if departure is before arrival.
	CloseSession(ctx context.Context, sessionID id.SessionID, departure time.Time) (*Session, error)

	// GetSession returns one session, open or closed.
	GetSession(ctx context.Context, sessionID id.SessionID) (*Session, error)

	// FindOpenByLicense returns up to limit open sessions for the license,
	// latest arrival first. A non-positive limit means 1. It returns an
	// empty slice when there are none.
	FindOpenByLicense(ctx context.Context, license string, limit int) ([]*Session, error)

	// ListOpen returns every open session ordered by ID.
	ListOpen(ctx context.Context) ([]*Session, error)
}
