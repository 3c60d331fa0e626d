// Package memory provides an in-process store.Store backed by maps.
// It is the default backend for tests and for single-node deployments that
// can afford to lose history on restart.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/store"
	"github.com/xraph/carpark/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

var errStoreClosed = errors.New("store is closed")

// Store keeps every session in memory. One RWMutex guards all state, so each
// create and close is a single critical section.
type Store struct {
	mu sync.RWMutex

	sessions map[string]*session.Session

	// open indexes open session IDs by license.
	open map[string]map[string]struct{}

	closed bool
}

// New creates an empty memory store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*session.Session),
		open:     make(map[string]map[string]struct{}),
	}
}

func (s *Store) CreateSession(ctx context.Context, license string, arrival time.Time) (id.SessionID, error) {
	license = session.NormalizeLicense(license)
	if license == "" {
		return id.Nil, carpark.ValidationError{Field: "license", Message: "must not be empty"}
	}
	if arrival.IsZero() {
		return id.Nil, carpark.ValidationError{Field: "arrival", Message: "must be set"}
	}
	if err := ctx.Err(); err != nil {
		return id.Nil, carpark.Unavailable("carpark/memory: create session", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return id.Nil, carpark.Unavailable("carpark/memory: create session", errStoreClosed)
	}

	sess := &session.Session{
		Entity:  types.NewEntity(),
		ID:      id.NewSessionID(),
		License: license,
		Arrival: arrival.UTC(),
	}
	key := sess.ID.String()
	s.sessions[key] = sess

	byLicense, ok := s.open[license]
	if !ok {
		byLicense = make(map[string]struct{})
		s.open[license] = byLicense
	}
	byLicense[key] = struct{}{}

	return sess.ID, nil
}

func (s *Store) CloseSession(ctx context.Context, sessionID id.SessionID, departure time.Time) (*session.Session, error) {
	if sessionID.IsNil() {
		return nil, carpark.ValidationError{Field: "recordID", Message: "must be set"}
	}
	if departure.IsZero() {
		return nil, carpark.ValidationError{Field: "departure", Message: "must be set"}
	}
	if err := ctx.Err(); err != nil {
		return nil, carpark.Unavailable("carpark/memory: close session", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, carpark.Unavailable("carpark/memory: close session", errStoreClosed)
	}

	key := sessionID.String()
	sess, ok := s.sessions[key]
	switch {
	case !ok:
		return nil, carpark.ErrNotFound
	case !sess.IsOpen():
		return nil, carpark.ErrAlreadyClosed
	case departure.Before(sess.Arrival):
		return nil, carpark.ErrInvalidDuration
	}

	dep := departure.UTC()
	sess.Departure = &dep
	sess.Touch()

	if byLicense, ok := s.open[sess.License]; ok {
		delete(byLicense, key)
		if len(byLicense) == 0 {
			delete(s.open, sess.License)
		}
	}

	return sess.Clone(), nil
}

func (s *Store) GetSession(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, carpark.Unavailable("carpark/memory: get session", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, carpark.Unavailable("carpark/memory: get session", errStoreClosed)
	}

	sess, ok := s.sessions[sessionID.String()]
	if !ok {
		return nil, carpark.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *Store) FindOpenByLicense(ctx context.Context, license string, limit int) ([]*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, carpark.Unavailable("carpark/memory: find open", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, carpark.Unavailable("carpark/memory: find open", errStoreClosed)
	}

	if limit <= 0 {
		limit = 1
	}

	result := make([]*session.Session, 0)

	for key := range s.open[session.NormalizeLicense(license)] {
		result = append(result, s.sessions[key].Clone())
	}

	// Latest arrival first, ties broken by newest ID.
	slices.SortFunc(result, func(a, b *session.Session) int {
		if c := b.Arrival.Compare(a.Arrival); c != 0 {
			return c
		}
		return b.ID.Compare(a.ID)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListOpen(ctx context.Context) ([]*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, carpark.Unavailable("carpark/memory: list open", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, carpark.Unavailable("carpark/memory: list open", errStoreClosed)
	}

	result := make([]*session.Session, 0)
	for _, byLicense := range s.open {
		for key := range byLicense {
			result = append(result, s.sessions[key].Clone())
		}
	}

	slices.SortFunc(result, func(a, b *session.Session) int {
		return a.ID.Compare(b.ID)
	})
	return result, nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return carpark.Unavailable("carpark/memory: ping", errStoreClosed)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
