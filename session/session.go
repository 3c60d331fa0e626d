// Package session defines the parking session record and the storage
// contract for it.
//
// A session is one vehicle's stay: opened on entry with an arrival time,
// closed exactly once on exit by setting its departure. Sessions are never
// deleted or reopened.
package session

import (
	"strings"
	"time"

	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/types"
)

// Session records one stay of one vehicle. Instants written through the
// ledger carry millisecond precision, which every backend round-trips.
type Session struct {
	types.Entity

	ID        id.SessionID `json:"recordID"`
	License   string       `json:"license"`
	Arrival   time.Time    `json:"arrival"`
	Departure *time.Time   `json:"departure,omitempty"`
}

// IsOpen reports whether the vehicle is still inside.
func (s *Session) IsOpen() bool {
	return s.Departure == nil
}

// DurationSeconds returns the whole seconds between arrival and departure,
// truncated toward zero. It reports false for an open session.
func (s *Session) DurationSeconds() (int64, bool) {
	if s.Departure == nil {
		return 0, false
	}
	return int64(s.Departure.Sub(s.Arrival) / time.Second), true
}

// Clone returns a deep copy so callers never share the stored departure.
func (s *Session) Clone() *Session {
	c := *s
	if s.Departure != nil {
		dep := *s.Departure
		c.Departure = &dep
	}
	return &c
}

// NormalizeLicense trims surrounding whitespace and upper-cases a plate so
// " abc123" and "ABC123" name the same vehicle.
func NormalizeLicense(license string) string {
	return strings.ToUpper(strings.TrimSpace(license))
}
