package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

// sessionModel stores instants as Unix nanoseconds so ordering and the
// departure >= arrival guard are plain integer comparisons in SQLite.
type sessionModel struct {
	grove.BaseModel `grove:"table:carpark_sessions"`

	ID        string `grove:"id,pk"`
	License   string `grove:"license"`
	Arrival   int64  `grove:"arrival"`
	Departure *int64 `grove:"departure"`
	CreatedAt int64  `grove:"created_at"`
	UpdatedAt int64  `grove:"updated_at"`
}

func toSessionModel(s *session.Session) *sessionModel {
	m := &sessionModel{
		ID:        s.ID.String(),
		License:   s.License,
		Arrival:   s.Arrival.UnixNano(),
		CreatedAt: s.CreatedAt.UnixNano(),
		UpdatedAt: s.UpdatedAt.UnixNano(),
	}
	if s.Departure != nil {
		dep := s.Departure.UnixNano()
		m.Departure = &dep
	}
	return m
}

func fromSessionModel(m *sessionModel) (*session.Session, error) {
	sessionID, err := id.ParseSessionID(m.ID)
	if err != nil {
		return nil, err
	}
	s := &session.Session{
		Entity: types.Entity{
			CreatedAt: fromUnixNano(m.CreatedAt),
			UpdatedAt: fromUnixNano(m.UpdatedAt),
		},
		ID:      sessionID,
		License: m.License,
		Arrival: fromUnixNano(m.Arrival),
	}
	if m.Departure != nil {
		dep := fromUnixNano(*m.Departure)
		s.Departure = &dep
	}
	return s, nil
}

func fromSessionModels(models []sessionModel) ([]*session.Session, error) {
	result := make([]*session.Session, len(models))
	for i := range models {
		s, err := fromSessionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = s
	}
	return result, nil
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// sessionColumns lists the RETURNING columns in the order scanTargets fills.
var sessionColumns = []string{"id", "license", "arrival", "departure", "created_at", "updated_at"}

func (m *sessionModel) scanTargets() []any {
	return []any{&m.ID, &m.License, &m.Arrival, &m.Departure, &m.CreatedAt, &m.UpdatedAt}
}
