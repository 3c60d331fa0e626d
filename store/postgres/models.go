package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

type sessionModel struct {
	grove.BaseModel `grove:"table:carpark_sessions"`

	ID        string     `grove:"id,pk"`
	License   string     `grove:"license"`
	Arrival   time.Time  `grove:"arrival"`
	Departure *time.Time `grove:"departure"`
	CreatedAt time.Time  `grove:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
}

func toSessionModel(s *session.Session) *sessionModel {
	return &sessionModel{
		ID:        s.ID.String(),
		License:   s.License,
		Arrival:   s.Arrival,
		Departure: s.Departure,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func fromSessionModel(m *sessionModel) (*session.Session, error) {
	sessionID, err := id.ParseSessionID(m.ID)
	if err != nil {
		return nil, err
	}
	s := &session.Session{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:      sessionID,
		License: m.License,
		Arrival: m.Arrival.UTC(),
	}
	if m.Departure != nil {
		dep := m.Departure.UTC()
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

// sessionColumns lists the RETURNING columns in the order scanTargets fills.
var sessionColumns = []string{"id", "license", "arrival", "departure", "created_at", "updated_at"}

func (m *sessionModel) scanTargets() []any {
	return []any{&m.ID, &m.License, &m.Arrival, &m.Departure, &m.CreatedAt, &m.UpdatedAt}
}
