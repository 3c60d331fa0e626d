package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

// sessionModel is the document shape. Departure is always written, as null
// while the session is open, so {departure: null} selects open sessions.
// BSON datetimes hold milliseconds; the ledger truncates instants to match.
type sessionModel struct {
	grove.BaseModel `grove:"table:vehicles"`

	ID        string     `grove:"id,pk"      bson:"_id"`
	License   string     `grove:"license"    bson:"license"`
	Arrival   time.Time  `grove:"arrival"    bson:"arrival"`
	Departure *time.Time `grove:"departure"  bson:"departure"`
	CreatedAt time.Time  `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at" bson:"updated_at"`
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
