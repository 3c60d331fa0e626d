package types

import "time"

// Entity carries bookkeeping timestamps for stored records.
// Embed it in domain types; it never takes part in domain rules.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates an Entity stamped with the current UTC time.
func NewEntity() Entity {
	return NewEntityAt(time.Now())
}

// NewEntityAt creates an Entity stamped with t, normalized to UTC.
func NewEntityAt(t time.Time) Entity {
	t = t.UTC()
	return Entity{
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// Touch sets UpdatedAt to now.
func (e *Entity) Touch() {
	e.TouchAt(time.Now())
}

// TouchAt sets UpdatedAt to t, normalized to UTC.
func (e *Entity) TouchAt(t time.Time) {
	e.UpdatedAt = t.UTC()
}

// Age returns how long ago the entity was created.
func (e Entity) Age() time.Duration {
	return time.Since(e.CreatedAt)
}
