package mongo

import (
	"testing"
	"time"

	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

func TestSessionModelRoundTrip(t *testing.T) {
	arrival := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	dep := arrival.Add(90 * time.Minute)

	tests := []struct {
		name      string
		departure *time.Time
	}{
		{"open", nil},
		{"closed", &dep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &session.Session{
				Entity:    types.NewEntity(),
				ID:        id.NewSessionID(),
				License:   "ABC123",
				Arrival:   arrival,
				Departure: tt.departure,
			}
			out, err := fromSessionModel(toSessionModel(in))
			if err != nil {
				t.Fatalf("fromSessionModel: %v", err)
			}
			if out.ID != in.ID || out.License != in.License || !out.Arrival.Equal(in.Arrival) {
				t.Errorf("round trip = %+v, want %+v", out, in)
			}
			if out.IsOpen() != in.IsOpen() {
				t.Errorf("IsOpen = %v, want %v", out.IsOpen(), in.IsOpen())
			}
		})
	}
}

func TestQueriesTargetConfiguredCollection(t *testing.T) {
	mdb := mongodriver.New()

	if got := mdb.NewInsert(&sessionModel{}).GetCollection(); got != DefaultCollection {
		t.Errorf("model collection = %q, want %q", got, DefaultCollection)
	}

	var models []sessionModel
	if got := mdb.NewFind(&models).Collection("lot_b").GetCollection(); got != "lot_b" {
		t.Errorf("overridden collection = %q, want lot_b", got)
	}
}

func TestFromSessionModelRejectsBadID(t *testing.T) {
	if _, err := fromSessionModel(&sessionModel{ID: "not-a-session"}); err == nil {
		t.Error("expected a malformed id to be rejected")
	}
}
