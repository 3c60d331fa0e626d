// Package storetest is a conformance suite for store.Store backends.
//
// Every backend runs the same suite so that the memory store used in unit
// tests and the database stores used in production agree on ordering,
// error kinds and close atomicity.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/store"
)

// Factory returns a fresh, migrated, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// T0 is the reference arrival used by the suite. Whole seconds keep every
// backend's timestamp precision out of the comparisons.
var T0 = time.Date(2024, 5, 4, 9, 30, 0, 0, time.UTC)

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateThenGet", testCreateThenGet},
		{"CreateRejectsEmptyLicense", testCreateRejectsEmptyLicense},
		{"CloseSetsDeparture", testCloseSetsDeparture},
		{"SecondCloseIsAlreadyClosed", testSecondCloseIsAlreadyClosed},
		{"CloseUnknownIsNotFound", testCloseUnknownIsNotFound},
		{"CloseBeforeArrivalIsInvalidDuration", testCloseBeforeArrival},
		{"FindOpenByLicense", testFindOpenByLicense},
		{"FindOpenByLicenseEmpty", testFindOpenByLicenseEmpty},
		{"FindOpenByLicenseNonPositiveLimit", testFindOpenByLicenseNonPositiveLimit},
		{"SamePlateTwiceGetsDistinctIDs", testSamePlateTwice},
		{"ListOpenExcludesClosed", testListOpenExcludesClosed},
		{"ConcurrentCloseHasOneWinner", testConcurrentClose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() }) //nolint:errcheck // test cleanup
			tt.fn(t, s)
		})
	}
}

func testCreateThenGet(t *testing.T, s store.Store) {
	ctx := context.Background()

	sid, err := s.CreateSession(ctx, "ABC123", T0)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sid.Prefix() != id.PrefixSession {
		t.Errorf("prefix = %q, want %q", sid.Prefix(), id.PrefixSession)
	}

	got, err := s.GetSession(ctx, sid)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.License != "ABC123" {
		t.Errorf("license = %q", got.License)
	}
	if !got.Arrival.Equal(T0) {
		t.Errorf("arrival = %v, want %v", got.Arrival, T0)
	}
	if !got.IsOpen() {
		t.Error("new session should be open")
	}

	if _, err := s.GetSession(ctx, id.NewSessionID()); !errors.Is(err, carpark.ErrNotFound) {
		t.Errorf("GetSession(unknown) = %v, want ErrNotFound", err)
	}
}

func testCreateRejectsEmptyLicense(t *testing.T, s store.Store) {
	for _, license := range []string{"", "   "} {
		if _, err := s.CreateSession(context.Background(), license, T0); !errors.Is(err, carpark.ErrInvalidInput) {
			t.Errorf("CreateSession(%q) = %v, want ErrInvalidInput", license, err)
		}
	}
}

func testCloseSetsDeparture(t *testing.T, s store.Store) {
	ctx := context.Background()
	sid := mustCreate(t, s, "ABC123", T0)

	dep := T0.Add(5400 * time.Second)
	closed, err := s.CloseSession(ctx, sid, dep)
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if closed.Departure == nil || !closed.Departure.Equal(dep) {
		t.Fatalf("departure = %v, want %v", closed.Departure, dep)
	}
	if secs, _ := closed.DurationSeconds(); secs != 5400 {
		t.Errorf("duration = %d, want 5400", secs)
	}

	got, err := s.GetSession(ctx, sid)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.IsOpen() {
		t.Error("stored session still open")
	}
}

func testSecondCloseIsAlreadyClosed(t *testing.T, s store.Store) {
	ctx := context.Background()
	sid := mustCreate(t, s, "ABC123", T0)

	first := T0.Add(time.Hour)
	if _, err := s.CloseSession(ctx, sid, first); err != nil {
		t.Fatalf("first close: %v", err)
	}

	if _, err := s.CloseSession(ctx, sid, T0.Add(2*time.Hour)); !errors.Is(err, carpark.ErrAlreadyClosed) {
		t.Fatalf("second close = %v, want ErrAlreadyClosed", err)
	}

	got, err := s.GetSession(ctx, sid)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Departure == nil || !got.Departure.Equal(first) {
		t.Errorf("departure = %v, want original %v", got.Departure, first)
	}
}

func testCloseUnknownIsNotFound(t *testing.T, s store.Store) {
	if _, err := s.CloseSession(context.Background(), id.NewSessionID(), T0); !errors.Is(err, carpark.ErrNotFound) {
		t.Errorf("CloseSession(unknown) = %v, want ErrNotFound", err)
	}
}

func testCloseBeforeArrival(t *testing.T, s store.Store) {
	ctx := context.Background()
	sid := mustCreate(t, s, "ABC123", T0)

	if _, err := s.CloseSession(ctx, sid, T0.Add(-time.Second)); !errors.Is(err, carpark.ErrInvalidDuration) {
		t.Fatalf("CloseSession(before arrival) = %v, want ErrInvalidDuration", err)
	}

	got, err := s.GetSession(ctx, sid)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !got.IsOpen() {
		t.Error("rejected close must leave the session open")
	}

	// Departure equal to arrival is a valid zero-length stay.
	if _, err := s.CloseSession(ctx, sid, T0); err != nil {
		t.Errorf("CloseSession(at arrival) = %v", err)
	}
}

func testFindOpenByLicense(t *testing.T, s store.Store) {
	ctx := context.Background()

	older := mustCreate(t, s, "ABC123", T0)
	newer := mustCreate(t, s, "ABC123", T0.Add(time.Minute))
	mustCreate(t, s, "ZZZ999", T0)

	got, err := s.FindOpenByLicense(ctx, "ABC123", 1)
	if err != nil {
		t.Fatalf("FindOpenByLicense: %v", err)
	}
	if len(got) != 1 || got[0].ID.String() != newer.String() {
		t.Fatalf("limit 1 = %v, want [%s]", ids(got), newer)
	}

	got, err = s.FindOpenByLicense(ctx, "ABC123", 10)
	if err != nil {
		t.Fatalf("FindOpenByLicense: %v", err)
	}
	if len(got) != 2 || got[0].ID.String() != newer.String() || got[1].ID.String() != older.String() {
		t.Fatalf("limit 10 = %v, want [%s %s]", ids(got), newer, older)
	}

	if _, err := s.CloseSession(ctx, newer, T0.Add(time.Hour)); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	got, err = s.FindOpenByLicense(ctx, "ABC123", 10)
	if err != nil {
		t.Fatalf("FindOpenByLicense: %v", err)
	}
	if len(got) != 1 || got[0].ID.String() != older.String() {
		t.Errorf("after close = %v, want [%s]", ids(got), older)
	}
}

func testFindOpenByLicenseEmpty(t *testing.T, s store.Store) {
	got, err := s.FindOpenByLicense(context.Background(), "NOPE", 5)
	if err != nil {
		t.Fatalf("FindOpenByLicense: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want none", ids(got))
	}
}

func testFindOpenByLicenseNonPositiveLimit(t *testing.T, s store.Store) {
	mustCreate(t, s, "ABC123", T0)
	newer := mustCreate(t, s, "ABC123", T0.Add(time.Minute))

	for _, limit := range []int{0, -3} {
		got, err := s.FindOpenByLicense(context.Background(), "ABC123", limit)
		if err != nil {
			t.Fatalf("FindOpenByLicense(limit %d): %v", limit, err)
		}
		if len(got) != 1 || got[0].ID.String() != newer.String() {
			t.Errorf("limit %d = %v, want [%s]", limit, ids(got), newer)
		}
	}
}

func testSamePlateTwice(t *testing.T, s store.Store) {
	ctx := context.Background()

	a := mustCreate(t, s, "ABC123", T0)
	b := mustCreate(t, s, "ABC123", T0)
	if a.String() == b.String() {
		t.Fatalf("both inbounds got %s", a)
	}

	got, err := s.FindOpenByLicense(ctx, "ABC123", 2)
	if err != nil {
		t.Fatalf("FindOpenByLicense: %v", err)
	}
	found := map[string]bool{}
	for _, sess := range got {
		found[sess.ID.String()] = true
	}
	if len(got) != 2 || !found[a.String()] || !found[b.String()] {
		t.Errorf("got %v, want both %s and %s", ids(got), a, b)
	}
}

func testListOpenExcludesClosed(t *testing.T, s store.Store) {
	ctx := context.Background()

	a := mustCreate(t, s, "AAA111", T0)
	b := mustCreate(t, s, "BBB222", T0.Add(time.Second))
	c := mustCreate(t, s, "CCC333", T0.Add(2*time.Second))

	if _, err := s.CloseSession(ctx, b, T0.Add(time.Hour)); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	got, err := s.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListOpen = %v, want 2 sessions", ids(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].ID.Compare(got[i].ID) >= 0 {
			t.Errorf("ListOpen not ordered by ID: %v", ids(got))
		}
	}
	found := map[string]bool{got[0].ID.String(): true, got[1].ID.String(): true}
	if !found[a.String()] || !found[c.String()] {
		t.Errorf("ListOpen = %v, want %s and %s", ids(got), a, c)
	}
}

func testConcurrentClose(t *testing.T, s store.Store) {
	const workers = 16
	sid := mustCreate(t, s, "ABC123", T0)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		closedErr int
		other     []error
	)
	start := make(chan struct{})

	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := s.CloseSession(context.Background(), sid, T0.Add(time.Duration(i+1)*time.Minute))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, carpark.ErrAlreadyClosed):
				closedErr++
			default:
				other = append(other, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if successes != 1 || closedErr != workers-1 {
		t.Errorf("successes = %d, already closed = %d; want 1 and %d", successes, closedErr, workers-1)
	}
}

func mustCreate(t *testing.T, s store.Store, license string, arrival time.Time) id.SessionID {
	t.Helper()
	sid, err := s.CreateSession(context.Background(), license, arrival)
	if err != nil {
		t.Fatalf("CreateSession(%q): %v", license, err)
	}
	return sid
}

func ids(sessions []*session.Session) []string {
	out := make([]string, len(sessions))
	for i, sess := range sessions {
		out[i] = sess.ID.String()
	}
	return out
}
