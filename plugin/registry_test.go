package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/plugin"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

type recorder struct {
	name string

	mu     sync.Mutex
	events []string
	err    error
	block  chan struct{}
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) add(e string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) OnSessionOpened(_ context.Context, _ id.SessionID, license string, _ time.Time) error {
	return r.add("opened:" + license)
}

func (r *recorder) OnSessionClosed(_ context.Context, sess *session.Session, _ int64) error {
	err := r.add("closed:" + sess.License)
	sess.License = "MUTATED"
	return err
}

func (r *recorder) OnChargeComputed(_ context.Context, _ int64, amount types.Money) error {
	return r.add("charged:" + amount.String())
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type nameOnly struct{ name string }

func (n nameOnly) Name() string { return n.name }

func quietRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := quietRegistry()

	if err := r.Register(nameOnly{"a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(nameOnly{"a"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
	if r.Get("a") == nil || r.Get("b") != nil {
		t.Error("Get did not find exactly the registered plugin")
	}
}

func TestDispatchOnlyToImplementers(t *testing.T) {
	r := quietRegistry()
	rec := &recorder{name: "rec"}
	if err := r.Register(rec); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(nameOnly{"bare"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	sess := &session.Session{ID: id.NewSessionID(), License: "ABC123"}

	r.EmitSessionOpened(ctx, sess.ID, "ABC123", time.Now())
	r.EmitSessionClosed(ctx, sess, 60)
	r.EmitChargeComputed(ctx, 3600, types.USD(750))
	r.EmitOutboundRejected(ctx, sess.ID, errors.New("ignored"))

	want := []string{"opened:ABC123", "closed:ABC123", "charged:$7.50"}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}

	if sess.License != "ABC123" {
		t.Errorf("plugin mutated caller's session: %q", sess.License)
	}
}

func TestHookErrorsAreSwallowed(t *testing.T) {
	r := quietRegistry()
	rec := &recorder{name: "failing", err: errors.New("boom")}
	if err := r.Register(rec); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r.EmitSessionOpened(context.Background(), id.NewSessionID(), "ABC123", time.Now())

	if len(rec.snapshot()) != 1 {
		t.Error("hook should still have run")
	}
}

func TestHookTimeout(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	rec := &recorder{name: "slow", block: make(chan struct{})}
	if err := r.Register(rec); err != nil {
		t.Fatalf("Register: %v", err)
	}

	start := time.Now()
	r.EmitSessionOpened(context.Background(), id.NewSessionID(), "ABC123", time.Now())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("emit blocked for %v", elapsed)
	}

	close(rec.block)
}
