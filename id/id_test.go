package id_test

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/xraph/carpark/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"SessionID", id.NewSessionID, "sess_"},
		{"AuditID", id.NewAuditID, "aud_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseSessionID(t *testing.T) {
	original := id.NewSessionID()

	parsed, err := id.ParseSessionID(original.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
	}

	padded, err := id.ParseSessionID("  " + original.String() + "\n")
	if err != nil {
		t.Fatalf("parse with whitespace failed: %v", err)
	}
	if padded.String() != original.String() {
		t.Errorf("whitespace not trimmed: %q", padded.String())
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"garbage", "not-an-id"},
		{"wrong prefix", id.NewAuditID().String()},
		{"old plate-style handle", "ABC123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := id.ParseSessionID(tt.input); err == nil {
				t.Errorf("expected error for %q, got nil", tt.input)
			}
		})
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewSessionID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var empty id.ID
	if err := empty.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !empty.IsNil() {
		t.Error("expected nil after unmarshal of empty text")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewSessionID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}
	if fromBytes.String() != original.String() {
		t.Errorf("mismatch: %q != %q", fromBytes.String(), original.String())
	}

	val, err = id.Nil.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}

	if err := scanned2.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestCompareFollowsCreationOrder(t *testing.T) {
	ids := make([]id.ID, 5)
	for i := range ids {
		ids[i] = id.NewSessionID()
		time.Sleep(2 * time.Millisecond)
	}

	sorted := make([]id.ID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Compare(sorted[b]) < 0 })

	for i := range ids {
		if ids[i].String() != sorted[i].String() {
			t.Fatalf("position %d: generated %q, sorted %q", i, ids[i], sorted[i])
		}
	}

	if ids[0].Compare(ids[0]) != 0 {
		t.Error("an ID should compare equal to itself")
	}
	if id.Nil.Compare(ids[0]) >= 0 {
		t.Error("Nil should sort before any generated ID")
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		s := id.NewSessionID().String()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate session ID %q", s)
		}
		seen[s] = struct{}{}
	}
}
