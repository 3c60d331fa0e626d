package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/api"
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/store/memory"
)

var t0 = time.Date(2024, 5, 4, 9, 30, 0, 0, time.UTC)

type envelope struct {
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Error    string          `json:"error"`
	Expected string          `json:"expected"`
	Received string          `json:"received"`
}

func newServer(t *testing.T, opts ...carpark.Option) *api.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := carpark.New(memory.New(), append([]carpark.Option{carpark.WithLogger(logger)}, opts...)...)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() }) //nolint:errcheck // test cleanup
	return api.New(l, api.WithLogger(logger), api.WithRegistry(prometheus.NewRegistry()))
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, target, err, rec.Body.String())
		}
	}
	return rec, env
}

func inbound(t *testing.T, h http.Handler, license string, arrival time.Time) string {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"license": license, "arrival": arrival}) //nolint:errchkjson // test input
	rec, env := do(t, h, http.MethodPost, "/api/inbound", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("inbound status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var data struct {
		RecordID string `json:"recordID"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode inbound data: %v", err)
	}
	return data.RecordID
}

func TestInboundOutboundRoundTrip(t *testing.T) {
	h := newServer(t)

	recordID := inbound(t, h, "abc123", t0)
	if _, err := id.ParseSessionID(recordID); err != nil {
		t.Fatalf("recordID %q is not a session id: %v", recordID, err)
	}

	body := `{"recordID":"` + recordID + `","departure":"` + t0.Add(5400*time.Second).Format(time.RFC3339) + `"}`
	rec, env := do(t, h, http.MethodPost, "/api/outbound", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("outbound status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env.Message != "OK" {
		t.Errorf("message = %q, want OK", env.Message)
	}

	var data struct {
		License    string  `json:"license"`
		TimeParked int64   `json:"timeParked"`
		Fee        float64 `json:"fee"`
		Amount     string  `json:"amount"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode outbound data: %v", err)
	}
	if data.License != "ABC123" || data.TimeParked != 5400 || data.Fee != 11.25 || data.Amount != "$11.25" {
		t.Errorf("outbound data = %+v", data)
	}

	rec, env = do(t, h, http.MethodPost, "/api/outbound", body)
	if rec.Code != http.StatusConflict || env.Error != string(carpark.KindAlreadyClosed) {
		t.Errorf("second outbound = %d %q, want 409 already_closed", rec.Code, env.Error)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newServer(t)
	recordID := inbound(t, h, "ABC123", t0)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantKind   carpark.Kind
	}{
		{"empty license", http.MethodPost, "/api/inbound", `{"license":""}`, http.StatusBadRequest, carpark.KindInvalidInput},
		{"bad plate", http.MethodPost, "/api/inbound", `{"license":"!!"}`, http.StatusBadRequest, carpark.KindInvalidInput},
		{"malformed json", http.MethodPost, "/api/inbound", `{"license":`, http.StatusBadRequest, carpark.KindInvalidInput},
		{"bad timestamp", http.MethodPost, "/api/inbound", `{"license":"ABC","arrival":"yesterday"}`, http.StatusBadRequest, carpark.KindInvalidInput},
		{"missing record id", http.MethodPost, "/api/outbound", `{}`, http.StatusBadRequest, carpark.KindInvalidInput},
		{"foreign record id", http.MethodPost, "/api/outbound", `{"recordID":"nope"}`, http.StatusBadRequest, carpark.KindInvalidInput},
		{"unknown record id", http.MethodPost, "/api/outbound", `{"recordID":"` + id.NewSessionID().String() + `"}`, http.StatusNotFound, carpark.KindNotFound},
		{"departure before arrival", http.MethodPost, "/api/outbound", `{"recordID":"` + recordID + `","departure":"2024-05-04T09:00:00Z"}`, http.StatusUnprocessableEntity, carpark.KindInvalidDuration},
		{"fee not numeric", http.MethodGet, "/api/fee?timeParked=abc", "", http.StatusBadRequest, carpark.KindInvalidInput},
		{"fee missing", http.MethodGet, "/api/fee", "", http.StatusBadRequest, carpark.KindInvalidInput},
		{"fee negative", http.MethodGet, "/api/fee?timeParked=-5", "", http.StatusUnprocessableEntity, carpark.KindInvalidDuration},
		{"parked without license", http.MethodGet, "/api/parked", "", http.StatusBadRequest, carpark.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if env.Error != string(tt.wantKind) {
				t.Errorf("error kind = %q, want %q", env.Error, tt.wantKind)
			}
			if env.Message == "OK" || env.Message == "" {
				t.Errorf("failure carried message %q", env.Message)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newServer(t)

	rec, env := do(t, h, http.MethodGet, "/api/inbound", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if env.Expected != http.MethodPost || env.Received != http.MethodGet {
		t.Errorf("expected/received = %s/%s", env.Expected, env.Received)
	}
	if rec.Header().Get("Allow") != http.MethodPost {
		t.Errorf("Allow = %q", rec.Header().Get("Allow"))
	}
}

func TestFee(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		target string
		want   float64
		amount int64
	}{
		{"/api/fee?timeParked=3600", 7.50, 750},
		{"/api/fee?timeParked=1800", 3.75, 375},
		{"/api/fee?timeParked=0", 0, 0},
		{"/api/fee?timeParked=5400", 11.25, 1125},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec, env := do(t, h, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			var data struct {
				Fee      float64 `json:"fee"`
				Amount   int64   `json:"amount"`
				Currency string  `json:"currency"`
			}
			if err := json.Unmarshal(env.Data, &data); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if data.Fee != tt.want || data.Amount != tt.amount || data.Currency != "usd" {
				t.Errorf("fee = %+v, want %v / %d usd", data, tt.want, tt.amount)
			}
		})
	}
}

func TestFeeReadsBody(t *testing.T) {
	h := newServer(t)

	rec, env := do(t, h, http.MethodGet, "/api/fee", `{"timeParked":3600}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !bytes.Contains(env.Data, []byte(`"fee":7.5`)) {
		t.Errorf("data = %s", env.Data)
	}
}

func TestParkedAndOccupancy(t *testing.T) {
	h := newServer(t)

	first := inbound(t, h, "AAA111", t0)
	inbound(t, h, "BBB222", t0.Add(time.Minute))
	rec, _ := do(t, h, http.MethodPost, "/api/outbound",
		`{"recordID":"`+first+`","departure":"`+t0.Add(time.Hour).Format(time.RFC3339)+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("outbound status = %d", rec.Code)
	}

	for plate, want := range map[string]bool{"AAA111": false, "bbb222": true, "ZZZ999": false} {
		_, env := do(t, h, http.MethodGet, "/api/parked?license="+plate, "")
		var data struct {
			License string `json:"license"`
			Parked  bool   `json:"parked"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if data.Parked != want {
			t.Errorf("parked(%s) = %v, want %v", plate, data.Parked, want)
		}
	}

	_, env := do(t, h, http.MethodGet, "/api/occupancy", "")
	var occ struct {
		Count    int                `json:"count"`
		Sessions []*session.Session `json:"sessions"`
	}
	if err := json.Unmarshal(env.Data, &occ); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if occ.Count != 1 || len(occ.Sessions) != 1 || occ.Sessions[0].License != "BBB222" {
		t.Errorf("occupancy = %+v", occ)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/occupancy", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/occupancy", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated X-Request-ID")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newServer(t)
	inbound(t, h, "ABC123", t0)

	rec, _ := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `carpark_http_requests_total{method="POST",route="/api/inbound",status="ok"} 1`) {
		t.Errorf("metrics missing inbound counter:\n%s", rec.Body.String())
	}
}

func TestUnhealthyStoreIs503(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := memory.New()
	l := carpark.New(s, carpark.WithLogger(logger))
	h := api.New(l, api.WithLogger(logger))
	_ = s.Close() //nolint:errcheck // closing to simulate an unreachable store

	rec, _ := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want 503", rec.Code)
	}

	rec, env := do(t, h, http.MethodGet, "/api/occupancy", "")
	if rec.Code != http.StatusServiceUnavailable || env.Error != string(carpark.KindStoreUnavailable) {
		t.Errorf("occupancy = %d %q, want 503 store_unavailable", rec.Code, env.Error)
	}
}
