// Package api is the HTTP transport for the carpark ledger.
//
// Every success is wrapped as {"message":"OK","data":...}; every failure is
// {"message":...,"error":<kind>} with a status derived from the error kind.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
)

const (
	routeInbound   = "/api/inbound"
	routeOutbound  = "/api/outbound"
	routeFee       = "/api/fee"
	routeParked    = "/api/parked"
	routeOccupancy = "/api/occupancy"
)

// Handler serves the ledger over HTTP.
type Handler struct {
	ledger    *carpark.Ledger
	logger    *slog.Logger
	validator *validator.Validate
	registry  *prometheus.Registry
	metrics   *Metrics
	version   string

	root http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithRegistry sets the Prometheus registry that transport metrics are
// registered with and /metrics exposes. Share it with other collectors to
// serve them from the same endpoint.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(h *Handler) { h.registry = reg }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(h *Handler) { h.version = v }
}

// New creates a Handler for l.
func New(l *carpark.Ledger, opts ...Option) *Handler {
	h := &Handler{
		ledger:    l,
		logger:    slog.Default(),
		validator: newValidator(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.registry == nil {
		h.registry = prometheus.NewRegistry()
	}
	h.metrics = NewMetrics(h.registry)

	mux := http.NewServeMux()
	mux.HandleFunc(routeInbound, h.handleInbound)
	mux.HandleFunc(routeOutbound, h.handleOutbound)
	mux.HandleFunc(routeFee, h.handleFee)
	mux.HandleFunc(routeParked, h.handleParked)
	mux.HandleFunc(routeOccupancy, h.handleOccupancy)
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Not Found", Error: string(carpark.KindNotFound)})
	})

	h.root = RequestIDMiddleware(h.logger)(MetricsMiddleware(h.metrics)(mux))
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// Registry returns the Prometheus registry behind /metrics.
func (h *Handler) Registry() *prometheus.Registry { return h.registry }

// ──────────────────────────────────────────────────
// Handlers
// ──────────────────────────────────────────────────

type inboundResponse struct {
	RecordID id.SessionID `json:"recordID"`
}

func (h *Handler) handleInbound(w http.ResponseWriter, r *http.Request) {
	if !enforce(w, r, http.MethodPost) {
		return
	}

	var req inboundRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validate(&req); err != nil {
		h.fail(w, r, err)
		return
	}

	var arrival time.Time
	if req.Arrival != nil {
		arrival = *req.Arrival
	}
	sessionID, err := h.ledger.RegisterInbound(r.Context(), req.License, arrival)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, inboundResponse{RecordID: sessionID})
}

type outboundResponse struct {
	RecordID   id.SessionID `json:"recordID"`
	License    string       `json:"license"`
	Arrival    time.Time    `json:"arrival"`
	Departure  time.Time    `json:"departure"`
	TimeParked int64        `json:"timeParked"`
	Fee        float64      `json:"fee"`
	Amount     string       `json:"amount"`
}

func (h *Handler) handleOutbound(w http.ResponseWriter, r *http.Request) {
	if !enforce(w, r, http.MethodPost) {
		return
	}

	var req outboundRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validate(&req); err != nil {
		h.fail(w, r, err)
		return
	}
	sessionID, err := id.ParseSessionID(req.RecordID)
	if err != nil {
		h.fail(w, r, carpark.ValidationError{Field: "recordID", Message: "is not a session id"})
		return
	}

	var departure time.Time
	if req.Departure != nil {
		departure = *req.Departure
	}
	receipt, err := h.ledger.Checkout(r.Context(), sessionID, departure)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond(w, outboundResponse{
		RecordID:   receipt.Session.ID,
		License:    receipt.Session.License,
		Arrival:    receipt.Session.Arrival,
		Departure:  *receipt.Session.Departure,
		TimeParked: receipt.DurationSeconds,
		Fee:        receipt.Fee.Raw,
		Amount:     receipt.Fee.Amount.String(),
	})
}

type feeResponse struct {
	TimeParked int64   `json:"timeParked"`
	Rate       float64 `json:"rate"`
	Fee        float64 `json:"fee"`
	Amount     int64   `json:"amount"`
	Currency   string  `json:"currency"`
	Display    string  `json:"display"`
}

func (h *Handler) handleFee(w http.ResponseWriter, r *http.Request) {
	if !enforce(w, r, http.MethodGet) {
		return
	}

	var req feeRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := queryInt64(r, "timeParked", &req.TimeParked); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validate(&req); err != nil {
		h.fail(w, r, err)
		return
	}

	fee, err := h.ledger.Charge(r.Context(), *req.TimeParked)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, feeResponse{
		TimeParked: fee.Seconds,
		Rate:       fee.RatePerHour,
		Fee:        fee.Raw,
		Amount:     fee.Amount.Amount,
		Currency:   fee.Amount.Currency,
		Display:    fee.Amount.String(),
	})
}

type parkedResponse struct {
	License string `json:"license"`
	Parked  bool   `json:"parked"`
}

func (h *Handler) handleParked(w http.ResponseWriter, r *http.Request) {
	if !enforce(w, r, http.MethodGet) {
		return
	}

	var req parkedRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if license := r.URL.Query().Get("license"); license != "" {
		req.License = license
	}
	if err := h.validate(&req); err != nil {
		h.fail(w, r, err)
		return
	}

	parked, err := h.ledger.IsParked(r.Context(), req.License)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, parkedResponse{License: session.NormalizeLicense(req.License), Parked: parked})
}

type occupancyResponse struct {
	Count    int                `json:"count"`
	Sessions []*session.Session `json:"sessions"`
}

func (h *Handler) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	if !enforce(w, r, http.MethodGet) {
		return
	}

	open, err := h.ledger.CurrentOccupancy(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if open == nil {
		open = []*session.Session{}
	}
	respond(w, occupancyResponse{Count: len(open), Sessions: open})
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "healthy",
		Checks:  map[string]string{"store": "ok"},
		Version: h.version,
	}
	status := http.StatusOK
	if err := h.ledger.Health(r.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Checks["store"] = string(carpark.KindOf(err))
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
