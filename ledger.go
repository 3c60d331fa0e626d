package carpark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/plugin"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/store"
	"github.com/xraph/carpark/types"
)

// DefaultStoreTimeout bounds every store call made by the ledger.
const DefaultStoreTimeout = 5 * time.Second

// InstantPrecision is the resolution arrival and departure are stored at. It
// is the coarsest any backend keeps (BSON datetimes hold milliseconds).
const InstantPrecision = time.Millisecond

// Ledger is the parking session engine. It opens and closes sessions, prices
// stays and answers presence queries. It holds no session state of its own:
// the store is the single shared resource, so any number of goroutines may
// call a Ledger concurrently.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	now     func() time.Time

	// Configuration
	ratePerHour  float64
	currency     string
	storeTimeout time.Duration
}

// New creates a new Ledger over s.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:        s,
		plugins:      plugin.NewRegistry(),
		logger:       slog.Default(),
		now:          time.Now,
		ratePerHour:  DefaultRatePerHour,
		currency:     DefaultCurrency,
		storeTimeout: DefaultStoreTimeout,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithRate sets the hourly parking rate used by Charge and Checkout.
func WithRate(ratePerHour float64) Option {
	return func(l *Ledger) { l.ratePerHour = ratePerHour }
}

// WithCurrency sets the ISO 4217 currency fees are settled in.
func WithCurrency(currency string) Option {
	return func(l *Ledger) { l.currency = currency }
}

// WithStoreTimeout bounds each store call. Non-positive values are ignored.
func WithStoreTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.storeTimeout = d
		}
	}
}

// WithClock replaces the clock used for defaulted arrival and departure times.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Rate returns the configured hourly rate.
func (l *Ledger) Rate() float64 { return l.ratePerHour }

// Currency returns the configured settlement currency.
func (l *Ledger) Currency() string { return l.currency }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Validate reports a configuration the ledger cannot price with.
func (l *Ledger) Validate() error {
	if err := validateRate(l.ratePerHour); err != nil {
		return err
	}
	if _, err := types.FromMajor(0, l.currency); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}

// Start validates configuration, migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.Validate(); err != nil {
		return err
	}

	if err := l.store.Migrate(ctx); err != nil {
		return fmt.Errorf("carpark: migrate store: %w", err)
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("carpark ledger started",
		"rate_per_hour", l.ratePerHour,
		"currency", l.currency,
		"store_timeout", l.storeTimeout,
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Health pings the store within the store timeout.
func (l *Ledger) Health(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	return l.storeErr(ctx, "ping", l.store.Ping(sctx))
}

// ──────────────────────────────────────────────────
// Inbound / outbound
// ──────────────────────────────────────────────────

// RegisterInbound opens a session for a vehicle entering the facility and
// returns its ID. A zero arrival means now. Arrival is stored truncated to
// InstantPrecision. The license is trimmed and upper-cased; a vehicle that
// already has an open session still gets a new, distinct one.
func (l *Ledger) RegisterInbound(ctx context.Context, license string, arrival time.Time) (id.SessionID, error) {
	license = session.NormalizeLicense(license)
	if license == "" {
		return id.Nil, ValidationError{Field: "license", Message: "must not be empty"}
	}
	if arrival.IsZero() {
		arrival = l.now()
	}
	arrival = storedInstant(arrival)

	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	sessionID, err := l.store.CreateSession(sctx, license, arrival)
	if err != nil {
		return id.Nil, l.storeErr(ctx, "create session", err)
	}

	l.logger.Debug("session opened",
		"session_id", sessionID.String(),
		"license", license,
		"arrival", arrival,
	)
	l.plugins.EmitSessionOpened(ctx, sessionID, license, arrival)

	return sessionID, nil
}

// RegisterOutbound closes a session and returns how long the vehicle stayed,
// in whole seconds. A zero departure means now. Departure is stored truncated
// to InstantPrecision.
func (l *Ledger) RegisterOutbound(ctx context.Context, sessionID id.SessionID, departure time.Time) (int64, error) {
	_, secs, err := l.closeSession(ctx, sessionID, departure)
	return secs, err
}

// Receipt is the result of a checkout.
type Receipt struct {
	Session         *session.Session `json:"session"`
	DurationSeconds int64            `json:"timeParked"`
	Fee             *Fee             `json:"fee"`
}

// Checkout closes a session and prices the stay at the configured rate.
// The session stays closed even if pricing fails.
func (l *Ledger) Checkout(ctx context.Context, sessionID id.SessionID, departure time.Time) (*Receipt, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	sess, secs, err := l.closeSession(ctx, sessionID, departure)
	if err != nil {
		return nil, err
	}

	fee, err := l.Charge(ctx, secs)
	if err != nil {
		return nil, err
	}

	return &Receipt{Session: sess, DurationSeconds: secs, Fee: fee}, nil
}

func (l *Ledger) closeSession(ctx context.Context, sessionID id.SessionID, departure time.Time) (*session.Session, int64, error) {
	if sessionID.IsNil() {
		err := ValidationError{Field: "recordID", Message: "must be set"}
		l.plugins.EmitOutboundRejected(ctx, sessionID, err)
		return nil, 0, err
	}
	if departure.IsZero() {
		departure = l.now()
	}
	departure = storedInstant(departure)

	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	sess, err := l.store.CloseSession(sctx, sessionID, departure)
	if err != nil {
		err = l.storeErr(ctx, "close session", err)
		l.logger.Debug("outbound rejected",
			"session_id", sessionID.String(),
			"error", err,
		)
		l.plugins.EmitOutboundRejected(ctx, sessionID, err)
		return nil, 0, err
	}

	secs, closed := sess.DurationSeconds()
	if !closed || secs < 0 {
		// The store guards departure >= arrival; this only trips on a
		// backend that does not.
		err := fmt.Errorf("%w: session %s closed with %d seconds", ErrInvalidDuration, sessionID, secs)
		l.plugins.EmitOutboundRejected(ctx, sessionID, err)
		return nil, 0, err
	}

	l.logger.Debug("session closed",
		"session_id", sessionID.String(),
		"license", sess.License,
		"duration_seconds", secs,
	)
	l.plugins.EmitSessionClosed(ctx, sess, secs)

	return sess, secs, nil
}

// ──────────────────────────────────────────────────
// Pricing
// ──────────────────────────────────────────────────

// Charge prices durationSeconds at the configured rate and rounds the result
// to the configured currency.
func (l *Ledger) Charge(ctx context.Context, durationSeconds int64) (*Fee, error) {
	raw, err := ComputeCharge(durationSeconds, l.ratePerHour)
	if err != nil {
		return nil, err
	}

	amount, err := types.FromMajor(raw, l.currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	l.plugins.EmitChargeComputed(ctx, durationSeconds, amount)

	return &Fee{
		Seconds:     durationSeconds,
		RatePerHour: l.ratePerHour,
		Raw:         raw,
		Amount:      amount,
	}, nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// IsParked reports whether the license has at least one open session.
func (l *Ledger) IsParked(ctx context.Context, license string) (bool, error) {
	open, err := l.FindOpen(ctx, license, 1)
	if err != nil {
		return false, err
	}
	return len(open) > 0, nil
}

// FindOpen returns up to limit open sessions for the license, latest arrival
// first. A non-positive limit means 1.
func (l *Ledger) FindOpen(ctx context.Context, license string, limit int) ([]*session.Session, error) {
	license = session.NormalizeLicense(license)
	if license == "" {
		return nil, ValidationError{Field: "license", Message: "must not be empty"}
	}
	if limit <= 0 {
		limit = 1
	}

	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	open, err := l.store.FindOpenByLicense(sctx, license, limit)
	if err != nil {
		return nil, l.storeErr(ctx, "find open by license", err)
	}
	return open, nil
}

// CurrentOccupancy returns every open session ordered by ID.
func (l *Ledger) CurrentOccupancy(ctx context.Context) ([]*session.Session, error) {
	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	open, err := l.store.ListOpen(sctx)
	if err != nil {
		return nil, l.storeErr(ctx, "list open", err)
	}
	return open, nil
}

// Session returns a session by ID, open or closed.
func (l *Ledger) Session(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	sess, err := l.store.GetSession(sctx, sessionID)
	if err != nil {
		return nil, l.storeErr(ctx, "get session", err)
	}
	return sess, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// storedInstant is t in UTC at the precision every store keeps.
func storedInstant(t time.Time) time.Time {
	return t.UTC().Truncate(InstantPrecision)
}

// storeErr normalizes a store failure. Domain errors pass through; a timed
// out or canceled store call becomes ErrStoreUnavailable.
func (l *Ledger) storeErr(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	switch KindOf(err) {
	case KindInvalidInput, KindNotFound, KindAlreadyClosed, KindInvalidDuration, KindInvalidConfiguration:
		return err
	case KindStoreUnavailable:
		if !errors.Is(err, ErrStoreUnavailable) {
			err = Unavailable("carpark: "+op, err)
		}
	default:
		err = Unavailable("carpark: "+op, err)
	}

	l.logger.Error("store call failed",
		"op", op,
		"error", err,
	)
	l.plugins.EmitStoreError(ctx, op, err)

	return err
}
