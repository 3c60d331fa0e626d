package extension

import (
	"time"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/plugin"
	"github.com/xraph/carpark/store"
)

// Option configures the carpark Forge extension.
type Option func(*Extension)

// WithStore sets the session store. Defaults to an in-memory store.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a carpark.Option through to the underlying ledger.
func WithLedgerOption(opt carpark.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, carpark.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents the HTTP handler from being provided.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix the handler is mounted under.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithRate sets the hourly parking rate.
func WithRate(ratePerHour float64) Option {
	return func(e *Extension) { e.config.Rate = ratePerHour }
}

// WithCurrency sets the currency fees settle in.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.StoreTimeout = d }
}
