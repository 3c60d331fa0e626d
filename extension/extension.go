// Package extension provides the Forge extension adapter for carpark.
//
// It implements the forge.Extension interface to integrate the parking
// ledger into a Forge application with DI registration and lifecycle
// management. The ledger and, unless routes are disabled, its HTTP handler
// are provided to the container for the host to resolve and mount.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.carpark" or "carpark" keys.
package extension

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/api"
	"github.com/xraph/carpark/store"
	"github.com/xraph/carpark/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "carpark"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Parking session ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts carpark as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *carpark.Ledger
	handler    *api.Handler
	store      store.Store
	ledgerOpts []carpark.Option
}

// New creates a new carpark Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger. This is nil until Register is called.
func (e *Extension) Ledger() *carpark.Ledger { return e.ledger }

// Handler returns the HTTP handler mounted under the configured base path,
// or nil when routes are disabled or Register has not run.
func (e *Extension) Handler() http.Handler {
	if e.handler == nil {
		return nil
	}
	return mount(e.config.BasePath, e.handler)
}

// Register implements [forge.Extension]. It loads configuration,
// builds the ledger and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.build()

	if err := vessel.Provide(fapp.Container(), func() (*carpark.Ledger, error) {
		return e.ledger, nil
	}); err != nil {
		return err
	}

	if e.handler == nil {
		return nil
	}
	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// build constructs the ledger and handler from the resolved config.
func (e *Extension) build() {
	e.ledger = carpark.New(e.store, e.buildLedgerOpts()...)
	if !e.config.DisableRoutes {
		e.handler = api.New(e.ledger, api.WithVersion(ExtensionVersion))
	}
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("carpark: extension not initialized")
	}

	if e.config.DisableMigrate {
		// Still refuse to serve with a rate the ledger cannot price with.
		if err := e.ledger.Validate(); err != nil {
			return err
		}
	} else if err := e.ledger.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.ledger != nil {
		if err := e.ledger.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("carpark: ledger not initialized")
	}
	return e.ledger.Health(ctx)
}

// buildLedgerOpts constructs carpark.Option values from the resolved config.
// Pass-through options come last so they win over config.
func (e *Extension) buildLedgerOpts() []carpark.Option {
	opts := make([]carpark.Option, 0, len(e.ledgerOpts)+3)

	opts = append(opts,
		carpark.WithRate(e.config.Rate),
		carpark.WithCurrency(e.config.Currency),
	)
	if e.config.StoreTimeout > 0 {
		opts = append(opts, carpark.WithStoreTimeout(e.config.StoreTimeout))
	}

	return append(opts, e.ledgerOpts...)
}

// mount serves h under prefix. An empty or "/" prefix serves h as is.
func mount(prefix string, h http.Handler) http.Handler {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return h
	}
	return http.StripPrefix(prefix, h)
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("carpark: configuration is required but not found in config files; " +
				"ensure 'extensions.carpark' or 'carpark' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("carpark: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("rate", e.config.Rate),
		forge.F("currency", e.config.Currency),
		forge.F("store_timeout", e.config.StoreTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.carpark", "carpark"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("carpark: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("carpark: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.Rate == 0 {
		cfg.Rate = defaults.Rate
	}
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = defaults.StoreTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.Rate == 0 {
		yamlConfig.Rate = programmaticConfig.Rate
	}
	if yamlConfig.StoreTimeout == 0 {
		yamlConfig.StoreTimeout = programmaticConfig.StoreTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
