package extension

import "time"

// Config holds the carpark extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.carpark" or "carpark" keys).
type Config struct {
	// DisableRoutes prevents the HTTP handler from being provided.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix the handler is mounted under (default: "/carpark").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Rate is the hourly parking rate (default: 7.50).
	Rate float64 `json:"rate" mapstructure:"rate" yaml:"rate"`

	// Currency is the ISO 4217 code fees settle in (default: "usd").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// StoreTimeout bounds every store call (default: 5s).
	StoreTimeout time.Duration `json:"store_timeout" mapstructure:"store_timeout" yaml:"store_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:     "/carpark",
		Rate:         7.50,
		Currency:     "usd",
		StoreTimeout: 5 * time.Second,
	}
}
