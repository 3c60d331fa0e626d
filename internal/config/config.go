// Package config provides configuration types for the carpark server.
//
// Configuration comes from carpark.yaml and CARPARK_* environment variables.
// Everything has a default, so the server starts with no file at all using
// the in-memory store and the standard hourly rate.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers the server can run on.
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
)

// Config is the top-level server configuration.
type Config struct {
	// Server configures the HTTP listener and logging.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Ledger configures pricing and store call limits.
	Ledger LedgerConfig `yaml:"ledger" mapstructure:"ledger"`

	// Store selects and configures the session store.
	Store StoreConfig `yaml:"store" mapstructure:"store"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address to listen on. Defaults to "0.0.0.0:8080".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error". Defaults to "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: "text" or "json". Defaults to "json".
	LogFormat string `yaml:"log_format" mapstructure:"log_format" validate:"omitempty,oneof=text json"`

	// ShutdownTimeout bounds graceful shutdown (e.g. "15s").
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"omitempty,duration"`
}

// LedgerConfig configures pricing.
type LedgerConfig struct {
	// Rate is the hourly parking rate in major currency units. Defaults to 7.50.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gt=0"`

	// Currency is the ISO 4217 code fees settle in. Defaults to "usd".
	Currency string `yaml:"currency" mapstructure:"currency" validate:"required,currency"`

	// StoreTimeout bounds every store call (e.g. "5s"). Defaults to "5s".
	StoreTimeout string `yaml:"store_timeout" mapstructure:"store_timeout" validate:"required,duration"`
}

// StoreConfig selects the session store.
type StoreConfig struct {
	// Driver is "memory" or "mongo". Defaults to "memory".
	Driver string `yaml:"driver" mapstructure:"driver" validate:"required,oneof=memory mongo"`

	// Mongo configures the mongo driver. Ignored for other drivers.
	Mongo MongoConfig `yaml:"mongo" mapstructure:"mongo"`
}

// MongoConfig configures the MongoDB store.
type MongoConfig struct {
	// URI is the connection string. Defaults to "mongodb://localhost:27017".
	URI string `yaml:"uri" mapstructure:"uri" validate:"omitempty,startswith=mongodb"`

	// Database defaults to "carpark".
	Database string `yaml:"database" mapstructure:"database"`

	// Collection defaults to "vehicles".
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "0.0.0.0:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "json"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "15s"
	}

	// An explicit rate of 0 is left alone so validation can reject it.
	if c.Ledger.Rate == 0 && !viper.IsSet("ledger.rate") {
		c.Ledger.Rate = 7.50
	}
	if c.Ledger.Currency == "" {
		c.Ledger.Currency = "usd"
	}
	c.Ledger.Currency = strings.ToLower(c.Ledger.Currency)
	if c.Ledger.StoreTimeout == "" {
		c.Ledger.StoreTimeout = "5s"
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Store.Mongo.URI == "" {
		c.Store.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.Store.Mongo.Database == "" {
		c.Store.Mongo.Database = "carpark"
	}
	if c.Store.Mongo.Collection == "" {
		c.Store.Mongo.Collection = "vehicles"
	}
}

// StoreTimeoutDuration returns Ledger.StoreTimeout parsed. Call after
// Validate; an unparsable value yields 0.
func (c *Config) StoreTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Ledger.StoreTimeout)
	return d
}

// ShutdownTimeoutDuration returns Server.ShutdownTimeout parsed. Call after
// Validate; an unparsable value yields 0.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}
