package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for carpark.yaml/.yml in standard locations.
// The search requires an explicit YAML extension so the carpark binary itself
// is never picked up as a config file.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No file anywhere: ReadInConfig reports ConfigFileNotFoundError,
		// which LoadConfig tolerates.
		viper.SetConfigName("carpark")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: CARPARK_SERVER_HTTP_ADDR
	viper.SetEnvPrefix("CARPARK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches the working directory, ~/.carpark and /etc/carpark.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	return findConfigFileInPaths([]string{
		".",
		filepath.Join(home, ".carpark"),
		"/etc/carpark",
	})
}

// findConfigFileInPaths searches the given directories for carpark.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "carpark"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds every config key so nested values can be
// overridden from the environment even when no file mentions them.
// Example: CARPARK_STORE_MONGO_URI overrides store.mongo.uri
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.log_format")
	_ = viper.BindEnv("server.shutdown_timeout")

	_ = viper.BindEnv("ledger.rate")
	_ = viper.BindEnv("ledger.currency")
	_ = viper.BindEnv("ledger.store_timeout")

	_ = viper.BindEnv("store.driver")
	_ = viper.BindEnv("store.mongo.uri")
	_ = viper.BindEnv("store.mongo.database")
	_ = viper.BindEnv("store.mongo.collection")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, validates and returns the Config. A missing file is not an
// error: the server then runs on defaults and environment variables alone.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
