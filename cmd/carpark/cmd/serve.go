package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/api"
	audithook "github.com/xraph/carpark/audit_hook"
	"github.com/xraph/carpark/internal/config"
	"github.com/xraph/carpark/observability"
	"github.com/xraph/carpark/store"
	"github.com/xraph/carpark/store/memory"
	mongostore "github.com/xraph/carpark/store/mongo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the carpark HTTP server.

Routes:
  POST /api/inbound     register an arrival
  POST /api/outbound    register a departure and price the stay
  GET  /api/fee         price a duration in seconds
  GET  /api/parked      check whether a license is parked
  GET  /api/occupancy   list open sessions
  GET  /health          store health
  GET  /metrics         Prometheus metrics

Examples:
  # Serve from memory on the default address
  carpark serve

  # Serve from MongoDB
  CARPARK_STORE_DRIVER=mongo carpark serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logger := newLogger(cfg.Server, os.Stderr)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	l := newLedger(cfg, st, logger, reg)
	if err := l.Start(ctx); err != nil {
		_ = st.Close() //nolint:errcheck // already failing
		return fmt.Errorf("failed to start ledger: %w", err)
	}
	defer func() {
		if err := l.Stop(); err != nil {
			logger.Error("ledger stop failed", "error", err)
		}
	}()

	handler := api.New(l,
		api.WithLogger(logger),
		api.WithRegistry(reg),
		api.WithVersion(Version),
	)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", cfg.Server.HTTPAddr, "store", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
		return err
	}
	logger.Info("HTTP server shutdown complete")
	return nil
}

// newLedger builds the ledger with metrics and audit plugins attached.
func newLedger(cfg *config.Config, st store.Store, logger *slog.Logger, reg prometheus.Registerer) *carpark.Ledger {
	return carpark.New(st,
		carpark.WithLogger(logger),
		carpark.WithRate(cfg.Ledger.Rate),
		carpark.WithCurrency(cfg.Ledger.Currency),
		carpark.WithStoreTimeout(cfg.StoreTimeoutDuration()),
		carpark.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
		carpark.WithPlugin(audithook.New(audithook.LogRecorder(logger), audithook.WithLogger(logger))),
	)
}

// connectTimeout bounds dialing a remote store at startup.
const connectTimeout = 10 * time.Second

// openStore opens the configured store driver.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverMongo:
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		s, err := mongostore.Connect(cctx, cfg.Mongo.URI, cfg.Mongo.Database, mongostore.WithCollection(cfg.Mongo.Collection))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newLogger builds the process logger from the server config.
func newLogger(cfg config.ServerConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
