package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/internal/config"
	"github.com/xraph/carpark/store/memory"
)

var (
	feeRate     float64
	feeCurrency string
	feeJSON     bool
)

var feeCmd = &cobra.Command{
	Use:   "fee <seconds|duration>",
	Short: "Price a stay without a server",
	Long: `Price a stay at the configured hourly rate.

The stay is either whole seconds or a Go duration; fractions of a second
are dropped.

Examples:
  carpark fee 5400
  carpark fee 1h30m --rate 10 --currency eur`,
	Args: cobra.ExactArgs(1),
	RunE: runFee,
}

func init() {
	feeCmd.Flags().Float64Var(&feeRate, "rate", 0, "hourly rate (default: ledger.rate)")
	feeCmd.Flags().StringVar(&feeCurrency, "currency", "", "currency code (default: ledger.currency)")
	feeCmd.Flags().BoolVar(&feeJSON, "json", false, "print the fee as JSON")
	rootCmd.AddCommand(feeCmd)
}

func runFee(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("rate") {
		cfg.Ledger.Rate = feeRate
	}
	if feeCurrency != "" {
		cfg.Ledger.Currency = feeCurrency
	}

	seconds, err := parseStay(args[0])
	if err != nil {
		return err
	}
	return printFee(cmd.Context(), cmd.OutOrStdout(), cfg, seconds, feeJSON)
}

// parseStay reads whole seconds ("5400") or a duration ("1h30m").
func parseStay(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither whole seconds nor a duration", s)
	}
	return int64(d / time.Second), nil
}

func printFee(ctx context.Context, w io.Writer, cfg *config.Config, seconds int64, asJSON bool) error {
	l := carpark.New(memory.New(),
		carpark.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		carpark.WithRate(cfg.Ledger.Rate),
		carpark.WithCurrency(cfg.Ledger.Currency),
	)
	if err := l.Validate(); err != nil {
		return err
	}

	fee, err := l.Charge(ctx, seconds)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(fee)
	}
	_, err = fmt.Fprintf(w, "%ds at %.2f/h = %s\n", fee.Seconds, fee.RatePerHour, fee.Amount)
	return err
}
