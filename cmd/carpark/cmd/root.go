// Package cmd provides the CLI commands for carpark.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/carpark/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "carpark",
	Short: "carpark - parking session ledger",
	Long: `carpark records vehicle arrivals and departures and prices each stay
at an hourly rate.

Quick start:
  carpark serve

Configuration:
  Config is loaded from carpark.yaml in the current directory,
  $HOME/.carpark/, or /etc/carpark/. Every value has a default.

  Environment variables override config values with the CARPARK_ prefix.
  Example: CARPARK_STORE_DRIVER=mongo CARPARK_STORE_MONGO_URI=mongodb://db:27017

Commands:
  serve       Start the HTTP server
  fee         Price a stay without a server
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./carpark.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
