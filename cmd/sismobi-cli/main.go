package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sismobi/internal/backend"
	"sismobi/internal/cli"
	"sismobi/internal/config"
	applog "sismobi/internal/log"
	"sismobi/internal/services"
)

var (
	cfg    *config.Config
	be     *backend.BackendResult
	agg    *services.Aggregator
	logger *applog.Logger

	jsonOutput bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "sismobi-cli",
	Short: "Run the rental-management engine against the configured store",
	Long: `sismobi-cli loads properties, tenants, transactions and utility bills from
the store selected by DATA_BACKEND and prints the monthly financial summary,
the alerts the current state raises, and due recurring transactions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		cli.LoadEnvFile()
		cfg = config.Load()
		logger = cli.SetupLogger(cfg.LogLevel)
		if err := cfg.Validate(); err != nil {
			return err
		}
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return err
		}
		be, err = backend.NewFactory(logger).CreateBackend(cmd.Context(), bcfg)
		if err != nil {
			return err
		}
		agg = cli.NewAggregator(logger, cfg)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if be != nil && be.Cleanup != nil {
			return be.Cleanup()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
