package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sismobi/internal/core"
	"sismobi/internal/services"
	"sismobi/internal/storage"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the current month's financial summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		world, diag, err := storage.LoadWorld(ctx, be.Store)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		res := agg.Summary(ctx, world.Properties, world.Transactions)
		res.Diagnostics = diag.Add(res.Diagnostics)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		printSummary(cmd.OutOrStdout(), agg.Now().Format("2006-01"), res.Summary, res.Diagnostics)
		return nil
	},
}

var (
	alertsStored     bool
	alertsUnresolved bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show the alerts the current state raises",
	Long: `Show the alerts generated from the current records. With --stored, list the
alerts already persisted by the worker instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if alertsStored {
			alerts, err := storage.LoadAlerts(ctx, be.Store)
			if err != nil {
				return fmt.Errorf("load alerts: %w", err)
			}
			if alertsUnresolved {
				alerts = unresolved(alerts)
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), alerts)
			}
			printAlerts(cmd.OutOrStdout(), "Alertas registrados", alerts, core.Diagnostics{})
			return nil
		}

		world, diag, err := storage.LoadWorld(ctx, be.Store)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		res := agg.Alerts(ctx, world)
		res.Diagnostics = diag.Add(res.Diagnostics)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		printAlerts(cmd.OutOrStdout(), "Alertas", res.Alerts, res.Diagnostics)
		return nil
	},
}

func unresolved(alerts []core.Alert) []core.Alert {
	out := alerts[:0:0]
	for _, a := range alerts {
		if !a.Resolved {
			out = append(out, a)
		}
	}
	return out
}

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Show recurring transactions that are due and not yet recorded",
	Long: `Show the next due instance of every recurrence chain. Nothing is stored;
run "reconcile" to append the instances.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		txs, skipped, err := storage.ListAs[core.Transaction](ctx, be.Store, storage.Transactions)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		res := agg.Recurring(ctx, txs)
		res.Diagnostics.SkippedRecords += skipped
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		printTransactions(cmd.OutOrStdout(), "Transações recorrentes pendentes", res.Transactions)
		printDiagnostics(cmd.OutOrStdout(), res.Diagnostics)
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Append due recurring transactions and new alerts to the store",
	Long: `Run one reconciliation pass: project due recurring transactions, generate
alerts, store whatever is new, publish events and export to Google Sheets when
configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := services.NewReconciler(be.Store, agg, be.Publisher, be.Exporter, services.DefaultReconcilerConfig(), logger)
		report, err := r.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsStored, "stored", false, "List persisted alerts instead of generating them")
	alertsCmd.Flags().BoolVar(&alertsUnresolved, "unresolved", false, "With --stored, hide resolved alerts")

	rootCmd.AddCommand(summaryCmd, alertsCmd, recurringCmd, reconcileCmd)
}
