package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"sismobi/internal/core"
	"sismobi/internal/services"
)

var (
	header = color.New(color.FgCyan, color.Bold).SprintFunc()
	label  = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, period string, s core.FinancialSummary, diag core.Diagnostics) {
	fmt.Fprintf(w, "\n%s\n\n", header("=== Resumo financeiro "+period+" ==="))

	net := green
	if s.NetIncome < 0 {
		net = red
	}
	fmt.Fprintf(w, "  %s %s\n", label("Receitas:  "), core.FormatBRL(core.Amount(s.TotalIncome)))
	fmt.Fprintf(w, "  %s %s\n", label("Despesas:  "), core.FormatBRL(core.Amount(s.TotalExpenses)))
	fmt.Fprintf(w, "  %s %s\n", label("Resultado: "), net(core.FormatBRL(core.Amount(s.NetIncome))))
	fmt.Fprintf(w, "  %s %.1f%% (%d/%d imóveis)\n", label("Ocupação:  "), s.OccupancyRate, s.RentedProperties, s.TotalProperties)
	fmt.Fprintf(w, "  %s %.2f%%\n", label("ROI mensal:"), s.MonthlyROI)
	printDiagnostics(w, diag)
	fmt.Fprintln(w)
}

func printDiagnostics(w io.Writer, diag core.Diagnostics) {
	if diag.Clean() {
		return
	}
	fmt.Fprintf(w, "\n  %s %d invalid dates, %d non-numeric amounts, %d skipped records\n",
		label("Ignored:"), diag.InvalidDates, diag.InvalidAmounts, diag.SkippedRecords)
}

// severity colors an alert type: error red, warning yellow, info gray.
func severity(t core.AlertType) func(a ...any) string {
	switch t {
	case core.AlertError:
		return red
	case core.AlertWarning:
		return label
	default:
		return gray
	}
}

func severityIcon(t core.AlertType) string {
	switch t {
	case core.AlertError:
		return "✗"
	case core.AlertWarning:
		return "⚠"
	default:
		return "ℹ"
	}
}

func printAlerts(w io.Writer, title string, alerts []core.Alert, diag core.Diagnostics) {
	fmt.Fprintf(w, "\n%s\n\n", header("=== "+title+" ==="))
	if len(alerts) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("Nenhum alerta"))
	}
	for _, a := range alerts {
		c := severity(a.Type)
		status := ""
		if a.Resolved {
			status = gray(" (resolvido)")
		}
		fmt.Fprintf(w, "  %s %s%s\n", c(severityIcon(a.Type)), c(a.Title), status)
		fmt.Fprintf(w, "    %s\n", a.Message)
		fmt.Fprintf(w, "    %s\n", gray(a.ID))
	}
	printDiagnostics(w, diag)
	fmt.Fprintln(w)
}

func printTransactions(w io.Writer, title string, txs []core.Transaction) {
	fmt.Fprintf(w, "\n%s\n\n", header("=== "+title+" ==="))
	if len(txs) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("Nenhuma transação"))
	}
	for _, t := range txs {
		amount := green(core.FormatBRL(t.Amount))
		if t.Type == core.Expense {
			amount = red("-" + core.FormatBRL(t.Amount))
		}
		fmt.Fprintf(w, "  %s  %-12s %s  %s\n", t.Date.Format("2006-01-02"), t.PropertyID, amount, t.Description)
		fmt.Fprintf(w, "    %s\n", gray(t.ID))
	}
	fmt.Fprintln(w)
}

func printReport(w io.Writer, r services.Report) {
	printTransactions(w, "Transações projetadas", r.Projected)
	printAlerts(w, "Novos alertas", r.NewAlerts, core.Diagnostics{})
	printSummary(w, r.Period, r.Summary, r.Diagnostics)
	fmt.Fprintf(w, "  %s %d published, %d failed, summary exported: %v\n\n",
		label("Events:"), r.Published, r.PublishErrors, r.Exported)
}
