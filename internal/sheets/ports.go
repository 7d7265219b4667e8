// Package sheets declares the spreadsheet export ports used by the reconciler.
package sheets

import (
	"context"

	"sismobi/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter appends one financial summary row for a period (YYYY-MM).
	SummaryWriter interface {
		AppendSummary(ctx context.Context, period string, s core.FinancialSummary) (rowRef string, err error)
	}

	// AlertWriter appends one row per alert.
	AlertWriter interface {
		AppendAlerts(ctx context.Context, alerts []core.Alert) (rowRef string, err error)
	}

	Exporter interface {
		SummaryWriter
		AlertWriter
	}
)
