package services

import (
	"context"
	"slices"
	"time"

	"sismobi/internal/cache"
	"sismobi/internal/clock"
	"sismobi/internal/core"
	applog "sismobi/internal/log"
)

// Memo names, also used as key prefixes.
const (
	OpFinancial = "financial"
	OpAlerts    = "alerts"
	OpRecurring = "recurring"
)

// AggregatorConfig sizes the memos.
type AggregatorConfig struct {
	MaxSize          int
	CleanupThreshold int
}

// DefaultAggregatorConfig returns the default memo sizes.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		MaxSize:          cache.DefaultMaxSize,
		CleanupThreshold: cache.DefaultCleanupThreshold,
	}
}

// SummaryResult is a memoized financial summary.
type SummaryResult struct {
	Summary     core.FinancialSummary `json:"summary"`
	Diagnostics core.Diagnostics      `json:"diagnostics"`
	Cached      bool                  `json:"cached"`
}

// AlertsResult is a memoized alert generation pass.
type AlertsResult struct {
	Alerts      []core.Alert     `json:"alerts"`
	Diagnostics core.Diagnostics `json:"diagnostics"`
	Cached      bool             `json:"cached"`
}

// RecurringResult is a memoized recurring projection.
type RecurringResult struct {
	Transactions []core.Transaction `json:"transactions"`
	Diagnostics  core.Diagnostics   `json:"diagnostics"`
	Cached       bool               `json:"cached"`
}

// Aggregator runs the engine against an injected clock and memoizes every result.
// Keys include the current month (summary) or day (alerts, recurring), so a
// rollover forces recomputation even for identical inputs.
type Aggregator struct {
	clock  clock.Clock
	logger *applog.Logger

	summaries *cache.Memo[SummaryResult]
	alerts    *cache.Memo[AlertsResult]
	recurring *cache.Memo[RecurringResult]
}

// NewAggregator creates an aggregator. A nil clock reads the wall clock.
func NewAggregator(clk clock.Clock, logger *applog.Logger, cfg AggregatorConfig) *Aggregator {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Aggregator{
		clock:     clk,
		logger:    logger.WithComponent(applog.ComponentEngine),
		summaries: cache.NewMemo[SummaryResult](OpFinancial, cfg.MaxSize, cfg.CleanupThreshold),
		alerts:    cache.NewMemo[AlertsResult](OpAlerts, cfg.MaxSize, cfg.CleanupThreshold),
		recurring: cache.NewMemo[RecurringResult](OpRecurring, cfg.MaxSize, cfg.CleanupThreshold),
	}
}

// Now returns the aggregator's current time.
func (a *Aggregator) Now() time.Time { return a.clock.Now() }

// Summary returns the financial summary of the current month.
func (a *Aggregator) Summary(ctx context.Context, properties []core.Property, transactions []core.Transaction) SummaryResult {
	now := a.clock.Now()
	key := cache.Key(OpFinancial,
		cache.Bucket(now.Format("2006-01")),
		cache.Properties(properties),
		cache.Transactions(transactions),
	)

	res, hit := a.summaries.GetOrCompute(key, func() SummaryResult {
		s, diag := CalculateSummary(now, properties, transactions)
		a.logDiagnostics(ctx, OpFinancial, diag)
		return SummaryResult{Summary: s, Diagnostics: diag}
	})
	res.Cached = hit
	return res
}

// Alerts returns the alerts generated for the world as of today.
func (a *Aggregator) Alerts(ctx context.Context, w core.World) AlertsResult {
	now := a.clock.Now()
	key := cache.Key(OpAlerts,
		cache.Bucket(now.Format("2006-01-02")),
		cache.Properties(w.Properties),
		cache.Tenants(w.Tenants),
		cache.Transactions(w.Transactions),
		cache.Bills("energy", w.EnergyBills),
		cache.Bills("water", w.WaterBills),
	)

	res, hit := a.alerts.GetOrCompute(key, func() AlertsResult {
		alerts, diag := GenerateAlerts(now, w)
		a.logDiagnostics(ctx, OpAlerts, diag)
		return AlertsResult{Alerts: alerts, Diagnostics: diag}
	})
	res.Alerts = slices.Clone(res.Alerts)
	res.Cached = hit
	return res
}

// Recurring returns the recurring instances due as of today.
func (a *Aggregator) Recurring(ctx context.Context, transactions []core.Transaction) RecurringResult {
	now := a.clock.Now()
	key := cache.Key(OpRecurring,
		cache.Bucket(now.Format("2006-01-02")),
		cache.Transactions(transactions),
	)

	res, hit := a.recurring.GetOrCompute(key, func() RecurringResult {
		txs, diag := ProjectRecurring(now, transactions)
		a.logDiagnostics(ctx, OpRecurring, diag)
		return RecurringResult{Transactions: txs, Diagnostics: diag}
	})
	res.Transactions = slices.Clone(res.Transactions)
	res.Cached = hit
	return res
}

// ClearCaches empties every memo and returns the number of entries dropped.
func (a *Aggregator) ClearCaches() int {
	n := 0
	for _, c := range a.Caches() {
		n += c.Clear()
	}
	return n
}

// Caches exposes the memos for registration with a cache.Manager.
func (a *Aggregator) Caches() []cache.Clearer {
	return []cache.Clearer{a.summaries, a.alerts, a.recurring}
}

// Stats returns the counters of every memo.
func (a *Aggregator) Stats() []cache.Stats {
	return []cache.Stats{a.summaries.Stats(), a.alerts.Stats(), a.recurring.Stats()}
}

func (a *Aggregator) logDiagnostics(ctx context.Context, op string, diag core.Diagnostics) {
	if diag.Clean() {
		return
	}
	fields := applog.NewFields().
		WithOperation(op).
		WithDiagnostics(diag.InvalidDates, diag.InvalidAmounts, diag.SkippedRecords)
	a.logger.WarnContext(ctx, "Records absorbed during aggregation", fields.ToSlice()...)
}
