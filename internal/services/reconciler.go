package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sismobi/internal/core"
	applog "sismobi/internal/log"
	"sismobi/internal/sheets"
	"sismobi/internal/storage"
)

// EventPublisher announces records the reconciler appended.
type EventPublisher interface {
	PublishAlertRaised(ctx context.Context, a core.Alert) error
	PublishTransactionProjected(ctx context.Context, t core.Transaction) error
}

// ReconcilerConfig holds configuration for the reconciler
type ReconcilerConfig struct {
	// Interval is how often a pass runs (default: 5m)
	Interval time.Duration

	// MaxCatchUp bounds how many periods one pass may project per chain (default: 24)
	MaxCatchUp int
}

// DefaultReconcilerConfig returns sensible defaults
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval:   5 * time.Minute,
		MaxCatchUp: 24,
	}
}

// Report summarizes one reconciliation pass.
type Report struct {
	Period        string                `json:"period"`
	Projected     []core.Transaction    `json:"projected"`
	NewAlerts     []core.Alert          `json:"newAlerts"`
	Summary       core.FinancialSummary `json:"summary"`
	Diagnostics   core.Diagnostics      `json:"diagnostics"`
	Published     int                   `json:"published"`
	PublishErrors int                   `json:"publishErrors"`
	Exported      bool                  `json:"exported"`
}

// Reconciler appends newly due recurring transactions and newly generated
// alerts to storage, skipping ids already stored, then announces them.
type Reconciler struct {
	store     storage.Store
	agg       *Aggregator
	publisher EventPublisher
	exporter  sheets.Exporter
	config    ReconcilerConfig
	logger    *applog.Logger

	passMu         sync.Mutex
	exportedPeriod string

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReconciler creates a reconciler. publisher and exporter may be nil.
func NewReconciler(store storage.Store, agg *Aggregator, publisher EventPublisher, exporter sheets.Exporter, config ReconcilerConfig, logger *applog.Logger) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	if config.MaxCatchUp <= 0 {
		config.MaxCatchUp = DefaultReconcilerConfig().MaxCatchUp
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Reconciler{
		store:     store,
		agg:       agg,
		publisher: publisher,
		exporter:  exporter,
		config:    config,
		logger:    logger.WithComponent(applog.ComponentReconciler),
	}
}

// RunOnce performs a single reconciliation pass. Passes never overlap.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	now := r.agg.Now()
	report := Report{Period: now.Format("2006-01")}

	world, diag, err := storage.LoadWorld(ctx, r.store)
	if err != nil {
		return report, fmt.Errorf("load world: %w", err)
	}
	report.Diagnostics = diag

	// Recurring instances first, so this month's rent shows as paid.
	for i := 0; i < r.config.MaxCatchUp; i++ {
		res := r.agg.Recurring(ctx, world.Transactions)
		report.Diagnostics = report.Diagnostics.Add(res.Diagnostics)
		var added []core.Transaction
		world.Transactions, added = MergeTransactions(world.Transactions, res.Transactions)
		if len(added) == 0 {
			break
		}
		report.Projected = append(report.Projected, added...)
	}
	if err := storage.PutAs(ctx, r.store, storage.Transactions, func(t core.Transaction) string { return t.ID }, report.Projected...); err != nil {
		return report, fmt.Errorf("store projected transactions: %w", err)
	}

	existing, err := storage.LoadAlerts(ctx, r.store)
	if err != nil {
		return report, fmt.Errorf("load alerts: %w", err)
	}
	generated := r.agg.Alerts(ctx, world)
	report.Diagnostics = report.Diagnostics.Add(generated.Diagnostics)
	_, report.NewAlerts = MergeAlerts(existing, generated.Alerts)
	if err := storage.PutAs(ctx, r.store, storage.Alerts, func(a core.Alert) string { return a.ID }, report.NewAlerts...); err != nil {
		return report, fmt.Errorf("store alerts: %w", err)
	}

	summary := r.agg.Summary(ctx, world.Properties, world.Transactions)
	report.Summary = summary.Summary

	r.publish(ctx, &report)
	r.export(ctx, &report)

	r.logger.InfoContext(ctx, "Reconciliation pass complete",
		"period", report.Period,
		"projected", len(report.Projected),
		"new_alerts", len(report.NewAlerts),
		"published", report.Published,
		"publish_errors", report.PublishErrors,
		"exported", report.Exported)

	return report, nil
}

func (r *Reconciler) publish(ctx context.Context, report *Report) {
	if r.publisher == nil {
		return
	}
	for _, t := range report.Projected {
		if err := r.publisher.PublishTransactionProjected(ctx, t); err != nil {
			report.PublishErrors++
			r.logger.WarnContext(ctx, "Failed to publish projected transaction",
				applog.NewFields().WithRecord(storage.Transactions, t.ID).WithError(err).ToSlice()...)
			continue
		}
		report.Published++
	}
	for _, a := range report.NewAlerts {
		if err := r.publisher.PublishAlertRaised(ctx, a); err != nil {
			report.PublishErrors++
			r.logger.WarnContext(ctx, "Failed to publish alert",
				applog.NewFields().WithAlert(a.ID, string(a.Type), a.PropertyID).WithError(err).ToSlice()...)
			continue
		}
		report.Published++
	}
}

// export appends new alerts every pass and the summary once per period.
func (r *Reconciler) export(ctx context.Context, report *Report) {
	if r.exporter == nil {
		return
	}
	if _, err := r.exporter.AppendAlerts(ctx, report.NewAlerts); err != nil {
		r.logger.WarnContext(ctx, "Failed to export alerts", applog.FieldError, err.Error())
		return
	}
	if r.exportedPeriod == report.Period {
		return
	}
	if _, err := r.exporter.AppendSummary(ctx, report.Period, report.Summary); err != nil {
		r.logger.WarnContext(ctx, "Failed to export summary", applog.FieldError, err.Error())
		return
	}
	r.exportedPeriod = report.Period
	report.Exported = true
}

// Start begins the reconciliation loop. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	r.logger.InfoContext(ctx, "Reconciler started", "interval", r.config.Interval.String())
	return nil
}

// Stop gracefully stops the reconciler and waits for the current pass.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Reconciler stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Reconciler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the loop is currently running
func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reconciler) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.runPass(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runPass(ctx)
		}
	}
}

func (r *Reconciler) runPass(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Reconciliation pass failed",
			applog.NewFields().WithOperation(applog.OpReconcile).WithError(err).ToSlice()...)
	}
}
