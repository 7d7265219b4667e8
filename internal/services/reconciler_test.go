package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sismobi/internal/core"
	applog "sismobi/internal/log"
	"sismobi/internal/storage"
	"sismobi/internal/storage/memory"
)

type fakePublisher struct {
	mu           sync.Mutex
	alerts       []string
	transactions []string
	err          error
}

func (f *fakePublisher) PublishAlertRaised(_ context.Context, a core.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, a.ID)
	return nil
}

func (f *fakePublisher) PublishTransactionProjected(_ context.Context, t core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.transactions = append(f.transactions, t.ID)
	return nil
}

type fakeExporter struct {
	summaries []string
	alerts    int
}

func (f *fakeExporter) AppendSummary(_ context.Context, period string, _ core.FinancialSummary) (string, error) {
	f.summaries = append(f.summaries, period)
	return "Resumo!A1", nil
}

func (f *fakeExporter) AppendAlerts(_ context.Context, alerts []core.Alert) (string, error) {
	f.alerts += len(alerts)
	return "Alertas!A1", nil
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	props := []core.Property{
		{ID: "p1", Name: "Apto 101", Type: core.Apartment, Status: core.Rented, PurchasePrice: 200000, RentValue: 1500},
		{ID: "p2", Name: "Casa", Type: core.House, Status: core.Maintenance, PurchasePrice: 300000},
	}
	tenants := []core.Tenant{
		{ID: "tn1", PropertyID: "p1", Name: "Ana", Status: core.TenantActive, StartDate: core.NewDate(2023, 1, 10), PaymentDay: 10, MonthlyRent: 1500},
	}
	txs := []core.Transaction{
		{ID: "rent", PropertyID: "p1", Type: core.Income, Amount: 1500, Date: core.NewDate(2024, 1, 10), Recurring: true, Description: "Aluguel"},
	}

	id := func(p core.Property) string { return p.ID }
	if err := storage.PutAs(ctx, s, storage.Properties, id, props...); err != nil {
		t.Fatal(err)
	}
	if err := storage.PutAs(ctx, s, storage.Tenants, func(tn core.Tenant) string { return tn.ID }, tenants...); err != nil {
		t.Fatal(err)
	}
	if err := storage.PutAs(ctx, s, storage.Transactions, func(tx core.Transaction) string { return tx.ID }, txs...); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestReconciler_RunOnce(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	agg, _ := newTestAggregator(testNow)
	pub := &fakePublisher{}
	exp := &fakeExporter{}
	r := NewReconciler(store, agg, pub, exp, DefaultReconcilerConfig(), applog.Discard())

	report, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}

	wantTx := []string{"rent@2024-02-10", "rent@2024-03-10"}
	if len(report.Projected) != len(wantTx) {
		t.Fatalf("projected %d transactions, want %d: %+v", len(report.Projected), len(wantTx), report.Projected)
	}
	for i, id := range wantTx {
		if report.Projected[i].ID != id {
			t.Errorf("Projected[%d] = %q, want %q", i, report.Projected[i].ID, id)
		}
	}

	// March rent is projected, so the only alert left is the maintenance one.
	if len(report.NewAlerts) != 1 || report.NewAlerts[0].ID != "property-maintenance:p2" {
		t.Fatalf("NewAlerts = %+v", report.NewAlerts)
	}
	if report.Summary.TotalIncome != 1500 {
		t.Errorf("TotalIncome = %v, want 1500", report.Summary.TotalIncome)
	}

	stored, _, err := storage.ListAs[core.Transaction](ctx, store, storage.Transactions)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 3 {
		t.Errorf("stored %d transactions, want 3", len(stored))
	}
	alerts, err := storage.LoadAlerts(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Errorf("stored %d alerts, want 1", len(alerts))
	}

	if report.Published != 3 || len(pub.transactions) != 2 || len(pub.alerts) != 1 {
		t.Errorf("published = %d, transactions %v, alerts %v", report.Published, pub.transactions, pub.alerts)
	}
	if !report.Exported || len(exp.summaries) != 1 || exp.summaries[0] != "2024-03" || exp.alerts != 1 {
		t.Errorf("export: exported=%v summaries=%v alerts=%d", report.Exported, exp.summaries, exp.alerts)
	}
}

func TestReconciler_SecondPassIsNoop(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	agg, _ := newTestAggregator(testNow)
	exp := &fakeExporter{}
	r := NewReconciler(store, agg, nil, exp, DefaultReconcilerConfig(), applog.Discard())

	if _, err := r.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	report, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Projected) != 0 || len(report.NewAlerts) != 0 {
		t.Errorf("second pass added %d transactions and %d alerts", len(report.Projected), len(report.NewAlerts))
	}
	if report.Exported || len(exp.summaries) != 1 {
		t.Errorf("summary exported twice in one period: %v", exp.summaries)
	}
}

func TestReconciler_ResolvedAlertStaysResolved(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	agg, _ := newTestAggregator(testNow)
	r := NewReconciler(store, agg, nil, nil, DefaultReconcilerConfig(), applog.Discard())

	if _, err := r.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	alerts, _ := storage.LoadAlerts(ctx, store)
	alerts[0].Resolved = true
	if err := storage.PutAs(ctx, store, storage.Alerts, func(a core.Alert) string { return a.ID }, alerts[0]); err != nil {
		t.Fatal(err)
	}

	if _, err := r.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	alerts, _ = storage.LoadAlerts(ctx, store)
	if len(alerts) != 1 || !alerts[0].Resolved {
		t.Errorf("alerts after second pass = %+v", alerts)
	}
}

func TestReconciler_CatchUpBounded(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	agg, _ := newTestAggregator(testNow)
	r := NewReconciler(store, agg, nil, nil, ReconcilerConfig{Interval: time.Minute, MaxCatchUp: 1}, applog.Discard())

	report, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Projected) != 1 {
		t.Errorf("projected %d, want 1 with MaxCatchUp=1", len(report.Projected))
	}
	report, _ = r.RunOnce(ctx)
	if len(report.Projected) != 1 || report.Projected[0].ID != "rent@2024-03-10" {
		t.Errorf("second pass projected %+v", report.Projected)
	}
}

func TestReconciler_PublishErrorsCounted(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	agg, _ := newTestAggregator(testNow)
	pub := &fakePublisher{err: errors.New("broker down")}
	r := NewReconciler(store, agg, pub, nil, DefaultReconcilerConfig(), applog.Discard())

	report, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("publish failures must not fail the pass: %v", err)
	}
	if report.PublishErrors != 3 || report.Published != 0 {
		t.Errorf("Published=%d PublishErrors=%d", report.Published, report.PublishErrors)
	}
}

func TestReconciler_StartStop(t *testing.T) {
	store := seedStore(t)
	agg, _ := newTestAggregator(testNow)
	r := NewReconciler(store, agg, nil, nil, ReconcilerConfig{Interval: time.Hour}, applog.Discard())

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}
	if !r.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if r.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if err := r.Stop(stopCtx); err != nil {
		t.Errorf("Stop() on stopped reconciler = %v", err)
	}
}
