package services

import (
	"context"
	"testing"
	"time"

	"sismobi/internal/clock"
	"sismobi/internal/core"
	applog "sismobi/internal/log"
)

func newTestAggregator(now time.Time) (*Aggregator, *clock.Fixed) {
	clk := clock.NewFixed(now)
	return NewAggregator(clk, applog.Discard(), DefaultAggregatorConfig()), clk
}

func TestAggregator_SummaryCached(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(testNow)
	props := []core.Property{{ID: "p1", Status: core.Rented, PurchasePrice: 200000}}
	txs := []core.Transaction{
		{ID: "t1", Type: core.Income, Amount: 1500, Date: core.NewDate(2024, 3, 2)},
		{ID: "t2", Type: core.Expense, Amount: 300, Date: core.NewDate(2024, 3, 10)},
	}

	first := agg.Summary(ctx, props, txs)
	if first.Cached {
		t.Error("first call should compute")
	}
	second := agg.Summary(ctx, props, txs)
	if !second.Cached {
		t.Error("second call with identical input should be cached")
	}
	if second.Summary != first.Summary {
		t.Errorf("cached summary differs: %+v vs %+v", second.Summary, first.Summary)
	}

	txs[0].Amount = 1600
	third := agg.Summary(ctx, props, txs)
	if third.Cached {
		t.Error("changed amount must force recomputation")
	}
	if third.Summary.TotalIncome != 1600 {
		t.Errorf("TotalIncome = %v, want 1600", third.Summary.TotalIncome)
	}

	s := agg.Stats()[0]
	if s.Name != OpFinancial || s.Hits != 1 || s.Operations != 3 {
		t.Errorf("stats = %+v", s)
	}
}

func TestAggregator_MonthRolloverRecomputes(t *testing.T) {
	ctx := context.Background()
	agg, clk := newTestAggregator(testNow)
	txs := []core.Transaction{{ID: "t1", Type: core.Income, Amount: 100, Date: core.NewDate(2024, 3, 2)}}

	if got := agg.Summary(ctx, nil, txs); got.Summary.TotalIncome != 100 {
		t.Fatalf("March income = %v", got.Summary.TotalIncome)
	}
	clk.Set(time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC))
	got := agg.Summary(ctx, nil, txs)
	if got.Cached || got.Summary.TotalIncome != 0 {
		t.Errorf("April summary = %+v, want fresh zero income", got)
	}
}

func TestAggregator_NonNumericCached(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(testNow)
	props := []core.Property{{ID: "p1", Status: core.Rented, RentValue: core.NonNumeric}}
	txs := []core.Transaction{{ID: "t1", Type: core.Income, Amount: core.NonNumeric, Date: core.NewDate(2024, 3, 2)}}

	for i := 0; i < 7; i++ {
		got := agg.Summary(ctx, props, txs)
		if i > 0 && !got.Cached {
			t.Fatalf("call %d missed the cache", i+1)
		}
		if got.Diagnostics.InvalidAmounts != 1 {
			t.Errorf("diagnostics = %+v", got.Diagnostics)
		}
	}
	if s := agg.Stats()[0]; s.Size != 1 {
		t.Errorf("memo size = %d, want 1", s.Size)
	}
}

func TestAggregator_AlertsFollowRecordChanges(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(testNow)
	w := core.World{
		Properties: []core.Property{{ID: "p1", Name: "Apto 101", Status: core.Rented, RentValue: 1500}},
		Tenants: []core.Tenant{{
			ID: "tn1", Name: "Maria", PropertyID: "p1", Status: core.TenantActive,
			MonthlyRent: 1500, StartDate: core.NewDate(2023, 1, 14), PaymentDay: 14,
		}},
		EnergyBills: []core.EnergyBill{{ID: "e1", Period: "2024-03", DueDate: core.NewDate(2024, 3, 10), TotalAmount: 100}},
	}
	if first := agg.Alerts(ctx, w); len(first.Alerts) != 2 {
		t.Fatalf("alerts = %+v", first.Alerts)
	}

	w.Tenants[0].Name = "Joana"
	w.Tenants[0].MonthlyRent = 2500
	w.EnergyBills[0].TotalAmount = 999
	got := agg.Alerts(ctx, w)
	if got.Cached {
		t.Fatal("changed records must not be served from the cache")
	}
	want, _ := GenerateAlerts(testNow, w)
	for i := range want {
		if got.Alerts[i].Message != want[i].Message {
			t.Errorf("message %d = %q, want %q", i, got.Alerts[i].Message, want[i].Message)
		}
	}
}

func TestAggregator_AlertsCopyOnHit(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(testNow)
	w := core.World{Properties: []core.Property{{ID: "p1", Status: core.Maintenance}}}

	first := agg.Alerts(ctx, w)
	if len(first.Alerts) != 1 {
		t.Fatalf("alerts = %+v", first.Alerts)
	}
	first.Alerts[0].Resolved = true

	second := agg.Alerts(ctx, w)
	if !second.Cached {
		t.Error("expected cached alerts")
	}
	if second.Alerts[0].Resolved {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestAggregator_RecurringAndClear(t *testing.T) {
	ctx := context.Background()
	agg, _ := newTestAggregator(testNow)
	txs := []core.Transaction{rentTemplate()}

	if got := agg.Recurring(ctx, txs); len(got.Transactions) != 1 {
		t.Fatalf("recurring = %+v", got.Transactions)
	}
	if got := agg.Recurring(ctx, txs); !got.Cached {
		t.Error("expected cached projection")
	}
	if n := agg.ClearCaches(); n != 1 {
		t.Errorf("ClearCaches() = %d, want 1", n)
	}
	if got := agg.Recurring(ctx, txs); got.Cached {
		t.Error("cleared memo should miss")
	}
}
