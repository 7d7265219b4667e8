package services

import (
	"testing"

	"sismobi/internal/core"
)

func TestMergeAlerts(t *testing.T) {
	existing := []core.Alert{
		{ID: "rent-overdue:tn1:2024-03", Resolved: true},
		{ID: "manual-1"},
	}
	generated := []core.Alert{
		{ID: "rent-overdue:tn1:2024-03"},
		{ID: "energy-overdue:e1"},
		{ID: "energy-overdue:e1"},
	}

	merged, added := MergeAlerts(existing, generated)

	if len(merged) != 3 {
		t.Fatalf("merged len = %d, want 3", len(merged))
	}
	if !merged[0].Resolved {
		t.Error("existing alert was replaced")
	}
	if len(added) != 1 || added[0].ID != "energy-overdue:e1" {
		t.Errorf("added = %+v", added)
	}
	if len(existing) != 2 {
		t.Error("existing slice modified")
	}
}

func TestMergeTransactions_NothingNew(t *testing.T) {
	existing := []core.Transaction{{ID: "a"}, {ID: "b"}}
	merged, added := MergeTransactions(existing, []core.Transaction{{ID: "b"}})
	if len(merged) != 2 || len(added) != 0 {
		t.Errorf("merged=%d added=%d", len(merged), len(added))
	}
}
