package cache

import (
	"math"
	"strings"
	"testing"

	"sismobi/internal/core"
)

func sampleInputs() ([]core.Property, []core.Transaction) {
	props := []core.Property{
		{ID: "p1", Status: core.Rented, RentValue: 1500, PurchasePrice: 200000},
		{ID: "p2", Status: core.Vacant, RentValue: 900},
	}
	txs := []core.Transaction{
		{ID: "t1", Type: core.Income, Amount: 1500, Date: core.NewDate(2024, 3, 5)},
		{ID: "t2", Type: core.Expense, Amount: 300, Date: core.NewDate(2024, 3, 10)},
	}
	return props, txs
}

func TestKey_Stable(t *testing.T) {
	props, txs := sampleInputs()
	a := Key("financial", Properties(props), Transactions(txs))
	b := Key("financial", Properties(props), Transactions(txs))
	if a != b {
		t.Errorf("same input gave different keys: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "financial:") {
		t.Errorf("key %q missing operation prefix", a)
	}
}

func TestKey_Changes(t *testing.T) {
	props, txs := sampleInputs()
	base := Key("financial", Properties(props), Transactions(txs))

	tests := []struct {
		name   string
		mutate func(p []core.Property, t []core.Transaction)
	}{
		{"amount", func(_ []core.Property, t []core.Transaction) { t[0].Amount = 1501 }},
		{"date", func(_ []core.Property, t []core.Transaction) { t[1].Date = core.NewDate(2024, 3, 11) }},
		{"status", func(p []core.Property, _ []core.Transaction) { p[1].Status = core.Rented }},
		{"rent", func(p []core.Property, _ []core.Transaction) { p[0].RentValue = 1600 }},
		{"invalid date", func(_ []core.Property, t []core.Transaction) { t[0].Date = core.Date{Raw: "bogus"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, x := sampleInputs()
			tt.mutate(p, x)
			if got := Key("financial", Properties(p), Transactions(x)); got == base {
				t.Errorf("key did not change after mutating %s", tt.name)
			}
		})
	}
}

func TestKey_OperationsDoNotCollide(t *testing.T) {
	props, txs := sampleInputs()
	if Key("financial", Properties(props), Transactions(txs)) == Key("alerts", Properties(props), Transactions(txs)) {
		t.Error("different operations share a key")
	}
}

func TestKey_SeparatorsInIDs(t *testing.T) {
	a := []core.Property{{ID: "a-b", Status: core.Rented}, {ID: "c"}}
	b := []core.Property{{ID: "a"}, {ID: "b-c", Status: core.Rented}}
	if Key("financial", Properties(a)) == Key("financial", Properties(b)) {
		t.Error("ids containing separators collided")
	}

	// Moving a record between parts must change the key too.
	x := Key("op", Part{Label: "l", Records: [][]any{{"1"}, {"2"}}}, Part{Label: "l"})
	y := Key("op", Part{Label: "l", Records: [][]any{{"1"}}}, Part{Label: "l", Records: [][]any{{"2"}}})
	if x == y {
		t.Error("record boundaries between parts collided")
	}
}

func TestKey_NonNumericIsStable(t *testing.T) {
	props, txs := sampleInputs()
	txs[0].Amount = core.NonNumeric
	props[0].RentValue = core.NonNumeric

	a := Key("financial", Properties(props), Transactions(txs))
	b := Key("financial", Properties(props), Transactions(txs))
	if strings.Contains(a, "fallback") {
		t.Fatalf("non-numeric amounts must not force a fallback key: %q", a)
	}
	if a != b {
		t.Errorf("same non-numeric input gave different keys: %s vs %s", a, b)
	}

	txs[0].Amount = 0
	if Key("financial", Properties(props), Transactions(txs)) == a {
		t.Error("non-numeric and zero amounts share a key")
	}
}

func TestKey_UnencodableFallsBack(t *testing.T) {
	part := Part{Label: "raw", Records: [][]any{{math.NaN()}}}
	a := Key("financial", part)
	b := Key("financial", part)
	if !strings.HasPrefix(a, "financial:fallback-") {
		t.Fatalf("key %q is not a fallback key", a)
	}
	if a == b {
		t.Error("fallback keys must never repeat")
	}
}

func TestKey_AlertInputs(t *testing.T) {
	type world struct {
		props   []core.Property
		tenants []core.Tenant
		bills   []core.UtilityBill
	}
	sample := func() world {
		return world{
			props:   []core.Property{{ID: "p1", Name: "Apto 101", Status: core.Rented, RentValue: 1500}},
			tenants: []core.Tenant{{ID: "tn1", Name: "Maria", PropertyID: "p1", Status: core.TenantActive, MonthlyRent: 1500, PaymentDay: 10}},
			bills:   []core.UtilityBill{{ID: "e1", GroupID: "g1", Period: "2024-03", DueDate: core.NewDate(2024, 3, 20), TotalAmount: 100}},
		}
	}
	key := func(w world) string {
		return Key("alerts", Properties(w.props), Tenants(w.tenants), Bills("energy", w.bills))
	}
	base := key(sample())

	tests := []struct {
		name   string
		mutate func(w *world)
	}{
		{"tenant name", func(w *world) { w.tenants[0].Name = "Joana" }},
		{"tenant rent", func(w *world) { w.tenants[0].MonthlyRent = 2500 }},
		{"property name", func(w *world) { w.props[0].Name = "Casa" }},
		{"bill total", func(w *world) { w.bills[0].TotalAmount = 999 }},
		{"bill period", func(w *world) { w.bills[0].Period = "2024-04" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sample()
			tt.mutate(&w)
			if key(w) == base {
				t.Errorf("key did not change after mutating %s", tt.name)
			}
		})
	}
}
