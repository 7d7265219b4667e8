package services

import (
	"fmt"
	"time"

	"sismobi/internal/core"
)

// Alert rule names. They prefix every generated alert id.
const (
	RuleRentOverdue           = "rent-overdue"
	RuleRentUpcoming          = "rent-upcoming"
	RuleEnergyOverdue         = "energy-overdue"
	RuleWaterOverdue          = "water-overdue"
	RuleEnergyUpcoming        = "energy-upcoming"
	RuleWaterUpcoming         = "water-upcoming"
	RuleTenantUnlinked        = "tenant-unlinked"
	RulePropertyWithoutTenant = "property-without-tenant"
	RulePropertyMaintenance   = "property-maintenance"
)

const (
	// RentWindowDays is how far ahead a rent payment counts as upcoming.
	RentWindowDays = 3
	// BillWindowDays is how far ahead a utility bill counts as upcoming.
	BillWindowDays = 5
)

// AlertID builds the stable identifier of an alert.
func AlertID(rule, entityID, period string) string {
	if period == "" {
		return rule + ":" + entityID
	}
	return rule + ":" + entityID + ":" + period
}

// GenerateAlerts evaluates every alert rule against the world as of now.
//
// Rules run independently and in a fixed order; within a rule, alerts follow
// input order. A record a rule cannot evaluate is skipped for that rule and
// counted in the returned Diagnostics. Ids depend only on rule, entity and
// period, so an unchanged world yields the same ids on every run.
func GenerateAlerts(now time.Time, w core.World) ([]core.Alert, core.Diagnostics) {
	g := newAlertPass(now, w)

	g.rentAlerts()
	g.billAlerts(RuleEnergyOverdue, core.CategoryEnergy, w.EnergyBills, true)
	g.billAlerts(RuleWaterOverdue, core.CategoryWater, w.WaterBills, true)
	g.billAlerts(RuleEnergyUpcoming, core.CategoryEnergy, w.EnergyBills, false)
	g.billAlerts(RuleWaterUpcoming, core.CategoryWater, w.WaterBills, false)
	g.linkageAlerts()
	g.maintenanceAlerts()

	return g.alerts, g.diag
}

type alertPass struct {
	now   time.Time
	today time.Time
	world core.World

	properties map[string]core.Property
	tenants    map[string]core.Tenant
	occupied   map[string]bool // property id -> has an active tenant pointing at it
	paid       map[string]bool // paidKey -> has income that month

	alerts []core.Alert
	diag   core.Diagnostics
}

func newAlertPass(now time.Time, w core.World) *alertPass {
	g := &alertPass{
		now:        now,
		today:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		world:      w,
		properties: make(map[string]core.Property, len(w.Properties)),
		tenants:    make(map[string]core.Tenant, len(w.Tenants)),
		occupied:   make(map[string]bool),
		paid:       make(map[string]bool),
	}
	for _, p := range w.Properties {
		if p.ID != "" {
			g.properties[p.ID] = p
		}
	}
	for _, t := range w.Tenants {
		if t.ID == "" {
			continue
		}
		g.tenants[t.ID] = t
		if t.IsActive() && t.PropertyID != "" {
			g.occupied[t.PropertyID] = true
		}
	}
	for _, t := range w.Transactions {
		if !t.Date.Valid() {
			g.diag.InvalidDates++
			continue
		}
		if t.Type == core.Income && t.PropertyID != "" {
			g.paid[paidKey(t.PropertyID, t.Date.Year(), t.Date.Month())] = true
		}
	}
	return g
}

func (g *alertPass) add(a core.Alert) {
	a.CreatedAt = core.DateOf(g.now)
	g.alerts = append(g.alerts, a)
}

// rentDue returns the tenant's due date in the given month, clamped to the month length.
func (g *alertPass) rentDue(t core.Tenant, year int, month time.Month) (time.Time, bool) {
	day := t.PaymentDay
	if day < 1 || day > 31 {
		if !t.StartDate.Valid() {
			return time.Time{}, false
		}
		day = t.StartDate.Day()
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, g.now.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, g.now.Location()), true
}

func (g *alertPass) startedBy(t core.Tenant, due time.Time) bool {
	return !t.StartDate.Valid() || !t.StartDate.Civil(g.now.Location()).After(due)
}

func (g *alertPass) rentAlerts() {
	type pending struct {
		tenant   core.Tenant
		property core.Property
		due      time.Time
	}
	var overdue, upcoming []pending

	for _, t := range g.world.Tenants {
		if t.ID == "" {
			g.diag.SkippedRecords++
			continue
		}
		if !t.IsActive() {
			continue
		}
		p, ok := g.properties[t.PropertyID]
		if !ok {
			continue
		}
		due, ok := g.rentDue(t, g.now.Year(), g.now.Month())
		if !ok {
			g.diag.InvalidDates++
			continue
		}

		// The latest due date on or before today decides overdue; before this
		// month's due day that is last month's.
		last := due
		if last.After(g.today) {
			last, _ = g.rentDue(t, g.now.Year(), g.now.Month()-1)
		}
		if g.today.After(last) && g.startedBy(t, last) && !g.paidIn(p.ID, last) {
			overdue = append(overdue, pending{t, p, last})
		}

		if !due.Before(g.today) && !due.After(g.today.AddDate(0, 0, RentWindowDays)) &&
			g.startedBy(t, due) && !g.paidIn(p.ID, due) {
			upcoming = append(upcoming, pending{t, p, due})
		}
	}

	for _, r := range overdue {
		g.add(core.Alert{
			ID:         AlertID(RuleRentOverdue, r.tenant.ID, r.due.Format("2006-01")),
			Type:       core.AlertError,
			Title:      "Aluguel em atraso",
			Message:    fmt.Sprintf("O aluguel de %s (%s) venceu em %s: %s", r.tenant.Name, r.property.Name, r.due.Format("02/01"), core.FormatBRL(rentAmount(r.tenant, r.property))),
			PropertyID: r.property.ID,
			Category:   core.CategoryPayment,
		})
	}
	for _, r := range upcoming {
		g.add(core.Alert{
			ID:         AlertID(RuleRentUpcoming, r.tenant.ID, r.due.Format("2006-01")),
			Type:       core.AlertWarning,
			Title:      "Aluguel a vencer",
			Message:    fmt.Sprintf("O aluguel de %s (%s) vence em %s: %s", r.tenant.Name, r.property.Name, r.due.Format("02/01"), core.FormatBRL(rentAmount(r.tenant, r.property))),
			PropertyID: r.property.ID,
			Category:   core.CategoryPayment,
		})
	}
}

// paidIn reports an income for the property in the calendar month of due.
func (g *alertPass) paidIn(propertyID string, due time.Time) bool {
	return g.paid[paidKey(propertyID, due.Year(), due.Month())]
}

func paidKey(propertyID string, year int, month time.Month) string {
	return fmt.Sprintf("%s|%04d-%02d", propertyID, year, int(month))
}

func rentAmount(t core.Tenant, p core.Property) core.Amount {
	if t.MonthlyRent.Numeric() && t.MonthlyRent > 0 {
		return t.MonthlyRent
	}
	return p.RentValue
}

// billAlerts emits either the overdue or the upcoming alerts for one kind of bill.
func (g *alertPass) billAlerts(rule string, category core.AlertCategory, bills []core.UtilityBill, overdue bool) {
	label := "energia"
	if category == core.CategoryWater {
		label = "água"
	}

	for _, b := range bills {
		if b.ID == "" {
			if overdue {
				g.diag.SkippedRecords++
			}
			continue
		}
		if b.Paid {
			continue
		}
		if !b.DueDate.Valid() {
			if overdue {
				g.diag.InvalidDates++
			}
			continue
		}

		due := b.DueDate.Civil(g.now.Location())
		switch {
		case overdue && due.Before(g.today):
			g.add(core.Alert{
				ID:         AlertID(rule, b.ID, ""),
				Type:       core.AlertError,
				Title:      "Conta de " + label + " vencida",
				Message:    fmt.Sprintf("A conta de %s %s venceu em %s: %s", label, b.Period, due.Format("02/01/2006"), core.FormatBRL(b.TotalAmount)),
				PropertyID: b.PropertyID,
				Category:   category,
			})
		case !overdue && !due.Before(g.today) && !due.After(g.today.AddDate(0, 0, BillWindowDays)):
			g.add(core.Alert{
				ID:         AlertID(rule, b.ID, ""),
				Type:       core.AlertWarning,
				Title:      "Conta de " + label + " a vencer",
				Message:    fmt.Sprintf("A conta de %s %s vence em %s: %s", label, b.Period, due.Format("02/01/2006"), core.FormatBRL(b.TotalAmount)),
				PropertyID: b.PropertyID,
				Category:   category,
			})
		}
	}
}

func (g *alertPass) linkageAlerts() {
	for _, t := range g.world.Tenants {
		if t.ID == "" || !t.IsActive() {
			continue
		}
		if _, ok := g.properties[t.PropertyID]; ok {
			continue
		}
		msg := fmt.Sprintf("O inquilino %s está ativo mas não está vinculado a nenhum imóvel", t.Name)
		if t.PropertyID != "" {
			msg = fmt.Sprintf("O inquilino %s aponta para o imóvel %s, que não existe", t.Name, t.PropertyID)
		}
		g.add(core.Alert{
			ID:       AlertID(RuleTenantUnlinked, t.ID, ""),
			Type:     core.AlertInfo,
			Title:    "Inquilino sem imóvel",
			Message:  msg,
			Category: core.CategorySystem,
		})
	}

	for _, p := range g.world.Properties {
		if p.ID == "" {
			g.diag.SkippedRecords++
			continue
		}
		if p.Status != core.Rented {
			continue
		}
		if _, ok := g.tenants[p.TenantID]; ok || g.occupied[p.ID] {
			continue
		}
		g.add(core.Alert{
			ID:         AlertID(RulePropertyWithoutTenant, p.ID, ""),
			Type:       core.AlertInfo,
			Title:      "Imóvel alugado sem inquilino",
			Message:    fmt.Sprintf("O imóvel %s está marcado como alugado mas não tem inquilino vinculado", p.Name),
			PropertyID: p.ID,
			Category:   core.CategorySystem,
		})
	}
}

func (g *alertPass) maintenanceAlerts() {
	for _, p := range g.world.Properties {
		if p.ID == "" || p.Status != core.Maintenance {
			continue
		}
		g.add(core.Alert{
			ID:         AlertID(RulePropertyMaintenance, p.ID, ""),
			Type:       core.AlertInfo,
			Title:      "Imóvel em manutenção",
			Message:    fmt.Sprintf("O imóvel %s está em manutenção", p.Name),
			PropertyID: p.ID,
			Category:   core.CategoryMaintenance,
		})
	}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
