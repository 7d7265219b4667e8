// Package services provides the aggregation and alerting engine and the
// orchestration built on top of it.
package services

import (
	"time"

	"sismobi/internal/core"
)

// CalculateSummary computes the financial snapshot for the calendar month of now.
//
// Transactions with an unusable date are left out, non-numeric amounts count as
// zero; both are reported in the returned Diagnostics. Every type other than
// income is accumulated as an expense. Occupancy and ROI are zero when their
// denominator is zero.
func CalculateSummary(now time.Time, properties []core.Property, transactions []core.Transaction) (core.FinancialSummary, core.Diagnostics) {
	var (
		s    core.FinancialSummary
		diag core.Diagnostics
	)

	for _, t := range transactions {
		if !t.Date.Valid() {
			diag.InvalidDates++
			continue
		}
		if !t.Date.SameMonth(now) {
			continue
		}
		if !t.Amount.Numeric() {
			diag.InvalidAmounts++
		}
		if t.Type == core.Income {
			s.TotalIncome += t.Amount.Value()
		} else {
			s.TotalExpenses += t.Amount.Value()
		}
	}
	s.NetIncome = s.TotalIncome - s.TotalExpenses

	var investment float64
	for _, p := range properties {
		if p.Status == core.Rented {
			s.RentedProperties++
		}
		if !p.PurchasePrice.Numeric() {
			diag.InvalidAmounts++
		}
		investment += p.PurchasePrice.Value()
	}
	s.TotalProperties = len(properties)

	if s.TotalProperties > 0 {
		s.OccupancyRate = float64(s.RentedProperties) * 100 / float64(s.TotalProperties)
	}
	if investment > 0 {
		s.MonthlyROI = s.NetIncome * 100 / investment
	}
	return s, diag
}
