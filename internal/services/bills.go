package services

import (
	"strconv"
	"strings"

	"sismobi/internal/core"
)

// SummarizeBillGroup totals the bills of groupID. A non-zero year keeps only
// bills whose period falls in that year. Non-numeric amounts count as zero.
func SummarizeBillGroup(bills []core.UtilityBill, groupID string, year int) core.BillGroupSummary {
	s := core.BillGroupSummary{GroupID: groupID, Bills: []core.UtilityBill{}}
	prefix := ""
	if year != 0 {
		prefix = strconv.Itoa(year) + "-"
	}

	for _, b := range bills {
		if b.GroupID != groupID {
			continue
		}
		if !strings.HasPrefix(b.Period, prefix) {
			continue
		}
		s.Bills = append(s.Bills, b)
		s.TotalAmount += b.TotalAmount.Value()
		s.TotalConsumption += b.Consumption.Value()
	}

	s.TotalBills = len(s.Bills)
	if s.TotalBills > 0 {
		s.AverageAmount = s.TotalAmount / float64(s.TotalBills)
		s.AverageConsumption = s.TotalConsumption / float64(s.TotalBills)
	}
	return s
}
