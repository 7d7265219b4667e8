package core

// FinancialSummary is the monthly dashboard snapshot. It is derived, never persisted.
type FinancialSummary struct {
	TotalIncome      float64 `json:"totalIncome"`
	TotalExpenses    float64 `json:"totalExpenses"`
	NetIncome        float64 `json:"netIncome"`
	OccupancyRate    float64 `json:"occupancyRate"`
	TotalProperties  int     `json:"totalProperties"`
	RentedProperties int     `json:"rentedProperties"`
	MonthlyROI       float64 `json:"monthlyROI"`
}

// BillGroupSummary totals the bills sharing a group id.
type BillGroupSummary struct {
	GroupID            string        `json:"groupId"`
	TotalBills         int           `json:"totalBills"`
	TotalAmount        float64       `json:"totalAmount"`
	TotalConsumption   float64       `json:"totalConsumption"`
	AverageAmount      float64       `json:"averageAmount"`
	AverageConsumption float64       `json:"averageConsumption"`
	Bills              []UtilityBill `json:"bills"`
}

// Diagnostics counts the records an aggregation absorbed instead of failing.
type Diagnostics struct {
	InvalidDates   int `json:"invalidDates"`
	InvalidAmounts int `json:"invalidAmounts"`
	SkippedRecords int `json:"skippedRecords"`
}

// Clean reports whether nothing was absorbed.
func (d Diagnostics) Clean() bool {
	return d.InvalidDates == 0 && d.InvalidAmounts == 0 && d.SkippedRecords == 0
}

// Add merges two diagnostics.
func (d Diagnostics) Add(o Diagnostics) Diagnostics {
	return Diagnostics{
		InvalidDates:   d.InvalidDates + o.InvalidDates,
		InvalidAmounts: d.InvalidAmounts + o.InvalidAmounts,
		SkippedRecords: d.SkippedRecords + o.SkippedRecords,
	}
}

// World bundles every collection the alert generator reads.
type World struct {
	Properties   []Property    `json:"properties"`
	Tenants      []Tenant      `json:"tenants"`
	Transactions []Transaction `json:"transactions"`
	EnergyBills  []EnergyBill  `json:"energyBills"`
	WaterBills   []WaterBill   `json:"waterBills"`
}
