// internal/models/report.go
package models

// ServiceRevenue is one line of a report's service breakdown.
type ServiceRevenue struct {
	Service    string  `json:"service"`
	Revenue    float64 `json:"revenue"`
	Percentage float64 `json:"percentage"`
}

// RevenueReport is an immutable per-period snapshot. Percentages are
// fixed at generation time and never recomputed.
type RevenueReport struct {
	ID                       string           `json:"id"`
	FranchiseID              string           `json:"franchiseId"`
	FranchiseName            string           `json:"franchiseName"`
	Period                   string           `json:"period"` // YYYY-MM
	TotalRevenue             float64          `json:"totalRevenue"`
	ServiceBreakdown         []ServiceRevenue `json:"serviceBreakdown"`
	GrowthRate               float64          `json:"growthRate"`
	ComparisonPreviousPeriod float64          `json:"comparisonPreviousPeriod"`
	GeneratedAt              string           `json:"generatedAt"` // RFC 3339
}
