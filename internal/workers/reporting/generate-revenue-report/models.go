// internal/workers/reporting/generate-revenue-report/models.go
package generaterevenuereport

import "prmcms-workers/internal/models"

type Input struct {
	FranchiseID string `json:"franchiseId"`
	Period      string `json:"period"` // YYYY-MM
}

type Output struct {
	ReportID                 string                  `json:"reportId"`
	FranchiseID              string                  `json:"franchiseId"`
	Period                   string                  `json:"period"`
	TotalRevenue             float64                 `json:"totalRevenue"`
	ServiceBreakdown         []models.ServiceRevenue `json:"serviceBreakdown"`
	GrowthRate               float64                 `json:"growthRate"`
	ComparisonPreviousPeriod float64                 `json:"comparisonPreviousPeriod"`
	GeneratedAt              string                  `json:"generatedAt"`
}
