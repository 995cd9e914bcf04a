// internal/workers/royalty/calculate-royalty/models.go
package calculateroyalty

type Input struct {
	FranchiseID  string  `json:"franchiseId"`
	Period       string  `json:"period"` // YYYY-MM
	GrossRevenue float64 `json:"grossRevenue"`
}

type Output struct {
	CalculationID     string  `json:"calculationId"`
	FranchiseID       string  `json:"franchiseId"`
	FranchiseName     string  `json:"franchiseName"`
	Period            string  `json:"period"`
	GrossRevenue      float64 `json:"grossRevenue"`
	RoyaltyRate       float64 `json:"royaltyRate"`
	RoyaltyAmount     float64 `json:"royaltyAmount"`
	MarketingFee      float64 `json:"marketingFee"`
	TechnologyFee     float64 `json:"technologyFee"`
	TotalFees         float64 `json:"totalFees"`
	NetPayment        float64 `json:"netPayment"`
	CalculationStatus string  `json:"calculationStatus"`
	CalculatedAt      string  `json:"calculatedAt"` // ISO 8601
	DueDate           string  `json:"dueDate"`      // YYYY-MM-DD
}
