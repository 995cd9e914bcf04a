// internal/workers/dispute/create-dispute/models.go
package createdispute

type Input struct {
	FranchiseID          string   `json:"franchiseId"`
	RoyaltyCalculationID string   `json:"royaltyCalculationId"`
	DisputeType          string   `json:"disputeType"`
	Description          string   `json:"description"`
	DisputedAmount       float64  `json:"disputedAmount"`
	EvidenceFiles        []string `json:"evidenceFiles,omitempty"`
	Priority             string   `json:"priority,omitempty"` // defaults to medium
}

type Output struct {
	DisputeID         string  `json:"disputeId"`
	FranchiseID       string  `json:"franchiseId"`
	DisputeStatus     string  `json:"disputeStatus"`
	Priority          string  `json:"priority"`
	DisputedAmount    float64 `json:"disputedAmount"`
	CalculationStatus string  `json:"calculationStatus"`
	CreatedAt         string  `json:"createdAt"`
}
