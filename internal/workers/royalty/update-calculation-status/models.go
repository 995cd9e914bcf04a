// internal/workers/royalty/update-calculation-status/models.go
package updatecalculationstatus

type Input struct {
	CalculationID string `json:"calculationId"`
	NewStatus     string `json:"newStatus"`
	PaidDate      string `json:"paidDate,omitempty"` // YYYY-MM-DD, defaults to today when moving to paid
}

type Output struct {
	CalculationID  string `json:"calculationId"`
	PreviousStatus string `json:"previousStatus"`
	Status         string `json:"status"`
	PaidDate       string `json:"paidDate,omitempty"`
	UpdatedAt      string `json:"updatedAt"` // ISO 8601
}
