// internal/workers/payment/update-payment-status/models.go
package updatepaymentstatus

type Input struct {
	PaymentID     string `json:"paymentId"`
	NewStatus     string `json:"newStatus"`
	ProcessedDate string `json:"processedDate,omitempty"` // YYYY-MM-DD, defaults to today on completion
	Notes         string `json:"notes,omitempty"`
}

type Output struct {
	PaymentID      string `json:"paymentId"`
	PreviousStatus string `json:"previousStatus"`
	Status         string `json:"paymentStatus"`
	ProcessedDate  string `json:"processedDate,omitempty"`
	UpdatedAt      string `json:"updatedAt"`
}
