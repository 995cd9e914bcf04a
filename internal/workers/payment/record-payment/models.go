// internal/workers/payment/record-payment/models.go
package recordpayment

import (
	"strings"

	"github.com/google/uuid"
)

type Input struct {
	FranchiseID          string  `json:"franchiseId"`
	RoyaltyCalculationID string  `json:"royaltyCalculationId"`
	Amount               float64 `json:"amount"`
	PaymentMethod        string  `json:"paymentMethod"`
	PaymentDate          string  `json:"paymentDate,omitempty"` // YYYY-MM-DD, defaults to today
	Notes                string  `json:"notes,omitempty"`
	IdempotencyKey       string  `json:"idempotencyKey,omitempty"` // replay guard for broker retries
}

type Output struct {
	PaymentID       string  `json:"paymentId"`
	FranchiseID     string  `json:"franchiseId"`
	Amount          float64 `json:"amount"`
	PaymentStatus   string  `json:"paymentStatus"`
	TransactionID   string  `json:"transactionId"`
	ReferenceNumber string  `json:"referenceNumber"`
	PaymentDate     string  `json:"paymentDate"`
}

// NewTransactionID issues a collision-resistant transaction number.
// Identifiers are random, never clock-derived, so concurrent payments
// can never collide on a shared timestamp.
func NewTransactionID() string {
	return "TXN-" + randomToken()
}

// NewReferenceNumber issues the bank-facing reference for a payment.
func NewReferenceNumber() string {
	return "REF-" + randomToken()
}

func randomToken() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:12])
}
