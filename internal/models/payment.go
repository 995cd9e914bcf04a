// internal/models/payment.go
package models

type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodCash         PaymentMethod = "cash"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodCheck, PaymentMethodCash:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// paymentTransitions is the monotonic payment state machine:
// pending -> processing -> completed|failed, completed -> refunded.
// failed and refunded are terminal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
}

// CanTransition reports whether moving from s to next is legal.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentTracking struct {
	ID                   string        `json:"id"`
	FranchiseID          string        `json:"franchiseId"`
	FranchiseName        string        `json:"franchiseName"`
	RoyaltyCalculationID string        `json:"royaltyCalculationId"`
	Amount               float64       `json:"amount"`
	PaymentMethod        PaymentMethod `json:"paymentMethod"`
	Status               PaymentStatus `json:"status"`
	TransactionID        string        `json:"transactionId"`
	ReferenceNumber      string        `json:"referenceNumber"`
	PaymentDate          string        `json:"paymentDate"` // YYYY-MM-DD
	ProcessedDate        string        `json:"processedDate,omitempty"`
	Notes                string        `json:"notes"`
}
