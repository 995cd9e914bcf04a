// internal/models/royalty.go
package models

// RoyaltyStatus is the lifecycle state of a royalty calculation.
type RoyaltyStatus string

const (
	RoyaltyStatusPending    RoyaltyStatus = "pending"
	RoyaltyStatusCalculated RoyaltyStatus = "calculated"
	RoyaltyStatusApproved   RoyaltyStatus = "approved"
	RoyaltyStatusPaid       RoyaltyStatus = "paid"
	RoyaltyStatusDisputed   RoyaltyStatus = "disputed"
)

// royaltyTransitions enumerates the legal status moves. "paid" is
// terminal; "disputed" returns to "approved" when its dispute resolves.
var royaltyTransitions = map[RoyaltyStatus][]RoyaltyStatus{
	RoyaltyStatusPending:    {RoyaltyStatusCalculated},
	RoyaltyStatusCalculated: {RoyaltyStatusApproved, RoyaltyStatusDisputed},
	RoyaltyStatusApproved:   {RoyaltyStatusPaid, RoyaltyStatusDisputed},
	RoyaltyStatusDisputed:   {RoyaltyStatusApproved},
}

// CanTransition reports whether moving from s to next is legal.
func (s RoyaltyStatus) CanTransition(next RoyaltyStatus) bool {
	for _, allowed := range royaltyTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known royalty status.
func (s RoyaltyStatus) Valid() bool {
	switch s {
	case RoyaltyStatusPending, RoyaltyStatusCalculated, RoyaltyStatusApproved,
		RoyaltyStatusPaid, RoyaltyStatusDisputed:
		return true
	}
	return false
}

type RoyaltyCalculation struct {
	ID            string        `json:"id"`
	FranchiseID   string        `json:"franchiseId"`
	FranchiseName string        `json:"franchiseName"`
	Period        string        `json:"period"` // YYYY-MM
	GrossRevenue  float64       `json:"grossRevenue"`
	RoyaltyRate   float64       `json:"royaltyRate"`
	RoyaltyAmount float64       `json:"royaltyAmount"`
	MarketingFee  float64       `json:"marketingFee"`
	TechnologyFee float64       `json:"technologyFee"`
	TotalFees     float64       `json:"totalFees"`
	NetPayment    float64       `json:"netPayment"`
	Status        RoyaltyStatus `json:"status"`
	CalculatedAt  string        `json:"calculatedAt"` // RFC 3339
	DueDate       string        `json:"dueDate"`      // YYYY-MM-DD
	PaidDate      string        `json:"paidDate,omitempty"`
}
