// internal/models/fee_structure.go
package models

// FeeType classifies what a fee structure charges for.
type FeeType string

const (
	FeeTypeRoyalty    FeeType = "royalty"
	FeeTypeMarketing  FeeType = "marketing"
	FeeTypeTechnology FeeType = "technology"
	FeeTypeTraining   FeeType = "training"
	FeeTypeSupport    FeeType = "support"
)

// CalculationMethod determines how a fee structure's rate is applied.
type CalculationMethod string

const (
	MethodPercentage  CalculationMethod = "percentage"
	MethodFixed       CalculationMethod = "fixed"
	MethodTiered      CalculationMethod = "tiered"       // rate bracketed by period revenue
	MethodVolumeBased CalculationMethod = "volume_based" // rate bracketed by year-to-date revenue
)

// FeeTier maps a revenue bracket to a rate. Tiers are stored ordered,
// ascending and non-overlapping.
type FeeTier struct {
	MinRevenue float64 `json:"minRevenue"`
	MaxRevenue float64 `json:"maxRevenue"`
	Rate       float64 `json:"rate"`
}

type FeeStructure struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	FeeType              FeeType           `json:"feeType"`
	CalculationMethod    CalculationMethod `json:"calculationMethod"`
	Rate                 float64           `json:"rate"`
	MinAmount            *float64          `json:"minAmount,omitempty"`
	MaxAmount            *float64          `json:"maxAmount,omitempty"`
	Tiers                []FeeTier         `json:"tiers,omitempty"`
	EffectiveDate        string            `json:"effectiveDate"` // YYYY-MM-DD
	ExpiryDate           string            `json:"expiryDate,omitempty"`
	IsActive             bool              `json:"isActive"`
	ApplicableFranchises []string          `json:"applicableFranchises"`
}

// AppliesTo reports whether the structure covers the given franchise.
// An empty applicability list means the structure is brand-wide.
func (f *FeeStructure) AppliesTo(franchiseID string) bool {
	if len(f.ApplicableFranchises) == 0 {
		return true
	}
	for _, id := range f.ApplicableFranchises {
		if id == franchiseID {
			return true
		}
	}
	return false
}

// ActiveOn reports whether the structure is active on the given date
// (YYYY-MM-DD, lexicographic comparison is safe for ISO dates).
func (f *FeeStructure) ActiveOn(date string) bool {
	if !f.IsActive {
		return false
	}
	if f.EffectiveDate != "" && date < f.EffectiveDate {
		return false
	}
	if f.ExpiryDate != "" && date > f.ExpiryDate {
		return false
	}
	return true
}
