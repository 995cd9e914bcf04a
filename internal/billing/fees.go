// internal/billing/fees.go
package billing

import (
	"errors"
	"fmt"

	"prmcms-workers/internal/models"
)

var (
	// ErrNoActiveFeeStructure indicates no fee structure of the requested
	// type is active and applicable for the franchise on the given date.
	ErrNoActiveFeeStructure = errors.New("NO_ACTIVE_FEE_STRUCTURE")

	// ErrInvalidAmount indicates a negative or non-finite monetary input.
	ErrInvalidAmount = errors.New("INVALID_AMOUNT")
)

// BrandDefaults are the network-wide fallback fees applied when no
// dedicated marketing or technology structure is active. The base
// royalty never falls back; it always requires an active structure.
type BrandDefaults struct {
	MarketingRate float64 // percent of gross revenue
	TechnologyFee float64 // flat dollar amount per period
}

// Breakdown is the computed fee set for one franchise period.
type Breakdown struct {
	RoyaltyRate   float64
	RoyaltyAmount float64
	MarketingFee  float64
	TechnologyFee float64
	TotalFees     float64
	NetPayment    float64
}

// ActiveFeeStructure selects the structure of the given type that is
// active and applicable for the franchise on date (YYYY-MM-DD). Ties go
// to the latest effective date, then the smallest id, so selection is
// deterministic regardless of input ordering.
func ActiveFeeStructure(structures []models.FeeStructure, feeType models.FeeType, franchiseID, date string) (*models.FeeStructure, error) {
	var best *models.FeeStructure
	for i := range structures {
		fs := &structures[i]
		if fs.FeeType != feeType || !fs.ActiveOn(date) || !fs.AppliesTo(franchiseID) {
			continue
		}
		if best == nil {
			best = fs
			continue
		}
		if fs.EffectiveDate > best.EffectiveDate ||
			(fs.EffectiveDate == best.EffectiveDate && fs.ID < best.ID) {
			best = fs
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no active %s structure for franchise %s on %s",
			ErrNoActiveFeeStructure, feeType, franchiseID, date)
	}
	return best, nil
}

// ResolveRate determines the effective percentage rate for a structure
// against the given revenue figures. Tiered structures bracket on the
// period's revenue; volume-based structures bracket on year-to-date
// revenue including the current period. Fixed structures have no rate.
func ResolveRate(fs *models.FeeStructure, periodRevenue, ytdRevenue float64) (float64, error) {
	switch fs.CalculationMethod {
	case models.MethodPercentage:
		return fs.Rate, nil
	case models.MethodFixed:
		return 0, nil
	case models.MethodTiered:
		return tierRate(fs, periodRevenue)
	case models.MethodVolumeBased:
		return tierRate(fs, ytdRevenue)
	default:
		return 0, fmt.Errorf("unknown calculation method %q", fs.CalculationMethod)
	}
}

func tierRate(fs *models.FeeStructure, revenue float64) (float64, error) {
	if len(fs.Tiers) == 0 {
		return 0, fmt.Errorf("structure %s has no tiers", fs.ID)
	}
	for _, tier := range fs.Tiers {
		if revenue >= tier.MinRevenue && revenue <= tier.MaxRevenue {
			return tier.Rate, nil
		}
	}
	// Revenue above the last bracket uses the top tier's rate.
	top := fs.Tiers[len(fs.Tiers)-1]
	if revenue > top.MaxRevenue {
		return top.Rate, nil
	}
	return 0, fmt.Errorf("no tier of structure %s covers revenue %.2f", fs.ID, revenue)
}

// Apply computes the dollar amount a structure charges for the period.
// Percentage-family methods apply the resolved rate to gross revenue;
// fixed structures charge their rate as a flat amount. The result is
// clamped to the structure's min/max bounds and rounded to cents.
func Apply(fs *models.FeeStructure, grossRevenue, ytdRevenue float64) (amount, rate float64, err error) {
	if grossRevenue < 0 {
		return 0, 0, fmt.Errorf("%w: gross revenue %.2f", ErrInvalidAmount, grossRevenue)
	}
	rate, err = ResolveRate(fs, grossRevenue, ytdRevenue)
	if err != nil {
		return 0, 0, err
	}
	if fs.CalculationMethod == models.MethodFixed {
		amount = fs.Rate
	} else {
		amount = grossRevenue * rate / 100
	}
	if fs.MinAmount != nil && amount < *fs.MinAmount {
		amount = *fs.MinAmount
	}
	if fs.MaxAmount != nil && amount > *fs.MaxAmount {
		amount = *fs.MaxAmount
	}
	return RoundCurrency(amount), rate, nil
}

// Compute produces the full fee breakdown for a period. The royalty
// structure is mandatory. Marketing and technology structures are
// optional; when nil, the brand defaults apply.
func Compute(royalty, marketing, technology *models.FeeStructure, grossRevenue, ytdRevenue float64, defaults BrandDefaults) (*Breakdown, error) {
	if royalty == nil {
		return nil, ErrNoActiveFeeStructure
	}
	if grossRevenue < 0 {
		return nil, fmt.Errorf("%w: gross revenue %.2f", ErrInvalidAmount, grossRevenue)
	}

	royaltyAmount, royaltyRate, err := Apply(royalty, grossRevenue, ytdRevenue)
	if err != nil {
		return nil, err
	}

	marketingFee := RoundCurrency(grossRevenue * defaults.MarketingRate / 100)
	if marketing != nil {
		marketingFee, _, err = Apply(marketing, grossRevenue, ytdRevenue)
		if err != nil {
			return nil, err
		}
	}

	technologyFee := RoundCurrency(defaults.TechnologyFee)
	if technology != nil {
		technologyFee, _, err = Apply(technology, grossRevenue, ytdRevenue)
		if err != nil {
			return nil, err
		}
	}

	totalFees := RoundCurrency(royaltyAmount + marketingFee + technologyFee)
	return &Breakdown{
		RoyaltyRate:   royaltyRate,
		RoyaltyAmount: royaltyAmount,
		MarketingFee:  marketingFee,
		TechnologyFee: technologyFee,
		TotalFees:     totalFees,
		NetPayment:    RoundCurrency(grossRevenue - totalFees),
	}, nil
}
