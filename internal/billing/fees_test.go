// internal/billing/fees_test.go
package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prmcms-workers/internal/models"
)

func baseRoyalty() models.FeeStructure {
	return models.FeeStructure{
		ID:                "fee-001",
		Name:              "Regalía Base",
		FeeType:           models.FeeTypeRoyalty,
		CalculationMethod: models.MethodPercentage,
		Rate:              8.5,
		EffectiveDate:     "2024-01-01",
		IsActive:          true,
	}
}

func tieredRoyalty() models.FeeStructure {
	return models.FeeStructure{
		ID:                "fee-004",
		Name:              "Regalía por Volumen",
		FeeType:           models.FeeTypeRoyalty,
		CalculationMethod: models.MethodTiered,
		Tiers: []models.FeeTier{
			{MinRevenue: 0, MaxRevenue: 50000, Rate: 7.0},
			{MinRevenue: 50001, MaxRevenue: 100000, Rate: 8.5},
			{MinRevenue: 100001, MaxRevenue: 200000, Rate: 9.0},
			{MinRevenue: 200001, MaxRevenue: 999999, Rate: 9.5},
		},
		EffectiveDate: "2024-01-01",
		IsActive:      true,
	}
}

// ==========================
// Structure selection
// ==========================

func TestActiveFeeStructure_SelectsActiveApplicable(t *testing.T) {
	inactive := baseRoyalty()
	inactive.ID = "fee-000"
	inactive.IsActive = false

	scoped := baseRoyalty()
	scoped.ID = "fee-009"
	scoped.ApplicableFranchises = []string{"franchise-999"}

	fs, err := ActiveFeeStructure(
		[]models.FeeStructure{inactive, scoped, baseRoyalty()},
		models.FeeTypeRoyalty, "franchise-001", "2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, "fee-001", fs.ID)
}

func TestActiveFeeStructure_NoneActive(t *testing.T) {
	expired := baseRoyalty()
	expired.ExpiryDate = "2024-01-31"

	_, err := ActiveFeeStructure(
		[]models.FeeStructure{expired},
		models.FeeTypeRoyalty, "franchise-001", "2024-06-15")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoActiveFeeStructure)
}

func TestActiveFeeStructure_TieBreakLatestEffectiveDate(t *testing.T) {
	older := baseRoyalty()
	older.ID = "fee-001"
	older.Rate = 8.0

	newer := baseRoyalty()
	newer.ID = "fee-002"
	newer.EffectiveDate = "2024-03-01"
	newer.Rate = 9.0

	fs, err := ActiveFeeStructure(
		[]models.FeeStructure{older, newer},
		models.FeeTypeRoyalty, "franchise-001", "2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, "fee-002", fs.ID)

	// Same effective date falls back to the lowest id, independent of order.
	newer.EffectiveDate = older.EffectiveDate
	fs, err = ActiveFeeStructure(
		[]models.FeeStructure{newer, older},
		models.FeeTypeRoyalty, "franchise-001", "2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, "fee-001", fs.ID)
}

func TestActiveFeeStructure_NotEffectiveYet(t *testing.T) {
	future := baseRoyalty()
	future.EffectiveDate = "2025-01-01"

	_, err := ActiveFeeStructure(
		[]models.FeeStructure{future},
		models.FeeTypeRoyalty, "franchise-001", "2024-06-15")
	assert.ErrorIs(t, err, ErrNoActiveFeeStructure)
}

// ==========================
// Rate resolution
// ==========================

func TestResolveRate_Percentage(t *testing.T) {
	fs := baseRoyalty()
	rate, err := ResolveRate(&fs, 125000, 125000)
	require.NoError(t, err)
	assert.Equal(t, 8.5, rate)
}

func TestResolveRate_TieredBrackets(t *testing.T) {
	fs := tieredRoyalty()
	cases := []struct {
		revenue float64
		want    float64
	}{
		{0, 7.0},
		{50000, 7.0},
		{50001, 8.5},
		{100000, 8.5},
		{100001, 9.0},
		{200001, 9.5},
		{5000000, 9.5}, // above top bracket keeps the top rate
	}
	for _, tc := range cases {
		rate, err := ResolveRate(&fs, tc.revenue, tc.revenue)
		require.NoError(t, err)
		assert.Equalf(t, tc.want, rate, "revenue %.2f", tc.revenue)
	}
}

func TestResolveRate_VolumeBasedUsesYTD(t *testing.T) {
	fs := tieredRoyalty()
	fs.CalculationMethod = models.MethodVolumeBased

	// Period revenue alone sits in the 7.0 bracket, but cumulative
	// year-to-date revenue pushes the franchise into the 9.0 bracket.
	rate, err := ResolveRate(&fs, 40000, 140000)
	require.NoError(t, err)
	assert.Equal(t, 9.0, rate)
}

func TestResolveRate_TieredWithoutTiers(t *testing.T) {
	fs := baseRoyalty()
	fs.CalculationMethod = models.MethodTiered
	_, err := ResolveRate(&fs, 10000, 10000)
	assert.Error(t, err)
}

// ==========================
// Fee application
// ==========================

func TestApply_FixedAmount(t *testing.T) {
	fs := models.FeeStructure{
		ID:                "fee-003",
		Name:              "Cuota de Tecnología",
		FeeType:           models.FeeTypeTechnology,
		CalculationMethod: models.MethodFixed,
		Rate:              1500,
		EffectiveDate:     "2024-01-01",
		IsActive:          true,
	}
	amount, rate, err := Apply(&fs, 125000, 125000)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, amount)
	assert.Equal(t, 0.0, rate)
}

func TestApply_MinMaxClamp(t *testing.T) {
	min := 500.0
	max := 2000.0
	fs := baseRoyalty()
	fs.MinAmount = &min
	fs.MaxAmount = &max

	amount, _, err := Apply(&fs, 1000, 1000) // 8.5% of 1000 = 85, below floor
	require.NoError(t, err)
	assert.Equal(t, 500.0, amount)

	amount, _, err = Apply(&fs, 125000, 125000) // 10625, above ceiling
	require.NoError(t, err)
	assert.Equal(t, 2000.0, amount)
}

func TestApply_NegativeRevenue(t *testing.T) {
	fs := baseRoyalty()
	_, _, err := Apply(&fs, -100, -100)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

// ==========================
// Full breakdown
// ==========================

func TestCompute_StandardPeriod(t *testing.T) {
	royalty := baseRoyalty()
	defaults := BrandDefaults{MarketingRate: 2.0, TechnologyFee: 1500}

	bd, err := Compute(&royalty, nil, nil, 125000, 125000, defaults)
	require.NoError(t, err)

	assert.Equal(t, 8.5, bd.RoyaltyRate)
	assert.Equal(t, 10625.0, bd.RoyaltyAmount)
	assert.Equal(t, 2500.0, bd.MarketingFee)
	assert.Equal(t, 1500.0, bd.TechnologyFee)
	assert.Equal(t, 14625.0, bd.TotalFees)
	assert.Equal(t, 110375.0, bd.NetPayment)
}

func TestCompute_DedicatedMarketingStructure(t *testing.T) {
	royalty := baseRoyalty()
	marketing := models.FeeStructure{
		ID:                "fee-002",
		Name:              "Cuota de Marketing",
		FeeType:           models.FeeTypeMarketing,
		CalculationMethod: models.MethodPercentage,
		Rate:              3.0,
		EffectiveDate:     "2024-01-01",
		IsActive:          true,
	}
	defaults := BrandDefaults{MarketingRate: 2.0, TechnologyFee: 1500}

	bd, err := Compute(&royalty, &marketing, nil, 100000, 100000, defaults)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, bd.MarketingFee)
}

func TestCompute_RoundsToCents(t *testing.T) {
	royalty := baseRoyalty()
	royalty.Rate = 8.33
	defaults := BrandDefaults{MarketingRate: 2.0, TechnologyFee: 1500}

	bd, err := Compute(&royalty, nil, nil, 10001.01, 10001.01, defaults)
	require.NoError(t, err)
	assert.InDelta(t, 833.08, bd.RoyaltyAmount, 0.001)
	assert.Equal(t, RoundCurrency(bd.RoyaltyAmount+bd.MarketingFee+bd.TechnologyFee), bd.TotalFees)
	assert.Equal(t, RoundCurrency(10001.01-bd.TotalFees), bd.NetPayment)
}

func TestCompute_MissingRoyaltyStructure(t *testing.T) {
	_, err := Compute(nil, nil, nil, 125000, 125000, BrandDefaults{MarketingRate: 2.0, TechnologyFee: 1500})
	assert.ErrorIs(t, err, ErrNoActiveFeeStructure)
}

func TestCompute_ZeroRevenue(t *testing.T) {
	royalty := baseRoyalty()
	bd, err := Compute(&royalty, nil, nil, 0, 0, BrandDefaults{MarketingRate: 2.0, TechnologyFee: 1500})
	require.NoError(t, err)
	assert.Equal(t, 0.0, bd.RoyaltyAmount)
	assert.Equal(t, 1500.0, bd.TotalFees)
	assert.Equal(t, -1500.0, bd.NetPayment)
}

func BenchmarkCompute(b *testing.B) {
	royalty := baseRoyalty()
	defaults := BrandDefaults{MarketingRate: 2.0, TechnologyFee: 1500}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Compute(&royalty, nil, nil, 125000, 125000, defaults)
	}
}
