package deposit_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func openSlab(from ledger.Date, rate int64) deposit.RateSlab {
	return deposit.RateSlab{FromDate: from, AnnualRatePercent: dec(rate)}
}

// =============================================================================
// RESOLUTION TESTS
// =============================================================================

func TestChart_ResolveRate_NoMatchingSlab_Zero(t *testing.T) {
	chart := deposit.InterestRateChart{Slabs: []deposit.RateSlab{
		openSlab(ledger.NewDate(2025, 6, 1), 8),
	}}

	// Interval starts before any slab's validity window.
	rate := chart.ResolveRate(dec(10000),
		ledger.NewDate(2025, 1, 1), ledger.NewDate(2025, 3, 31), deposit.ClientProfile{})
	assert.True(t, rate.IsZero())
}

func TestChart_ResolveRate_AmountTiers(t *testing.T) {
	from := ledger.NewDate(2025, 1, 1)
	chart := deposit.InterestRateChart{Slabs: []deposit.RateSlab{
		{FromDate: from, MinAmount: decPtr(0), MaxAmount: decPtr(10000), AnnualRatePercent: dec(5)},
		{FromDate: from, MinAmount: decPtr(10001), MaxAmount: decPtr(100000), AnnualRatePercent: dec(7)},
	}}
	at := ledger.NewDate(2025, 3, 1)

	assert.True(t, chart.ResolveRate(dec(5000), at, at, deposit.ClientProfile{}).Equal(dec(5)))
	assert.True(t, chart.ResolveRate(dec(50000), at, at, deposit.ClientProfile{}).Equal(dec(7)))
}

func TestChart_ResolveRate_TieBreak_NarrowestAmountWindowWins(t *testing.T) {
	// GIVEN: An overlapping wide slab and a narrow slab for the same dates
	// WHEN: An amount matching both is resolved
	// THEN: The narrow slab's rate wins, regardless of chart order

	from := ledger.NewDate(2025, 1, 1)
	wide := deposit.RateSlab{FromDate: from, MinAmount: decPtr(0), MaxAmount: decPtr(1000000), AnnualRatePercent: dec(5)}
	narrow := deposit.RateSlab{FromDate: from, MinAmount: decPtr(9000), MaxAmount: decPtr(11000), AnnualRatePercent: dec(9)}
	at := ledger.NewDate(2025, 3, 1)

	wideFirst := deposit.InterestRateChart{Slabs: []deposit.RateSlab{wide, narrow}}
	narrowFirst := deposit.InterestRateChart{Slabs: []deposit.RateSlab{narrow, wide}}

	assert.True(t, wideFirst.ResolveRate(dec(10000), at, at, deposit.ClientProfile{}).Equal(dec(9)))
	assert.True(t, narrowFirst.ResolveRate(dec(10000), at, at, deposit.ClientProfile{}).Equal(dec(9)))
}

func TestChart_ResolveRate_TieBreak_LatestFromDateWins(t *testing.T) {
	// Same amount window width: the slab with the later FromDate wins.

	older := deposit.RateSlab{FromDate: ledger.NewDate(2024, 1, 1), MinAmount: decPtr(0), MaxAmount: decPtr(10000), AnnualRatePercent: dec(4)}
	newer := deposit.RateSlab{FromDate: ledger.NewDate(2025, 1, 1), MinAmount: decPtr(0), MaxAmount: decPtr(10000), AnnualRatePercent: dec(6)}
	at := ledger.NewDate(2025, 6, 1)

	chart := deposit.InterestRateChart{Slabs: []deposit.RateSlab{newer, older}}
	assert.True(t, chart.ResolveRate(dec(5000), at, at, deposit.ClientProfile{}).Equal(dec(6)))
}

func TestChart_ResolveRate_BoundedBeatsUnbounded(t *testing.T) {
	from := ledger.NewDate(2025, 1, 1)
	unbounded := deposit.RateSlab{FromDate: from, AnnualRatePercent: dec(3)}
	bounded := deposit.RateSlab{FromDate: from, MinAmount: decPtr(0), MaxAmount: decPtr(50000), AnnualRatePercent: dec(5)}
	at := ledger.NewDate(2025, 6, 1)

	chart := deposit.InterestRateChart{Slabs: []deposit.RateSlab{unbounded, bounded}}
	assert.True(t, chart.ResolveRate(dec(20000), at, at, deposit.ClientProfile{}).Equal(dec(5)))
}

// =============================================================================
// INCENTIVE TESTS
// =============================================================================

func TestChart_Incentive_AdjustsRateForMatchingClient(t *testing.T) {
	from := ledger.NewDate(2025, 1, 1)
	chart := deposit.InterestRateChart{Slabs: []deposit.RateSlab{{
		FromDate:          from,
		AnnualRatePercent: dec(6),
		Incentives: []deposit.Incentive{{
			Attribute: deposit.AttributeAge,
			Condition: deposit.ConditionGreaterThan,
			Value:     "60",
			Type:      deposit.IncentiveAdjust,
			Amount:    decimal.NewFromFloat(0.5),
		}},
	}}}
	at := ledger.NewDate(2025, 6, 1)

	senior := deposit.ClientProfile{Attributes: map[deposit.AttributeType]string{deposit.AttributeAge: "65"}}
	junior := deposit.ClientProfile{Attributes: map[deposit.AttributeType]string{deposit.AttributeAge: "30"}}

	assert.True(t, chart.ResolveRate(dec(10000), at, at, senior).Equal(decimal.NewFromFloat(6.5)))
	assert.True(t, chart.ResolveRate(dec(10000), at, at, junior).Equal(dec(6)))
}

func TestChart_Incentive_FixedReplacesRate(t *testing.T) {
	from := ledger.NewDate(2025, 1, 1)
	chart := deposit.InterestRateChart{Slabs: []deposit.RateSlab{{
		FromDate:          from,
		AnnualRatePercent: dec(6),
		Incentives: []deposit.Incentive{{
			Attribute: deposit.AttributeClientType,
			Condition: deposit.ConditionEqual,
			Value:     "staff",
			Type:      deposit.IncentiveFixed,
			Amount:    dec(8),
		}},
	}}}
	at := ledger.NewDate(2025, 6, 1)

	staff := deposit.ClientProfile{Attributes: map[deposit.AttributeType]string{deposit.AttributeClientType: "staff"}}
	assert.True(t, chart.ResolveRate(dec(10000), at, at, staff).Equal(dec(8)))
}

func TestChart_Incentive_ZeroedRate_FallsBackToSlabRate(t *testing.T) {
	// GIVEN: An incentive that would drive the rate to zero or below
	// WHEN: A matching client resolves the rate
	// THEN: The slab's unadjusted rate is returned instead

	from := ledger.NewDate(2025, 1, 1)
	chart := deposit.InterestRateChart{Slabs: []deposit.RateSlab{{
		FromDate:          from,
		AnnualRatePercent: dec(4),
		Incentives: []deposit.Incentive{{
			Attribute: deposit.AttributeClassification,
			Condition: deposit.ConditionEqual,
			Value:     "dormant",
			Type:      deposit.IncentiveAdjust,
			Amount:    dec(-5),
		}},
	}}}
	at := ledger.NewDate(2025, 6, 1)

	dormant := deposit.ClientProfile{Attributes: map[deposit.AttributeType]string{deposit.AttributeClassification: "dormant"}}
	rate := chart.ResolveRate(dec(10000), at, at, dormant)
	assert.True(t, rate.Equal(dec(4)), "incentives never zero out a slab, got %s", rate)
}

func TestChart_Incentive_MissingAttribute_NoMatch(t *testing.T) {
	from := ledger.NewDate(2025, 1, 1)
	chart := deposit.InterestRateChart{Slabs: []deposit.RateSlab{{
		FromDate:          from,
		AnnualRatePercent: dec(6),
		Incentives: []deposit.Incentive{{
			Attribute: deposit.AttributeGender,
			Condition: deposit.ConditionEqual,
			Value:     "female",
			Type:      deposit.IncentiveAdjust,
			Amount:    dec(1),
		}},
	}}}
	at := ledger.NewDate(2025, 6, 1)

	rate := chart.ResolveRate(dec(10000), at, at, deposit.ClientProfile{})
	assert.True(t, rate.Equal(dec(6)))
}

// =============================================================================
// COPY TESTS
// =============================================================================

func TestChart_Copy_IsDeep(t *testing.T) {
	original := deposit.InterestRateChart{
		Name: "standard",
		Slabs: []deposit.RateSlab{{
			FromDate:          ledger.NewDate(2025, 1, 1),
			MinAmount:         decPtr(0),
			MaxAmount:         decPtr(10000),
			AnnualRatePercent: dec(5),
			Incentives: []deposit.Incentive{{
				Attribute: deposit.AttributeAge,
				Condition: deposit.ConditionGreaterThan,
				Value:     "60",
				Type:      deposit.IncentiveAdjust,
				Amount:    dec(1),
			}},
		}},
	}

	clone := original.Copy()
	require.Len(t, clone.Slabs, 1)

	*clone.Slabs[0].MaxAmount = dec(99999)
	clone.Slabs[0].Incentives[0].Amount = dec(3)

	assert.True(t, original.Slabs[0].MaxAmount.Equal(dec(10000)), "amount bounds are not shared")
	assert.True(t, original.Slabs[0].Incentives[0].Amount.Equal(dec(1)), "incentives are not shared")
}
