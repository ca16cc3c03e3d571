/*
chart.go - Interest rate chart and the rate resolver

PURPOSE:
  A chart is an ordered set of slabs, each bounding a date validity window,
  an amount window, and a nominal annual rate. Slabs can carry incentives:
  client-attribute rules that adjust the slab rate up or down. Resolution
  picks exactly one slab for a (amount, date interval, client) triple and
  returns its incentive-adjusted rate.

OWNERSHIP:
  A chart is owned by one account and copied - never shared - when an
  account reinvests into a successor. Slabs hold no back-pointer to their
  chart; the chart owns them by value.

TIE-BREAK:
  Charts are meant to have non-overlapping slabs but nothing enforces it.
  When several slabs match, resolution picks the one with the narrowest
  amount window; ties go to the latest FromDate, then to the later slab in
  the chart. Deterministic regardless of slab ordering.

RATE FALLBACK:
  Incentives never zero out a slab: if the incentive chain produces a zero
  or negative rate, the slab's unadjusted rate is used instead.
*/
package deposit

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/warp/deposit-engine/ledger"
)

// =============================================================================
// SLABS AND CHARTS
// =============================================================================

// RateSlab is one tier of an interest rate chart.
type RateSlab struct {
	FromDate ledger.Date
	ToDate   ledger.Date // zero = open-ended

	MinAmount *decimal.Decimal // nil = unbounded below
	MaxAmount *decimal.Decimal // nil = unbounded above

	AnnualRatePercent decimal.Decimal
	Incentives        []Incentive
}

// coversDates reports whether [start, end] falls within the slab's validity
// window. Open upper bounds are treated as unbounded.
func (s RateSlab) coversDates(start, end ledger.Date) bool {
	if start.Before(s.FromDate) {
		return false
	}
	if !s.ToDate.IsZero() && end.After(s.ToDate) {
		return false
	}
	return true
}

// coversAmount reports whether the deposit amount falls within the slab's
// amount window. Nil bounds are unbounded.
func (s RateSlab) coversAmount(amount decimal.Decimal) bool {
	if s.MinAmount != nil && amount.LessThan(*s.MinAmount) {
		return false
	}
	if s.MaxAmount != nil && amount.GreaterThan(*s.MaxAmount) {
		return false
	}
	return true
}

// amountWidth returns the width of the amount window for tie-breaking.
// Unbounded windows are widest.
func (s RateSlab) amountWidth() (decimal.Decimal, bool) {
	if s.MinAmount == nil || s.MaxAmount == nil {
		return decimal.Zero, false // unbounded
	}
	return s.MaxAmount.Sub(*s.MinAmount), true
}

// InterestRateChart is the ordered slab set owned by a deposit account.
type InterestRateChart struct {
	Name  string
	Slabs []RateSlab
}

// Copy returns a deep copy of the chart. Reinvestment hands the successor
// account its own chart, never a shared reference.
func (c InterestRateChart) Copy() InterestRateChart {
	out := InterestRateChart{Name: c.Name, Slabs: make([]RateSlab, len(c.Slabs))}
	copy(out.Slabs, c.Slabs)
	for i := range out.Slabs {
		if c.Slabs[i].MinAmount != nil {
			v := *c.Slabs[i].MinAmount
			out.Slabs[i].MinAmount = &v
		}
		if c.Slabs[i].MaxAmount != nil {
			v := *c.Slabs[i].MaxAmount
			out.Slabs[i].MaxAmount = &v
		}
		out.Slabs[i].Incentives = append([]Incentive(nil), c.Slabs[i].Incentives...)
	}
	return out
}

// CoversDate reports whether any slab's validity window contains the date.
// Used at approval time to raise NoApplicableRateSlab before an account
// with no resolvable rate is persisted.
func (c InterestRateChart) CoversDate(at ledger.Date) bool {
	for _, slab := range c.Slabs {
		if slab.coversDates(at, at) {
			return true
		}
	}
	return false
}

// =============================================================================
// INCENTIVES - Client-attribute rate adjustments
// =============================================================================

type AttributeType string

const (
	AttributeGender         AttributeType = "gender"
	AttributeAge            AttributeType = "age"
	AttributeClientType     AttributeType = "client_type"
	AttributeClassification AttributeType = "classification"
)

type ConditionType string

const (
	ConditionEqual       ConditionType = "equal"
	ConditionNotEqual    ConditionType = "not_equal"
	ConditionLessThan    ConditionType = "less_than"
	ConditionGreaterThan ConditionType = "greater_than"
)

type IncentiveType string

const (
	// IncentiveAdjust adds the (possibly negative) amount to the current rate.
	IncentiveAdjust IncentiveType = "adjust"
	// IncentiveFixed replaces the current rate with the amount.
	IncentiveFixed IncentiveType = "fixed"
)

// Incentive adjusts a slab's rate for clients matching an attribute rule.
// Multiple incentives on one slab apply in sequence.
type Incentive struct {
	Attribute AttributeType
	Condition ConditionType
	Value     string // compared against the client's attribute value
	Type      IncentiveType
	Amount    decimal.Decimal
}

// ClientProfile carries the client attributes incentives match against.
type ClientProfile struct {
	Attributes map[AttributeType]string
}

func (c ClientProfile) attribute(a AttributeType) (string, bool) {
	if c.Attributes == nil {
		return "", false
	}
	v, ok := c.Attributes[a]
	return v, ok
}

// matches evaluates the incentive's condition against the client.
// Age comparisons are numeric; everything else is string equality.
func (inc Incentive) matches(client ClientProfile) bool {
	actual, ok := client.attribute(inc.Attribute)
	if !ok {
		return false
	}
	switch inc.Condition {
	case ConditionEqual:
		return actual == inc.Value
	case ConditionNotEqual:
		return actual != inc.Value
	case ConditionLessThan, ConditionGreaterThan:
		actualN, err1 := strconv.Atoi(actual)
		ruleN, err2 := strconv.Atoi(inc.Value)
		if err1 != nil || err2 != nil {
			return false
		}
		if inc.Condition == ConditionLessThan {
			return actualN < ruleN
		}
		return actualN > ruleN
	default:
		return false
	}
}

// apply returns the adjusted rate for a matching client, or the current
// rate unchanged when the client doesn't match.
func (inc Incentive) apply(current decimal.Decimal, client ClientProfile) decimal.Decimal {
	if !inc.matches(client) {
		return current
	}
	switch inc.Type {
	case IncentiveFixed:
		return inc.Amount
	default:
		return current.Add(inc.Amount)
	}
}

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolveRate returns the annual rate percent applicable to the deposit
// amount over [periodStart, periodEnd] for the given client. Returns zero
// when no slab matches; callers validating at approval time must treat a
// zero as an error, while maturity recomputation may accept it.
func (c InterestRateChart) ResolveRate(amount decimal.Decimal, periodStart, periodEnd ledger.Date, client ClientProfile) decimal.Decimal {
	slab, ok := c.selectSlab(amount, periodStart, periodEnd)
	if !ok {
		return decimal.Zero
	}

	rate := slab.AnnualRatePercent
	for _, inc := range slab.Incentives {
		rate = inc.apply(rate, client)
	}
	// Never let incentives zero out the slab's base rate.
	if rate.IsZero() || rate.IsNegative() {
		rate = slab.AnnualRatePercent
	}
	return rate
}

// selectSlab applies the documented tie-break: narrowest amount window,
// then latest FromDate, then the later slab in chart order.
func (c InterestRateChart) selectSlab(amount decimal.Decimal, periodStart, periodEnd ledger.Date) (RateSlab, bool) {
	var (
		best  RateSlab
		found bool
	)
	for _, slab := range c.Slabs {
		if !slab.coversDates(periodStart, periodEnd) || !slab.coversAmount(amount) {
			continue
		}
		if !found || narrower(slab, best) {
			best = slab
			found = true
		}
	}
	return best, found
}

// narrower reports whether candidate should win over current.
func narrower(candidate, current RateSlab) bool {
	cw, cBounded := candidate.amountWidth()
	bw, bBounded := current.amountWidth()
	switch {
	case cBounded && !bBounded:
		return true
	case !cBounded && bBounded:
		return false
	case cBounded && bBounded && !cw.Equal(bw):
		return cw.LessThan(bw)
	}
	// Same width: prefer the most recently defined validity window, then
	// the later slab in chart order.
	return candidate.FromDate.AfterOrEqual(current.FromDate)
}
