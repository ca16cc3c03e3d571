/*
term.go - Deposit term details and the term validator

PURPOSE:
  A deposit term is "N units" (days/weeks/months/years). Products constrain
  the term with a minimum, a maximum, and an optional "in multiples of"
  step. This file holds the term types, the fixed day-equivalence table, and
  the validator that turns violations into a batch of coded errors.

DAY EQUIVALENTS vs CALENDAR MATH:
  The conversion table (week=7, month=30, year=365) is used ONLY to compare
  terms against each other. Anything that produces an actual date - maturity
  date, lock-in expiry - uses calendar-unit addition. The asymmetry is
  deliberate: "12 months" compares as 360 days but matures on the same
  day-of-month one year later.

MULTIPLE-OF ANCHORING:
  The in-multiples-of check is anchored at the minimum term, not at zero:
  (period_days - min_days) mod multiple_days == 0. With min=6 months and
  multiples of 3 months, 9 months is valid and 10 is not.
*/
package deposit

import (
	"github.com/warp/deposit-engine/ledger"
)

// =============================================================================
// TERM - Length + frequency unit
// =============================================================================

type TermUnit string

const (
	UnitDays   TermUnit = "days"
	UnitWeeks  TermUnit = "weeks"
	UnitMonths TermUnit = "months"
	UnitYears  TermUnit = "years"
)

// Fixed day-equivalence table. Comparison only, never date arithmetic.
var dayEquivalents = map[TermUnit]int{
	UnitDays:   1,
	UnitWeeks:  7,
	UnitMonths: 30,
	UnitYears:  365,
}

type Term struct {
	Length int
	Unit   TermUnit
}

// DayEquivalent converts the term to days using the fixed table.
func (t Term) DayEquivalent() int {
	return t.Length * dayEquivalents[t.Unit]
}

// AddTo advances a date by this term using calendar units.
func (t Term) AddTo(d ledger.Date) ledger.Date {
	switch t.Unit {
	case UnitDays:
		return d.AddDays(t.Length)
	case UnitWeeks:
		return d.AddWeeks(t.Length)
	case UnitMonths:
		return d.AddMonths(t.Length)
	case UnitYears:
		return d.AddYears(t.Length)
	default:
		return d
	}
}

// unitsBetween converts the elapsed calendar period start->end into this
// unit using calendar-aware differences, not day-equivalents.
func unitsBetween(start, end ledger.Date, unit TermUnit) int {
	switch unit {
	case UnitDays:
		return ledger.DaysBetween(start, end)
	case UnitWeeks:
		return ledger.DaysBetween(start, end) / 7
	case UnitMonths:
		return calendarMonthsBetween(start, end)
	case UnitYears:
		return calendarMonthsBetween(start, end) / 12
	default:
		return 0
	}
}

func calendarMonthsBetween(start, end ledger.Date) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// =============================================================================
// TERM DETAIL - Product-level term constraints
// =============================================================================

// TermDetail holds a product's term bounds. Any bound may be nil (absent).
type TermDetail struct {
	Min           *Term
	Max           *Term
	InMultiplesOf *Term
}

// IsMinAboveMax reports whether the configured minimum exceeds the maximum
// in day-equivalents. Only meaningful when both bounds are set.
func (td TermDetail) IsMinAboveMax() bool {
	if td.Min == nil || td.Max == nil {
		return false
	}
	return td.Min.DayEquivalent() > td.Max.DayEquivalent()
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidateTerm checks a requested deposit period against the term detail.
// depositStart/depositEnd are the actual calendar interval of the deposit;
// bounds are compared in their own unit via calendar-aware conversion.
// All violations are collected; nothing fails fast.
func (td TermDetail) ValidateTerm(depositStart, depositEnd ledger.Date, depositPeriod Term) []Violation {
	var errs ValidationErrors

	if td.IsMinAboveMax() {
		errs.Add(CodeTermMinAboveMax, "termDetail",
			"minimum term %d %s exceeds maximum term %d %s",
			td.Min.Length, td.Min.Unit, td.Max.Length, td.Max.Unit)
	}

	if td.Min != nil {
		elapsed := unitsBetween(depositStart, depositEnd, td.Min.Unit)
		if elapsed < td.Min.Length {
			errs.Add(CodeTermOutsideRange, "depositPeriod",
				"deposit period of %d %s is below the minimum of %d %s",
				elapsed, td.Min.Unit, td.Min.Length, td.Min.Unit)
		}
	}
	if td.Max != nil {
		elapsed := unitsBetween(depositStart, depositEnd, td.Max.Unit)
		if elapsed > td.Max.Length {
			errs.Add(CodeTermExceedsMax, "depositPeriod",
				"deposit period of %d %s exceeds the maximum of %d %s",
				elapsed, td.Max.Unit, td.Max.Length, td.Max.Unit)
		}
	}

	if td.InMultiplesOf != nil {
		periodDays := depositPeriod.DayEquivalent()
		multipleDays := td.InMultiplesOf.DayEquivalent()
		minDays := 0
		if td.Min != nil {
			minDays = td.Min.DayEquivalent()
		}
		// Anchored at the minimum term, not at zero.
		if multipleDays > 0 && (periodDays-minDays)%multipleDays != 0 {
			errs.Add(CodeTermNotMultiple, "depositPeriod",
				"deposit period of %d %s is not the minimum term plus a multiple of %d %s",
				depositPeriod.Length, depositPeriod.Unit, td.InMultiplesOf.Length, td.InMultiplesOf.Unit)
		}
	}

	return errs.Violations
}
