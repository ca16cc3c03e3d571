/*
calculator.go - Interest-for-interval implementations

PURPOSE:
  Implements the black-box accrual contract: interval + opening balance +
  annual rate -> interest earned. The deposit engine never does day-count
  math itself; it hands each posting period to a calculator.

DAY COUNT:
  365-day year. A period's interest is balance * rate/100 * days/365.
  The day count includes both endpoints of the inclusive period.
*/
package accrual

import (
	"github.com/shopspring/decimal"

	"github.com/warp/deposit-engine/ledger"
)

// CompoundingType selects whether interest earned in earlier periods itself
// earns interest in later ones. Compounding is applied by the caller (the
// maturity calculator folds accrued interest into the opening balance);
// the calculator itself is stateless per interval.
type CompoundingType string

const (
	CompoundingNone     CompoundingType = "none"     // simple interest on principal
	CompoundingPeriodic CompoundingType = "periodic" // interest on principal + accrued
)

var (
	hundred  = decimal.NewFromInt(100)
	daysYear = decimal.NewFromInt(365)
)

// InterestCalculator computes interest earned over one accrual interval.
type InterestCalculator interface {
	InterestFor(period Period, openingBalance ledger.Money, annualRatePercent decimal.Decimal) ledger.Money
}

// =============================================================================
// DAILY BALANCE CALCULATOR
// =============================================================================

// DailyBalanceCalculator accrues on the interval's opening balance using a
// 365-day year. The balance is assumed constant within the interval; the
// period generator produces boundaries at every balance-changing event that
// matters for posting.
type DailyBalanceCalculator struct{}

func (DailyBalanceCalculator) InterestFor(period Period, openingBalance ledger.Money, annualRatePercent decimal.Decimal) ledger.Money {
	if annualRatePercent.IsZero() || annualRatePercent.IsNegative() {
		return openingBalance.Zero()
	}
	days := decimal.NewFromInt(int64(period.Days()))
	interest := openingBalance.Value.
		Mul(annualRatePercent).Div(hundred).
		Mul(days).Div(daysYear)
	return ledger.NewMoneyFromDecimal(interest, openingBalance.Currency)
}
