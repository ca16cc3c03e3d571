/*
maturity.go - Maturity date/amount computation and interest posting

PURPOSE:
  Computes when a deposit matures and what it pays out. The maturity date
  is calendar arithmetic on the deposit period; the maturity amount is the
  principal plus interest accrued per posting period, with rates resolved
  per period from the account's chart.

CUTOFF RULE:
  Interest runs up to maturityDate - 1 day: the maturity day itself earns
  nothing. Premature variants cut off at closureDate - 1 day instead.

PREMATURE PENALTY:
  When the account's pre-closure detail applies a penalty, the resolved
  rate is reduced by the penal rate and floored at zero. The penalty basis
  additionally swaps the slab lookup date (not the accrual dates): whole-
  term uses the original interest window end; till-premature-withdrawal
  uses the closure date.

POSTING:
  PostInterest is a diff-and-patch: for each computed period it posts a new
  interest transaction, or - when a surviving posting for that date exists
  with a different amount, zero included - reverses it and posts whatever
  nonzero amount replaces it. Matching postings are left untouched so the
  audit trail and transaction ids are preserved across recomputations.
*/
package deposit

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/deposit-engine/accrual"
	"github.com/warp/deposit-engine/ledger"
)

// =============================================================================
// RESULTS
// =============================================================================

// PeriodInterest is the accrual outcome for one posting period.
type PeriodInterest struct {
	Period      accrual.Period
	RatePercent decimal.Decimal
	Interest    ledger.Money
	PostingDate ledger.Date
}

// MaturityResult is the outcome of a maturity computation.
type MaturityResult struct {
	MaturityDate   ledger.Date
	MaturityAmount ledger.Money
	Periods        []PeriodInterest
}

// TotalInterest sums the per-period interest.
func (r MaturityResult) TotalInterest() ledger.Money {
	if len(r.Periods) == 0 {
		return ledger.Money{Value: decimal.Zero}
	}
	total := r.Periods[0].Interest
	for _, p := range r.Periods[1:] {
		total = total.Add(p.Interest)
	}
	return total
}

// =============================================================================
// CALCULATOR
// =============================================================================

// MaturityCalculator computes maturity dates and amounts. Interest-per-
// interval is delegated to the accrual collaborator.
type MaturityCalculator struct {
	Interest accrual.InterestCalculator
}

func NewMaturityCalculator(calc accrual.InterestCalculator) *MaturityCalculator {
	return &MaturityCalculator{Interest: calc}
}

// MaturityDate returns depositStart + depositPeriod in calendar units.
// Never day-equivalents.
func (mc *MaturityCalculator) MaturityDate(a *Account) ledger.Date {
	return a.Term.DepositPeriod.AddTo(a.depositStartDate())
}

// ComputeMaturity computes the normal maturity projection for an account.
// The ledger view may be nil before activation; the nominal deposit amount
// is then used as the accrual base.
func (mc *MaturityCalculator) ComputeMaturity(a *Account, view *ledger.AccountLedger) MaturityResult {
	maturityDate := mc.MaturityDate(a)
	cutoff := maturityDate.AddDays(-1)
	return mc.compute(a, view, maturityDate, cutoff, false, ledger.Date{})
}

// CalculatePrematureAmount is a read-only projection of a premature closure
// on the given date. It mutates nothing and emits no transactions; callers
// must not post from its result without a separate confirmed-closure call.
func (mc *MaturityCalculator) CalculatePrematureAmount(a *Account, view *ledger.AccountLedger, closureDate ledger.Date) MaturityResult {
	maturityDate := mc.MaturityDate(a)
	cutoff := closureDate.AddDays(-1)
	return mc.compute(a, view, maturityDate, cutoff, true, closureDate)
}

func (mc *MaturityCalculator) compute(a *Account, view *ledger.AccountLedger, maturityDate, cutoff ledger.Date, preMature bool, closureDate ledger.Date) MaturityResult {
	start := a.depositStartDate()
	periods := accrual.GeneratePostingPeriods(start, cutoff, a.PostingPeriodType, a.fiscalStartMonth())

	postingCap := maturityDate
	if preMature {
		postingCap = closureDate
	}

	currency := a.Currency
	accrued := ledger.NewMoney(0, currency)
	result := MaturityResult{MaturityDate: maturityDate}

	for _, period := range periods {
		rate := mc.resolvePeriodRate(a, period, maturityDate, preMature, closureDate)

		opening := mc.openingBalance(a, view, period.Start)
		if a.Compounding == accrual.CompoundingPeriodic {
			opening = opening.Add(accrued)
		}

		interest := mc.Interest.InterestFor(period, opening, rate).Rounded()
		accrued = accrued.Add(interest)

		result.Periods = append(result.Periods, PeriodInterest{
			Period:      period,
			RatePercent: rate,
			Interest:    interest,
			PostingDate: ledger.MinDate(period.End, postingCap),
		})
	}

	base := mc.openingBalance(a, view, cutoff)
	result.MaturityAmount = base.Add(accrued)
	return result
}

// resolvePeriodRate resolves the slab rate for one period, applying the
// premature penalty when requested. The maturity date is the freshly
// computed one, never the stored projection, which may be stale or unset
// on the pure projection path.
func (mc *MaturityCalculator) resolvePeriodRate(a *Account, period accrual.Period, maturityDate ledger.Date, preMature bool, closureDate ledger.Date) decimal.Decimal {
	lookupStart, lookupEnd := period.Start, period.End
	if preMature && a.PreClosure.PenalApplicable && a.PreClosure.PenalBasis != nil {
		// The penalty basis swaps the slab lookup date only; accrual-period
		// math still runs on the real period.
		var lookup ledger.Date
		switch *a.PreClosure.PenalBasis {
		case PenalBasisTillPrematureWithdrawal:
			lookup = closureDate
		default: // whole term: the last day of the original interest window
			lookup = maturityDate.AddDays(-1)
		}
		lookupStart, lookupEnd = lookup, lookup
	}

	rate := a.Chart.ResolveRate(a.Term.DepositAmount, lookupStart, lookupEnd, a.Client)

	if preMature && a.PreClosure.PenalApplicable && a.PreClosure.PenalInterestRate != nil {
		rate = rate.Sub(*a.PreClosure.PenalInterestRate)
		if rate.IsNegative() {
			rate = decimal.Zero // floored, never negative
		}
	}
	return rate
}

// openingBalance returns the principal base for a period: the ledger's
// principal balance when transactions exist, else the nominal deposit
// amount. Interest postings are excluded - compounding is folded in by the
// caller from the running accrual.
func (mc *MaturityCalculator) openingBalance(a *Account, view *ledger.AccountLedger, at ledger.Date) ledger.Money {
	if view != nil && len(view.Transactions) > 0 {
		balance := view.PrincipalBalanceAsOf(at)
		if balance.IsPositive() {
			return balance
		}
	}
	return ledger.NewMoneyFromDecimal(a.Term.DepositAmount, a.Currency)
}

// =============================================================================
// POSTING - Diff and patch
// =============================================================================

// PostInterest reconciles the ledger's interest postings with a computed
// result. Existing postings that match are kept; mismatches - including a
// recomputed amount of zero - are reversed, and nonzero amounts are posted
// fresh. Returns the ids of transactions it appended. Postings carry a
// deterministic idempotency key so a replayed reconciliation cannot
// double-book a period.
func (mc *MaturityCalculator) PostInterest(ctx context.Context, svc *ledger.Service, a *Account, result MaturityResult) ([]ledger.TransactionID, error) {
	view, err := svc.Account(ctx, a.ID, a.Currency)
	if err != nil {
		return nil, err
	}

	var posted []ledger.TransactionID
	for _, p := range result.Periods {
		existing, hasExisting := view.InterestPostingOn(p.PostingDate)
		if hasExisting && existing.Amount.Equal(p.Interest) {
			continue // already posted at the right amount
		}
		if hasExisting {
			if err := svc.Reverse(ctx, a.ID, existing.ID); err != nil {
				return posted, err
			}
		}
		if p.Interest.IsZero() {
			continue // nothing to post; any stale posting is now reversed
		}
		key := fmt.Sprintf("interest:%s:%s:%d", a.ID, p.PostingDate, interestPostingSeq(view, p.PostingDate))
		tx, err := svc.PostInterestWithKey(ctx, a.ID, p.Interest, p.PostingDate,
			fmt.Sprintf("interest posting for %s", p.Period), key)
		if err != nil {
			return posted, err
		}
		posted = append(posted, tx.ID)
	}
	return posted, nil
}

// interestPostingSeq counts the interest postings (reversed included) on a
// date, giving each corrected re-posting a distinct idempotency key.
func interestPostingSeq(view *ledger.AccountLedger, at ledger.Date) int {
	n := 0
	for _, tx := range view.Transactions {
		if tx.Type == ledger.TxInterestPosting && tx.Date.Equal(at) {
			n++
		}
	}
	return n
}

// =============================================================================
// HELPERS
// =============================================================================

func (a *Account) depositStartDate() ledger.Date {
	if !a.ActivationDate.IsZero() {
		return a.ActivationDate
	}
	return a.SubmittedDate
}

func (a *Account) fiscalStartMonth() time.Month {
	if a.FiscalStartMonth >= 1 && a.FiscalStartMonth <= 12 {
		return time.Month(a.FiscalStartMonth)
	}
	return time.January
}
