/*
Package accrual provides the period-accrual collaborator for deposit accounts.

PURPOSE:
  The maturity calculator treats interest accrual as a black box: given a
  date interval, an opening balance, a calculation rule, and an annual rate,
  this package returns the interest earned for that interval. It also
  generates the posting-period boundaries that split a deposit term into
  accrual intervals.

KEY CONCEPTS:
  - Period: A [Start, End] date interval (inclusive on both ends)
  - PostingPeriodType: How often interest is posted (monthly..annual)
  - Fiscal-year start month: Anchors annual/biannual period boundaries

BOUNDARY RULES:
  Periods are aligned to calendar boundaries derived from the fiscal-year
  start month. The first period starts at the account-open date and runs to
  the first aligned boundary; the last period is capped at the interest
  cutoff date.

SEE ALSO:
  - calculator.go: Interest-for-interval implementations
  - deposit/maturity.go: The consumer of both
*/
package accrual

import (
	"time"

	"github.com/warp/deposit-engine/ledger"
)

// =============================================================================
// PERIOD - Accrual interval
// =============================================================================

// Period is an inclusive date interval used for interest accrual.
type Period struct {
	Start ledger.Date
	End   ledger.Date
}

// Days returns the number of days in the period, counting both endpoints.
func (p Period) Days() int {
	return ledger.DaysBetween(p.Start, p.End) + 1
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// POSTING PERIOD TYPE
// =============================================================================

type PostingPeriodType string

const (
	PostingMonthly   PostingPeriodType = "monthly"
	PostingQuarterly PostingPeriodType = "quarterly"
	PostingBiannual  PostingPeriodType = "biannual"
	PostingAnnual    PostingPeriodType = "annual"
)

func (pt PostingPeriodType) months() int {
	switch pt {
	case PostingMonthly:
		return 1
	case PostingQuarterly:
		return 3
	case PostingBiannual:
		return 6
	case PostingAnnual:
		return 12
	default:
		return 1
	}
}

// =============================================================================
// PERIOD GENERATION
// =============================================================================

// GeneratePostingPeriods splits [opening, cutoff] into posting periods.
// Boundaries fall at the ends of calendar blocks of the posting type,
// anchored at the fiscal-year start month. Returns nil when cutoff is
// before opening.
func GeneratePostingPeriods(opening, cutoff ledger.Date, postingType PostingPeriodType, fiscalStartMonth time.Month) []Period {
	if cutoff.Before(opening) {
		return nil
	}
	if fiscalStartMonth == 0 {
		fiscalStartMonth = time.January
	}

	var periods []Period
	start := opening
	for start.BeforeOrEqual(cutoff) {
		end := blockEnd(start, postingType, fiscalStartMonth)
		if end.After(cutoff) {
			end = cutoff
		}
		periods = append(periods, Period{Start: start, End: end})
		start = end.AddDays(1)
	}
	return periods
}

// blockEnd returns the last day of the posting block containing the date.
func blockEnd(at ledger.Date, postingType PostingPeriodType, fiscalStartMonth time.Month) ledger.Date {
	span := postingType.months()

	// Months since the fiscal year started, in [0, 11].
	offset := int(at.Month()) - int(fiscalStartMonth)
	if offset < 0 {
		offset += 12
	}

	// Advance to the first day of the month following the current block,
	// then step back one day.
	monthsIntoBlock := offset % span
	blockStartMonth := ledger.NewDate(at.Year(), at.Month(), 1).AddMonths(-monthsIntoBlock)
	nextBlock := blockStartMonth.AddMonths(span)
	return nextBlock.AddDays(-1)
}
