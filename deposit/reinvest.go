/*
reinvest.go - Reinvestment as pure successor-account construction

PURPOSE:
  Closing with the reinvest disposition creates a NEW account, not a state
  transition of the old one. This file models that as a side-effect-free
  construction function: (old account, new principal, product chart,
  closure date) -> ReinvestSpec -> successor Account. Persistence, account
  numbering, and the recurring-variant activation happen in the
  orchestrator, keeping this testable in isolation.

COPY SEMANTICS:
  The successor gets fresh copies of the term detail, pre-closure detail,
  and recurring detail, and a fresh copy of the product's currently-
  applicable chart. Nothing is shared with the source account.
*/
package deposit

import (
	"github.com/shopspring/decimal"

	"github.com/warp/deposit-engine/accrual"
	"github.com/warp/deposit-engine/ledger"
)

// ReinvestSpec describes the successor account a reinvestment creates.
type ReinvestSpec struct {
	SourceAccountID string
	ProductID       string
	ClientID        string
	Client          ClientProfile
	Currency        string
	Kind            Kind

	Principal     decimal.Decimal
	DepositPeriod Term
	TermDetail    TermDetail
	PreClosure    PreClosureDetail
	Chart         InterestRateChart
	Recurring     *RecurringDetail
	LockIn        *Term

	PostingPeriodType accrual.PostingPeriodType
	FiscalStartMonth  int
	Compounding       accrual.CompoundingType

	OpeningDate ledger.Date
}

// BuildReinvestSpec derives the successor spec from the closing account.
// Pure: no persistence, no numbering, no ledger activity.
func BuildReinvestSpec(src *Account, principal decimal.Decimal, productChart InterestRateChart, closureDate ledger.Date) ReinvestSpec {
	spec := ReinvestSpec{
		SourceAccountID:   src.ID,
		ProductID:         src.ProductID,
		ClientID:          src.ClientID,
		Client:            src.Client,
		Currency:          src.Currency,
		Kind:              src.Kind,
		Principal:         principal,
		DepositPeriod:     src.Term.DepositPeriod,
		TermDetail:        copyTermDetail(src.TermDetail),
		PreClosure:        copyPreClosure(src.PreClosure),
		Chart:             productChart.Copy(),
		LockIn:            copyTerm(src.LockIn),
		PostingPeriodType: src.PostingPeriodType,
		FiscalStartMonth:  src.FiscalStartMonth,
		Compounding:       src.Compounding,
		OpeningDate:       closureDate,
	}
	if src.Recurring != nil {
		r := *src.Recurring
		spec.Recurring = &r
	}
	return spec
}

// NewAccount materializes the successor in the submitted-pending state.
func (s ReinvestSpec) NewAccount(id string) *Account {
	return &Account{
		ID:        id,
		ProductID: s.ProductID,
		ClientID:  s.ClientID,
		Client:    s.Client,
		Currency:  s.Currency,
		Kind:      s.Kind,
		Status:    StatusSubmittedPending,
		Term: TermAndPreClosure{
			DepositAmount: s.Principal,
			DepositPeriod: s.DepositPeriod,
			OnClosure:     DispositionWithdraw,
		},
		TermDetail:        s.TermDetail,
		PreClosure:        s.PreClosure,
		Chart:             s.Chart,
		Recurring:         s.Recurring,
		LockIn:            s.LockIn,
		PostingPeriodType: s.PostingPeriodType,
		FiscalStartMonth:  s.FiscalStartMonth,
		Compounding:       s.Compounding,
		SubmittedDate:     s.OpeningDate,
	}
}

func copyTermDetail(td TermDetail) TermDetail {
	return TermDetail{
		Min:           copyTerm(td.Min),
		Max:           copyTerm(td.Max),
		InMultiplesOf: copyTerm(td.InMultiplesOf),
	}
}

func copyPreClosure(p PreClosureDetail) PreClosureDetail {
	out := PreClosureDetail{PenalApplicable: p.PenalApplicable}
	if p.PenalInterestRate != nil {
		v := *p.PenalInterestRate
		out.PenalInterestRate = &v
	}
	if p.PenalBasis != nil {
		v := *p.PenalBasis
		out.PenalBasis = &v
	}
	return out
}

func copyTerm(t *Term) *Term {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
