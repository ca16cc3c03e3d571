/*
account.go - Deposit account aggregate and its lifecycle

PURPOSE:
  A deposit account specializes a generic savings account with a term, a
  maturity, and pre-closure rules. Fixed and recurring deposits are the same
  aggregate with a Kind discriminant and a variant payload - not a subclass
  hierarchy. Variant-specific behavior (what a reinvested successor does on
  activation) hangs off explicit strategy hooks.

LIFECYCLE:
  SubmittedPending -> Approved -> Active -> Matured -> Closed
                                         -> PreMatureClosed (terminal)
  Rejected and WithdrawnByApplicant are terminal branches from the pending/
  approved states. Transitions are one-way; the only backward move is
  UndoApproval from Approved to SubmittedPending.

OWNERSHIP:
  The account owns its TermAndPreClosure and InterestRateChart by value,
  cascade-style: both die with the account, and a reinvested successor gets
  fresh copies, never shared references.
*/
package deposit

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/deposit-engine/accrual"
	"github.com/warp/deposit-engine/ledger"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusSubmittedPending     Status = "submitted_pending_approval"
	StatusApproved             Status = "approved"
	StatusActive               Status = "active"
	StatusMatured              Status = "matured"
	StatusClosed               Status = "closed"
	StatusPreMatureClosed      Status = "premature_closed"
	StatusRejected             Status = "rejected"
	StatusWithdrawnByApplicant Status = "withdrawn_by_applicant"
)

// =============================================================================
// KIND - Fixed vs recurring, as a tagged variant
// =============================================================================

type Kind string

const (
	KindFixed     Kind = "fixed"
	KindRecurring Kind = "recurring"
)

// RecurringDetail is the variant payload for recurring deposits.
type RecurringDetail struct {
	MandatoryAmount decimal.Decimal
	Frequency       Term // e.g. 1 month between installments
}

// =============================================================================
// PRE-CLOSURE AND TERM DETAIL
// =============================================================================

// PenalBasis selects which date anchors the penalty rate-slab lookup.
type PenalBasis string

const (
	// PenalBasisWholeTerm looks the slab up at the end of the account's
	// original interest-earning window (maturity date minus one day).
	PenalBasisWholeTerm PenalBasis = "whole_term"
	// PenalBasisTillPrematureWithdrawal looks the slab up at the actual
	// premature closure date.
	PenalBasisTillPrematureWithdrawal PenalBasis = "till_premature_withdrawal"
)

// PreClosureDetail configures premature-closure penalties.
// When PenalApplicable is false, rate and basis must be unset.
type PreClosureDetail struct {
	PenalApplicable   bool
	PenalInterestRate *decimal.Decimal
	PenalBasis        *PenalBasis
}

// Validate checks mutual consistency of the penal fields.
func (p PreClosureDetail) Validate() []Violation {
	var errs ValidationErrors
	if p.PenalApplicable {
		if p.PenalInterestRate == nil || p.PenalBasis == nil {
			errs.Add(CodePreClosureInconsistent, "preClosureDetail",
				"penal interest rate and basis are required when penal interest is applicable")
		}
	} else if p.PenalInterestRate != nil || p.PenalBasis != nil {
		errs.Add(CodePreClosureInconsistent, "preClosureDetail",
			"penal interest rate and basis must be unset when penal interest is not applicable")
	}
	return errs.Violations
}

// Disposition is the caller-chosen action for the balance at closure.
type Disposition string

const (
	DispositionWithdraw          Disposition = "withdraw"
	DispositionTransferToSavings Disposition = "transfer_to_savings"
	DispositionReinvest          Disposition = "reinvest"
)

// TermAndPreClosure is the account-level term state: the agreed deposit,
// the computed maturity, and what happens to the balance at closure.
// Created at application time, mutated on activation, on every maturity
// recomputation, and on closure.
type TermAndPreClosure struct {
	DepositAmount decimal.Decimal
	DepositPeriod Term

	MaturityAmount decimal.Decimal
	MaturityDate   ledger.Date

	OnClosure  Disposition
	ClosedDate ledger.Date
	ClosedBy   string

	// TransferToAccountID is set when OnClosure is transfer-to-savings.
	TransferToAccountID string
}

// =============================================================================
// PRODUCT - Deposit product configuration
// =============================================================================

type Product struct {
	ID       string
	Name     string
	Currency string
	Kind     Kind

	Chart      InterestRateChart // currently-applicable chart, copied to accounts
	TermDetail TermDetail
	PreClosure PreClosureDetail

	LockIn *Term // nil = no lock-in

	PostingPeriodType accrual.PostingPeriodType
	FiscalStartMonth  int // 1-12; January when zero
	Compounding       accrual.CompoundingType

	AllowReinvest          bool
	SystemGeneratedNumbers bool
}

// =============================================================================
// ACCOUNT
// =============================================================================

// Account is the deposit account aggregate.
type Account struct {
	ID        string
	ProductID string
	ClientID  string
	Client    ClientProfile
	Currency  string
	Kind      Kind
	Status    Status

	// Owned by value; cascade lifecycle with the account.
	Term       TermAndPreClosure
	TermDetail TermDetail
	PreClosure PreClosureDetail
	Chart      InterestRateChart

	Recurring *RecurringDetail // set only for KindRecurring

	LockIn *Term

	PostingPeriodType accrual.PostingPeriodType
	FiscalStartMonth  int
	Compounding       accrual.CompoundingType

	SubmittedDate  ledger.Date
	ApprovedDate   ledger.Date
	ActivationDate ledger.Date

	// Rejection/withdrawal markers; cleared when a closure succeeds.
	RejectedDate  ledger.Date
	WithdrawnDate ledger.Date
}

// LockInExpiry returns the date the lock-in period ends, computed with
// calendar units from the activation date. Activation date itself when no
// lock-in is configured.
func (a *Account) LockInExpiry() ledger.Date {
	if a.LockIn == nil {
		return a.ActivationDate
	}
	return a.LockIn.AddTo(a.ActivationDate)
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

// Approve moves a pending account to Approved.
func (a *Account) Approve(at ledger.Date) error {
	if a.Status != StatusSubmittedPending {
		return &StateError{AccountID: a.ID, Operation: "approve", Status: a.Status}
	}
	a.Status = StatusApproved
	a.ApprovedDate = at
	return nil
}

// Reject moves a pending account to the terminal Rejected state.
func (a *Account) Reject(at ledger.Date) error {
	if a.Status != StatusSubmittedPending {
		return &StateError{AccountID: a.ID, Operation: "reject", Status: a.Status}
	}
	a.Status = StatusRejected
	a.RejectedDate = at
	return nil
}

// WithdrawApplication moves a pending account to WithdrawnByApplicant.
func (a *Account) WithdrawApplication(at ledger.Date) error {
	if a.Status != StatusSubmittedPending {
		return &StateError{AccountID: a.ID, Operation: "withdraw application", Status: a.Status}
	}
	a.Status = StatusWithdrawnByApplicant
	a.WithdrawnDate = at
	return nil
}

// UndoApproval moves an approved account back to pending. The only
// backward transition in the lifecycle.
func (a *Account) UndoApproval() error {
	if a.Status != StatusApproved {
		return &StateError{AccountID: a.ID, Operation: "undo approval", Status: a.Status}
	}
	a.Status = StatusSubmittedPending
	a.ApprovedDate = ledger.Date{}
	return nil
}

// Activate moves an approved account to Active. Maturity recomputation is
// the orchestrator's job: activation only records the date and state.
func (a *Account) Activate(at ledger.Date) error {
	if a.Status != StatusApproved {
		return &StateError{AccountID: a.ID, Operation: "activate", Status: a.Status}
	}
	a.Status = StatusActive
	a.ActivationDate = at
	return nil
}

// markMatured flips an active account to Matured. Guarded by the
// orchestrator's maturity-date check.
func (a *Account) markMatured() error {
	if a.Status != StatusActive {
		return &StateError{AccountID: a.ID, Operation: "mature", Status: a.Status}
	}
	a.Status = StatusMatured
	return nil
}

// markClosed flips a matured account to Closed.
func (a *Account) markClosed(at ledger.Date, by string) error {
	if a.Status != StatusMatured {
		return &StateError{AccountID: a.ID, Operation: "close", Status: a.Status}
	}
	a.Status = StatusClosed
	a.Term.ClosedDate = at
	a.Term.ClosedBy = by
	a.clearTerminalMarkers()
	return nil
}

// markPreMatureClosed flips an active account to the terminal
// PreMatureClosed state.
func (a *Account) markPreMatureClosed(at ledger.Date, by string) error {
	if a.Status != StatusActive {
		return &StateError{AccountID: a.ID, Operation: "premature close", Status: a.Status}
	}
	a.Status = StatusPreMatureClosed
	a.Term.ClosedDate = at
	a.Term.ClosedBy = by
	a.clearTerminalMarkers()
	return nil
}

func (a *Account) clearTerminalMarkers() {
	a.RejectedDate = ledger.Date{}
	a.WithdrawnDate = ledger.Date{}
}

// =============================================================================
// REPOSITORY
// =============================================================================

// Repository persists deposit accounts. Implementations exist for SQLite
// and in-memory maps; the engine treats per-account serialization as
// already granted by the platform (see the concurrency notes in closure.go).
type Repository interface {
	Get(ctx context.Context, id string) (*Account, error)
	Save(ctx context.Context, a *Account) error
}
