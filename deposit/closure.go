/*
closure.go - The closure orchestrator

PURPOSE:
  Drives the one-way state machine around maturity and closure:

    ACTIVE -> MATURED -> CLOSED        (normal path)
    ACTIVE -> PRE_MATURE_CLOSED        (premature path, terminal)

  and executes exactly one closure disposition: withdraw the balance,
  transfer it to a savings account, or reinvest it into a successor
  account. Around every disposition the ledger's transaction ids are
  snapshotted so the accounting bridge can derive postings for precisely
  the new activity.

CONCURRENCY:
  One call = one logical transaction: a state transition plus its side
  effects. The surrounding platform serializes commands per account; the
  orchestrator performs no locking or retries, and a failed guard aborts
  the whole operation with nothing persisted (rollback belongs to the
  caller's transaction boundary).

VALIDATION:
  Date guards are batched into a ValidationErrors bundle - a caller sees
  every problem at once. Illegal-state attempts fail immediately with a
  single StateError.
*/
package deposit

import (
	"context"
	"fmt"

	"github.com/warp/deposit-engine/ledger"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// ProductSource resolves deposit products, including their currently-
// applicable rate chart for reinvestment.
type ProductSource interface {
	Product(ctx context.Context, id string) (*Product, error)
}

// TransferDescriptor describes an inter-account transfer.
type TransferDescriptor struct {
	Amount        ledger.Money
	Date          ledger.Date
	FromAccountID string
	ToAccountID   string
	Type          string
	Description   string
}

// FundsTransfer performs the debit and credit of a transfer atomically.
// The transfer collaborator owns the debit: the orchestrator creates no
// local withdrawal when transferring out.
type FundsTransfer interface {
	Transfer(ctx context.Context, d TransferDescriptor) error
}

// AccountingBridge receives before/after snapshots of an account's
// transaction ids plus the transactions themselves, and derives journal
// postings for the new-versus-already-posted difference.
type AccountingBridge interface {
	PostClosureActivity(ctx context.Context, accountID, currency string, before, after ledger.Snapshot, txs []ledger.Transaction) error
}

// AccountNumberGenerator supplies account numbers when the product marks
// them system-generated.
type AccountNumberGenerator interface {
	Next(ctx context.Context, productID string) (string, error)
}

// =============================================================================
// CLOSURE COMMAND
// =============================================================================

// ClosureCommand is the payload the surrounding command layer hands the
// orchestrator. Locale and DateFormat are echoed back in change logs; they
// do not affect computation.
type ClosureCommand struct {
	ClosureDate ledger.Date
	Disposition Disposition

	// Required when Disposition is transfer-to-savings.
	TargetSavingsAccountID string
	TransferDescription    string

	Locale     string
	DateFormat string
	ClosedBy   string
}

// ClosureResult reports what a closure did.
type ClosureResult struct {
	Account *Account

	// PayoutTransactionID is the withdrawal transaction draining the
	// account (withdraw and reinvest dispositions; empty for transfers).
	PayoutTransactionID ledger.TransactionID

	// ReinvestedAccountID is the successor account id for reinvestments.
	ReinvestedAccountID string

	MaturityAmount ledger.Money
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the closure orchestrator: the entry point the command layer
// invokes for maturity processing and closure.
type Service struct {
	Accounts  Repository
	Products  ProductSource
	Ledger    *ledger.Service
	Calc      *MaturityCalculator
	Transfers FundsTransfer
	Bridge    AccountingBridge
	Numbers   AccountNumberGenerator

	// Now is injectable for tests; defaults to ledger.Today.
	Now func() ledger.Date
}

func (s *Service) today() ledger.Date {
	if s.Now != nil {
		return s.Now()
	}
	return ledger.Today()
}

// =============================================================================
// APPROVAL AND ACTIVATION
// =============================================================================

// Approve validates and approves a pending account. Rate-resolution
// problems surface here, at validation time, not at maturity time.
func (s *Service) Approve(ctx context.Context, accountID string, at ledger.Date) (*Account, error) {
	a, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors
	errs.Violations = append(errs.Violations, a.PreClosure.Validate()...)

	maturityDate := s.Calc.MaturityDate(a)
	errs.Violations = append(errs.Violations,
		a.TermDetail.ValidateTerm(a.depositStartDate(), maturityDate, a.Term.DepositPeriod)...)

	if !a.Chart.CoversDate(at) {
		errs.Add(CodeNoApplicableRateSlab, "chart",
			"no rate slab covers the reference date %s", at)
	} else if a.Chart.ResolveRate(a.Term.DepositAmount, at, at, a.Client).IsZero() {
		errs.Add(CodeZeroResolvedRate, "chart",
			"resolved rate is zero for deposit amount %v on %s", a.Term.DepositAmount, at)
	}

	if err := errs.AsError(); err != nil {
		return nil, err
	}
	if err := a.Approve(at); err != nil {
		return nil, err
	}
	return a, s.Accounts.Save(ctx, a)
}

// Activate activates an approved account, books the opening deposit, and
// computes the initial maturity projection.
func (s *Service) Activate(ctx context.Context, accountID string, at ledger.Date) (*Account, error) {
	a, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := a.Activate(at); err != nil {
		return nil, err
	}

	if a.Term.DepositAmount.IsPositive() {
		amount := ledger.NewMoneyFromDecimal(a.Term.DepositAmount, a.Currency)
		// Keyed so a replayed activation cannot double-book the principal.
		if _, err := s.Ledger.DepositWithKey(ctx, a.ID, amount, at, "opening deposit",
			fmt.Sprintf("opening:%s", a.ID)); err != nil {
			return nil, err
		}
	}

	if err := s.recomputeMaturity(ctx, a); err != nil {
		return nil, err
	}
	return a, s.Accounts.Save(ctx, a)
}

// RecomputeMaturity refreshes the stored maturity projection of an active
// account. A zero resolved rate is accepted here as a legitimate (if
// unusual) transient value.
func (s *Service) RecomputeMaturity(ctx context.Context, accountID string) (*Account, error) {
	a, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, &StateError{AccountID: a.ID, Operation: "recompute maturity", Status: a.Status}
	}
	if err := s.recomputeMaturity(ctx, a); err != nil {
		return nil, err
	}
	return a, s.Accounts.Save(ctx, a)
}

func (s *Service) recomputeMaturity(ctx context.Context, a *Account) error {
	view, err := s.Ledger.Account(ctx, a.ID, a.Currency)
	if err != nil {
		return err
	}
	result := s.Calc.ComputeMaturity(a, view)
	a.Term.MaturityDate = result.MaturityDate
	a.Term.MaturityAmount = result.MaturityAmount.Value
	return nil
}

// =============================================================================
// MATURITY TRANSITION
// =============================================================================

// UpdateMaturityStatus moves an active account whose maturity date has
// arrived to Matured, posting the final maturity interest.
func (s *Service) UpdateMaturityStatus(ctx context.Context, accountID string) (*Account, error) {
	a, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, &StateError{AccountID: a.ID, Operation: "update maturity status", Status: a.Status}
	}

	view, err := s.Ledger.Account(ctx, a.ID, a.Currency)
	if err != nil {
		return nil, err
	}
	result := s.Calc.ComputeMaturity(a, view)
	if s.today().Before(result.MaturityDate) {
		return nil, &StateError{AccountID: a.ID, Operation: "update maturity status before maturity date", Status: a.Status}
	}

	if _, err := s.Calc.PostInterest(ctx, s.Ledger, a, result); err != nil {
		return nil, err
	}
	a.Term.MaturityDate = result.MaturityDate
	a.Term.MaturityAmount = result.MaturityAmount.Value
	if err := a.markMatured(); err != nil {
		return nil, err
	}
	return a, s.Accounts.Save(ctx, a)
}

// =============================================================================
// PREMATURE CLOSURE
// =============================================================================

// PrematureClosure closes an active account before maturity. All date
// guards must pass or the operation fails atomically with a validation
// bundle; on success the premature interest is posted, the disposition
// executed, and the account moved to the terminal PreMatureClosed state.
func (s *Service) PrematureClosure(ctx context.Context, accountID string, cmd ClosureCommand) (*ClosureResult, error) {
	a, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, &StateError{AccountID: a.ID, Operation: "premature close", Status: a.Status}
	}

	view, err := s.Ledger.Account(ctx, a.ID, a.Currency)
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors
	closure := cmd.ClosureDate
	if closure.Before(a.ActivationDate) {
		errs.Add(CodeClosureBeforeActivation, "closureDate",
			"closure date %s is before activation date %s", closure, a.ActivationDate)
	}
	if closure.Before(a.LockInExpiry()) {
		errs.Add(CodeClosureBeforeLockIn, "closureDate",
			"closure date %s is before lock-in expiry %s", closure, a.LockInExpiry())
	}
	if !a.Term.MaturityDate.IsZero() && closure.After(a.Term.MaturityDate) {
		errs.Add(CodeClosureAfterMaturity, "closureDate",
			"closure date %s is after maturity date %s", closure, a.Term.MaturityDate)
	}
	if closure.After(s.today()) {
		errs.Add(CodeClosureInFuture, "closureDate", "closure date %s is in the future", closure)
	}
	if last := view.LastTransactionDate(); !last.IsZero() && closure.Before(last) {
		errs.Add(CodeClosureBeforeLastTx, "closureDate",
			"closure date %s is before the last transaction date %s", closure, last)
	}
	s.validateDisposition(&errs, cmd)
	if err := errs.AsError(); err != nil {
		return nil, err
	}
	if err := s.checkReinvestAllowed(ctx, a, cmd); err != nil {
		return nil, err
	}

	// Post pre-maturity interest up to closureDate - 1.
	result := s.Calc.CalculatePrematureAmount(a, view, closure)
	if _, err := s.Calc.PostInterest(ctx, s.Ledger, a, result); err != nil {
		return nil, err
	}
	a.Term.MaturityAmount = result.MaturityAmount.Value

	a.Term.OnClosure = cmd.Disposition
	a.Term.TransferToAccountID = cmd.TargetSavingsAccountID
	if err := a.markPreMatureClosed(closure, cmd.ClosedBy); err != nil {
		return nil, err
	}

	out, err := s.executeDisposition(ctx, a, cmd)
	if err != nil {
		return nil, err
	}
	out.MaturityAmount = result.MaturityAmount
	return out, s.Accounts.Save(ctx, a)
}

// PreviewClosure is the read-only premature projection used for UI
// preview. It mutates nothing; its result must not be posted.
func (s *Service) PreviewClosure(ctx context.Context, accountID string, closureDate ledger.Date) (MaturityResult, error) {
	a, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return MaturityResult{}, err
	}
	if a.Status != StatusActive {
		return MaturityResult{}, &StateError{AccountID: a.ID, Operation: "preview closure", Status: a.Status}
	}
	view, err := s.Ledger.Account(ctx, a.ID, a.Currency)
	if err != nil {
		return MaturityResult{}, err
	}
	return s.Calc.CalculatePrematureAmount(a, view, closureDate), nil
}

// =============================================================================
// FINAL CLOSURE
// =============================================================================

// Close closes a matured account and executes the disposition.
func (s *Service) Close(ctx context.Context, accountID string, cmd ClosureCommand) (*ClosureResult, error) {
	a, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusMatured {
		return nil, &StateError{AccountID: a.ID, Operation: "close", Status: a.Status}
	}

	view, err := s.Ledger.Account(ctx, a.ID, a.Currency)
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors
	closure := cmd.ClosureDate
	if closure.Before(a.ActivationDate) {
		errs.Add(CodeClosureBeforeActivation, "closureDate",
			"closure date %s is before activation date %s", closure, a.ActivationDate)
	}
	if closure.Before(a.Term.MaturityDate) {
		errs.Add(CodeClosureBeforeMaturity, "closureDate",
			"closure date %s is before maturity date %s", closure, a.Term.MaturityDate)
	}
	if closure.After(s.today()) {
		errs.Add(CodeClosureInFuture, "closureDate", "closure date %s is in the future", closure)
	}
	if last := view.LastTransactionDate(); !last.IsZero() && closure.Before(last) {
		errs.Add(CodeClosureBeforeLastTx, "closureDate",
			"closure date %s is before the last transaction date %s", closure, last)
	}
	s.validateDisposition(&errs, cmd)
	if err := errs.AsError(); err != nil {
		return nil, err
	}
	if err := s.checkReinvestAllowed(ctx, a, cmd); err != nil {
		return nil, err
	}

	a.Term.OnClosure = cmd.Disposition
	a.Term.TransferToAccountID = cmd.TargetSavingsAccountID
	if err := a.markClosed(closure, cmd.ClosedBy); err != nil {
		return nil, err
	}

	out, err := s.executeDisposition(ctx, a, cmd)
	if err != nil {
		return nil, err
	}
	out.MaturityAmount = ledger.NewMoneyFromDecimal(a.Term.MaturityAmount, a.Currency)
	return out, s.Accounts.Save(ctx, a)
}

func (s *Service) validateDisposition(errs *ValidationErrors, cmd ClosureCommand) {
	if cmd.Disposition == DispositionTransferToSavings && cmd.TargetSavingsAccountID == "" {
		errs.Add(CodeTransferTargetMissing, "targetSavingsAccountId",
			"a target savings account is required for transfer-to-savings closure")
	}
}

// checkReinvestAllowed rejects the reinvest disposition when the product
// configuration disallows it.
func (s *Service) checkReinvestAllowed(ctx context.Context, a *Account, cmd ClosureCommand) error {
	if cmd.Disposition != DispositionReinvest {
		return nil
	}
	product, err := s.Products.Product(ctx, a.ProductID)
	if err != nil {
		return err
	}
	if !product.AllowReinvest {
		return fmt.Errorf("product %s: %w", a.ProductID, ErrReinvestNotAllowed)
	}
	return nil
}

// =============================================================================
// DISPOSITION EXECUTION
// =============================================================================

// executeDisposition drains the account per the chosen disposition,
// bracketed by ledger snapshots for the accounting bridge. Reinvest
// legality was already checked before the state transition.
func (s *Service) executeDisposition(ctx context.Context, a *Account, cmd ClosureCommand) (*ClosureResult, error) {
	view, err := s.Ledger.Account(ctx, a.ID, a.Currency)
	if err != nil {
		return nil, err
	}
	before := ledger.TakeSnapshot(view)
	balance := view.Balance()

	out := &ClosureResult{Account: a}
	switch cmd.Disposition {
	case DispositionTransferToSavings:
		// The transfer collaborator owns the debit.
		err = s.Transfers.Transfer(ctx, TransferDescriptor{
			Amount:        balance,
			Date:          cmd.ClosureDate,
			FromAccountID: a.ID,
			ToAccountID:   cmd.TargetSavingsAccountID,
			Type:          "deposit_closure",
			Description:   cmd.TransferDescription,
		})
		if err != nil {
			return nil, err
		}

	case DispositionReinvest:
		successorID, err := s.reinvest(ctx, a, balance, cmd.ClosureDate)
		if err != nil {
			return nil, err
		}
		out.ReinvestedAccountID = successorID
		// The source account is still drained as in the withdraw path.
		tx, err := s.Ledger.Withdraw(ctx, a.ID, balance, cmd.ClosureDate, "closure withdrawal (reinvested)")
		if err != nil {
			return nil, err
		}
		out.PayoutTransactionID = tx.ID

	default: // withdraw
		tx, err := s.Ledger.Withdraw(ctx, a.ID, balance, cmd.ClosureDate, "closure withdrawal")
		if err != nil {
			return nil, err
		}
		out.PayoutTransactionID = tx.ID
	}

	if s.Bridge != nil {
		afterView, err := s.Ledger.Account(ctx, a.ID, a.Currency)
		if err != nil {
			return nil, err
		}
		after := ledger.TakeSnapshot(afterView)
		if err := s.Bridge.PostClosureActivity(ctx, a.ID, a.Currency, before, after, afterView.Transactions); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// reinvest builds and persists the successor account, numbers it when the
// product requires generated numbers, and runs the variant's post-
// reinvest behavior.
func (s *Service) reinvest(ctx context.Context, a *Account, balance ledger.Money, at ledger.Date) (string, error) {
	product, err := s.Products.Product(ctx, a.ProductID)
	if err != nil {
		return "", err
	}

	spec := BuildReinvestSpec(a, balance.Value, product.Chart, at)

	id := fmt.Sprintf("%s-reinvest", a.ID)
	if product.SystemGeneratedNumbers && s.Numbers != nil {
		id, err = s.Numbers.Next(ctx, a.ProductID)
		if err != nil {
			return "", err
		}
	}

	successor := spec.NewAccount(id)
	if err := s.Accounts.Save(ctx, successor); err != nil {
		return "", err
	}
	if err := reinvestBehaviorFor(successor.Kind).AfterReinvest(ctx, s, successor, at); err != nil {
		return "", err
	}
	return successor.ID, nil
}

// =============================================================================
// REINVEST BEHAVIOR - Variant-specific strategy
// =============================================================================

// ReinvestBehavior is the variant-specific hook run after a successor
// account is persisted. Strategy objects instead of subclass overrides.
type ReinvestBehavior interface {
	AfterReinvest(ctx context.Context, svc *Service, successor *Account, at ledger.Date) error
}

func reinvestBehaviorFor(kind Kind) ReinvestBehavior {
	if kind == KindRecurring {
		return recurringReinvest{}
	}
	return fixedReinvest{}
}

// fixedReinvest leaves the successor pending approval.
type fixedReinvest struct{}

func (fixedReinvest) AfterReinvest(context.Context, *Service, *Account, ledger.Date) error {
	return nil
}

// recurringReinvest immediately processes the successor's approval and
// activation; Activate books the opening deposit when the principal is
// nonzero.
type recurringReinvest struct{}

func (recurringReinvest) AfterReinvest(ctx context.Context, svc *Service, successor *Account, at ledger.Date) error {
	if _, err := svc.Approve(ctx, successor.ID, at); err != nil {
		return err
	}
	_, err := svc.Activate(ctx, successor.ID, at)
	return err
}
