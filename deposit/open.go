/*
open.go - Account application (submission)

PURPOSE:
  Builds a new deposit account from a product and an application command.
  The account owns copies of the product's chart, term detail, and
  pre-closure detail from the moment it is created; later product changes
  do not leak into existing accounts.
*/
package deposit

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/deposit-engine/ledger"
)

// OpenCommand is an account application.
type OpenCommand struct {
	AccountID     string // ignored when the product generates numbers
	ClientID      string
	Client        ClientProfile
	DepositAmount decimal.Decimal
	DepositPeriod Term
	Disposition   Disposition
	SubmittedDate ledger.Date
}

// Submit creates a pending account from a product. Term violations are
// collected and returned as a bundle; nothing is persisted on failure.
func (s *Service) Submit(ctx context.Context, productID string, cmd OpenCommand) (*Account, error) {
	product, err := s.Products.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors
	errs.Violations = append(errs.Violations, product.PreClosure.Validate()...)
	projectedMaturity := cmd.DepositPeriod.AddTo(cmd.SubmittedDate)
	errs.Violations = append(errs.Violations,
		product.TermDetail.ValidateTerm(cmd.SubmittedDate, projectedMaturity, cmd.DepositPeriod)...)
	if err := errs.AsError(); err != nil {
		return nil, err
	}

	id := cmd.AccountID
	if product.SystemGeneratedNumbers && s.Numbers != nil {
		id, err = s.Numbers.Next(ctx, productID)
		if err != nil {
			return nil, err
		}
	}

	a := &Account{
		ID:        id,
		ProductID: product.ID,
		ClientID:  cmd.ClientID,
		Client:    cmd.Client,
		Currency:  product.Currency,
		Kind:      product.Kind,
		Status:    StatusSubmittedPending,
		Term: TermAndPreClosure{
			DepositAmount: cmd.DepositAmount,
			DepositPeriod: cmd.DepositPeriod,
			OnClosure:     cmd.Disposition,
		},
		TermDetail:        copyTermDetail(product.TermDetail),
		PreClosure:        copyPreClosure(product.PreClosure),
		Chart:             product.Chart.Copy(),
		LockIn:            copyTerm(product.LockIn),
		PostingPeriodType: product.PostingPeriodType,
		FiscalStartMonth:  product.FiscalStartMonth,
		Compounding:       product.Compounding,
		SubmittedDate:     cmd.SubmittedDate,
	}
	if product.Kind == KindRecurring {
		a.Recurring = &RecurringDetail{
			MandatoryAmount: cmd.DepositAmount,
			Frequency:       Term{Length: 1, Unit: UnitMonths},
		}
	}
	return a, s.Accounts.Save(ctx, a)
}
