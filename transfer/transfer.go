/*
Package transfer implements the inter-account transfer collaborator.

PURPOSE:
  Moves a balance from one ledger account to another from a single
  descriptor. The transfer owns both legs: it debits the source and credits
  the target, so callers (the closure orchestrator in particular) never
  create their own withdrawal when transferring out.

ATOMICITY:
  Both legs are built up front and committed through the ledger's atomic
  batch: either the debit and the credit both land or neither does. A
  failing store cannot leave a dangling debit.
*/
package transfer

import (
	"context"
	"fmt"

	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ledger"
)

// Service performs inter-account transfers over a shared ledger.
type Service struct {
	Ledger *ledger.Service
}

func NewService(l *ledger.Service) *Service {
	return &Service{Ledger: l}
}

var _ deposit.FundsTransfer = (*Service)(nil)

// Transfer debits the source account and credits the target in one atomic
// batch.
func (s *Service) Transfer(ctx context.Context, d deposit.TransferDescriptor) error {
	if d.Amount.IsNegative() {
		return ledger.ErrNegativeAmount
	}

	source, err := s.Ledger.Account(ctx, d.FromAccountID, d.Amount.Currency)
	if err != nil {
		return err
	}
	if available := source.BalanceAsOf(d.Date); d.Amount.GreaterThan(available) {
		return &ledger.InsufficientBalanceError{
			AccountID: d.FromAccountID,
			Available: available,
			Requested: d.Amount,
		}
	}

	description := d.Description
	if description == "" {
		description = fmt.Sprintf("transfer (%s)", d.Type)
	}

	debit := ledger.NewTransaction(d.FromAccountID, ledger.TxWithdrawal, d.Amount, d.Date,
		fmt.Sprintf("%s to %s", description, d.ToAccountID))
	credit := ledger.NewTransaction(d.ToAccountID, ledger.TxDeposit, d.Amount, d.Date,
		fmt.Sprintf("%s from %s", description, d.FromAccountID))
	return s.Ledger.CommitBatch(ctx, debit, credit)
}
