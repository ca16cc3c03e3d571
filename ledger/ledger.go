/*
ledger.go - Transaction log with running-balance recomputation

PURPOSE:
  The Ledger is the source of truth for an account's balance. Deposits,
  withdrawals, and interest postings are appended; corrections are made by
  reversing an existing transaction and appending a replacement. The running
  balance is always recomputed by replaying the ordered transaction list -
  there is no separate balance field that can drift.

CRITICAL INVARIANTS:
  1. ORDERED: Transactions are replayed by effective date, then insertion
     order within a day.
  2. REVERSAL, NOT EDIT: A reversed transaction stays in the list, flagged,
     contributing nothing to the balance. Each reversal also appends a
     compensating TxReversal audit entry referencing the original.
  3. IDEMPOTENT: Same idempotency key = same transaction (no duplicates).

WHY RECOMPUTE?
  Interest recomputation reverses and re-posts mid-history transactions.
  Recomputing running balances after every mutation keeps every stored
  balance consistent with the surviving entries, whatever was patched.

SEE ALSO:
  - store.go: Persistence interface
  - deposit/maturity.go: The diff-and-patch interest posting that relies on
    reversal semantics
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// ACCOUNT VIEW - Ordered transactions for one account
// =============================================================================

// AccountLedger is the in-memory view of one account's transactions,
// ordered and carrying running balances.
type AccountLedger struct {
	AccountID    string
	Currency     string
	Transactions []Transaction
}

// Recalculate re-sorts the transactions and recomputes every running
// balance. Call after any append or reversal.
func (a *AccountLedger) Recalculate() {
	sort.SliceStable(a.Transactions, func(i, j int) bool {
		return a.Transactions[i].Date.Before(a.Transactions[j].Date)
	})
	balance := NewMoney(0, a.Currency)
	for i := range a.Transactions {
		balance = balance.Add(a.Transactions[i].SignedAmount())
		a.Transactions[i].RunningBalance = balance
	}
}

// Balance returns the current balance (all surviving transactions).
func (a *AccountLedger) Balance() Money {
	balance := NewMoney(0, a.Currency)
	for _, tx := range a.Transactions {
		balance = balance.Add(tx.SignedAmount())
	}
	return balance
}

// BalanceAsOf returns the balance considering transactions dated on or
// before the given date.
func (a *AccountLedger) BalanceAsOf(at Date) Money {
	balance := NewMoney(0, a.Currency)
	for _, tx := range a.Transactions {
		if tx.Date.After(at) {
			continue
		}
		balance = balance.Add(tx.SignedAmount())
	}
	return balance
}

// PrincipalBalanceAsOf returns the balance from deposits and withdrawals
// only, ignoring interest postings. Used by the maturity calculator, which
// accrues on principal and adds compounded interest itself.
func (a *AccountLedger) PrincipalBalanceAsOf(at Date) Money {
	balance := NewMoney(0, a.Currency)
	for _, tx := range a.Transactions {
		if tx.Date.After(at) || tx.Type == TxInterestPosting {
			continue
		}
		balance = balance.Add(tx.SignedAmount())
	}
	return balance
}

// LastTransactionDate returns the date of the latest surviving transaction,
// or the zero Date when the ledger is empty. Reversed transactions and
// reversal markers are not economic activity and are skipped.
func (a *AccountLedger) LastTransactionDate() Date {
	var last Date
	for _, tx := range a.Transactions {
		if tx.Reversed || tx.Type == TxReversal {
			continue
		}
		if tx.Date.After(last) {
			last = tx.Date
		}
	}
	return last
}

// InterestPostingOn returns the surviving interest posting dated at the
// given date, if any.
func (a *AccountLedger) InterestPostingOn(at Date) (Transaction, bool) {
	for _, tx := range a.Transactions {
		if tx.Type == TxInterestPosting && !tx.Reversed && tx.Date.Equal(at) {
			return tx, true
		}
	}
	return Transaction{}, false
}

// =============================================================================
// SERVICE - Ledger operations backed by a Store
// =============================================================================

// Service exposes the ledger operations the deposit engine consumes:
// deposit, withdraw, interest posting, and reversal.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Account loads the ordered ledger for an account.
func (s *Service) Account(ctx context.Context, accountID, currency string) (*AccountLedger, error) {
	txs, err := s.store.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	al := &AccountLedger{AccountID: accountID, Currency: currency, Transactions: txs}
	al.Recalculate()
	return al, nil
}

// Deposit appends a credit transaction and returns it.
func (s *Service) Deposit(ctx context.Context, accountID string, amount Money, at Date, description string) (Transaction, error) {
	return s.append(ctx, accountID, TxDeposit, amount, at, description, "")
}

// DepositWithKey is Deposit carrying an idempotency key: a replay whose key
// already landed is rejected with ErrDuplicateIdempotencyKey instead of
// double-booking the credit.
func (s *Service) DepositWithKey(ctx context.Context, accountID string, amount Money, at Date, description, idempotencyKey string) (Transaction, error) {
	return s.append(ctx, accountID, TxDeposit, amount, at, description, idempotencyKey)
}

// Withdraw appends a debit transaction and returns it. A withdrawal that
// would overdraw the balance as of the effective date is rejected.
func (s *Service) Withdraw(ctx context.Context, accountID string, amount Money, at Date, description string) (Transaction, error) {
	if amount.IsNegative() {
		return Transaction{}, ErrNegativeAmount
	}
	view, err := s.Account(ctx, accountID, amount.Currency)
	if err != nil {
		return Transaction{}, err
	}
	if available := view.BalanceAsOf(at); amount.GreaterThan(available) {
		return Transaction{}, &InsufficientBalanceError{
			AccountID: accountID,
			Available: available,
			Requested: amount,
		}
	}
	return s.append(ctx, accountID, TxWithdrawal, amount, at, description, "")
}

// PostInterest appends an interest-posting transaction and returns it.
// The amount is rounded to 2 decimal places before posting.
func (s *Service) PostInterest(ctx context.Context, accountID string, amount Money, at Date, description string) (Transaction, error) {
	return s.append(ctx, accountID, TxInterestPosting, amount.Rounded(), at, description, "")
}

// PostInterestWithKey is PostInterest carrying an idempotency key; replays
// are rejected with ErrDuplicateIdempotencyKey.
func (s *Service) PostInterestWithKey(ctx context.Context, accountID string, amount Money, at Date, description, idempotencyKey string) (Transaction, error) {
	return s.append(ctx, accountID, TxInterestPosting, amount.Rounded(), at, description, idempotencyKey)
}

// Reverse flags an existing transaction as reversed and appends a
// compensating TxReversal entry referencing it. The original stays in the
// ledger; balances are recomputed without it, and the compensating entry
// itself carries no balance effect. Reversing an already-reversed
// transaction is a no-op.
func (s *Service) Reverse(ctx context.Context, accountID string, txID TransactionID) error {
	txs, err := s.store.Load(ctx, accountID)
	if err != nil {
		return err
	}
	var original *Transaction
	for i := range txs {
		if txs[i].ID == txID {
			original = &txs[i]
			break
		}
	}
	if original == nil {
		return ErrTransactionNotFound
	}
	if original.Reversed {
		return nil
	}
	if err := s.store.MarkReversed(ctx, accountID, txID); err != nil {
		return err
	}
	rev := NewTransaction(accountID, TxReversal, original.Amount, original.Date,
		fmt.Sprintf("reversal of %s", original.ID))
	rev.ReversalOf = original.ID
	rev.IdempotencyKey = fmt.Sprintf("reversal:%s", original.ID)
	return s.store.Append(ctx, rev)
}

// CommitBatch persists transactions atomically: either every leg lands or
// none do. Multi-account movements (the transfer collaborator's debit and
// credit) go through here so a failure cannot leave a dangling leg.
func (s *Service) CommitBatch(ctx context.Context, txs ...Transaction) error {
	for _, tx := range txs {
		if tx.Amount.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return s.store.AppendBatch(ctx, txs)
}

// NewTransaction constructs an unpersisted ledger transaction. Callers that
// need multi-leg atomicity build their legs and commit them via CommitBatch.
func NewTransaction(accountID string, txType TransactionType, amount Money, at Date, description string) Transaction {
	return Transaction{
		ID:          NewTransactionID(),
		AccountID:   accountID,
		Type:        txType,
		Date:        at,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

func (s *Service) append(ctx context.Context, accountID string, txType TransactionType, amount Money, at Date, description, idempotencyKey string) (Transaction, error) {
	if amount.IsNegative() {
		return Transaction{}, ErrNegativeAmount
	}
	if idempotencyKey != "" {
		used, err := s.store.Exists(ctx, idempotencyKey)
		if err != nil {
			return Transaction{}, err
		}
		if used {
			return Transaction{}, ErrDuplicateIdempotencyKey
		}
	}
	tx := NewTransaction(accountID, txType, amount, at, description)
	tx.IdempotencyKey = idempotencyKey
	if err := s.store.Append(ctx, tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// =============================================================================
// SNAPSHOT - Transaction id sets for the accounting bridge
// =============================================================================

// Snapshot captures which transaction ids exist and which are reversed at a
// point in the closure workflow. The journal bridge diffs two snapshots to
// derive postings for new activity only.
type Snapshot struct {
	ExistingIDs map[TransactionID]bool
	ReversedIDs map[TransactionID]bool
}

// TakeSnapshot records the current id sets of a ledger.
func TakeSnapshot(a *AccountLedger) Snapshot {
	snap := Snapshot{
		ExistingIDs: make(map[TransactionID]bool, len(a.Transactions)),
		ReversedIDs: make(map[TransactionID]bool),
	}
	for _, tx := range a.Transactions {
		snap.ExistingIDs[tx.ID] = true
		if tx.Reversed {
			snap.ReversedIDs[tx.ID] = true
		}
	}
	return snap
}
