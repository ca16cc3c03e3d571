/*
Package journal derives double-entry postings from ledger activity.

PURPOSE:
  The closure orchestrator snapshots an account's transaction ids before
  and after each disposition. This package diffs the two snapshots and
  derives balanced journal entries for exactly the new and newly-reversed
  transactions, making ledger re-derivation idempotent: already-posted
  activity is never posted twice.

ENTRY SHAPE:
  Every relevant transaction becomes one entry with two legs. Credits to
  the account (deposits, interest postings) debit cash and credit the
  liability; debits (withdrawals) do the opposite. A reversal flips the
  legs of the original transaction.
*/
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ledger"
)

// =============================================================================
// ENTRIES
// =============================================================================

type LegType string

const (
	LegDebit  LegType = "debit"
	LegCredit LegType = "credit"
)

// Standard account names for deposit activity.
const (
	GLCash             = "cash"
	GLDepositLiability = "deposit_liability"
	GLInterestExpense  = "interest_expense"
)

type Leg struct {
	GLAccount string
	Type      LegType
	Amount    ledger.Money
}

// Entry is one balanced double-entry posting.
type Entry struct {
	ID            string
	TransactionID ledger.TransactionID
	Date          ledger.Date
	Currency      string
	Legs          [2]Leg
	Reversal      bool
	CreatedAt     time.Time
}

// =============================================================================
// SINK AND BRIDGE
// =============================================================================

// Sink receives derived entries. The in-memory sink below suffices for
// tests; production would hand entries to the general ledger system.
type Sink interface {
	Post(ctx context.Context, entries []Entry) error
}

// MemorySink collects entries for inspection.
type MemorySink struct {
	Entries []Entry
}

func (m *MemorySink) Post(_ context.Context, entries []Entry) error {
	m.Entries = append(m.Entries, entries...)
	return nil
}

// Bridge implements the accounting-bridge collaborator consumed by the
// closure orchestrator.
type Bridge struct {
	Sink Sink
}

func NewBridge(sink Sink) *Bridge {
	return &Bridge{Sink: sink}
}

var _ deposit.AccountingBridge = (*Bridge)(nil)

// PostClosureActivity derives entries for transactions that are new since
// the before-snapshot, or that were reversed between the snapshots.
func (b *Bridge) PostClosureActivity(ctx context.Context, accountID, currency string, before, after ledger.Snapshot, txs []ledger.Transaction) error {
	var entries []Entry
	for _, tx := range txs {
		if tx.Type == ledger.TxReversal {
			// The reversed flag on the original drives the flipped-leg
			// entry; the marker itself carries no balance effect.
			continue
		}
		isNew := !before.ExistingIDs[tx.ID]
		newlyReversed := tx.Reversed && !before.ReversedIDs[tx.ID]

		if isNew && !tx.Reversed {
			entries = append(entries, deriveEntry(tx, currency, false))
		}
		if newlyReversed && !isNew {
			// Reversal of a previously-posted transaction: flip its legs.
			entries = append(entries, deriveEntry(tx, currency, true))
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return b.Sink.Post(ctx, entries)
}

func deriveEntry(tx ledger.Transaction, currency string, reversal bool) Entry {
	entry := Entry{
		ID:            uuid.NewString(),
		TransactionID: tx.ID,
		Date:          tx.Date,
		Currency:      currency,
		Reversal:      reversal,
		CreatedAt:     time.Now().UTC(),
	}

	credit := tx.IsCredit()
	if reversal {
		credit = !credit
	}

	counterpart := GLCash
	if tx.Type == ledger.TxInterestPosting {
		counterpart = GLInterestExpense
	}

	if credit {
		// Money into the deposit account: debit cash/expense, credit liability.
		entry.Legs = [2]Leg{
			{GLAccount: counterpart, Type: LegDebit, Amount: tx.Amount},
			{GLAccount: GLDepositLiability, Type: LegCredit, Amount: tx.Amount},
		}
	} else {
		entry.Legs = [2]Leg{
			{GLAccount: GLDepositLiability, Type: LegDebit, Amount: tx.Amount},
			{GLAccount: counterpart, Type: LegCredit, Amount: tx.Amount},
		}
	}
	return entry
}
