/*
store.go - Persistence interface for ledger transactions

PURPOSE:
  Defines the interface between the ledger and the database. Implementations
  exist for SQLite (production) and in-memory maps (tests/dev).

CONTRACT:
  - Append/AppendBatch are the only ways to add transactions.
  - MarkReversed is the only mutation of an existing row, and it only flips
    the reversed flag. No other update, no delete.
  - Idempotency keys are unique; a duplicate append is rejected.

SEE ALSO:
  - store/memory.go: In-memory implementation
  - store/sqlite (top level): SQLite implementation
*/
package ledger

import "context"

// Store handles persistence of transactions.
type Store interface {
	// Append persists a transaction. Returns ErrDuplicateIdempotencyKey if
	// the idempotency key already exists.
	Append(ctx context.Context, tx Transaction) error

	// AppendBatch persists multiple transactions atomically.
	AppendBatch(ctx context.Context, txs []Transaction) error

	// Load returns all transactions for an account ordered by date.
	Load(ctx context.Context, accountID string) ([]Transaction, error)

	// MarkReversed flags a transaction as reversed. Returns
	// ErrTransactionNotFound if the id does not exist for the account.
	MarkReversed(ctx context.Context, accountID string, txID TransactionID) error

	// Exists checks whether an idempotency key is already used.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}
