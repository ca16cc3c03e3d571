/*
Package sqlite provides SQLite-backed implementations of the storage
interfaces.

PURPOSE:
  Implements ledger.Store (transaction persistence) and deposit.Repository
  (account documents) on SQLite. The same patterns apply to PostgreSQL;
  only minor dialect differences.

APPEND-ONLY ENFORCEMENT:
  The only UPDATE the transactions table ever sees flips the reversed flag.
  No deletes. Corrections happen via reversal plus a fresh append.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  one writer at a time, better crash recovery.

ACCOUNT DOCUMENTS:
  Deposit accounts are stored as JSON documents keyed by id, with kind and
  status lifted into columns for querying. The engine reads and writes
  whole aggregates; there is no partial-update path to keep consistent.

USAGE:
  store, err := sqlite.New("./deposits.db")  // ":memory:" for tests
  ledgerSvc := ledger.NewService(store)

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ledger"
)

// Store implements ledger.Store and deposit.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Transactions (reversal-flag only; no other update, no delete)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		tx_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		reversed INTEGER NOT NULL DEFAULT 0,
		reversal_of TEXT,
		idempotency_key TEXT UNIQUE,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account
		ON transactions(account_id, tx_date);
	CREATE INDEX IF NOT EXISTS idx_transactions_idempotency
		ON transactions(idempotency_key) WHERE idempotency_key IS NOT NULL;

	-- Deposit accounts as JSON documents
	CREATE TABLE IF NOT EXISTS deposit_accounts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		doc TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deposit_accounts_status
		ON deposit_accounts(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER.STORE IMPLEMENTATION
// =============================================================================

func (s *Store) Append(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTx(ctx, s.db, tx)
}

func (s *Store) AppendBatch(ctx context.Context, txs []ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if err := s.insertTx(ctx, dbTx, tx); err != nil {
			dbTx.Rollback()
			return err
		}
	}
	return dbTx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertTx(ctx context.Context, db execer, tx ledger.Transaction) error {
	var idemKey any
	if tx.IdempotencyKey != "" {
		idemKey = tx.IdempotencyKey
	}
	var reversalOf any
	if tx.ReversalOf != "" {
		reversalOf = string(tx.ReversalOf)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, account_id, tx_type, tx_date, amount, currency, reversed, reversal_of, idempotency_key, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.ID), tx.AccountID, string(tx.Type), tx.Date.String(),
		tx.Amount.Value.String(), tx.Amount.Currency, boolToInt(tx.Reversed),
		reversalOf, idemKey, tx.Description, tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil && isUniqueViolation(err) {
		return ledger.ErrDuplicateIdempotencyKey
	}
	return err
}

func (s *Store) Load(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, tx_type, tx_date, amount, currency, reversed, reversal_of, idempotency_key, description, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY tx_date, created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) MarkReversed(ctx context.Context, accountID string, txID ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET reversed = 1 WHERE id = ? AND account_id = ?`,
		string(txID), accountID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE idempotency_key = ?`, idempotencyKey).Scan(&count)
	return count > 0, err
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx                 ledger.Transaction
		id, txType, txDate string
		amount, currency   string
		reversed           int
		reversalOf         sql.NullString
		idemKey            sql.NullString
		description        sql.NullString
		createdAt          string
	)
	if err := rows.Scan(&id, &tx.AccountID, &txType, &txDate, &amount, &currency,
		&reversed, &reversalOf, &idemKey, &description, &createdAt); err != nil {
		return tx, err
	}

	tx.ID = ledger.TransactionID(id)
	tx.Type = ledger.TransactionType(txType)
	tx.Reversed = reversed != 0
	tx.ReversalOf = ledger.TransactionID(reversalOf.String)
	tx.IdempotencyKey = idemKey.String
	tx.Description = description.String

	parsedDate, err := time.Parse("2006-01-02", txDate)
	if err != nil {
		return tx, fmt.Errorf("corrupt tx_date %q: %w", txDate, err)
	}
	tx.Date = ledger.DateOf(parsedDate)

	tx.Amount = ledger.NewMoneyFromDecimal(ledger.MustParseDecimal(amount), currency)

	if createdAtParsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		tx.CreatedAt = createdAtParsed
	}
	return tx, nil
}

// =============================================================================
// DEPOSIT.REPOSITORY IMPLEMENTATION
// =============================================================================

func (s *Store) Get(ctx context.Context, id string) (*deposit.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM deposit_accounts WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, deposit.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	var a deposit.Account
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("corrupt account document %s: %w", id, err)
	}
	return &a, nil
}

func (s *Store) Save(ctx context.Context, a *deposit.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deposit_accounts (id, kind, status, doc, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			status = excluded.status,
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		a.ID, string(a.Kind), string(a.Status), string(doc),
		time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
