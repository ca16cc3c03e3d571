/*
Package ledger provides the generic savings transaction ledger.

PURPOSE:
  This package contains the account-agnostic money and transaction types
  shared by every deposit product. Whether the account is a fixed deposit,
  a recurring deposit, or the savings account a closure pays into, the same
  ledger records deposits, withdrawals, and interest postings and keeps the
  running balance consistent.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount with a currency code
  - Date: A day-granularity point in time (all ledger activity is dated)
  - Transaction: An ordered ledger entry carrying a running balance
  - Transaction types: deposit, withdrawal, interest posting, reversal

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Corrections via reversal: Transactions are flagged reversed, never edited
  3. Auditability: Every transaction has an id and an idempotency key, and
     reversed transactions stay visible in the history

SEE ALSO:
  - ledger.go: Running-balance recomputation and the ledger service
  - store.go: Persistence interface
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount with currency
// =============================================================================

type Money struct {
	Value    decimal.Decimal
	Currency string
}

func NewMoney(value float64, currency string) Money {
	return Money{Value: decimal.NewFromFloat(value), Currency: currency}
}

func NewMoneyFromDecimal(value decimal.Decimal, currency string) Money {
	return Money{Value: value, Currency: currency}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (m Money) Zero() Money                 { return Money{Value: decimal.Zero, Currency: m.Currency} }
func (m Money) Add(b Money) Money           { return Money{Value: m.Value.Add(b.Value), Currency: m.Currency} }
func (m Money) Sub(b Money) Money           { return Money{Value: m.Value.Sub(b.Value), Currency: m.Currency} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s), Currency: m.Currency} }
func (m Money) Neg() Money                  { return Money{Value: m.Value.Neg(), Currency: m.Currency} }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) GreaterThan(b Money) bool    { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool       { return m.Value.LessThan(b.Value) }
func (m Money) Equal(b Money) bool          { return m.Value.Equal(b.Value) }

// Rounded returns the amount rounded to 2 decimal places. Interest postings
// are always rounded before hitting the ledger.
func (m Money) Rounded() Money {
	return Money{Value: m.Value.Round(2), Currency: m.Currency}
}

// =============================================================================
// DATE - Day-granularity time point
// =============================================================================

// Date is a calendar day in UTC. The ledger has no intra-day ordering beyond
// insertion order; deposits, closures, and interest postings are all dated.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }
func (d Date) IsZero() bool                  { return d.Time.IsZero() }

// Arithmetic uses calendar units, never day-equivalents.
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddWeeks(n int) Date  { return Date{Time: d.Time.AddDate(0, 0, 7*n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{Time: d.Time.AddDate(n, 0, 0)} }

func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// DaysBetween returns the number of calendar days from one date to another.
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

// MinDate returns the earlier of two dates.
func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

// =============================================================================
// TRANSACTION - Ordered ledger entry
// =============================================================================

type TransactionType string

const (
	TxDeposit         TransactionType = "deposit"          // Money in (principal, installment)
	TxWithdrawal      TransactionType = "withdrawal"       // Money out (closure payout)
	TxInterestPosting TransactionType = "interest_posting" // Interest credited for a posting period
	TxReversal        TransactionType = "reversal"         // Compensating entry referencing a reversed transaction
)

type TransactionID string

func NewTransactionID() TransactionID {
	return TransactionID(uuid.NewString())
}

type Transaction struct {
	ID        TransactionID
	AccountID string
	Type      TransactionType
	Date      Date
	Amount    Money // always positive; Type determines sign in the balance

	// RunningBalance is recomputed on every append/reverse, never stored
	// authoritatively.
	RunningBalance Money

	// Reversed marks a transaction as undone. Reversed transactions stay in
	// the ledger for audit but contribute nothing to the balance. Corrections
	// are made by reversing and appending, never by editing.
	Reversed bool

	// ReversalOf links a TxReversal entry back to the transaction it undoes.
	ReversalOf TransactionID

	IdempotencyKey string
	Description    string
	CreatedAt      time.Time
}

// SignedAmount returns the balance contribution of this transaction.
// Reversed transactions contribute nothing, and neither do TxReversal
// entries: the reversed flag on the original already removes its effect,
// so the compensating entry is an audit record only.
func (t Transaction) SignedAmount() Money {
	if t.Reversed {
		return t.Amount.Zero()
	}
	switch t.Type {
	case TxDeposit, TxInterestPosting:
		return t.Amount
	case TxWithdrawal:
		return t.Amount.Neg()
	default: // TxReversal and anything unknown
		return t.Amount.Zero()
	}
}

// IsCredit reports whether the transaction adds to the account balance.
func (t Transaction) IsCredit() bool {
	return t.Type == TxDeposit || t.Type == TxInterestPosting
}
