package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/ledger"
	"github.com/warp/deposit-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService() *ledger.Service {
	return ledger.NewService(store.NewMemory())
}

func usd(v float64) ledger.Money {
	return ledger.NewMoney(v, "USD")
}

// =============================================================================
// RUNNING BALANCE TESTS
// =============================================================================

func TestLedger_RunningBalance_RecomputedInDateOrder(t *testing.T) {
	// GIVEN: Transactions appended out of date order
	// WHEN: The account view is loaded
	// THEN: Running balances reflect date order, not insertion order

	svc := newTestService()
	ctx := context.Background()

	jan10 := ledger.NewDate(2025, 1, 10)
	jan5 := ledger.NewDate(2025, 1, 5)

	_, err := svc.Deposit(ctx, "acc-1", usd(500), jan10, "second deposit")
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, "acc-1", usd(1000), jan5, "first deposit")
	require.NoError(t, err)

	view, err := svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)
	require.Len(t, view.Transactions, 2)

	assert.True(t, view.Transactions[0].Date.Equal(jan5), "earliest date first")
	assert.True(t, view.Transactions[0].RunningBalance.Equal(usd(1000)))
	assert.True(t, view.Transactions[1].RunningBalance.Equal(usd(1500)))
	assert.True(t, view.Balance().Equal(usd(1500)))
}

func TestLedger_Withdrawal_ReducesBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	jan1 := ledger.NewDate(2025, 1, 1)
	jan2 := ledger.NewDate(2025, 1, 2)

	_, err := svc.Deposit(ctx, "acc-1", usd(1000), jan1, "opening deposit")
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, "acc-1", usd(300), jan2, "partial withdrawal")
	require.NoError(t, err)

	view, err := svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)
	assert.True(t, view.Balance().Equal(usd(700)))
}

func TestLedger_Withdrawal_Overdraw_Rejected(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	jan1 := ledger.NewDate(2025, 1, 1)
	_, err := svc.Deposit(ctx, "acc-1", usd(1000), jan1, "opening deposit")
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, "acc-1", usd(1001), jan1, "overdraw attempt")
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	var shortage *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &shortage)
	assert.True(t, shortage.Available.Equal(usd(1000)))
	assert.True(t, shortage.Requested.Equal(usd(1001)))
}

func TestLedger_NegativeAmount_Rejected(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Deposit(ctx, "acc-1", usd(-10), ledger.NewDate(2025, 1, 1), "bad deposit")
	assert.ErrorIs(t, err, ledger.ErrNegativeAmount)
}

// =============================================================================
// REVERSAL TESTS
// =============================================================================

func TestLedger_ReversedTransaction_StaysVisibleButContributesNothing(t *testing.T) {
	// GIVEN: A deposit and an interest posting
	// WHEN: The interest posting is reversed
	// THEN: It stays in the history, flagged, a compensating reversal entry
	//       is appended referencing it, and the balance drops both

	svc := newTestService()
	ctx := context.Background()

	jan1 := ledger.NewDate(2025, 1, 1)
	mar31 := ledger.NewDate(2025, 3, 31)

	_, err := svc.Deposit(ctx, "acc-1", usd(1000), jan1, "opening deposit")
	require.NoError(t, err)
	posting, err := svc.PostInterest(ctx, "acc-1", usd(25), mar31, "quarterly interest")
	require.NoError(t, err)

	require.NoError(t, svc.Reverse(ctx, "acc-1", posting.ID))

	view, err := svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)
	require.Len(t, view.Transactions, 3, "original stays, plus the reversal entry")

	assert.True(t, view.Transactions[1].Reversed)

	marker := view.Transactions[2]
	assert.Equal(t, ledger.TxReversal, marker.Type)
	assert.Equal(t, posting.ID, marker.ReversalOf)
	assert.True(t, marker.Amount.Equal(usd(25)))
	assert.True(t, marker.SignedAmount().IsZero(), "the reversal entry is an audit record only")

	assert.True(t, view.Balance().Equal(usd(1000)), "reversed posting contributes nothing")
}

func TestLedger_Reverse_Twice_AppendsOneEntry(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	posting, err := svc.PostInterest(ctx, "acc-1", usd(25), ledger.NewDate(2025, 3, 31), "interest")
	require.NoError(t, err)

	require.NoError(t, svc.Reverse(ctx, "acc-1", posting.ID))
	require.NoError(t, svc.Reverse(ctx, "acc-1", posting.ID))

	view, err := svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)
	assert.Len(t, view.Transactions, 2, "re-reversing is a no-op")
}

func TestLedger_Reverse_UnknownTransaction(t *testing.T) {
	svc := newTestService()
	err := svc.Reverse(context.Background(), "acc-1", "no-such-tx")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

// =============================================================================
// IDEMPOTENCY TESTS
// =============================================================================

func TestLedger_KeyedAppend_RejectsReplay(t *testing.T) {
	// GIVEN: A keyed deposit that already landed
	// WHEN: The same operation is replayed with the same key
	// THEN: The replay is rejected and the balance is booked once

	svc := newTestService()
	ctx := context.Background()
	jan1 := ledger.NewDate(2025, 1, 1)

	_, err := svc.DepositWithKey(ctx, "acc-1", usd(10000), jan1, "opening deposit", "opening:acc-1")
	require.NoError(t, err)

	_, err = svc.DepositWithKey(ctx, "acc-1", usd(10000), jan1, "opening deposit", "opening:acc-1")
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	_, err = svc.PostInterestWithKey(ctx, "acc-1", usd(100), jan1, "interest", "interest:acc-1:2025-01-01:0")
	require.NoError(t, err)
	_, err = svc.PostInterestWithKey(ctx, "acc-1", usd(100), jan1, "interest", "interest:acc-1:2025-01-01:0")
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	view, err := svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)
	assert.Len(t, view.Transactions, 2)
	assert.True(t, view.Balance().Equal(usd(10100)))
}

// =============================================================================
// BALANCE VIEW TESTS
// =============================================================================

func TestLedger_PrincipalBalance_ExcludesInterestPostings(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	jan1 := ledger.NewDate(2025, 1, 1)
	mar31 := ledger.NewDate(2025, 3, 31)
	jun1 := ledger.NewDate(2025, 6, 1)

	_, err := svc.Deposit(ctx, "acc-1", usd(1000), jan1, "opening deposit")
	require.NoError(t, err)
	_, err = svc.PostInterest(ctx, "acc-1", usd(25), mar31, "quarterly interest")
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, "acc-1", usd(500), jun1, "installment")
	require.NoError(t, err)

	view, err := svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)

	assert.True(t, view.Balance().Equal(usd(1525)))
	assert.True(t, view.PrincipalBalanceAsOf(jun1).Equal(usd(1500)), "interest excluded")
	assert.True(t, view.PrincipalBalanceAsOf(mar31).Equal(usd(1000)), "future installment excluded")
}

func TestLedger_InterestPostingOn_SkipsReversed(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	mar31 := ledger.NewDate(2025, 3, 31)
	posting, err := svc.PostInterest(ctx, "acc-1", usd(25), mar31, "quarterly interest")
	require.NoError(t, err)

	view, err := svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)
	found, ok := view.InterestPostingOn(mar31)
	require.True(t, ok)
	assert.Equal(t, posting.ID, found.ID)

	require.NoError(t, svc.Reverse(ctx, "acc-1", posting.ID))
	view, err = svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)
	_, ok = view.InterestPostingOn(mar31)
	assert.False(t, ok, "reversed posting is not a surviving posting")
}

func TestLedger_LastTransactionDate_IgnoresReversed(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	jan1 := ledger.NewDate(2025, 1, 1)
	feb1 := ledger.NewDate(2025, 2, 1)

	_, err := svc.Deposit(ctx, "acc-1", usd(1000), jan1, "opening deposit")
	require.NoError(t, err)
	later, err := svc.PostInterest(ctx, "acc-1", usd(10), feb1, "interest")
	require.NoError(t, err)
	require.NoError(t, svc.Reverse(ctx, "acc-1", later.ID))

	view, err := svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)
	assert.True(t, view.LastTransactionDate().Equal(jan1))
}

// =============================================================================
// SNAPSHOT TESTS
// =============================================================================

func TestLedger_Snapshot_CapturesExistingAndReversedIDs(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	jan1 := ledger.NewDate(2025, 1, 1)
	tx1, err := svc.Deposit(ctx, "acc-1", usd(1000), jan1, "opening deposit")
	require.NoError(t, err)
	tx2, err := svc.PostInterest(ctx, "acc-1", usd(10), jan1, "interest")
	require.NoError(t, err)
	require.NoError(t, svc.Reverse(ctx, "acc-1", tx2.ID))

	view, err := svc.Account(ctx, "acc-1", "USD")
	require.NoError(t, err)
	snap := ledger.TakeSnapshot(view)

	assert.True(t, snap.ExistingIDs[tx1.ID])
	assert.True(t, snap.ExistingIDs[tx2.ID])
	assert.False(t, snap.ReversedIDs[tx1.ID])
	assert.True(t, snap.ReversedIDs[tx2.ID])
}

// =============================================================================
// DATE TESTS
// =============================================================================

func TestDate_CalendarArithmetic(t *testing.T) {
	jan31 := ledger.NewDate(2025, 1, 31)

	assert.True(t, jan31.AddMonths(1).Equal(ledger.NewDate(2025, 3, 3)), "Go month normalization")
	assert.True(t, jan31.AddDays(1).Equal(ledger.NewDate(2025, 2, 1)))
	assert.True(t, jan31.AddYears(1).Equal(ledger.NewDate(2026, 1, 31)))
	assert.Equal(t, 31, ledger.DaysBetween(ledger.NewDate(2025, 1, 1), ledger.NewDate(2025, 2, 1)))
}
