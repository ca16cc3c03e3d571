package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/ledger"
	"github.com/warp/deposit-engine/ledger/store"
)

func depositTx(id, account, key string) ledger.Transaction {
	return ledger.Transaction{
		ID:             ledger.TransactionID(id),
		AccountID:      account,
		Type:           ledger.TxDeposit,
		Date:           ledger.NewDate(2025, 1, 1),
		Amount:         ledger.NewMoney(100, "USD"),
		IdempotencyKey: key,
	}
}

func TestMemory_DuplicateIdempotencyKey_Rejected(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, depositTx("tx-1", "acc-1", "key-1")))
	err := m.Append(ctx, depositTx("tx-2", "acc-1", "key-1"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	exists, err := m.Exists(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemory_AppendBatch_AllOrNothing(t *testing.T) {
	// GIVEN: A batch where the second transaction reuses a taken key
	// WHEN: The batch is appended
	// THEN: Nothing from the batch is stored

	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, depositTx("tx-1", "acc-1", "key-1")))

	err := m.AppendBatch(ctx, []ledger.Transaction{
		depositTx("tx-2", "acc-1", "key-2"),
		depositTx("tx-3", "acc-1", "key-1"),
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	txs, err := m.Load(ctx, "acc-1")
	require.NoError(t, err)
	assert.Len(t, txs, 1, "failed batch stored nothing")
}

func TestMemory_MarkReversed(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, depositTx("tx-1", "acc-1", "")))
	require.NoError(t, m.MarkReversed(ctx, "acc-1", "tx-1"))

	txs, err := m.Load(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Reversed)

	assert.ErrorIs(t, m.MarkReversed(ctx, "acc-1", "tx-9"), ledger.ErrTransactionNotFound)
}
