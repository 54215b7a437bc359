package collection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deposit-collector/internal/chain/ethereum"
	"deposit-collector/internal/event"
	"deposit-collector/internal/model"
)

func TestCollect_NativeSweepPaysItsOwnFee(t *testing.T) {
	f := newFixture(model.CollectionPending)
	f.chain.set(testAddress, "", 44100)

	res, err := f.machine.Collect(context.Background(), testAddressID)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, model.CollectionKindCollect, res.Kind)
	assert.Equal(t, "23100", res.Amount.String())
	assert.Equal(t, "0xhot", res.To)
	assert.Equal(t, uint64(21000), res.GasLimit)

	sent := f.chain.transfers()
	require.Len(t, sent, 1)
	assert.Equal(t, testAddress, sent[0].From)
	assert.Equal(t, "deposit-secret", sent[0].Secret)
	assert.Empty(t, sent[0].Contract)
	assert.True(t, f.chain.get(testAddress, "").IsZero())

	row := f.store.row(testAddressID)
	assert.Equal(t, model.CollectionDone, row.CollectionState)
	assert.NotNil(t, row.CollectedAt)
	require.Len(t, f.store.collections, 1)
	assert.Equal(t, res.TxID, f.store.collections[0].TxID)
	assert.Equal(t, []string{event.TopicCollectionEvents + "/7"}, f.store.outbox)
}

func TestCollect_TokenFirst(t *testing.T) {
	f := newFixture(model.CollectionNone)
	f.chain.set(testAddress, "", 200000)
	f.chain.set(testAddress, testToken, 1500)

	res, err := f.machine.Collect(context.Background(), testAddressID)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "usdt", res.Currency)
	assert.Equal(t, "1500", res.Amount.String())
	sent := f.chain.transfers()
	require.Len(t, sent, 1)
	assert.Equal(t, testToken, sent[0].Contract)
	assert.True(t, f.chain.get("0xhot", testToken).Equal(res.Amount))
}

func TestCollect_NothingCollectableStillFinishes(t *testing.T) {
	f := newFixture(model.CollectionDone)
	f.chain.set(testAddress, "", 100)

	res, err := f.machine.Collect(context.Background(), testAddressID)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, f.chain.transfers())
	assert.Equal(t, model.CollectionDone, f.store.row(testAddressID).CollectionState)
	assert.Empty(t, f.store.collections)
}

func TestCollect_RejectedWhileCollecting(t *testing.T) {
	for _, state := range []model.CollectionState{model.CollectionCollecting, model.CollectionGasRefueling} {
		f := newFixture(state)
		f.chain.set(testAddress, "", 44100)

		_, err := f.machine.Collect(context.Background(), testAddressID)
		assert.ErrorIs(t, err, model.ErrInvalidTransition, string(state))
		assert.Empty(t, f.chain.transfers())
		assert.Equal(t, state, f.store.row(testAddressID).CollectionState)
	}
}

func TestCollect_FailureRollsBack(t *testing.T) {
	f := newFixture(model.CollectionPending)
	f.chain.set(testAddress, "", 44100)
	f.chain.sendErr = ethereum.Classify(-32010, "There are too many transactions in the queue. Your transaction was dropped due to limit. Try again later.", "")

	_, err := f.machine.Collect(context.Background(), testAddressID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ethereum.ErrTooManyTransactions)

	row := f.store.row(testAddressID)
	assert.Equal(t, model.CollectionPending, row.CollectionState)
	assert.Nil(t, row.CollectedAt)
	assert.Empty(t, f.store.collections)
	assert.Empty(t, f.store.outbox)
}

func TestCollect_ConcurrentSubmitsOnce(t *testing.T) {
	for _, pending := range []bool{false, true} {
		f := newFixture(model.CollectionPending)
		f.chain.pending = pending
		f.chain.set(testAddress, "", 44100)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.machine.Collect(context.Background(), testAddressID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.Len(t, f.chain.transfers(), 1, "pending=%t", pending)
		assert.Len(t, f.store.collections, 1, "pending=%t", pending)
		assert.Equal(t, model.CollectionDone, f.store.row(testAddressID).CollectionState)
	}
}

func TestCollect_WaitsForPreviousSweepToSettle(t *testing.T) {
	f := newFixture(model.CollectionPending)
	f.chain.pending = true
	f.chain.set(testAddress, testToken, 1500)
	f.chain.set(testAddress, "", 200000)
	start := time.Now()
	f.machine.now = func() time.Time { return start }

	res, err := f.machine.Collect(context.Background(), testAddressID)
	require.NoError(t, err)
	require.NotNil(t, res)

	// the node still reports the old token balance
	f.machine.now = func() time.Time { return start.Add(time.Minute) }
	res, err = f.machine.Collect(context.Background(), testAddressID)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Len(t, f.chain.transfers(), 1)
	assert.Len(t, f.store.outbox, 1)
	assert.Equal(t, start, *f.store.row(testAddressID).CollectedAt)

	f.machine.now = func() time.Time { return start.Add(6 * time.Minute) }
	res, err = f.machine.Collect(context.Background(), testAddressID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, f.chain.transfers(), 2)
}

func TestRefuelGas_WaitsForPreviousRefuelToSettle(t *testing.T) {
	f := newFixture(model.CollectionPending)
	f.chain.pending = true
	f.chain.set(testAddress, testToken, 2000)
	f.chain.set("0xfee", "", 1000000)

	require.NoError(t, f.runner.Run(context.Background(), testAddressID, ActionAuto))
	require.Len(t, f.chain.transfers(), 1)

	// gas has not arrived yet, the runner would ask for it again
	require.NoError(t, f.runner.Run(context.Background(), testAddressID, ActionAuto))
	assert.Len(t, f.chain.transfers(), 1)
}

func TestCollect_AddressNotGenerated(t *testing.T) {
	f := newFixture(model.CollectionNone)
	f.store.rows[testAddressID] = model.DepositAddress{ID: testAddressID, BlockchainID: testChainID}

	_, err := f.machine.Collect(context.Background(), testAddressID)
	assert.ErrorIs(t, err, ErrAddressNotGenerated)
}

func TestRefuelGas_SendsRequiredGas(t *testing.T) {
	f := newFixture(model.CollectionPending)
	f.chain.set(testAddress, testToken, 2000)
	f.chain.set("0xfee", "", 1000000)

	res, err := f.machine.RefuelGas(context.Background(), testAddressID)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, model.CollectionKindRefuel, res.Kind)
	assert.Equal(t, "94500", res.Amount.String())
	assert.Equal(t, []uint64{90000}, res.GasLimits)

	sent := f.chain.transfers()
	require.Len(t, sent, 1)
	assert.Equal(t, "0xfee", sent[0].From)
	assert.Equal(t, "fee-secret", sent[0].Secret)
	assert.Equal(t, testAddress, sent[0].To)
	assert.Empty(t, sent[0].Contract)

	row := f.store.row(testAddressID)
	assert.Equal(t, model.CollectionDone, row.CollectionState)
	assert.NotNil(t, row.GasRefueledAt)
	assert.Nil(t, row.CollectedAt)

	// the address can now pay for its sweep
	enough, err := f.policy.HasEnoughGas(context.Background(), f.target())
	require.NoError(t, err)
	assert.True(t, enough)
}

func TestRefuelGas_Abandoned(t *testing.T) {
	f := newFixture(model.CollectionPending)
	f.chain.set(testAddress, testToken, 2000)
	f.chain.sendErr = ethereum.Classify(-32000, "insufficient funds for gas * price + value", "")

	_, err := f.machine.RefuelGas(context.Background(), testAddressID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefuelAbandoned)
	assert.ErrorIs(t, err, ethereum.ErrInsufficientFunds)
	assert.Equal(t, model.CollectionPending, f.store.row(testAddressID).CollectionState)

	// the fee wallet lock is released for the next cycle
	ok, err := f.locker.Acquire(context.Background(), "refuel:fee_wallet:10", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefuelGas_ConnectionErrorIsNotAbandoned(t *testing.T) {
	f := newFixture(model.CollectionPending)
	f.chain.set(testAddress, testToken, 2000)
	f.chain.sendErr = &ethereum.Error{Kind: ethereum.ErrConnection, Message: "connection refused"}

	_, err := f.machine.RefuelGas(context.Background(), testAddressID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRefuelAbandoned))
	assert.True(t, ethereum.Retryable(err))
}

func TestRefuelGas_FeeWalletBusy(t *testing.T) {
	f := newFixture(model.CollectionPending)
	f.chain.set(testAddress, testToken, 2000)
	ok, err := f.locker.Acquire(context.Background(), "refuel:fee_wallet:10", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.machine.RefuelGas(context.Background(), testAddressID)
	assert.ErrorIs(t, err, ErrFeeWalletBusy)
	assert.Empty(t, f.chain.transfers())
	assert.Equal(t, model.CollectionPending, f.store.row(testAddressID).CollectionState)
}
