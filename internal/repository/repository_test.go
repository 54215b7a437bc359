package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"deposit-collector/internal/event"
	"deposit-collector/internal/model"
	"deposit-collector/internal/service/collection"
	"deposit-collector/internal/service/deposit"
	"deposit-collector/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.ConnectSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	limit := uint64(21000)
	contract := "0xDAC17F958D2EE523A2206206994597C13D831EC7"
	require.NoError(t, db.Create(&model.Blockchain{
		ID: 1, Key: "eth-mainnet", Name: "Ethereum", ServerURL: "http://node:8545", ChainID: 1,
		MinConfirmations: 6, GasFactor: decimal.RequireFromString("1.05"), FeeWalletID: 10, HotWalletID: 11,
		Status: model.BlockchainActive,
	}).Error)
	require.NoError(t, db.Create(&model.Blockchain{
		ID: 2, Key: "old-chain", Name: "Old", ServerURL: "http://old:8545", ChainID: 9,
		GasFactor: decimal.NewFromInt(1), Status: model.BlockchainDisabled,
	}).Error)
	require.NoError(t, db.Create(&[]model.BlockchainCurrency{
		{BlockchainID: 1, CurrencyCode: "usdt", ContractAddress: &contract, Decimals: 6, GasLimit: &limit},
		{BlockchainID: 1, CurrencyCode: "eth", Decimals: 18, GasLimit: &limit},
	}).Error)
	require.NoError(t, db.Create(&[]model.Wallet{
		{ID: 10, BlockchainID: 1, Kind: model.WalletKindFee, Address: "0xfee", Status: "active"},
		{ID: 11, BlockchainID: 1, Kind: model.WalletKindHot, Address: "0xhot", Status: "active"},
	}).Error)
	require.NoError(t, db.Create(&model.Member{ID: 1, UID: "ID0000000001"}).Error)
}

func TestLoadCatalog(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)

	catalog, err := LoadCatalog(context.Background(), db)
	require.NoError(t, err)

	chains := catalog.Blockchains()
	require.Len(t, chains, 1)
	assert.Equal(t, "eth-mainnet", chains[0].Key)
	assert.Equal(t, "1.05", chains[0].GasFactor.String())

	currencies := catalog.Currencies(1)
	require.Len(t, currencies, 2)
	assert.Equal(t, "eth", currencies[0].CurrencyCode)
	assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", currencies[1].Contract())

	hot, err := catalog.Wallet(11)
	require.NoError(t, err)
	assert.Equal(t, "0xhot", hot.Address)
}

func TestMemberRepository_NotFound(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	members := NewMemberRepository(db)

	m, err := members.FindByUID(context.Background(), "ID0000000001")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.ID)

	_, err = members.FindByUID(context.Background(), "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAddressRepository_LockedTransition(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	repo := NewAddressRepository(db)
	ctx := context.Background()

	addr, err := repo.FindOrCreatePlaceholder(ctx, 1, 1)
	require.NoError(t, err)
	again, err := repo.FindOrCreatePlaceholder(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, addr.ID, again.ID)

	addr.SetAddress("0xABCDEF")
	addr.Secret = "s3cret"
	require.NoError(t, repo.SetGenerated(ctx, addr))
	assert.Error(t, repo.SetGenerated(ctx, addr), "second generation must not overwrite")

	// committed
	err = repo.WithLockedAddress(ctx, addr.ID, func(tx collection.AddressTx, a *model.DepositAddress) error {
		require.NoError(t, a.Fire(model.EventCollect))
		require.NoError(t, tx.SaveCollectionState(a))
		require.NoError(t, tx.RecordCollection(&model.Collection{
			DepositAddressID: a.ID, BlockchainID: 1, Kind: model.CollectionKindCollect, CurrencyCode: "eth",
			TxID: "0x01", FromAddress: a.AddressString(), ToAddress: "0xhot",
			Amount: decimal.NewFromInt(5), GasPrice: decimal.NewFromInt(1), GasLimit: 21000, Status: "submitted",
		}))
		return tx.AppendOutbox(event.TopicCollectionEvents, "1", event.CollectionEvent{TxID: "0x01"})
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, addr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CollectionCollecting, got.CollectionState)
	assert.Equal(t, "0xabcdef", got.AddressString())

	// rolled back
	boom := errors.New("node down")
	err = repo.WithLockedAddress(ctx, addr.ID, func(tx collection.AddressTx, a *model.DepositAddress) error {
		require.NoError(t, a.Fire(model.EventFinish))
		require.NoError(t, tx.SaveCollectionState(a))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err = repo.Get(ctx, addr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CollectionCollecting, got.CollectionState)

	var collections, outbox int64
	db.Model(&model.Collection{}).Count(&collections)
	db.Model(&model.OutboxMessage{}).Count(&outbox)
	assert.Equal(t, int64(1), collections)
	assert.Equal(t, int64(1), outbox)

	_, err = repo.Get(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAddressRepository_ListSchedulable(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	require.NoError(t, db.Create(&model.Member{ID: 2, UID: "ID0000000002"}).Error)
	require.NoError(t, db.Create(&model.Member{ID: 3, UID: "ID0000000003"}).Error)
	require.NoError(t, db.Create(&model.Member{ID: 4, UID: "ID0000000004"}).Error)
	repo := NewAddressRepository(db)
	ctx := context.Background()
	now := time.Now()

	mk := func(member uint64, state model.CollectionState, address string, balances model.BalanceMap) uint64 {
		a := model.DepositAddress{MemberID: member, BlockchainID: 1, CollectionState: state, Balances: balances}
		if address != "" {
			a.SetAddress(address)
		}
		require.NoError(t, db.Create(&a).Error)
		return a.ID
	}
	pending := mk(1, model.CollectionPending, "0x01", nil)
	funded := mk(2, model.CollectionDone, "0x02", model.BalanceMap{"eth": decimal.NewFromInt(7)})
	mk(3, model.CollectionDone, "0x03", model.BalanceMap{"eth": decimal.Zero})
	mk(4, model.CollectionPending, "", nil)

	rows, err := repo.ListSchedulable(ctx, 1, now, 10)
	require.NoError(t, err)
	var ids []uint64
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []uint64{pending, funded}, ids)

	// cooldown
	require.NoError(t, repo.UpdateBalances(ctx, funded, model.BalanceMap{"eth": decimal.NewFromInt(7)}, now))
	rows, err = repo.ListSchedulable(ctx, 1, now.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pending, rows[0].ID)
}

func TestAddressRepository_ListSchedulableSkipsZeroSnapshots(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	repo := NewAddressRepository(db)
	ctx := context.Background()
	now := time.Now()
	stale := now.Add(-24 * time.Hour)

	// swept addresses holding a zero snapshot sort ahead of everything else
	for i := uint64(1); i <= 3; i++ {
		if i > 1 {
			require.NoError(t, db.Create(&model.Member{ID: i, UID: fmt.Sprintf("ID%010d", i)}).Error)
		}
		a := model.DepositAddress{
			MemberID: i, BlockchainID: 1, CollectionState: model.CollectionDone,
			Balances: model.BalanceMap{"eth": decimal.Zero}, BalancesUpdatedAt: &stale,
		}
		a.SetAddress(fmt.Sprintf("0x%02d", i))
		require.NoError(t, db.Create(&a).Error)
	}
	require.NoError(t, db.Create(&model.Member{ID: 4, UID: "ID0000000004"}).Error)
	pending := model.DepositAddress{MemberID: 4, BlockchainID: 1, CollectionState: model.CollectionPending}
	pending.SetAddress("0x04")
	require.NoError(t, db.Create(&pending).Error)

	rows, err := repo.ListSchedulable(ctx, 1, now.Add(-5*time.Minute), 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pending.ID, rows[0].ID)
}

func TestAddressRepository_UpdateBalancesDropsZeros(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	repo := NewAddressRepository(db)
	ctx := context.Background()

	a := model.DepositAddress{MemberID: 1, BlockchainID: 1, CollectionState: model.CollectionDone}
	a.SetAddress("0x01")
	require.NoError(t, db.Create(&a).Error)

	require.NoError(t, repo.UpdateBalances(ctx, a.ID, model.BalanceMap{
		"eth":  decimal.Zero,
		"usdt": decimal.NewFromInt(5),
	}, time.Now()))
	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Balances, 1)
	assert.True(t, got.Balances["usdt"].Equal(decimal.NewFromInt(5)))

	require.NoError(t, repo.UpdateBalances(ctx, a.ID, model.BalanceMap{"eth": decimal.Zero}, time.Now().Add(-time.Hour)))
	got, err = repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.HasBalances())

	rows, err := repo.ListSchedulable(ctx, 1, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBlockchainRepository_GasGuardFlag(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	repo := NewBlockchainRepository(db)
	ctx := context.Background()

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetHighGasPriceAt(ctx, 1, &at))
	chains, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	require.NotNil(t, chains[0].HighGasPriceAt)
	assert.True(t, chains[0].GasGuardActive())

	require.NoError(t, repo.SetHighGasPriceAt(ctx, 1, nil))
	chains, err = repo.ListActive(ctx)
	require.NoError(t, err)
	assert.False(t, chains[0].GasGuardActive())
}

func TestDepositRepository_FindOrCreateLocked(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	repo := NewDepositRepository(db)
	ctx := context.Background()

	newDeposit := func() *model.Deposit {
		return &model.Deposit{
			BlockchainID: 1, CurrencyCode: "eth", TxID: "0xaa", TxOut: 0, MemberID: 1,
			Address: "0x01", Amount: decimal.NewFromInt(100), Status: model.DepositSubmitted,
		}
	}

	var firstID uint64
	require.NoError(t, repo.Transaction(ctx, func(tx deposit.Tx) error {
		d, created, err := tx.FindOrCreateLocked(newDeposit())
		require.NoError(t, err)
		assert.True(t, created)
		firstID = d.ID
		return nil
	}))
	require.NoError(t, repo.Transaction(ctx, func(tx deposit.Tx) error {
		d, created, err := tx.FindOrCreateLocked(newDeposit())
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, firstID, d.ID)
		return nil
	}))

	var count int64
	require.NoError(t, db.Model(&model.Deposit{}).Where("member_id = ?", 1).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
