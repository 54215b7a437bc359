package collection

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deposit-collector/internal/model"
)

func TestIsCollectable_Native(t *testing.T) {
	catalog := testCatalog()
	chain, _ := catalog.Blockchain(testChainID)
	native, _ := catalog.Native(testChainID)
	price := decimal.NewFromInt(1)

	cost, err := GasCost(chain, native, price)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.NewFromInt(22050)))

	tests := []struct {
		balance int64
		want    bool
	}{
		{0, false},
		{22050, false},
		{44099, false},
		{44100, true},
		{1000000, true},
	}
	for _, tt := range tests {
		ok, err := IsCollectable(chain, native, decimal.NewFromInt(tt.balance), price)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "balance %d", tt.balance)
	}
}

func TestIsCollectable_Token(t *testing.T) {
	catalog := testCatalog()
	chain, _ := catalog.Blockchain(testChainID)
	token, err := catalog.Currency(testChainID, "usdt")
	require.NoError(t, err)

	price := decimal.NewFromInt(1)
	for balance, want := range map[int64]bool{0: false, 500: false, 999: false, 1000: true} {
		ok, err := IsCollectable(chain, token, decimal.NewFromInt(balance), price)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "balance %d", balance)
	}

	// the deposit minimum wins when it is the larger one
	token.MinDepositAmount = decimal.NewFromInt(5000)
	ok, err := IsCollectable(chain, token, decimal.NewFromInt(4999), price)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGasLimit_NotDefaulted(t *testing.T) {
	catalog := testCatalog()
	chain, _ := catalog.Blockchain(testChainID)
	native, _ := catalog.Native(testChainID)
	native.GasLimit = nil

	_, err := GasCost(chain, native, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrMissingGasLimit)

	_, err = IsCollectable(chain, native, decimal.NewFromInt(100000), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrMissingGasLimit)
}

func TestTxGasPrice(t *testing.T) {
	chain, _ := testCatalog().Blockchain(testChainID)

	assert.Equal(t, "1", TxGasPrice(chain, decimal.NewFromInt(1)).String())
	assert.Equal(t, "1050", TxGasPrice(chain, decimal.NewFromInt(1000)).String())
	assert.Equal(t, "10", TxGasPrice(chain, decimal.NewFromInt(10)).String())
}

func TestPreferTokens(t *testing.T) {
	catalog := testCatalog()
	native, _ := catalog.Native(testChainID)
	token, _ := catalog.Currency(testChainID, "usdt")

	onlyNative := []Coin{{Currency: native, Balance: decimal.NewFromInt(1)}}
	assert.Equal(t, onlyNative, PreferTokens(onlyNative))

	mixed := []Coin{
		{Currency: native, Balance: decimal.NewFromInt(1)},
		{Currency: token, Balance: decimal.NewFromInt(2)},
	}
	got := PreferTokens(mixed)
	require.Len(t, got, 1)
	assert.Equal(t, "usdt", got[0].Currency.CurrencyCode)

	assert.Empty(t, PreferTokens(nil))
}

func TestPolicy_Evaluate(t *testing.T) {
	f := newFixture(model.CollectionNone)
	f.chain.set(testAddress, "", 50000)
	f.chain.set(testAddress, testToken, 2000)

	e, err := f.policy.Evaluate(context.Background(), f.target())
	require.NoError(t, err)

	assert.Equal(t, "50000", e.Balances["eth"].String())
	assert.Equal(t, "2000", e.Balances["usdt"].String())
	require.Len(t, e.Collectable, 1)
	assert.Equal(t, "usdt", e.Collectable[0].Currency.CurrencyCode)
	assert.Equal(t, "94500", e.RequiredGas.String())
	assert.False(t, e.HasEnoughGas())
	assert.Equal(t, []uint64{90000}, e.GasLimits())

	enough, err := f.policy.HasEnoughGas(context.Background(), f.target())
	require.NoError(t, err)
	assert.False(t, enough)

	f.chain.set(testAddress, "", 94500)
	enough, err = f.policy.HasEnoughGas(context.Background(), f.target())
	require.NoError(t, err)
	assert.True(t, enough)
}

func TestPolicy_NothingCollectable(t *testing.T) {
	f := newFixture(model.CollectionNone)
	f.chain.set(testAddress, "", 44099)

	coins, err := f.policy.CollectableCoins(context.Background(), f.target())
	require.NoError(t, err)
	assert.Empty(t, coins)

	required, err := f.policy.RequiredGasToCollect(context.Background(), f.target())
	require.NoError(t, err)
	assert.True(t, required.IsZero())
}
