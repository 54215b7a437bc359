package collection

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"deposit-collector/internal/chain/ethereum"
	"deposit-collector/internal/model"
	"deposit-collector/pkg/logger"
)

// Result describes the transaction a collect or refuel submitted.
type Result struct {
	Kind      string
	TxID      string
	Currency  string
	Amount    decimal.Decimal
	From      string
	To        string
	GasPrice  decimal.Decimal
	GasLimit  uint64
	GasLimits []uint64 // refuel only: the sweeps the gas was sent for
}

// Collector sweeps deposit addresses into the hot wallet.
type Collector struct {
	policy   *Policy
	gateways Gateways
}

func NewCollector(policy *Policy, gateways Gateways) *Collector {
	return &Collector{policy: policy, gateways: gateways}
}

// Sweep submits at most one transaction from the address to the hot wallet.
// It returns nil when nothing is worth collecting.
func (c *Collector) Sweep(ctx context.Context, t Target, secret string, hot model.Wallet) (*Result, error) {
	// 1. fresh balances under the caller's lock
	e, err := c.policy.Evaluate(ctx, t)
	if err != nil {
		return nil, err
	}

	// 2. one entry only: a second concurrent transaction from the same account would race on the nonce
	coins := PreferTokens(e.Collectable)
	if len(coins) == 0 {
		logger.Warn("nothing to collect",
			zap.Uint64("address_id", t.AddressID),
			zap.String("address", t.Address),
		)
		return nil, nil
	}
	coin := coins[0]

	limit, err := GasLimit(coin.Currency)
	if err != nil {
		return nil, err
	}
	txGasPrice := TxGasPrice(t.Blockchain, e.GasPrice)

	// 3. native sweeps pay their own fee out of the amount
	amount := coin.Balance
	if !coin.Currency.IsToken() {
		amount = amount.Sub(txGasPrice.Mul(decimal.NewFromInt(int64(limit))))
		if !amount.IsPositive() {
			logger.Warn("native balance does not cover the sweep fee",
				zap.Uint64("address_id", t.AddressID),
				zap.String("balance", coin.Balance.String()),
			)
			return nil, nil
		}
	}

	gw, err := c.gateways.Gateway(t.Blockchain.ID)
	if err != nil {
		return nil, err
	}
	txid, err := gw.Send(ctx, ethereum.Transfer{
		From:     t.Address,
		To:       hot.Address,
		Secret:   secret,
		Contract: coin.Currency.Contract(),
		Amount:   amount,
		GasLimit: limit,
		GasPrice: txGasPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("sweep %s from %s: %w", coin.Currency.CurrencyCode, t.Address, err)
	}

	logger.Info("collection submitted",
		zap.Uint64("address_id", t.AddressID),
		zap.String("currency", coin.Currency.CurrencyCode),
		zap.String("amount", amount.String()),
		zap.String("txid", txid),
	)
	return &Result{
		Kind:     model.CollectionKindCollect,
		TxID:     txid,
		Currency: coin.Currency.CurrencyCode,
		Amount:   amount,
		From:     t.Address,
		To:       hot.Address,
		GasPrice: txGasPrice,
		GasLimit: limit,
	}, nil
}
