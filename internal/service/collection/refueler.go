package collection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"deposit-collector/internal/chain/ethereum"
	"deposit-collector/internal/model"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/monitor"
	"deposit-collector/pkg/utils/lock"
)

var (
	// ErrRefuelAbandoned wraps a classified node failure; the next scheduled cycle tries again.
	ErrRefuelAbandoned = errors.New("gas refuel abandoned")
	// ErrFeeWalletBusy means another refuel from the same fee wallet is in flight.
	ErrFeeWalletBusy = errors.New("fee wallet busy")
)

// Refueler funds deposit addresses from the fee wallet so they can pay for their sweep.
type Refueler struct {
	policy   *Policy
	gateways Gateways
	locker   lock.DistributedLock
	lockTTL  time.Duration
}

func NewRefueler(policy *Policy, gateways Gateways, locker lock.DistributedLock, lockTTL time.Duration) *Refueler {
	return &Refueler{policy: policy, gateways: gateways, locker: locker, lockTTL: lockTTL}
}

// Refuel sends RequiredGasToCollect to the address in a single transaction.
// Refuels sharing a fee wallet are serialized so their nonces never collide.
func (r *Refueler) Refuel(ctx context.Context, t Target, fee model.Wallet) (*Result, error) {
	// 1. one refuel per fee wallet at a time
	lockKey := "refuel:fee_wallet:" + strconv.FormatUint(fee.ID, 10)
	locked, err := r.locker.Acquire(ctx, lockKey, r.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", lockKey, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrFeeWalletBusy, fee.Address)
	}
	defer func() {
		if err := r.locker.Release(context.Background(), lockKey); err != nil {
			logger.Warn("release fee wallet lock failed", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	// 2. how much gas the pending sweeps need
	e, err := r.policy.Evaluate(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(e.Collectable) == 0 {
		logger.Warn("nothing to refuel for", zap.Uint64("address_id", t.AddressID))
		return nil, nil
	}

	native, ok := t.native()
	if !ok {
		return nil, fmt.Errorf("%w: no native currency on %s", ErrMissingGasLimit, t.Blockchain.Key)
	}
	limit, err := GasLimit(native)
	if err != nil {
		return nil, err
	}
	amount := e.RequiredGas.Ceil()
	txGasPrice := TxGasPrice(t.Blockchain, e.GasPrice)

	// 3. one transfer from the fee wallet
	gw, err := r.gateways.Gateway(t.Blockchain.ID)
	if err != nil {
		return nil, err
	}
	txid, err := gw.Send(ctx, ethereum.Transfer{
		From:     fee.Address,
		To:       t.Address,
		Secret:   fee.Secret,
		Amount:   amount,
		GasLimit: limit,
		GasPrice: txGasPrice,
	})
	if err != nil {
		if abandon(err) {
			r.report(t, fee, err)
			return nil, fmt.Errorf("%w: %w", ErrRefuelAbandoned, err)
		}
		return nil, fmt.Errorf("refuel %s from fee wallet %s: %w", t.Address, fee.Address, err)
	}

	logger.Info("gas refuel submitted",
		zap.Uint64("address_id", t.AddressID),
		zap.String("amount", amount.String()),
		zap.String("txid", txid),
	)
	return &Result{
		Kind:      model.CollectionKindRefuel,
		TxID:      txid,
		Currency:  native.CurrencyCode,
		Amount:    amount,
		From:      fee.Address,
		To:        t.Address,
		GasPrice:  txGasPrice,
		GasLimit:  limit,
		GasLimits: e.GasLimits(),
	}, nil
}

// abandon reports whether err needs an operator rather than another try.
func abandon(err error) bool {
	return errors.Is(err, ethereum.ErrInsufficientFunds) ||
		errors.Is(err, ethereum.ErrInsufficientGasLimit) ||
		errors.Is(err, ethereum.ErrExecution)
}

func (r *Refueler) report(t Target, fee model.Wallet, err error) {
	monitor.Business.RefuelFailuresTotal.WithLabelValues(t.Blockchain.Key, ethereum.KindName(err)).Inc()
	logger.Error("gas refuel failed",
		zap.Uint64("address_id", t.AddressID),
		zap.String("fee_wallet", fee.Address),
		zap.String("blockchain", t.Blockchain.Key),
		zap.Error(err),
	)
}
