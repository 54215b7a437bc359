package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"deposit-collector/internal/model"
	"deposit-collector/internal/service/collection"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/monitor"
)

const (
	// GasGuardFreshness is how long a raised flag stands before the price is read again.
	GasGuardFreshness = 5 * time.Minute
	// gasGuardHysteresis is the band around the maximum: raise above max+2%, release below max-2%.
	gasGuardHysteresis = "0.02"
)

var (
	gasGuardRaise   = decimal.NewFromInt(1).Add(decimal.RequireFromString(gasGuardHysteresis))
	gasGuardRelease = decimal.NewFromInt(1).Sub(decimal.RequireFromString(gasGuardHysteresis))
)

// GasPriceChecker pauses collections on blockchains whose gas price exceeds max_gas_price.
type GasPriceChecker struct {
	chains   ChainStore
	gateways collection.Gateways
	now      func() time.Time
}

func NewGasPriceChecker(chains ChainStore, gateways collection.Gateways) *GasPriceChecker {
	return &GasPriceChecker{chains: chains, gateways: gateways, now: time.Now}
}

// CheckAll evaluates every active blockchain. Node failures on one chain do not stop the others.
func (c *GasPriceChecker) CheckAll(ctx context.Context) error {
	chains, err := c.chains.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, chain := range chains {
		if err := c.Check(ctx, chain); err != nil {
			logger.Warn("gas price check failed", zap.String("blockchain", chain.Key), zap.Error(err))
		}
	}
	return nil
}

// Check raises or clears the guard flag of one blockchain.
func (c *GasPriceChecker) Check(ctx context.Context, chain model.Blockchain) error {
	gauge := monitor.Business.GasPriceGuardActive.WithLabelValues(chain.Key)
	now := c.now()

	if !chain.MaxGasPrice.IsPositive() {
		gauge.Set(0)
		if chain.GasGuardActive() {
			return c.chains.SetHighGasPriceAt(ctx, chain.ID, nil)
		}
		return nil
	}
	if chain.GasGuardActive() && now.Sub(*chain.HighGasPriceAt) < GasGuardFreshness {
		gauge.Set(1)
		return nil
	}

	gw, err := c.gateways.Gateway(chain.ID)
	if err != nil {
		return err
	}
	price, err := gw.GasPrice(ctx)
	if err != nil {
		return err
	}

	switch {
	case price.GreaterThan(chain.MaxGasPrice.Mul(gasGuardRaise)):
		logger.Warn("gas price above maximum, collections paused",
			zap.String("blockchain", chain.Key),
			zap.String("gas_price", price.String()),
			zap.String("max_gas_price", chain.MaxGasPrice.String()),
		)
		gauge.Set(1)
		return c.chains.SetHighGasPriceAt(ctx, chain.ID, &now)
	case price.LessThan(chain.MaxGasPrice.Mul(gasGuardRelease)):
		gauge.Set(0)
		if chain.GasGuardActive() {
			logger.Info("gas price back to normal, collections resumed",
				zap.String("blockchain", chain.Key),
				zap.String("gas_price", price.String()),
			)
			return c.chains.SetHighGasPriceAt(ctx, chain.ID, nil)
		}
	}
	return nil
}
