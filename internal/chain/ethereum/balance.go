package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// GasPrice reads the node's current gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (decimal.Decimal, error) {
	var price hexutil.Big
	if err := c.Call(ctx, &price, "eth_gasPrice"); err != nil {
		return decimal.Zero, fmt.Errorf("eth_gasPrice: %w", err)
	}
	return decimal.NewFromBigInt((*big.Int)(&price), 0), nil
}

// Balance returns the base-unit balance of address. An empty contract reads the native coin.
func (c *Client) Balance(ctx context.Context, address, contract string) (decimal.Decimal, error) {
	if contract == "" {
		return c.nativeBalance(ctx, address)
	}
	return c.tokenBalance(ctx, address, contract)
}

func (c *Client) nativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var balance hexutil.Big
	if err := c.Call(ctx, &balance, "eth_getBalance", address, "latest"); err != nil {
		return decimal.Zero, fmt.Errorf("eth_getBalance %s: %w", address, err)
	}
	return decimal.NewFromBigInt((*big.Int)(&balance), 0), nil
}

func (c *Client) tokenBalance(ctx context.Context, address, contract string) (decimal.Decimal, error) {
	data, err := packBalanceOf(address)
	if err != nil {
		return decimal.Zero, err
	}

	var out hexutil.Bytes
	call := map[string]interface{}{
		"to":   contract,
		"data": hexutil.Encode(data),
	}
	if err := c.Call(ctx, &out, "eth_call", call, "latest"); err != nil {
		return decimal.Zero, fmt.Errorf("eth_call balanceOf %s on %s: %w", address, contract, err)
	}

	balance, err := unpackBalance(out)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(balance, 0), nil
}
