package ethereum

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// Transfer describes one outbound transaction. Amounts are base units.
// Contract is empty for the native coin.
type Transfer struct {
	From     string
	To       string
	Secret   string
	Contract string
	Amount   decimal.Decimal
	GasLimit uint64
	GasPrice decimal.Decimal
}

// Send submits the transfer through the node's account API, which signs it with
// the account unlocked by Secret. It returns the transaction hash.
func (c *Client) Send(ctx context.Context, t Transfer) (string, error) {
	if !t.Amount.IsPositive() {
		return "", errors.New("transfer amount must be positive")
	}

	tx := map[string]interface{}{
		"from":     t.From,
		"gas":      hexutil.EncodeUint64(t.GasLimit),
		"gasPrice": hexutil.EncodeBig(t.GasPrice.BigInt()),
	}
	if t.Contract == "" {
		tx["to"] = t.To
		tx["value"] = hexutil.EncodeBig(t.Amount.BigInt())
	} else {
		data, err := packTransfer(t.To, t.Amount.BigInt())
		if err != nil {
			return "", fmt.Errorf("pack transfer: %w", err)
		}
		tx["to"] = t.Contract
		tx["data"] = hexutil.Encode(data)
	}

	var hash string
	if err := c.Call(ctx, &hash, "personal_sendTransaction", tx, t.Secret); err != nil {
		return "", fmt.Errorf("personal_sendTransaction from %s: %w", t.From, err)
	}
	return hash, nil
}

// NewAccount creates a node-managed account protected by secret and returns its address.
func (c *Client) NewAccount(ctx context.Context, secret string) (string, error) {
	var address string
	if err := c.Call(ctx, &address, "personal_newAccount", secret); err != nil {
		return "", fmt.Errorf("personal_newAccount: %w", err)
	}
	return address, nil
}
