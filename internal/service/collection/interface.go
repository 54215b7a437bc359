package collection

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"deposit-collector/internal/chain/ethereum"
	"deposit-collector/internal/model"
)

// BalanceOracle reads on-chain balances and the current gas price.
type BalanceOracle interface {
	GasPrice(ctx context.Context) (decimal.Decimal, error)
	// Balance returns base units; an empty contract means the native coin
	Balance(ctx context.Context, address, contract string) (decimal.Decimal, error)
}

// Sender submits a transaction and returns its hash.
type Sender interface {
	Send(ctx context.Context, t ethereum.Transfer) (string, error)
}

// Gateway is everything collection needs from one blockchain node.
type Gateway interface {
	BalanceOracle
	Sender
}

// Gateways resolves the node gateway of a blockchain.
type Gateways interface {
	Gateway(blockchainID uint64) (Gateway, error)
}

// AddressStore persists deposit addresses.
type AddressStore interface {
	Get(ctx context.Context, id uint64) (*model.DepositAddress, error)

	// WithLockedAddress loads the address under an exclusive row lock and runs fn in the
	// same transaction. The lock is held until fn returns; an error rolls back every write.
	WithLockedAddress(ctx context.Context, id uint64, fn func(tx AddressTx, addr *model.DepositAddress) error) error

	// UpdateBalances stores the last observed balances snapshot.
	UpdateBalances(ctx context.Context, id uint64, balances model.BalanceMap, at time.Time) error
}

// AddressTx is the write side available while the address row is locked.
type AddressTx interface {
	SaveCollectionState(addr *model.DepositAddress) error
	RecordCollection(c *model.Collection) error
	AppendOutbox(topic, key string, payload interface{}) error
}

type registryGateways struct {
	registry *ethereum.Registry
}

// FromRegistry exposes the node clients as collection gateways.
func FromRegistry(r *ethereum.Registry) Gateways {
	return registryGateways{registry: r}
}

func (g registryGateways) Gateway(blockchainID uint64) (Gateway, error) {
	c, err := g.registry.Client(blockchainID)
	if err != nil {
		return nil, err
	}
	return c, nil
}
