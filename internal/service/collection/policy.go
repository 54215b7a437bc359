package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"deposit-collector/internal/model"
)

// CollectFactor is the margin a native balance must keep over the fee needed to move it.
const CollectFactor = 2

// ErrMissingGasLimit is a configuration error; it is never defaulted.
var ErrMissingGasLimit = errors.New("gas limit is not configured")

var collectFactor = decimal.NewFromInt(CollectFactor)

// Coin is a currency balance held by an address.
type Coin struct {
	Currency model.BlockchainCurrency
	Balance  decimal.Decimal
}

// Target is an address together with its chain configuration.
type Target struct {
	AddressID  uint64
	Address    string
	Blockchain model.Blockchain
	Currencies []model.BlockchainCurrency
}

// TargetFor builds the target of a deposit address from the catalog.
func TargetFor(catalog *model.Catalog, addr *model.DepositAddress) (Target, error) {
	chain, err := catalog.Blockchain(addr.BlockchainID)
	if err != nil {
		return Target{}, err
	}
	return Target{
		AddressID:  addr.ID,
		Address:    addr.AddressString(),
		Blockchain: chain,
		Currencies: catalog.Currencies(chain.ID),
	}, nil
}

func (t Target) native() (model.BlockchainCurrency, bool) {
	for _, c := range t.Currencies {
		if !c.IsToken() {
			return c, true
		}
	}
	return model.BlockchainCurrency{}, false
}

// GasLimit returns the configured limit or ErrMissingGasLimit.
func GasLimit(c model.BlockchainCurrency) (uint64, error) {
	if c.GasLimit == nil || *c.GasLimit == 0 {
		return 0, fmt.Errorf("%w: %s on blockchain %d", ErrMissingGasLimit, c.CurrencyCode, c.BlockchainID)
	}
	return *c.GasLimit, nil
}

// GasCost is gasFactor × gasPrice × gasLimit, exact.
func GasCost(chain model.Blockchain, c model.BlockchainCurrency, gasPrice decimal.Decimal) (decimal.Decimal, error) {
	limit, err := GasLimit(c)
	if err != nil {
		return decimal.Zero, err
	}
	return chain.GasFactor.Mul(gasPrice).Mul(decimal.NewFromInt(int64(limit))), nil
}

// TxGasPrice is the integral gas price put on transactions: ⌊gasFactor × gasPrice⌋, never below gasPrice.
func TxGasPrice(chain model.Blockchain, gasPrice decimal.Decimal) decimal.Decimal {
	p := chain.GasFactor.Mul(gasPrice).Floor()
	if p.LessThan(gasPrice) {
		return gasPrice
	}
	return p
}

// IsCollectable decides whether a balance is worth sweeping.
// Tokens need max(minCollection, minDeposit); the native coin needs CollectFactor × its own fee.
func IsCollectable(chain model.Blockchain, c model.BlockchainCurrency, balance, gasPrice decimal.Decimal) (bool, error) {
	if !balance.IsPositive() {
		return false, nil
	}
	if c.IsToken() {
		return balance.GreaterThanOrEqual(decimal.Max(c.MinCollectionAmount, c.MinDepositAmount)), nil
	}
	cost, err := GasCost(chain, c, gasPrice)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(cost.Mul(collectFactor)), nil
}

// PreferTokens drops the native coin when at least one token is present, so the
// gas reserve needed for token transfers is never swept away.
func PreferTokens(coins []Coin) []Coin {
	hasToken := false
	for _, c := range coins {
		if c.Currency.IsToken() {
			hasToken = true
			break
		}
	}
	if !hasToken {
		return coins
	}
	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if c.Currency.IsToken() {
			out = append(out, c)
		}
	}
	return out
}

// Evaluation is one consistent view of an address: a single gas price read and one balance read per currency.
type Evaluation struct {
	Target        Target
	GasPrice      decimal.Decimal
	Balances      model.BalanceMap
	NativeBalance decimal.Decimal
	Collectable   []Coin
	RequiredGas   decimal.Decimal
}

// HasEnoughGas reports whether the address can pay for its own sweep.
func (e *Evaluation) HasEnoughGas() bool {
	return e.NativeBalance.GreaterThanOrEqual(e.RequiredGas)
}

// GasLimits lists the gas limits of the collectable coins, in order.
func (e *Evaluation) GasLimits() []uint64 {
	out := make([]uint64, 0, len(e.Collectable))
	for _, c := range e.Collectable {
		if c.Currency.GasLimit != nil {
			out = append(out, *c.Currency.GasLimit)
		}
	}
	return out
}

// Policy evaluates addresses against their chain configuration.
type Policy struct {
	gateways Gateways
}

func NewPolicy(gateways Gateways) *Policy {
	return &Policy{gateways: gateways}
}

// Evaluate reads the gas price and balances and applies the collection rules.
func (p *Policy) Evaluate(ctx context.Context, t Target) (*Evaluation, error) {
	gw, err := p.gateways.Gateway(t.Blockchain.ID)
	if err != nil {
		return nil, err
	}

	// 1. gas price, read once per evaluation
	gasPrice, err := gw.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	// 2. balances of every configured currency
	e := &Evaluation{Target: t, GasPrice: gasPrice, Balances: make(model.BalanceMap, len(t.Currencies))}
	nativeSeen := false
	var coins []Coin
	for _, c := range t.Currencies {
		balance, err := gw.Balance(ctx, t.Address, c.Contract())
		if err != nil {
			return nil, err
		}
		e.Balances[c.CurrencyCode] = balance
		if !c.IsToken() {
			e.NativeBalance = balance
			nativeSeen = true
		}

		ok, err := IsCollectable(t.Blockchain, c, balance, gasPrice)
		if err != nil {
			return nil, err
		}
		if ok {
			coins = append(coins, Coin{Currency: c, Balance: balance})
		}
	}
	if !nativeSeen {
		if e.NativeBalance, err = gw.Balance(ctx, t.Address, ""); err != nil {
			return nil, err
		}
	}

	// 3. tokens win over the native coin, then sum the fees
	e.Collectable = PreferTokens(coins)
	e.RequiredGas = decimal.Zero
	for _, c := range e.Collectable {
		cost, err := GasCost(t.Blockchain, c.Currency, gasPrice)
		if err != nil {
			return nil, err
		}
		e.RequiredGas = e.RequiredGas.Add(cost)
	}
	return e, nil
}

// CollectableCoins returns the balances worth sweeping, tokens preferred.
func (p *Policy) CollectableCoins(ctx context.Context, t Target) ([]Coin, error) {
	e, err := p.Evaluate(ctx, t)
	if err != nil {
		return nil, err
	}
	return e.Collectable, nil
}

// RequiredGasToCollect sums the gas cost of every collectable coin.
func (p *Policy) RequiredGasToCollect(ctx context.Context, t Target) (decimal.Decimal, error) {
	e, err := p.Evaluate(ctx, t)
	if err != nil {
		return decimal.Zero, err
	}
	return e.RequiredGas, nil
}

// HasEnoughGas compares the native balance with RequiredGasToCollect.
func (p *Policy) HasEnoughGas(ctx context.Context, t Target) (bool, error) {
	e, err := p.Evaluate(ctx, t)
	if err != nil {
		return false, err
	}
	return e.HasEnoughGas(), nil
}
