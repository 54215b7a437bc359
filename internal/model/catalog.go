package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownBlockchain = errors.New("unknown blockchain")
	ErrUnknownCurrency   = errors.New("unknown blockchain currency")
	ErrUnknownWallet     = errors.New("unknown wallet")

	// ErrNotFound is returned by repositories for a missing row.
	ErrNotFound = errors.New("record not found")
)

// Catalog is the immutable reference data loaded once at startup and passed to components.
type Catalog struct {
	blockchains map[uint64]Blockchain
	byKey       map[string]uint64
	currencies  map[uint64][]BlockchainCurrency
	wallets     map[uint64]Wallet
}

// NewCatalog indexes the given rows. Currencies keep native first, then by code.
func NewCatalog(blockchains []Blockchain, currencies []BlockchainCurrency, wallets []Wallet) *Catalog {
	c := &Catalog{
		blockchains: make(map[uint64]Blockchain, len(blockchains)),
		byKey:       make(map[string]uint64, len(blockchains)),
		currencies:  make(map[uint64][]BlockchainCurrency),
		wallets:     make(map[uint64]Wallet, len(wallets)),
	}
	for _, b := range blockchains {
		c.blockchains[b.ID] = b
		c.byKey[strings.ToLower(b.Key)] = b.ID
	}
	for _, bc := range currencies {
		c.currencies[bc.BlockchainID] = append(c.currencies[bc.BlockchainID], bc)
	}
	for id := range c.currencies {
		list := c.currencies[id]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].IsToken() != list[j].IsToken() {
				return !list[i].IsToken()
			}
			return list[i].CurrencyCode < list[j].CurrencyCode
		})
	}
	for _, w := range wallets {
		c.wallets[w.ID] = w
	}
	return c
}

func (c *Catalog) Blockchain(id uint64) (Blockchain, error) {
	b, ok := c.blockchains[id]
	if !ok {
		return Blockchain{}, fmt.Errorf("%w: id %d", ErrUnknownBlockchain, id)
	}
	return b, nil
}

func (c *Catalog) BlockchainByKey(key string) (Blockchain, error) {
	id, ok := c.byKey[strings.ToLower(key)]
	if !ok {
		return Blockchain{}, fmt.Errorf("%w: %q", ErrUnknownBlockchain, key)
	}
	return c.blockchains[id], nil
}

// Blockchains returns every configured chain ordered by id.
func (c *Catalog) Blockchains() []Blockchain {
	out := make([]Blockchain, 0, len(c.blockchains))
	for _, b := range c.blockchains {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Currencies returns the blockchain's currencies, native first.
func (c *Catalog) Currencies(blockchainID uint64) []BlockchainCurrency {
	return c.currencies[blockchainID]
}

func (c *Catalog) Currency(blockchainID uint64, code string) (BlockchainCurrency, error) {
	for _, bc := range c.currencies[blockchainID] {
		if strings.EqualFold(bc.CurrencyCode, code) {
			return bc, nil
		}
	}
	return BlockchainCurrency{}, fmt.Errorf("%w: %q on blockchain %d", ErrUnknownCurrency, code, blockchainID)
}

// Native returns the blockchain's native currency configuration.
func (c *Catalog) Native(blockchainID uint64) (BlockchainCurrency, error) {
	for _, bc := range c.currencies[blockchainID] {
		if !bc.IsToken() {
			return bc, nil
		}
	}
	return BlockchainCurrency{}, fmt.Errorf("%w: no native currency on blockchain %d", ErrUnknownCurrency, blockchainID)
}

func (c *Catalog) Wallet(id uint64) (Wallet, error) {
	w, ok := c.wallets[id]
	if !ok {
		return Wallet{}, fmt.Errorf("%w: id %d", ErrUnknownWallet, id)
	}
	return w, nil
}

// WalletOfKind returns the first active wallet of kind on the blockchain.
func (c *Catalog) WalletOfKind(blockchainID uint64, kind string) (Wallet, error) {
	var found *Wallet
	for id := range c.wallets {
		w := c.wallets[id]
		if w.BlockchainID != blockchainID || w.Kind != kind || w.Status != "active" {
			continue
		}
		if found == nil || w.ID < found.ID {
			found = &w
		}
	}
	if found == nil {
		return Wallet{}, fmt.Errorf("%w: no %s wallet on blockchain %d", ErrUnknownWallet, kind, blockchainID)
	}
	return *found, nil
}
