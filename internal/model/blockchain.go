package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	BlockchainActive   = "active"
	BlockchainDisabled = "disabled"
)

// Blockchain is per-chain configuration. Read-mostly; only the gas price guard changes at runtime.
type Blockchain struct {
	ID               uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Key              string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"key"`
	Name             string          `gorm:"type:varchar(255);not null" json:"name"`
	ServerURL        string          `gorm:"type:varchar(255);not null" json:"-"`
	ChainID          int64           `gorm:"not null" json:"chain_id"`
	MinConfirmations int             `gorm:"not null;default:6" json:"min_confirmations"`
	GasFactor        decimal.Decimal `gorm:"type:decimal(8,4);not null;default:1.05" json:"gas_factor"`
	FeeWalletID      uint64          `gorm:"not null" json:"fee_wallet_id"`
	HotWalletID      uint64          `gorm:"not null" json:"hot_wallet_id"`
	Status           string          `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	MaxGasPrice      decimal.Decimal `gorm:"type:decimal(78,0);not null;default:0" json:"max_gas_price"` // 0 disables the guard
	HighGasPriceAt   *time.Time      `json:"high_gas_price_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Blockchain) TableName() string {
	return "blockchains"
}

// GasGuardActive reports whether collections are paused because gas is too expensive.
func (b *Blockchain) GasGuardActive() bool {
	return b.HighGasPriceAt != nil
}

// Currency is a tradable asset, possibly present on several blockchains.
type Currency struct {
	Code      string    `gorm:"primaryKey;type:varchar(20)" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Status    string    `gorm:"type:varchar(20);not null;default:'enabled'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Currency) TableName() string {
	return "currencies"
}

// BlockchainCurrency configures one currency on one blockchain. All amounts are base units.
type BlockchainCurrency struct {
	ID                  uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockchainID        uint64          `gorm:"not null;uniqueIndex:idx_blockchain_currency" json:"blockchain_id"`
	CurrencyCode        string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_blockchain_currency" json:"currency"`
	ContractAddress     *string         `gorm:"type:varchar(42)" json:"contract_address,omitempty"` // nil for the native coin
	Decimals            int32           `gorm:"not null" json:"decimals"`
	GasLimit            *uint64         `json:"gas_limit,omitempty"`
	MinDepositAmount    decimal.Decimal `gorm:"type:decimal(78,0);not null;default:0" json:"min_deposit_amount"`
	MinCollectionAmount decimal.Decimal `gorm:"type:decimal(78,0);not null;default:0" json:"min_collection_amount"`
	DepositEnabled      bool            `gorm:"not null;default:true" json:"deposit_enabled"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (BlockchainCurrency) TableName() string {
	return "blockchain_currencies"
}

// IsToken reports whether the currency is a contract token rather than the chain's native coin.
func (c *BlockchainCurrency) IsToken() bool {
	return c.ContractAddress != nil && *c.ContractAddress != ""
}

// Contract returns the lower-cased contract address, or "" for the native coin.
func (c *BlockchainCurrency) Contract() string {
	if !c.IsToken() {
		return ""
	}
	return strings.ToLower(*c.ContractAddress)
}

const (
	WalletKindDeposit = "deposit"
	WalletKindFee     = "fee"
	WalletKindHot     = "hot"
)

// Wallet is a platform-owned account. Secret is opaque and owned by the key vault.
type Wallet struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockchainID uint64    `gorm:"not null;index" json:"blockchain_id"`
	Kind         string    `gorm:"type:varchar(20);not null" json:"kind"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	Address      string    `gorm:"type:varchar(42);not null" json:"address"`
	Secret       string    `gorm:"type:text" json:"-"`
	Status       string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// Member owns deposit addresses and deposits.
type Member struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UID       string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"uid"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	State     string    `gorm:"type:varchar(20);not null;default:'active'" json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}
