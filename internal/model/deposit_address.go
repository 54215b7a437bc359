package model

import (
	"strings"
	"time"
)

// DepositAddress is the address of one member on one blockchain.
// CollectionState is only mutated while the row is locked.
type DepositAddress struct {
	ID                uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID          uint64          `gorm:"not null;uniqueIndex:idx_member_blockchain" json:"member_id"`
	BlockchainID      uint64          `gorm:"not null;uniqueIndex:idx_member_blockchain;uniqueIndex:idx_blockchain_address" json:"blockchain_id"`
	Address           *string         `gorm:"type:varchar(42);uniqueIndex:idx_blockchain_address" json:"address"`
	Secret            string          `gorm:"type:text" json:"-"`
	Details           JSONMap         `gorm:"type:text" json:"details,omitempty"`
	CollectionState   CollectionState `gorm:"type:varchar(20);not null;default:'none';index" json:"collection_state"`
	Balances          BalanceMap      `gorm:"type:text" json:"balances"`
	BalancesUpdatedAt *time.Time      `json:"balances_updated_at,omitempty"`
	CollectedAt       *time.Time      `json:"collected_at,omitempty"`
	GasRefueledAt     *time.Time      `json:"gas_refueled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (DepositAddress) TableName() string {
	return "deposit_addresses"
}

// NormalizeAddress lower-cases addresses so lookups are case-insensitive.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// AddressString returns the address or "" while it is still being generated.
func (a *DepositAddress) AddressString() string {
	if a.Address == nil {
		return ""
	}
	return *a.Address
}

// SetAddress stores the normalized form.
func (a *DepositAddress) SetAddress(addr string) {
	n := NormalizeAddress(addr)
	a.Address = &n
}

// Fire applies ev to the collection state.
func (a *DepositAddress) Fire(ev CollectionEvent) error {
	next, err := a.CollectionState.Fire(ev)
	if err != nil {
		return err
	}
	a.CollectionState = next
	return nil
}

// HasBalances reports whether the last snapshot holds anything non-zero.
func (a *DepositAddress) HasBalances() bool {
	for _, v := range a.Balances {
		if v.IsPositive() {
			return true
		}
	}
	return false
}
