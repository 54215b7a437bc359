package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CollectionKindCollect = "collect"
	CollectionKindRefuel  = "refuel"
)

// Collection audits one submitted sweep or refuel transaction.
type Collection struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	DepositAddressID uint64 `gorm:"not null;index"`
	BlockchainID     uint64 `gorm:"not null"`
	Kind             string `gorm:"type:varchar(20);not null"`
	CurrencyCode     string `gorm:"type:varchar(20);not null"`

	TxID        string          `gorm:"type:varchar(66);uniqueIndex;not null"`
	FromAddress string          `gorm:"type:varchar(42);not null"`
	ToAddress   string          `gorm:"type:varchar(42);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(78,0);not null"`
	GasPrice    decimal.Decimal `gorm:"type:decimal(78,0);not null"`
	GasLimit    uint64          `gorm:"not null"`

	Status string `gorm:"type:varchar(20);not null;default:'submitted'"` // submitted, confirmed, failed

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Collection) TableName() string {
	return "collections"
}
