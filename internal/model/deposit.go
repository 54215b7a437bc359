package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Deposit is one observed on-chain transfer to a member.
// (blockchain_id, currency_code, txid, txout) is the ingestion idempotency key.
type Deposit struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockchainID  uint64          `gorm:"not null;uniqueIndex:idx_deposit_key,priority:1" json:"blockchain_id"`
	CurrencyCode  string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_deposit_key,priority:2;index:idx_deposit_group,priority:3" json:"currency"`
	TxID          string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_deposit_key,priority:3" json:"txid"`
	TxOut         int             `gorm:"not null;uniqueIndex:idx_deposit_key,priority:4" json:"txout"`
	MemberID      uint64          `gorm:"not null;index:idx_deposit_group,priority:1" json:"member_id"`
	Address       string          `gorm:"type:varchar(42);not null" json:"address"`
	Amount        decimal.Decimal `gorm:"type:decimal(78,0);not null" json:"amount"` // base units, never changes
	FromAddresses StringList      `gorm:"type:text" json:"from_addresses"`
	Confirmations int             `gorm:"not null;default:0" json:"confirmations"`
	Status        DepositStatus   `gorm:"type:varchar(20);not null;default:'submitted';index:idx_deposit_group,priority:2" json:"status"`
	ErrorLog      string          `gorm:"type:text" json:"error_log,omitempty"`
	DispatchedAt  *time.Time      `json:"dispatched_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Deposit) TableName() string {
	return "deposits"
}

// Transition moves the deposit to next if allowed.
func (d *Deposit) Transition(next DepositStatus) error {
	s, err := d.Status.To(next)
	if err != nil {
		return err
	}
	d.Status = s
	return nil
}

// AppendError adds one line to the deposit's error log.
func (d *Deposit) AppendError(line string) {
	line = strings.TrimSpace(line)
	if d.ErrorLog == "" {
		d.ErrorLog = line
		return
	}
	d.ErrorLog += "\n" + line
}
