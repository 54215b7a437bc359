package deposit

import (
	"context"

	"github.com/shopspring/decimal"

	"deposit-collector/internal/model"
)

// Store persists deposits. Every write of one notification happens inside Transaction.
type Store interface {
	FindMemberByUID(ctx context.Context, uid string) (*model.Member, error)
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side of one ingestion transaction.
type Tx interface {
	// FindOrCreateLocked inserts d unless its idempotency key exists, then returns the
	// stored row under an exclusive lock. created reports whether d was inserted.
	FindOrCreateLocked(d *model.Deposit) (stored *model.Deposit, created bool, err error)

	// SkippedForUpdate locks the member's skipped deposits of one currency on one blockchain.
	SkippedForUpdate(memberID, blockchainID uint64, currency string, excludeID uint64) ([]model.Deposit, error)

	Save(d *model.Deposit) error

	// MarkAddressPending fires pend on the member's deposit address when its state allows it.
	MarkAddressPending(memberID, blockchainID uint64) error

	AppendOutbox(topic, key string, payload interface{}) error
}

func sumAmounts(deposits []model.Deposit) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deposits {
		total = total.Add(d.Amount)
	}
	return total
}
