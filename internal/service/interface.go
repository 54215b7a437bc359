package service

import (
	"context"
	"time"

	"deposit-collector/internal/model"
	"deposit-collector/internal/service/collection"
)

// OutboxStore is the relay's view of the outbox table.
type OutboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id uint64) error
}

// ChainStore reads blockchains with their current gas price guard flag.
type ChainStore interface {
	ListActive(ctx context.Context) ([]model.Blockchain, error)
	SetHighGasPriceAt(ctx context.Context, id uint64, at *time.Time) error
}

// SchedulableAddresses lists addresses a collection job may start for.
type SchedulableAddresses interface {
	ListSchedulable(ctx context.Context, blockchainID uint64, before time.Time, limit int) ([]model.DepositAddress, error)
}

// CollectionEnqueuer hands a collection job to the worker pool.
// Enqueueing a job that is already queued is not an error.
type CollectionEnqueuer interface {
	EnqueueCollection(ctx context.Context, addressID uint64, action collection.Action) error
}
