package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"deposit-collector/internal/chain/ethereum"
	"deposit-collector/internal/model"
	"deposit-collector/internal/service/collection"
	"deposit-collector/pkg/logger"
)

const (
	TypeAddressCollect = "address:collect"

	collectTimeout = 2 * time.Minute
)

// CollectionPayload is the job of one address.
type CollectionPayload struct {
	AddressID uint64            `json:"address_id"`
	Action    collection.Action `json:"action"`
}

// NewCollectionTask builds a job that is never retried by the queue: the next scheduling
// cycle is the retry. unique > 0 drops duplicates of the same job for that long.
func NewCollectionTask(addressID uint64, action collection.Action, unique time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(CollectionPayload{AddressID: addressID, Action: action})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.MaxRetry(0), asynq.Timeout(collectTimeout), asynq.Queue("critical")}
	if unique > 0 {
		opts = append(opts, asynq.Unique(unique))
	}
	return asynq.NewTask(TypeAddressCollect, payload, opts...), nil
}

// Runner runs one collection job.
type Runner interface {
	Run(ctx context.Context, addressID uint64, action collection.Action) error
}

// CollectionHandler consumes address:collect jobs.
type CollectionHandler struct {
	runner Runner
}

func NewCollectionHandler(runner Runner) *CollectionHandler {
	return &CollectionHandler{runner: runner}
}

func (h *CollectionHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p CollectionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	err := h.runner.Run(ctx, p.AddressID, p.Action)
	if err == nil {
		return nil
	}

	fields := []zap.Field{
		zap.Uint64("address_id", p.AddressID),
		zap.String("action", string(p.Action)),
		zap.String("kind", ethereum.KindName(err)),
		zap.Error(err),
	}
	switch {
	case ethereum.Retryable(err), errors.Is(err, collection.ErrFeeWalletBusy):
		logger.Warn("collection job postponed to the next cycle", fields...)
	case errors.Is(err, collection.ErrMissingGasLimit), errors.Is(err, model.ErrUnknownBlockchain):
		logger.Error("collection job needs configuration", fields...)
	default:
		logger.Error("collection job failed", fields...)
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}
