package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"deposit-collector/internal/service/mq"
	"deposit-collector/pkg/logger"
	"deposit-collector/pkg/monitor"
)

// RelayService moves outbox rows to the message bus.
// Delivery is at-least-once: a row is marked SENT only after the broker acknowledged it.
type RelayService struct {
	outbox   OutboxStore
	producer mq.Producer
	interval time.Duration
	batch    int
}

func NewRelayService(outbox OutboxStore, producer mq.Producer) *RelayService {
	return &RelayService{
		outbox:   outbox,
		producer: producer,
		interval: 500 * time.Millisecond,
		batch:    50,
	}
}

// Start polls until ctx is cancelled.
func (s *RelayService) Start(ctx context.Context) {
	logger.Info("outbox relay started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

// processPendingMessages relays one batch and returns how many rows were sent.
func (s *RelayService) processPendingMessages(ctx context.Context) int {
	messages, err := s.outbox.FetchPending(ctx, s.batch)
	if err != nil {
		logger.Error("fetch outbox messages failed", zap.Error(err))
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			logger.Warn("relay outbox message failed", zap.Uint64("id", msg.ID), zap.String("topic", msg.Topic), zap.Error(err))
			continue
		}
		// a failed update re-sends the message later, consumers are idempotent
		if err := s.outbox.MarkSent(ctx, msg.ID); err != nil {
			logger.Error("mark outbox message sent failed", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		monitor.Business.OutboxRelayedTotal.WithLabelValues(msg.Topic).Inc()
		sent++
	}
	if sent > 0 {
		logger.Debug("outbox messages relayed", zap.Int("count", sent))
	}
	return sent
}
