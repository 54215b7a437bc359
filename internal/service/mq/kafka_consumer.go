package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"deposit-collector/pkg/logger"
)

// kafkaReader is the part of *kafka.Reader the consumer uses.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads one topic in a consumer group and commits offsets manually.
//
// Offsets are cumulative per partition, so committing a later message would acknowledge a
// failed earlier one. A failing message therefore blocks its partition: it is retried with
// growing backoff until the handler accepts it or the consumer stops.
type KafkaConsumer struct {
	groupID    string
	backoff    time.Duration
	maxBackoff time.Duration
	alertAfter int
	newReader  func(topic string) kafkaReader
	reader     kafkaReader
}

func NewKafkaConsumer(brokers []string, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		groupID:    groupID,
		backoff:    time.Second,
		maxBackoff: time.Minute,
		alertAfter: 5,
		newReader: func(topic string) kafkaReader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:     brokers,
				GroupID:     groupID,
				Topic:       topic,
				MinBytes:    10e3, // 10KB
				MaxBytes:    10e6, // 10MB
				StartOffset: kafka.FirstOffset,
			})
		},
	}
}

// Subscribe blocks until ctx is cancelled.
func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, handler Handler) error {
	c.reader = c.newReader(topic)
	defer c.reader.Close()

	logger.Info("kafka consumer started", zap.String("topic", topic), zap.String("group", c.groupID))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("kafka fetch failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		msg := &Message{
			ID:      fmt.Sprintf("%d/%d", m.Partition, m.Offset),
			Topic:   topic,
			Key:     string(m.Key),
			Payload: m.Value,
		}
		if !c.handle(ctx, msg, handler) {
			// stopped while the message was still failing; it stays uncommitted
			return nil
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			logger.Warn("kafka commit failed", zap.String("id", msg.ID), zap.Error(err))
		}
	}
}

// handle runs the handler until it succeeds. It returns false only when ctx is done.
func (c *KafkaConsumer) handle(ctx context.Context, msg *Message, handler Handler) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := handler(msg)
		if err == nil {
			return true
		}
		if attempt == c.alertAfter {
			logger.Error("kafka message keeps failing, partition blocked",
				zap.String("id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		} else {
			logger.Warn("kafka message handler failed",
				zap.String("id", msg.ID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		if wait *= 2; wait > c.maxBackoff {
			wait = c.maxBackoff
		}
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
