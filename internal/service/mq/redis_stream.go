package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"deposit-collector/pkg/logger"
)

// RedisProducer publishes to Redis Streams, one stream per topic.
type RedisProducer struct {
	client *redis.Client
}

func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		logger.Error("redis stream publish failed", zap.String("topic", topic), zap.Error(err))
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

// Close is a no-op, the client is shared.
func (p *RedisProducer) Close() error {
	return nil
}

// RedisConsumer reads a stream in a consumer group. Failed entries stay in the
// pending list and are retried after claimIdle.
type RedisConsumer struct {
	client    *redis.Client
	group     string
	name      string
	claimIdle time.Duration
}

func NewRedisConsumer(client *redis.Client, group, name string) *RedisConsumer {
	return &RedisConsumer{client: client, group: group, name: name, claimIdle: time.Minute}
}

func (c *RedisConsumer) Subscribe(ctx context.Context, topic string, handler Handler) error {
	// XGROUP CREATE <stream> <group> 0 MKSTREAM
	err := c.client.XGroupCreateMkStream(ctx, topic, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	logger.Info("redis stream consumer started", zap.String("topic", topic), zap.String("group", c.group))

	for {
		if ctx.Err() != nil {
			return nil
		}

		c.reclaim(ctx, topic, handler)

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{topic, ">"},
			Count:    10,
			Block:    2 * time.Second,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("redis stream read failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, x := range stream.Messages {
				c.deliver(ctx, topic, x, handler)
			}
		}
	}
}

// reclaim re-delivers entries that stayed unacknowledged longer than claimIdle.
func (c *RedisConsumer) reclaim(ctx context.Context, topic string, handler Handler) {
	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   topic,
		Group:    c.group,
		Consumer: c.name,
		MinIdle:  c.claimIdle,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Debug("redis stream autoclaim failed", zap.Error(err))
		}
		return
	}
	for _, x := range msgs {
		c.deliver(ctx, topic, x, handler)
	}
}

func (c *RedisConsumer) deliver(ctx context.Context, topic string, x redis.XMessage, handler Handler) {
	payload, ok := x.Values["payload"].(string)
	if !ok {
		logger.Error("redis stream entry without payload", zap.String("id", x.ID))
		c.ack(ctx, topic, x.ID)
		return
	}
	key, _ := x.Values["key"].(string)

	msg := &Message{ID: x.ID, Topic: topic, Key: key, Payload: []byte(payload)}
	if err := handler(msg); err != nil {
		logger.Warn("redis stream handler failed", zap.String("id", x.ID), zap.Error(err))
		return
	}
	c.ack(ctx, topic, x.ID)
}

func (c *RedisConsumer) ack(ctx context.Context, topic, id string) {
	if err := c.client.XAck(ctx, topic, c.group, id).Err(); err != nil {
		logger.Warn("redis stream ack failed", zap.String("id", id), zap.Error(err))
	}
}

// Close is a no-op, the client is shared.
func (c *RedisConsumer) Close() error {
	return nil
}
