package worker

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"deposit-collector/internal/service/collection"
	"deposit-collector/internal/worker/tasks"
)

// Client enqueues jobs.
type Client struct {
	client *asynq.Client
	unique time.Duration
}

// NewClient connects to the queue. unique is how long an identical collection job is deduplicated.
func NewClient(addr string, password string, db int, unique time.Duration) *Client {
	c := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{client: c, unique: unique}
}

func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.client.EnqueueContext(ctx, task, opts...)
}

// EnqueueCollection queues an address:collect job; an identical job already queued is not an error.
func (c *Client) EnqueueCollection(ctx context.Context, addressID uint64, action collection.Action) error {
	task, err := tasks.NewCollectionTask(addressID, action, c.unique)
	if err != nil {
		return err
	}
	if _, err := c.Enqueue(ctx, task); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return err
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
