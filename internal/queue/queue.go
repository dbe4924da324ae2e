package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the narrow interface the webhook handler and processors
// use to schedule work, so tests can substitute a recording fake.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// Client wraps an asynq client behind an explicit lifecycle: new it
// on startup, close it on shutdown. Nothing here is a process-wide
// singleton.
type Client struct {
	inner *asynq.Client
}

func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{inner: asynq.NewClient(redisOpt)}
}

// Enqueue submits a task and returns the broker-assigned job ID.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (string, error) {
	info, err := c.inner.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.inner.Close()
}

// RetryDelay implements the queue backoff policy: exponential,
// starting at one second (1s, 2s, 4s, ...). Installed on the worker
// server.
func RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	return time.Duration(1<<uint(n)) * time.Second
}
