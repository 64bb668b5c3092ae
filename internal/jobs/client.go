package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Client submits sync tasks to the queue. It implements port.SyncEnqueuer.
type Client struct {
	client *asynq.Client
}

func NewClient(redisOpts asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueSync schedules a sync of accountID.
func (c *Client) EnqueueSync(ctx context.Context, accountID string) error {
	task, err := NewAccountSyncTask(accountID)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue sync for %s: %w", accountID, err)
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
