package queue

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/domain/dispatch"

	"github.com/hibiken/asynq"
)

var _ dispatch.Enqueuer = (*EventEnqueuer)(nil)

// QueueName is the asynq queue carrying dispatch tasks.
const QueueName = "notifications"

// NewClient creates a new asynq client connected to Redis.
func NewClient(redisAddr, password string, db int) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})
}

// NewServer creates a new asynq server connected to Redis.
func NewServer(redisAddr, password string, db int, concurrency int) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueName: 10, // priority weight
				"default": 1,
			},
			RetryDelayFunc: RetryDelay,
		},
	)
}

// maxBackoffStep caps the exponent, so the longest delay is 30s * 2^9.
const maxBackoffStep = 10

// RetryDelay backs off exponentially from 30s: 30s, 60s, 120s, ...
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	n = min(max(n, 1), maxBackoffStep)
	return time.Duration(30*(1<<uint(n-1))) * time.Second
}

// taskEnqueuer is the subset of *asynq.Client used to enqueue tasks.
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EventEnqueuer puts dispatch events on the notifications queue.
type EventEnqueuer struct {
	client   taskEnqueuer
	maxRetry int
}

// NewEventEnqueuer creates an enqueuer. maxRetry is usually 0: the polling
// interval already acts as the retry mechanism.
func NewEventEnqueuer(client *asynq.Client, maxRetry int) *EventEnqueuer {
	return &EventEnqueuer{client: client, maxRetry: maxRetry}
}

// EnqueueEvent enqueues a dispatch:event task.
func (e *EventEnqueuer) EnqueueEvent(ctx context.Context, ev *dispatch.Event) error {
	task, err := dispatch.NewDispatchEventTask(ev)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	_, err = e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(e.maxRetry),
		asynq.Queue(QueueName),
	)
	if err != nil {
		return fmt.Errorf("enqueuing task: %w", err)
	}

	return nil
}
