package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"backoffice/internal/common"

	"github.com/hibiken/asynq"
)

// EventDispatcher delivers a single event.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev *Event) (*Result, error)
}

var _ EventDispatcher = (*Dispatcher)(nil)

// Worker processes dispatch tasks from the queue.
type Worker struct {
	dispatcher EventDispatcher
}

// NewWorker creates a new dispatch worker.
func NewWorker(dispatcher EventDispatcher) *Worker {
	return &Worker{dispatcher: dispatcher}
}

// ProcessTask handles a dispatch:event task. Channel failures do not fail
// the task; malformed tasks are not retried.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ev, err := ParseDispatchEventPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	result, err := w.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		var validation *common.ValidationError
		if errors.As(err, &validation) {
			slog.Error("dropping invalid dispatch task", "type", ev.Type, "error", err)
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if !result.Sent {
		slog.Warn("event reached no channel", "type", ev.Type, "attempts", len(result.Attempts))
	}
	return nil
}
