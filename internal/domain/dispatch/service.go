package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"backoffice/internal/common"
	"backoffice/internal/domain/notification"
)

// Enqueuer hands events to the asynchronous dispatch queue.
// Implementations live in infra/queue/.
type Enqueuer interface {
	EnqueueEvent(ctx context.Context, ev *Event) error
}

// Notifier records in-app notifications.
type Notifier interface {
	Add(ctx context.Context, in notification.Input) (notification.Notification, error)
}

// Service accepts events from HTTP producers.
type Service struct {
	enqueuer Enqueuer
	notifier Notifier
}

// NewService creates a new dispatch service. notifier may be nil.
func NewService(enqueuer Enqueuer, notifier Notifier) *Service {
	return &Service{
		enqueuer: enqueuer,
		notifier: notifier,
	}
}

// Enqueue validates an event and queues it for delivery. WooCommerce
// events that carry a title, message and section also produce an in-app
// notification.
func (s *Service) Enqueue(ctx context.Context, ev *Event) error {
	if !IsValidEventType(ev.Type) {
		return common.NewFieldError("type", fmt.Sprintf("unknown event type: %s", ev.Type))
	}
	if ev.Source == "" {
		ev.Source = "internal"
	}

	if s.notifier != nil && ev.Source == "woocommerce" && ev.Title != "" && ev.Message != "" && ev.Section != "" {
		_, err := s.notifier.Add(ctx, notification.Input{
			Category: notification.Category(ev.Type),
			Title:    ev.Title,
			Message:  ev.Message,
			Section:  notification.Section(ev.Section),
			Source:   ev.Source,
			Data:     ev.Data,
		})
		if err != nil {
			slog.Warn("in-app notification not added", "type", ev.Type, "error", err)
		}
	}

	if err := s.enqueuer.EnqueueEvent(ctx, ev); err != nil {
		return fmt.Errorf("enqueuing %s event: %w", ev.Type, err)
	}

	slog.Info("event queued", "type", ev.Type, "source", ev.Source)
	return nil
}
