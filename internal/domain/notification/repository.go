package notification

import (
	"context"
	"time"
)

// Repository is the persistence collaborator for in-app notifications
// (the app_notifications table). Implementations live in infra/store/.
type Repository interface {
	// Insert persists a newly created notification.
	Insert(ctx context.Context, n Notification) error

	// MarkRead flags a single notification as read.
	MarkRead(ctx context.Context, id string) error

	// MarkSectionRead flags every unread notification of a section as read.
	MarkSectionRead(ctx context.Context, section Section) error

	// MarkAllRead flags every unread notification as read.
	MarkAllRead(ctx context.Context) error

	// DeleteOlderThan removes notifications created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error

	// Recent returns the newest notifications, newest first.
	Recent(ctx context.Context, limit int) ([]Notification, error)

	// UnreadCounts derives unread counters from the full table.
	UnreadCounts(ctx context.Context) (Counts, error)
}

// Alerter is the side effect fired synchronously for every added
// notification (the UI sound/visual cue).
type Alerter interface {
	Alert(n Notification)
}
