package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backoffice/internal/common"
)

// Service orchestrates in-app notifications: the in-memory Store is the
// source of the unread badges, writes are mirrored to the Repository when
// one is configured, and every new notification fires the Alerter.
type Service struct {
	store   *Store
	repo    Repository
	alerter Alerter
}

// NewService creates a new notification service. repo and alerter may be nil.
func NewService(store *Store, repo Repository, alerter Alerter) *Service {
	return &Service{
		store:   store,
		repo:    repo,
		alerter: alerter,
	}
}

// Add validates and stores a notification, then fires the alert.
func (s *Service) Add(ctx context.Context, in Input) (Notification, error) {
	if !IsValidCategory(in.Category) {
		return Notification{}, common.NewFieldError("type", fmt.Sprintf("unsupported notification type: %s", in.Category))
	}
	if in.Section != "" && !IsValidSection(in.Section) {
		return Notification{}, common.NewFieldError("section", fmt.Sprintf("unknown section: %s", in.Section))
	}

	n := s.store.Add(in)

	if s.repo != nil {
		if err := s.repo.Insert(ctx, n); err != nil {
			slog.Error("failed to persist notification", "id", n.ID, "error", err)
		}
	}

	if s.alerter != nil {
		s.alerter.Alert(n)
	}

	slog.Info("notification added",
		"id", n.ID,
		"type", n.Category,
		"section", n.Section,
		"source", n.Source,
	)

	return n, nil
}

// Simulate adds the canned test notification for a category.
func (s *Service) Simulate(ctx context.Context, category Category) (Notification, error) {
	in, ok := SimulatedInput(category)
	if !ok {
		return Notification{}, common.NewFieldError("type", fmt.Sprintf("unsupported notification type: %s", category))
	}
	return s.Add(ctx, in)
}

// MarkRead marks one notification as read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	if _, ok := s.store.Get(id); !ok {
		return common.NewNotFoundError("notification", id)
	}

	if !s.store.MarkRead(id) {
		return nil // already read
	}

	if s.repo != nil {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			slog.Error("failed to persist read flag", "id", id, "error", err)
		}
	}
	return nil
}

// MarkSectionRead marks every notification of a section as read.
func (s *Service) MarkSectionRead(ctx context.Context, section Section) (int, error) {
	if !IsValidSection(section) {
		return 0, common.NewFieldError("section", fmt.Sprintf("unknown section: %s", section))
	}

	affected := s.store.MarkSectionRead(section)

	if s.repo != nil {
		if err := s.repo.MarkSectionRead(ctx, section); err != nil {
			slog.Error("failed to persist section read", "section", section, "error", err)
		}
	}
	return affected, nil
}

// MarkAllRead marks every notification as read.
func (s *Service) MarkAllRead(ctx context.Context) int {
	affected := s.store.MarkAllRead()

	if s.repo != nil {
		if err := s.repo.MarkAllRead(ctx); err != nil {
			slog.Error("failed to persist mark all read", "error", err)
		}
	}
	return affected
}

// PurgeOlderThan drops notifications older than window from the store and
// the repository.
func (s *Service) PurgeOlderThan(ctx context.Context, window time.Duration) int {
	removed := s.store.PurgeOlderThan(window)

	if s.repo != nil {
		if err := s.repo.DeleteOlderThan(ctx, time.Now().Add(-window)); err != nil {
			slog.Error("failed to purge persisted notifications", "window", window, "error", err)
		}
	}
	return removed
}

// List returns the visible notifications and the current counters.
func (s *Service) List() *ListResponse {
	return &ListResponse{
		Notifications: s.store.List(),
		Counts:        s.store.Counts(),
	}
}

// Counts returns the current unread counters.
func (s *Service) Counts() Counts {
	return s.store.Counts()
}

// Hydrate loads the most recent persisted notifications and the full-table
// unread counts into the store. It is a no-op without a repository.
func (s *Service) Hydrate(ctx context.Context, limit int) error {
	if s.repo == nil {
		return nil
	}

	items, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("loading recent notifications: %w", err)
	}

	counts, err := s.repo.UnreadCounts(ctx)
	if err != nil {
		return fmt.Errorf("loading unread counts: %w", err)
	}

	s.store.Restore(items, counts)
	slog.Info("notification store hydrated", "items", len(items), "unread", counts.Sum())
	return nil
}
