package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backoffice/internal/domain/notification"

	"github.com/supabase-community/postgrest-go"
)

var _ notification.Repository = (*SupabaseStore)(nil)

// notificationRow is the app_notifications representation.
type notificationRow struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Section   string         `json:"section"`
	Source    *string        `json:"source,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt string         `json:"created_at,omitempty"`
}

// Insert persists a newly created notification.
func (s *SupabaseStore) Insert(ctx context.Context, n notification.Notification) error {
	_, _, err := s.client.From(notificationsTable).Insert(notificationToRow(n), false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// MarkRead flags a single notification as read.
func (s *SupabaseStore) MarkRead(ctx context.Context, id string) error {
	_, _, err := s.client.From(notificationsTable).
		Update(map[string]any{"read": true}, "minimal", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// MarkSectionRead flags every unread notification of a section as read.
func (s *SupabaseStore) MarkSectionRead(ctx context.Context, section notification.Section) error {
	_, _, err := s.client.From(notificationsTable).
		Update(map[string]any{"read": true}, "minimal", "").
		Eq("section", string(section)).
		Eq("read", "false").
		Execute()
	if err != nil {
		return fmt.Errorf("marking section read: %w", err)
	}
	return nil
}

// MarkAllRead flags every unread notification as read.
func (s *SupabaseStore) MarkAllRead(ctx context.Context) error {
	_, _, err := s.client.From(notificationsTable).
		Update(map[string]any{"read": true}, "minimal", "").
		Eq("read", "false").
		Execute()
	if err != nil {
		return fmt.Errorf("marking all read: %w", err)
	}
	return nil
}

// DeleteOlderThan removes notifications created before cutoff.
func (s *SupabaseStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	_, _, err := s.client.From(notificationsTable).
		Delete("minimal", "").
		Lt("created_at", cutoff.UTC().Format(time.RFC3339Nano)).
		Execute()
	if err != nil {
		return fmt.Errorf("deleting old notifications: %w", err)
	}
	return nil
}

// Recent returns the newest notifications, newest first.
func (s *SupabaseStore) Recent(ctx context.Context, limit int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = notification.DefaultCapacity
	}

	data, _, err := s.client.From(notificationsTable).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(0, limit-1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	var rows []notificationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing notifications: %w", err)
	}

	out := make([]notification.Notification, 0, len(rows))
	for i := range rows {
		out = append(out, rowToNotification(&rows[i]))
	}
	return out, nil
}

// UnreadCounts derives unread counters from the full table.
func (s *SupabaseStore) UnreadCounts(ctx context.Context) (notification.Counts, error) {
	data, _, err := s.client.From(notificationsTable).
		Select("section", "", false).
		Eq("read", "false").
		Execute()
	if err != nil {
		return notification.Counts{}, fmt.Errorf("counting unread notifications: %w", err)
	}

	var rows []struct {
		Section string `json:"section"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return notification.Counts{}, fmt.Errorf("parsing unread notifications: %w", err)
	}

	sections := make([]string, 0, len(rows))
	for _, r := range rows {
		sections = append(sections, r.Section)
	}
	return countSections(sections), nil
}

// countSections tallies unread rows per section; unknown sections count as general.
func countSections(sections []string) notification.Counts {
	c := notification.Counts{Sections: make(map[notification.Section]int, len(notification.Sections))}
	for _, sec := range notification.Sections {
		c.Sections[sec] = 0
	}
	for _, raw := range sections {
		sec := notification.Section(raw)
		if !notification.IsValidSection(sec) {
			sec = notification.SectionGeneral
		}
		c.Sections[sec]++
		c.Unread++
	}
	return c
}

func notificationToRow(n notification.Notification) notificationRow {
	row := notificationRow{
		ID:        n.ID,
		Type:      string(n.Category),
		Title:     n.Title,
		Message:   n.Message,
		Section:   string(n.Section),
		Data:      n.Data,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if n.Source != "" {
		row.Source = &n.Source
	}
	return row
}

func rowToNotification(row *notificationRow) notification.Notification {
	n := notification.Notification{
		ID:       row.ID,
		Category: notification.Category(row.Type),
		Title:    row.Title,
		Message:  row.Message,
		Section:  notification.Section(row.Section),
		Data:     row.Data,
		Read:     row.Read,
	}
	if !notification.IsValidSection(n.Section) {
		n.Section = notification.SectionGeneral
	}
	if row.Source != nil {
		n.Source = *row.Source
	}
	if row.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
			n.CreatedAt = t
		}
	}
	return n
}
