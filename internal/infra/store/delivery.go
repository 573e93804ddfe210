package store

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/domain/dispatch"
)

var _ dispatch.DeliveryRecorder = (*SupabaseStore)(nil)

// deliveryRow is the notification_logs representation.
type deliveryRow struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Channel      string  `json:"channel"`
	Recipient    string  `json:"recipient"`
	Status       string  `json:"status"`
	ProviderID   *string `json:"provider_id,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at"`
	SentAt       *string `json:"sent_at,omitempty"`
}

// RecordDelivery appends a channel attempt to the delivery log.
func (s *SupabaseStore) RecordDelivery(ctx context.Context, log *dispatch.DeliveryLog) error {
	_, _, err := s.client.From(deliveryTable).Insert(deliveryToRow(log), false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("inserting delivery log: %w", err)
	}
	return nil
}

func deliveryToRow(log *dispatch.DeliveryLog) deliveryRow {
	created := log.CreatedAt.UTC().Format(time.RFC3339Nano)
	row := deliveryRow{
		ID:        log.ID,
		Type:      string(log.EventType),
		Channel:   string(log.Channel),
		Recipient: log.Recipient,
		Status:    string(log.Status),
		CreatedAt: created,
	}
	if log.ProviderID != "" {
		row.ProviderID = &log.ProviderID
	}
	if log.Error != "" {
		row.ErrorMessage = &log.Error
	}
	if log.Status == dispatch.AttemptSent {
		row.SentAt = &created
	}
	return row
}
