package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"backoffice/internal/domain/dispatch"
	"backoffice/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRowConversion(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := notification.Notification{
		ID:        "ntf_1",
		Category:  notification.CategoryLowStock,
		Title:     "Low stock",
		Message:   "2 left",
		Section:   notification.SectionProducts,
		Source:    "woocommerce",
		Data:      map[string]any{"product_id": float64(7)},
		CreatedAt: created,
	}

	row := notificationToRow(n)
	assert.Equal(t, "low_stock", row.Type)
	require.NotNil(t, row.Source)

	raw, err := json.Marshal(row)
	require.NoError(t, err)
	var decoded notificationRow
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, n, rowToNotification(&decoded))
}

func TestRowToNotification_Defaults(t *testing.T) {
	n := rowToNotification(&notificationRow{ID: "x", Type: "incident", Section: "attic", CreatedAt: "garbage"})

	assert.Equal(t, notification.SectionGeneral, n.Section)
	assert.Empty(t, n.Source)
	assert.True(t, n.CreatedAt.IsZero())
}

func TestCountSections(t *testing.T) {
	c := countSections([]string{"orders", "orders", "products", "unknown", ""})

	assert.Equal(t, 5, c.Unread)
	assert.Equal(t, 2, c.Sections[notification.SectionOrders])
	assert.Equal(t, 1, c.Sections[notification.SectionProducts])
	assert.Equal(t, 2, c.Sections[notification.SectionGeneral])
	assert.Equal(t, 0, c.Sections[notification.SectionPOS])
	assert.Equal(t, c.Unread, c.Sum())
}

func TestParseSettings(t *testing.T) {
	s, err := parseSettings([]byte(`[{
		"user_id": "admin-1",
		"email_enabled": true, "email": "admin@shop.test",
		"sms_enabled": false, "sms_phone": "+34600000001",
		"whatsapp_enabled": true, "whatsapp_phone": "+34600000002",
		"created_at": "2026-01-01T00:00:00Z"
	}]`))
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.Enabled(dispatch.ChannelEmail))
	assert.False(t, s.Enabled(dispatch.ChannelSMS))
	assert.Equal(t, "+34600000002", s.Recipient(dispatch.ChannelWhatsApp))

	s, err = parseSettings([]byte(`[]`))
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = parseSettings([]byte(`{`))
	assert.Error(t, err)
}

func TestDeliveryToRow(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sent := deliveryToRow(&dispatch.DeliveryLog{
		ID: "d1", EventType: dispatch.EventNewOrder, Channel: dispatch.ChannelWhatsApp,
		Recipient: "+34600000002", Status: dispatch.AttemptSent, ProviderID: "SM1", CreatedAt: at,
	})
	require.NotNil(t, sent.SentAt)
	assert.Equal(t, "2026-03-01T12:00:00Z", *sent.SentAt)
	assert.Equal(t, "SM1", *sent.ProviderID)
	assert.Nil(t, sent.ErrorMessage)

	failed := deliveryToRow(&dispatch.DeliveryLog{
		ID: "d2", EventType: dispatch.EventIncident, Channel: dispatch.ChannelSMS,
		Status: dispatch.AttemptFailed, Error: "invalid number", CreatedAt: at,
	})
	assert.Nil(t, failed.SentAt)
	assert.Nil(t, failed.ProviderID)
	assert.Equal(t, "invalid number", *failed.ErrorMessage)
}

type countingSettings struct {
	calls int
	err   error
}

func (c *countingSettings) AdminSettings(context.Context) (*dispatch.Settings, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &dispatch.Settings{UserID: "admin-1", EmailEnabled: true}, nil
}

func TestCachedSettings(t *testing.T) {
	next := &countingSettings{}
	c := NewCachedSettings(next, time.Minute)
	ctx := t.Context()

	first, err := c.AdminSettings(ctx)
	require.NoError(t, err)
	first.EmailEnabled = false

	second, err := c.AdminSettings(ctx)
	require.NoError(t, err)
	assert.True(t, second.EmailEnabled, "callers get copies")
	assert.Equal(t, 1, next.calls)

	c.Invalidate()
	_, err = c.AdminSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedSettings_ErrorsAreNotCached(t *testing.T) {
	next := &countingSettings{err: errors.New("supabase down")}
	c := NewCachedSettings(next, time.Minute)

	_, err := c.AdminSettings(t.Context())
	require.Error(t, err)

	next.err = nil
	s, err := c.AdminSettings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "admin-1", s.UserID)
	assert.Equal(t, 2, next.calls)
}
