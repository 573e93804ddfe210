package dispatch

import "time"

// Channel represents an external delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// EventType identifies a business event that is fanned out to channels.
type EventType string

const (
	EventNewOrder      EventType = "new_order"
	EventLowStock      EventType = "low_stock"
	EventOutOfStock    EventType = "out_of_stock"
	EventCheckIn       EventType = "check_in"
	EventCheckOut      EventType = "check_out"
	EventIncident      EventType = "incident"
	EventPaymentIssue  EventType = "payment_issue"
	EventPasswordReset EventType = "password_reset"
)

// Event is a dispatch request. Data is the raw payload of the producer,
// either a WooCommerce object or an internal shape; see NormalizePayload.
type Event struct {
	Type    EventType      `json:"type" binding:"required"`
	Data    map[string]any `json:"data"`
	Title   string         `json:"title,omitempty"`
	Message string         `json:"message,omitempty"`
	Section string         `json:"section,omitempty"`
	Source  string         `json:"source,omitempty"`
}

// Message is a rendered message ready to be handed to a Sender.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// AttemptStatus is the outcome of a single channel attempt.
type AttemptStatus string

const (
	AttemptSent        AttemptStatus = "sent"
	AttemptFailed      AttemptStatus = "failed"
	AttemptSkipped     AttemptStatus = "skipped"
	AttemptRateLimited AttemptStatus = "rate_limited"
)

// Attempt records what happened on one channel.
type Attempt struct {
	Channel    Channel       `json:"channel"`
	Recipient  string        `json:"recipient,omitempty"`
	Status     AttemptStatus `json:"status"`
	ProviderID string        `json:"provider_id,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Result is the outcome of dispatching one event. Sent is true when at
// least one channel delivered.
type Result struct {
	Type     EventType `json:"type"`
	Sent     bool      `json:"sent"`
	Attempts []Attempt `json:"attempts"`
}

// DeliveryLog is the persisted audit row of a channel attempt.
type DeliveryLog struct {
	ID         string        `json:"id"`
	EventType  EventType     `json:"event_type"`
	Channel    Channel       `json:"channel"`
	Recipient  string        `json:"recipient"`
	Status     AttemptStatus `json:"status"`
	ProviderID string        `json:"provider_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
