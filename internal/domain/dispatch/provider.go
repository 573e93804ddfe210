package dispatch

import "context"

// Sender defines the contract for an external delivery channel.
// Implementations live in infra/ (Resend for email, Twilio for SMS and WhatsApp).
type Sender interface {
	// Send delivers a rendered message and returns the provider's message ID.
	Send(ctx context.Context, msg *Message) (string, error)

	// Channel returns which delivery channel this sender handles.
	Channel() Channel
}

// Renderer defines the contract for rendering event templates.
// Implementations live in infra/template/.
type Renderer interface {
	// Render produces a subject line, HTML body, and plain-text body for the given event.
	Render(t EventType, data *TemplateData) (subject, html, text string, err error)
}

// RecipientRateLimiter defines the contract for per-recipient rate limiting.
// Implementations live in infra/ratelimit/.
type RecipientRateLimiter interface {
	// Allow reports whether another message may go to recipient on ch.
	Allow(ctx context.Context, ch Channel, recipient string) (bool, error)
}

// DeliveryRecorder persists channel attempts.
// Implementations live in infra/store/.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, log *DeliveryLog) error
}
