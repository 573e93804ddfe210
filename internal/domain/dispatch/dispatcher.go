package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backoffice/internal/common"

	"github.com/google/uuid"
)

// Dispatcher fans an event out to the channels of its route. Each channel
// attempt is independent: a failure is logged and recorded but never
// aborts the others.
type Dispatcher struct {
	settings SettingsProvider
	renderer Renderer
	senders  map[Channel]Sender
	limiter  RecipientRateLimiter
	recorder DeliveryRecorder
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRateLimiter enables per-recipient rate limiting.
func WithRateLimiter(l RecipientRateLimiter) Option {
	return func(d *Dispatcher) { d.limiter = l }
}

// WithRecorder persists every attempt to a delivery log.
func WithRecorder(r DeliveryRecorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher creates a dispatcher for the given senders.
func NewDispatcher(settings SettingsProvider, renderer Renderer, senders []Sender, opts ...Option) *Dispatcher {
	sm := make(map[Channel]Sender, len(senders))
	for _, s := range senders {
		sm[s.Channel()] = s
	}

	d := &Dispatcher{
		settings: settings,
		renderer: renderer,
		senders:  sm,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes an event to its channels. It returns an error only when
// nothing could be attempted: unknown type, missing admin settings, or a
// template failure. Channel failures are reported in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) (*Result, error) {
	start := d.now()

	route, ok := RouteFor(ev.Type)
	if !ok {
		return nil, common.NewFieldError("type", fmt.Sprintf("unknown event type: %s", ev.Type))
	}

	settings, err := d.settings.AdminSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading admin settings: %w", err)
	}

	data := NormalizePayload(ev)
	subject, html, text, err := d.renderer.Render(ev.Type, data)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", ev.Type, err)
	}

	result := &Result{Type: ev.Type}
	for _, ch := range route.Channels {
		recipient := settings.Recipient(ch)
		if route.Target == TargetEmployee {
			recipient = data.EmployeePhone
		}

		msg := &Message{To: recipient, Subject: subject, HTML: html, Text: text}
		attempt := d.attempt(ctx, ch, settings.Enabled(ch), msg)
		d.record(ctx, ev.Type, attempt)

		result.Attempts = append(result.Attempts, attempt)
		if attempt.Status == AttemptSent {
			result.Sent = true
			if route.Mode == Fallback {
				break
			}
		}
	}

	slog.Info("event dispatched",
		"type", ev.Type,
		"source", ev.Source,
		"sent", result.Sent,
		"attempts", len(result.Attempts),
		"duration", time.Since(start),
	)

	return result, nil
}

func (d *Dispatcher) attempt(ctx context.Context, ch Channel, enabled bool, msg *Message) Attempt {
	a := Attempt{Channel: ch, Recipient: msg.To}

	if !enabled || msg.To == "" {
		a.Status = AttemptSkipped
		return a
	}

	sender, ok := d.senders[ch]
	if !ok {
		a.Status = AttemptFailed
		a.Error = fmt.Sprintf("no sender configured for channel %s", ch)
		return a
	}

	if d.limiter != nil {
		allowed, err := d.limiter.Allow(ctx, ch, msg.To)
		if err != nil {
			// Fail open.
			slog.Warn("recipient rate limiter unavailable", "channel", ch, "error", err)
		} else if !allowed {
			a.Status = AttemptRateLimited
			a.Error = "recipient rate limit exceeded"
			slog.Warn("recipient rate limited", "channel", ch, "to", msg.To)
			return a
		}
	}

	providerID, err := sender.Send(ctx, msg)
	if err != nil {
		a.Status = AttemptFailed
		a.Error = err.Error()
		slog.Error("channel delivery failed", "channel", ch, "to", msg.To, "error", err)
		return a
	}

	a.Status = AttemptSent
	a.ProviderID = providerID
	return a
}

func (d *Dispatcher) record(ctx context.Context, t EventType, a Attempt) {
	if d.recorder == nil {
		return
	}

	log := &DeliveryLog{
		ID:         uuid.NewString(),
		EventType:  t,
		Channel:    a.Channel,
		Recipient:  a.Recipient,
		Status:     a.Status,
		ProviderID: a.ProviderID,
		Error:      a.Error,
		CreatedAt:  d.now().UTC(),
	}
	if err := d.recorder.RecordDelivery(ctx, log); err != nil {
		slog.Error("failed to record delivery", "channel", a.Channel, "error", err)
	}
}
