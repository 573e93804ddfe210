package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"backoffice/internal/common"
	"backoffice/internal/domain/dispatch"
)

var _ dispatch.Sender = (*ResendSender)(nil)

const (
	resendURL          = "https://api.resend.com/emails"
	defaultFromAddress = "onboarding@resend.dev"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ResendSender sends emails using the Resend API. Without an API key it
// runs in development mode: messages are logged and reported as sent.
type ResendSender struct {
	apiKey      string
	fromAddress string
	fromName    string
	httpClient  *http.Client
	now         func() time.Time
}

// Option configures a ResendSender.
type Option func(*ResendSender)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *ResendSender) { s.httpClient = c }
}

// NewResendSender creates a new Resend email sender.
func NewResendSender(apiKey, fromAddress, fromName string, opts ...Option) *ResendSender {
	if fromAddress == "" {
		fromAddress = defaultFromAddress
	}
	s := &ResendSender{
		apiKey:      apiKey,
		fromAddress: fromAddress,
		fromName:    fromName,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Channel returns the email channel identifier.
func (s *ResendSender) Channel() dispatch.Channel {
	return dispatch.ChannelEmail
}

// DevMode reports whether the sender only logs messages.
func (s *ResendSender) DevMode() bool {
	return s.apiKey == ""
}

// Send delivers an email via the Resend API and returns the message ID.
func (s *ResendSender) Send(ctx context.Context, msg *dispatch.Message) (string, error) {
	if !emailRe.MatchString(msg.To) {
		return "", common.NewFieldError("to", "invalid email format")
	}
	if msg.Subject == "" {
		return "", common.NewFieldError("subject", "subject is required")
	}

	body := msg.HTML
	if body == "" {
		body = strings.ReplaceAll(html.EscapeString(msg.Text), "\n", "<br>")
	}

	if s.DevMode() {
		slog.Info("development mode: email not sent", "to", msg.To, "subject", msg.Subject)
		return fmt.Sprintf("dev_email_%d", s.now().UnixMilli()), nil
	}

	from := s.fromAddress
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}

	payload := map[string]any{
		"from":    from,
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"html":    body,
	}
	if msg.Text != "" {
		payload["text"] = msg.Text
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", common.NewProviderError("resend", err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		m := errResp.Message
		if m == "" {
			m = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", common.NewProviderStatusError("resend", resp.StatusCode, m)
	}

	var successResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &successResp); err != nil {
		return "", fmt.Errorf("parsing resend response: %w", err)
	}

	return successResp.ID, nil
}
