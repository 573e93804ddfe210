package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"backoffice/internal/common"
	"backoffice/internal/domain/dispatch"
)

var _ dispatch.Sender = (*Sender)(nil)

const apiBase = "https://api.twilio.com/2010-04-01"

// E.164: a plus sign followed by up to 15 digits.
var phoneRe = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Credentials identify a Twilio account.
type Credentials struct {
	AccountSID string
	AuthToken  string
}

// Sender delivers SMS or WhatsApp messages through the Twilio Messages
// API. Without credentials or a sender number it runs in testing mode:
// messages are logged and reported as sent.
type Sender struct {
	channel    dispatch.Channel
	creds      Credentials
	from       string
	prefix     string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) { s.httpClient = c }
}

// NewSMSSender creates a Twilio SMS sender.
func NewSMSSender(creds Credentials, from string, opts ...Option) *Sender {
	return newSender(dispatch.ChannelSMS, creds, from, "", opts)
}

// NewWhatsAppSender creates a Twilio WhatsApp sender. Numbers are given in
// E.164 form; the whatsapp: address prefix is added on the wire.
func NewWhatsAppSender(creds Credentials, from string, opts ...Option) *Sender {
	return newSender(dispatch.ChannelWhatsApp, creds, from, "whatsapp:", opts)
}

func newSender(ch dispatch.Channel, creds Credentials, from, prefix string, opts []Option) *Sender {
	s := &Sender{
		channel:    ch,
		creds:      creds,
		from:       from,
		prefix:     prefix,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Channel returns the channel this sender handles.
func (s *Sender) Channel() dispatch.Channel {
	return s.channel
}

// TestingMode reports whether the sender only logs messages.
func (s *Sender) TestingMode() bool {
	return s.creds.AccountSID == "" || s.creds.AuthToken == "" || s.from == ""
}

// Send delivers msg.Text to msg.To and returns the Twilio message SID.
func (s *Sender) Send(ctx context.Context, msg *dispatch.Message) (string, error) {
	if msg.Text == "" {
		return "", common.NewFieldError("message", "message is required")
	}
	if !phoneRe.MatchString(msg.To) {
		return "", common.NewFieldError("phone", "invalid phone number format, must be international (+1234567890)")
	}

	if s.TestingMode() {
		slog.Info("testing mode: message not sent", "channel", s.channel, "to", msg.To)
		return fmt.Sprintf("test_%s_%d", s.channel, s.now().UnixMilli()), nil
	}

	form := url.Values{}
	form.Set("To", s.prefix+msg.To)
	form.Set("From", s.prefix+s.from)
	form.Set("Body", msg.Text)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", apiBase, s.creds.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(s.creds.AccountSID, s.creds.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", common.NewProviderError("twilio", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &result)

	if resp.StatusCode >= 400 {
		m := result.Message
		if m == "" {
			m = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", common.NewProviderStatusError("twilio", resp.StatusCode, m)
	}

	if result.SID == "" {
		return "", common.NewProviderError("twilio", "response carried no message sid")
	}
	return result.SID, nil
}
