package dispatch

import "context"

// Settings are the admin's per-channel notification preferences.
type Settings struct {
	UserID          string `json:"user_id"`
	EmailEnabled    bool   `json:"email_enabled"`
	Email           string `json:"email"`
	SMSEnabled      bool   `json:"sms_enabled"`
	SMSPhone        string `json:"sms_phone"`
	WhatsAppEnabled bool   `json:"whatsapp_enabled"`
	WhatsAppPhone   string `json:"whatsapp_phone"`
}

// Enabled reports whether the admin has switched a channel on.
func (s *Settings) Enabled(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return s.EmailEnabled
	case ChannelSMS:
		return s.SMSEnabled
	case ChannelWhatsApp:
		return s.WhatsAppEnabled
	default:
		return false
	}
}

// Recipient returns the admin address configured for a channel.
func (s *Settings) Recipient(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return s.Email
	case ChannelSMS:
		return s.SMSPhone
	case ChannelWhatsApp:
		return s.WhatsAppPhone
	default:
		return ""
	}
}

// SettingsProvider loads the admin notification settings.
// Implementations live in infra/store/.
type SettingsProvider interface {
	AdminSettings(ctx context.Context) (*Settings, error)
}
