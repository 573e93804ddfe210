package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteFor(t *testing.T) {
	tests := []struct {
		event    EventType
		channels []Channel
		mode     Mode
		target   Target
	}{
		{EventNewOrder, []Channel{ChannelWhatsApp}, Independent, TargetAdmin},
		{EventLowStock, []Channel{ChannelEmail, ChannelWhatsApp}, Independent, TargetAdmin},
		{EventOutOfStock, []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp}, Independent, TargetAdmin},
		{EventCheckIn, []Channel{ChannelWhatsApp, ChannelSMS}, Fallback, TargetAdmin},
		{EventCheckOut, []Channel{ChannelWhatsApp, ChannelSMS}, Fallback, TargetAdmin},
		{EventIncident, []Channel{ChannelEmail, ChannelSMS}, Independent, TargetAdmin},
		{EventPaymentIssue, []Channel{ChannelEmail, ChannelSMS}, Independent, TargetAdmin},
		{EventPasswordReset, []Channel{ChannelSMS}, Independent, TargetEmployee},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			r, ok := RouteFor(tt.event)
			require.True(t, ok)
			assert.Equal(t, tt.channels, r.Channels)
			assert.Equal(t, tt.mode, r.Mode)
			assert.Equal(t, tt.target, r.Target)
		})
	}

	_, ok := RouteFor("critical_stock")
	assert.False(t, ok)
	assert.False(t, IsValidEventType("refund"))
}
