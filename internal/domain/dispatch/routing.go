package dispatch

// Mode controls how the channels of a route are attempted.
type Mode int

const (
	// Independent attempts every channel regardless of the others.
	Independent Mode = iota

	// Fallback attempts channels in order and stops at the first delivery.
	Fallback
)

// Target selects whose contact details a route delivers to.
type Target int

const (
	// TargetAdmin uses the recipients of the admin notification settings.
	TargetAdmin Target = iota

	// TargetEmployee uses the phone number carried by the event payload.
	TargetEmployee
)

// Route is the static channel plan of one event type.
type Route struct {
	Channels []Channel
	Mode     Mode
	Target   Target
}

var routes = map[EventType]Route{
	EventNewOrder:      {Channels: []Channel{ChannelWhatsApp}},
	EventLowStock:      {Channels: []Channel{ChannelEmail, ChannelWhatsApp}},
	EventOutOfStock:    {Channels: []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp}},
	EventCheckIn:       {Channels: []Channel{ChannelWhatsApp, ChannelSMS}, Mode: Fallback},
	EventCheckOut:      {Channels: []Channel{ChannelWhatsApp, ChannelSMS}, Mode: Fallback},
	EventIncident:      {Channels: []Channel{ChannelEmail, ChannelSMS}},
	EventPaymentIssue:  {Channels: []Channel{ChannelEmail, ChannelSMS}},
	EventPasswordReset: {Channels: []Channel{ChannelSMS}, Target: TargetEmployee},
}

// RouteFor returns the route of an event type.
func RouteFor(t EventType) (Route, bool) {
	r, ok := routes[t]
	return r, ok
}

// IsValidEventType checks whether an event type has a route.
func IsValidEventType(t EventType) bool {
	_, ok := routes[t]
	return ok
}
