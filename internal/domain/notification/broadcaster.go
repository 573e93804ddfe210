package notification

import (
	"log/slog"
	"sync"
	"time"
)

// SoundProfile describes the audible cue a client plays for a category.
type SoundProfile struct {
	Frequencies []int `json:"frequencies"`
	DurationMS  int   `json:"duration_ms"`
}

var sounds = map[Category]SoundProfile{
	CategoryNewOrder:     {Frequencies: []int{600, 800, 1000}, DurationMS: 400},
	CategoryOutOfStock:   {Frequencies: []int{1000, 800, 600, 400}, DurationMS: 600},
	CategoryLowStock:     {Frequencies: []int{800, 600, 800}, DurationMS: 500},
	CategoryIncident:     {Frequencies: []int{400, 400, 400}, DurationMS: 700},
	CategoryPaymentIssue: {Frequencies: []int{1000, 500, 1000, 500}, DurationMS: 800},
}

// Event is what stream subscribers receive for each new notification.
// Sound is nil while the previous cue is still playing.
type Event struct {
	Notification Notification  `json:"notification"`
	Counts       Counts        `json:"counts"`
	Sound        *SoundProfile `json:"sound,omitempty"`
}

// Broadcaster fans new notifications out to live stream subscribers.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
	buffer      int
	counts      func() Counts
	now         func() time.Time
	soundUntil  time.Time
}

var _ Alerter = (*Broadcaster)(nil)

// NewBroadcaster creates a broadcaster. counts supplies the badge state
// attached to every event and may be nil.
func NewBroadcaster(counts func() Counts) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[int]chan Event),
		buffer:      16,
		counts:      counts,
		now:         time.Now,
	}
}

// Subscribe registers a new listener. The returned cancel function must be
// called to release it.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Alert publishes a notification to every subscriber without blocking;
// slow subscribers lose events.
func (b *Broadcaster) Alert(n Notification) {
	ev := Event{Notification: n}
	if b.counts != nil {
		ev.Counts = b.counts()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if profile, ok := sounds[n.Category]; ok && !now.Before(b.soundUntil) {
		ev.Sound = &profile
		b.soundUntil = now.Add(time.Duration(profile.DurationMS) * time.Millisecond)
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping notification event for slow subscriber", "subscriber", id, "id", n.ID)
		}
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
