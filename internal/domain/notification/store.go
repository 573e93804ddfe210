package notification

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is how many notifications the store keeps visible.
const DefaultCapacity = 10

// Store is the in-memory in-app notification list with unread counters.
//
// The list is bounded: Add keeps only the most recent entries. Counters are
// maintained incrementally and are not touched when an entry falls off the
// end of the list, so an evicted unread entry stays counted until its
// section (or everything) is marked read.
type Store struct {
	mu       sync.Mutex
	items    []Notification // newest first
	unread   int
	sections map[Section]int
	capacity int
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCapacity overrides the number of visible notifications.
func WithCapacity(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty notification store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sections: zeroSections(),
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newID returns a time-ordered ID with a random suffix so that inserts in
// the same nanosecond never collide.
func newID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("ntf_%d_%s", now.UnixNano(), suffix)
}

// Add inserts a new unread notification at the head of the list.
func (s *Store) Add(in Input) Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	section := in.Section
	if !IsValidSection(section) {
		section = SectionGeneral
	}

	n := Notification{
		ID:        newID(now),
		Category:  in.Category,
		Title:     in.Title,
		Message:   in.Message,
		Section:   section,
		Source:    in.Source,
		Data:      in.Data,
		CreatedAt: now,
	}

	s.unread++
	s.sections[section]++

	s.items = append([]Notification{n}, s.items...)
	if len(s.items) > s.capacity {
		s.items = s.items[:s.capacity]
	}

	return n
}

// MarkRead marks a single visible notification as read. It returns false
// when the ID is unknown (or was evicted) or the entry was already read.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if s.items[i].Read {
			return false
		}
		s.items[i].Read = true
		s.unread = max(0, s.unread-1)
		s.sections[s.items[i].Section] = max(0, s.sections[s.items[i].Section]-1)
		return true
	}
	return false
}

// MarkSectionRead marks every unread entry of a section as read and zeroes
// the section counter. The total drops by the section counter, which also
// covers unread entries already evicted from the list, so the sections keep
// summing to the total. It returns the number of visible entries that changed.
func (s *Store) MarkSectionRead(section Section) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	affected := 0
	for i := range s.items {
		if s.items[i].Section == section && !s.items[i].Read {
			s.items[i].Read = true
			affected++
		}
	}

	if IsValidSection(section) {
		s.unread = max(0, s.unread-s.sections[section])
		s.sections[section] = 0
	}
	return affected
}

// MarkAllRead marks everything read and zeroes every counter. It returns the
// number of visible entries that changed.
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	affected := 0
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			affected++
		}
	}

	s.unread = 0
	s.sections = zeroSections()
	return affected
}

// PurgeOlderThan removes entries created before now-window and returns how
// many were removed. Purged unread entries are subtracted from the counters
// so they never outlive the entries they count.
func (s *Store) PurgeOlderThan(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	kept := s.items[:0]
	removed := 0
	for _, n := range s.items {
		if n.CreatedAt.Before(cutoff) {
			removed++
			if !n.Read {
				s.unread = max(0, s.unread-1)
				s.sections[n.Section] = max(0, s.sections[n.Section]-1)
			}
			continue
		}
		kept = append(kept, n)
	}
	clear(s.items[len(kept):])
	s.items = kept
	return removed
}

// Get returns a visible notification by ID.
func (s *Store) Get(id string) (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.items {
		if n.ID == id {
			return n, true
		}
	}
	return Notification{}, false
}

// List returns a copy of the visible notifications, newest first.
func (s *Store) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Counts returns the incrementally maintained counters.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Counts{Unread: s.unread, Sections: copySections(s.sections)}
}

// Recount derives counters from a full scan of the visible list. It matches
// Counts as long as no unread entry has been evicted by truncation.
func (s *Store) Recount() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Counts{Sections: zeroSections()}
	for _, n := range s.items {
		if !n.Read {
			c.Unread++
			c.Sections[n.Section]++
		}
	}
	return c
}

// Restore replaces the store contents, typically with rows loaded from the
// persistence layer at startup. Items beyond capacity are dropped. Counts may
// cover rows outside the visible window; each section counter is raised to at
// least the number of visible unread entries of that section.
func (s *Store) Restore(items []Notification, counts Counts) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) > s.capacity {
		items = items[:s.capacity]
	}
	s.items = make([]Notification, len(items))
	copy(s.items, items)

	s.sections = zeroSections()
	for sec, n := range counts.Sections {
		if IsValidSection(sec) && n > 0 {
			s.sections[sec] = n
		}
	}
	for sec, n := range visibleUnread(s.items) {
		s.sections[sec] = max(s.sections[sec], n)
	}
	s.unread = s.sumSections()
}

func visibleUnread(items []Notification) map[Section]int {
	out := make(map[Section]int)
	for _, n := range items {
		if !n.Read && IsValidSection(n.Section) {
			out[n.Section]++
		}
	}
	return out
}

func (s *Store) sumSections() int {
	total := 0
	for _, n := range s.sections {
		total += n
	}
	return total
}

func copySections(m map[Section]int) map[Section]int {
	out := make(map[Section]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
