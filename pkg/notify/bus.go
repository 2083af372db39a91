// Package notify delivers engine events to the UI layer.
package notify

import "sync"

// Kind names a notification.
type Kind string

const (
	// SuggestionCreated is published after a new suggestion is persisted.
	SuggestionCreated Kind = "suggestion_created"

	// EntriesUpdated is published after a memory entry is added.
	EntriesUpdated Kind = "entries_updated"
)

// Event is a single notification. Payload is the created suggestion or
// entry; consumers must treat it as read-only.
type Event struct {
	Kind    Kind        `json:"kind"`
	ID      string      `json:"id"`
	Payload interface{} `json:"payload,omitempty"`
}

// Notifier receives engine notifications. Publish must not block.
type Notifier interface {
	Publish(evt Event) bool
}

// Bus is an in-process pub-sub. Every subscriber owns a buffered channel
// and receives its own copy of each event. Delivery is at most once: a
// subscriber whose buffer is full misses the event, and events published
// while nobody is subscribed are dropped.
type Bus struct {
	buffer int

	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBus creates a bus whose subscribers buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		buffer: buffer,
		subs:   make(map[chan Event]struct{}),
	}
}

// Publish offers the event to every subscriber without blocking.
// Returns true if at least one subscriber received it.
func (b *Bus) Publish(evt Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := false
	for ch := range b.subs {
		select {
		case ch <- evt:
			delivered = true
		default:
		}
	}
	return delivered
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of registered subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Discard is a Notifier that drops everything.
type Discard struct{}

// Publish implements Notifier.
func (Discard) Publish(Event) bool { return false }
