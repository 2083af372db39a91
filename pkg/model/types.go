// Package model defines the value types shared by every layer of the engine.
//
// Types in this package carry no behaviour beyond small helpers; storage,
// services and adapters all exchange these shapes so that no package has to
// import another service package just to read its records.
package model

// Event is a single user-activity record (navigation, tab switch, ...).
//
// Timestamps are unix milliseconds. CreatedAt defines the total order of
// the event log; ties are broken by insertion order.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`

	// TabID identifies the subject of the event, usually a tab.
	TabID string `json:"tabId"`

	// Title is the page title at the time of the event.
	Title string `json:"title"`

	// URL is the page URL at the time of the event.
	URL string `json:"url"`

	// EventType classifies the event (e.g., "navigation", "tab-switch").
	EventType string `json:"eventType"`

	// Metadata is an opaque key/value payload.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the event was recorded.
	CreatedAt int64 `json:"createdAt"`

	// LastActiveAt is when the subject was last active. Fixed at creation.
	LastActiveAt int64 `json:"lastActiveAt"`
}

// MemoryKind classifies a memory entry.
type MemoryKind string

const (
	// KindChat marks a chat turn.
	KindChat MemoryKind = "chat"

	// KindPage marks captured page text.
	KindPage MemoryKind = "page"
)

// Valid reports whether k is a known kind.
func (k MemoryKind) Valid() bool {
	return k == KindChat || k == KindPage
}

// MemoryEntry is a stored piece of content, optionally carrying an embedding.
//
// The embedding may be attached after creation. Once it is non-empty it is
// never replaced.
type MemoryEntry struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Kind      MemoryKind             `json:"type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ChatID    string                 `json:"chatId,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Embedding []float64              `json:"embedding,omitempty"`
}

// Searchable reports whether the entry can take part in similarity search.
func (m *MemoryEntry) Searchable() bool {
	return len(m.Embedding) > 0
}

// TabContext is the view of one open tab inside a context snapshot.
type TabContext struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	IsActive bool   `json:"isActive"`
}

// ContextSnapshot is a point-in-time read of open tabs and recent activity.
// It is built fresh for every analysis cycle and only persisted as part of
// the suggestion it produced.
type ContextSnapshot struct {
	OpenTabs     []TabContext `json:"openTabs"`
	RecentEvents []Event      `json:"recentEvents"`
	Timestamp    int64        `json:"timestamp"`
}

// ActiveTab returns the active tab of the snapshot, if any.
func (s *ContextSnapshot) ActiveTab() (TabContext, bool) {
	for _, t := range s.OpenTabs {
		if t.IsActive {
			return t, true
		}
	}
	return TabContext{}, false
}
