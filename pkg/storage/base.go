// Package storage provides the persistence contracts for the engine.
//
// It defines one interface per record kind (events, memory entries,
// suggestions) that every backend (SQLite, PostgreSQL, MySQL) satisfies,
// along with the query option types those interfaces accept.
package storage

import (
	"context"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

// EventStore persists the activity event log.
type EventStore interface {
	// InsertEvent appends an event. The event ID must be unique.
	InsertEvent(ctx context.Context, event *model.Event) error

	// CountEvents returns the number of stored events.
	CountEvents(ctx context.Context) (int, error)

	// EvictOldestEvents deletes every event except the newest keep rows,
	// ordered by created_at then insertion order. It returns the number of
	// deleted rows.
	EvictOldestEvents(ctx context.Context, keep int) (int64, error)

	// ListEvents returns one page of events in created_at descending order
	// together with the size of the filtered set.
	ListEvents(ctx context.Context, opts *EventQuery) ([]*model.Event, int, error)

	// EventsSince returns events with created_at >= since in ascending order.
	EventsSince(ctx context.Context, since int64) ([]*model.Event, error)
}

// MemoryStore persists memory entries and answers similarity queries.
type MemoryStore interface {
	// InsertMemory stores a new entry.
	InsertMemory(ctx context.Context, entry *model.MemoryEntry) error

	// GetMemory retrieves an entry by ID.
	GetMemory(ctx context.Context, id string) (*model.MemoryEntry, error)

	// AttachEmbedding sets the embedding of an entry whose embedding is
	// still empty. It reports whether the entry was updated.
	AttachEmbedding(ctx context.Context, id string, embedding []float64) (bool, error)

	// SelectMemories returns entries matching the kind/time selector in
	// timestamp descending order. Limit <= 0 returns every match.
	SelectMemories(ctx context.Context, q *MemoryQuery) ([]*model.MemoryEntry, error)

	// CountMemories returns the number of entries matching the selector.
	CountMemories(ctx context.Context, q *MemoryQuery) (int, error)

	// SearchMemories performs similarity search against the stored
	// embeddings and returns at most limit entries with a positive score,
	// highest first.
	SearchMemories(ctx context.Context, embedding []float64, limit int) ([]*ScoredMemory, error)
}

// SuggestionStore persists suggestions and their lifecycle.
type SuggestionStore interface {
	// InsertSuggestion stores a new suggestion. Hash values are unique.
	InsertSuggestion(ctx context.Context, s *model.Suggestion) error

	// GetSuggestion retrieves a suggestion by ID.
	GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error)

	// GetSuggestionByHash retrieves a suggestion by its content hash.
	GetSuggestionByHash(ctx context.Context, hash string) (*model.Suggestion, error)

	// ListSuggestions returns suggestions newest first, optionally filtered
	// by status (empty status returns all).
	ListSuggestions(ctx context.Context, status model.SuggestionStatus) ([]*model.Suggestion, error)

	// TransitionSuggestion moves a suggestion from one status to another.
	// It reports false when the suggestion was not in the from status.
	TransitionSuggestion(ctx context.Context, id string, from, to model.SuggestionStatus) (bool, error)

	// ExpireSuggestions marks pending suggestions created before the given
	// time as expired and returns how many changed.
	ExpireSuggestions(ctx context.Context, before int64) (int64, error)
}

// Store is the full persistence surface used by the engine.
type Store interface {
	EventStore
	MemoryStore
	SuggestionStore

	// Close closes the store and releases resources.
	Close() error
}

// EventQuery contains options for ListEvents.
type EventQuery struct {
	// EventType filters by exact event type when non-empty.
	EventType string

	// Limit sets the maximum number of results to return.
	Limit int

	// Offset sets the number of results to skip.
	Offset int
}

// MemoryQuery is the primary selector for memory entries.
type MemoryQuery struct {
	// Kind filters by entry kind when non-empty.
	Kind model.MemoryKind

	// StartTime filters to timestamp >= StartTime when non-zero.
	StartTime int64

	// EndTime filters to timestamp <= EndTime when non-zero.
	EndTime int64

	// Limit sets the maximum number of results to return (<= 0 means all).
	Limit int

	// Offset sets the number of results to skip.
	Offset int
}

// ScoredMemory is a memory entry paired with its similarity score.
type ScoredMemory struct {
	Entry *model.MemoryEntry `json:"entry"`
	Score float64            `json:"score"`
}
