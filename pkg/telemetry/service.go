// Package telemetry records user activity into a bounded, ordered event log.
//
// Every Append is followed by a synchronous retention sweep that deletes the
// oldest events beyond the configured ceiling. The sweep never fails the
// append: a failed sweep is logged and retried on the next append.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"

	"github.com/blueberry-browser/blueberry-go/pkg/metrics"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
	"github.com/blueberry-browser/blueberry-go/pkg/storage"
)

const (
	// DefaultMaxRetention is the default ceiling on stored events.
	DefaultMaxRetention = 2000

	// DefaultListLimit is the page size used when ListOptions.Limit is unset.
	DefaultListLimit = 100
)

// EventInput is the caller-supplied part of an event.
type EventInput struct {
	TabID     string
	Title     string
	URL       string
	EventType string
	Metadata  map[string]interface{}

	// LastActiveAt defaults to the assigned creation time when zero.
	LastActiveAt int64
}

// ListOptions selects a page of events.
type ListOptions struct {
	EventType string
	Limit     int
	Offset    int
}

// EventPage is one page of events, newest first.
type EventPage struct {
	Entries []*model.Event `json:"entries"`
	Total   int            `json:"total"`
	HasMore bool           `json:"hasMore"`
}

// Option configures a Service.
type Option func(*Service)

// WithMaxRetention sets the event ceiling. Values below 1 are ignored.
func WithMaxRetention(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetention = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithNodeID sets the snowflake node used for event IDs.
func WithNodeID(id int64) Option {
	return func(s *Service) {
		s.nodeID = id
	}
}

// Service is the event log.
//
// Append and its retention sweep run under the write lock, so a reader never
// observes more than the ceiling once Append has returned.
type Service struct {
	store        storage.EventStore
	node         *snowflake.Node
	nodeID       int64
	maxRetention int
	log          zerolog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	mu          sync.RWMutex
	lastCreated int64
}

// NewService creates an event log over store.
func NewService(store storage.EventStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, model.NewEngineError("NewService", fmt.Errorf("%w: event store is nil", model.ErrInvalidConfig))
	}

	s := &Service{
		store:        store,
		nodeID:       1,
		maxRetention: DefaultMaxRetention,
		log:          zerolog.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	node, err := snowflake.NewNode(s.nodeID)
	if err != nil {
		return nil, model.NewEngineError("NewService", err)
	}
	s.node = node

	return s, nil
}

// MaxRetention returns the configured ceiling.
func (s *Service) MaxRetention() int {
	return s.maxRetention
}

// Append records an event and enforces the retention ceiling.
func (s *Service) Append(ctx context.Context, in EventInput) (*model.Event, error) {
	if in.TabID == "" || in.EventType == "" {
		return nil, model.NewEngineError("Append", fmt.Errorf("%w: tabId and eventType are required", model.ErrInvalidInput))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().UnixMilli()
	if createdAt < s.lastCreated {
		createdAt = s.lastCreated
	}

	event := &model.Event{
		ID:           s.node.Generate().String(),
		TabID:        in.TabID,
		Title:        in.Title,
		URL:          in.URL,
		EventType:    in.EventType,
		Metadata:     in.Metadata,
		CreatedAt:    createdAt,
		LastActiveAt: in.LastActiveAt,
	}
	if event.LastActiveAt == 0 {
		event.LastActiveAt = createdAt
	}

	if err := s.store.InsertEvent(ctx, event); err != nil {
		return nil, model.NewStorageError("Append", err)
	}
	s.lastCreated = createdAt
	s.metrics.EventAppended()

	s.sweep(ctx)

	return event, nil
}

// sweep trims the log to the ceiling. Callers hold the write lock.
func (s *Service) sweep(ctx context.Context) {
	removed, err := s.store.EvictOldestEvents(ctx, s.maxRetention)
	if err != nil {
		s.metrics.EvictionFailed()
		s.log.Warn().Err(err).Int("max_retention", s.maxRetention).Msg("event retention sweep failed; will retry on next append")
		return
	}
	if removed > 0 {
		s.metrics.EventsEvicted(removed)
		s.log.Debug().Int64("removed", removed).Msg("evicted old events")
	}
}

// List returns a page of events, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) (*EventPage, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	events, total, err := s.store.ListEvents(ctx, &storage.EventQuery{
		EventType: opts.EventType,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	})
	if err != nil {
		return nil, model.NewStorageError("List", err)
	}
	if events == nil {
		events = []*model.Event{}
	}

	return &EventPage{
		Entries: events,
		Total:   total,
		HasMore: opts.Offset+len(events) < total,
	}, nil
}

// RecentSince returns events created within window of now, oldest first.
func (s *Service) RecentSince(ctx context.Context, window time.Duration) ([]model.Event, error) {
	since := s.now().Add(-window).UnixMilli()

	s.mu.RLock()
	defer s.mu.RUnlock()

	events, err := s.store.EventsSince(ctx, since)
	if err != nil {
		return nil, model.NewStorageError("RecentSince", err)
	}

	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		out = append(out, *e)
	}
	return out, nil
}

// Count returns the number of stored events.
func (s *Service) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.store.CountEvents(ctx)
	if err != nil {
		return 0, model.NewStorageError("Count", err)
	}
	return n, nil
}
