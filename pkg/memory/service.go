// Package memory stores content memories and retrieves them by filter or by
// semantic similarity.
//
// Entries are persisted immediately. When the caller does not supply an
// embedding, one is computed in the background and attached once; until then
// the entry is listable but not searchable. An embedding failure is logged
// and leaves the entry permanently non-searchable.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blueberry-browser/blueberry-go/pkg/browser"
	"github.com/blueberry-browser/blueberry-go/pkg/embedder"
	"github.com/blueberry-browser/blueberry-go/pkg/metrics"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
	"github.com/blueberry-browser/blueberry-go/pkg/notify"
	"github.com/blueberry-browser/blueberry-go/pkg/storage"
)

const (
	// DefaultListLimit is the page size used when ListOptions.Limit is unset.
	DefaultListLimit = 50

	// DefaultSearchLimit is the result count used when SearchSimilar gets no limit.
	DefaultSearchLimit = 5

	defaultEmbedTimeout = 30 * time.Second
)

// ListOptions filters and paginates entries.
type ListOptions struct {
	Limit     int
	Offset    int
	Kind      model.MemoryKind
	Search    string
	StartTime int64
	EndTime   int64
}

// EntryPage is one page of entries, newest first.
type EntryPage struct {
	Entries []*model.MemoryEntry `json:"entries"`
	Total   int                  `json:"total"`
	HasMore bool                 `json:"hasMore"`
}

// Service is the content store.
type Service struct {
	store        storage.MemoryStore
	embedder     embedder.Provider
	log          zerolog.Logger
	metrics      *metrics.Metrics
	notifier     notify.Notifier
	embedTimeout time.Duration
	now          func() time.Time

	mu      sync.RWMutex
	onAdded func(*model.MemoryEntry)

	wg sync.WaitGroup
}

// NewService creates a content store. emb may be nil, in which case entries
// without a supplied embedding never become searchable.
func NewService(store storage.MemoryStore, emb embedder.Provider, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, model.NewEngineError("NewService", fmt.Errorf("%w: memory store is nil", model.ErrInvalidConfig))
	}

	s := &Service{
		store:        store,
		embedder:     emb,
		log:          zerolog.Nop(),
		notifier:     notify.Discard{},
		embedTimeout: defaultEmbedTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetOnAdded registers a callback invoked once after each entry is persisted.
// The callback runs on the caller's goroutine and must not block.
func (s *Service) SetOnAdded(fn func(*model.MemoryEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdded = fn
}

// Add persists a new entry.
func (s *Service) Add(ctx context.Context, content string, kind model.MemoryKind, opts ...AddOption) (*model.MemoryEntry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, model.NewEngineError("Add", fmt.Errorf("%w: content is empty", model.ErrInvalidInput))
	}
	if !kind.Valid() {
		return nil, model.NewEngineError("Add", fmt.Errorf("%w: unknown kind %q", model.ErrInvalidInput, kind))
	}

	options := applyAddOptions(opts)

	entry := &model.MemoryEntry{
		ID:        uuid.NewString(),
		Content:   content,
		Kind:      kind,
		Metadata:  options.Metadata,
		ChatID:    options.ChatID,
		Timestamp: s.now().UnixMilli(),
		Embedding: options.Embedding,
	}

	if err := s.store.InsertMemory(ctx, entry); err != nil {
		return nil, model.NewStorageError("Add", err)
	}

	s.metrics.EntryAdded(string(kind))
	s.notifier.Publish(notify.Event{Kind: notify.EntriesUpdated, ID: entry.ID, Payload: entry})

	if !entry.Searchable() && s.embedder != nil {
		s.wg.Add(1)
		go s.embed(entry.ID, content)
	}

	s.mu.RLock()
	onAdded := s.onAdded
	s.mu.RUnlock()
	if onAdded != nil {
		onAdded(entry)
	}

	return entry, nil
}

// embed computes and attaches the embedding of a stored entry. It is detached
// from the request context because Add has already returned.
func (s *Service) embed(id, content string) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.embedTimeout)
	defer cancel()

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.metrics.EmbeddingFailed()
		s.log.Warn().Err(err).Str("entry_id", id).Msg("embedding failed; entry stays non-searchable")
		return
	}

	attached, err := s.store.AttachEmbedding(ctx, id, vector)
	if err != nil {
		s.metrics.EmbeddingFailed()
		s.log.Warn().Err(err).Str("entry_id", id).Msg("attach embedding failed")
		return
	}
	if !attached {
		s.log.Debug().Str("entry_id", id).Msg("entry already has an embedding")
	}
}

// Wait blocks until every background embedding has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Get returns the entry with id.
func (s *Service) Get(ctx context.Context, id string) (*model.MemoryEntry, error) {
	entry, err := s.store.GetMemory(ctx, id)
	if err != nil {
		return nil, model.NewStorageError("Get", err)
	}
	return entry, nil
}

// Recent returns the newest entries.
func (s *Service) Recent(ctx context.Context, limit int) ([]*model.MemoryEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	entries, err := s.store.SelectMemories(ctx, &storage.MemoryQuery{Limit: limit})
	if err != nil {
		return nil, model.NewStorageError("Recent", err)
	}
	return entries, nil
}

// List returns a page of entries matching opts, newest first.
//
// Kind and time range are applied by the store. Search is a case-insensitive
// substring match over the content and the JSON form of the metadata; when
// it is set the whole selection is loaded and paginated in memory, and Total
// counts the matches.
func (s *Service) List(ctx context.Context, opts ListOptions) (*EntryPage, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	q := &storage.MemoryQuery{
		Kind:      opts.Kind,
		StartTime: opts.StartTime,
		EndTime:   opts.EndTime,
	}

	var entries []*model.MemoryEntry
	var total int

	if opts.Search == "" {
		n, err := s.store.CountMemories(ctx, q)
		if err != nil {
			return nil, model.NewStorageError("List", err)
		}
		q.Limit, q.Offset = opts.Limit, opts.Offset
		page, err := s.store.SelectMemories(ctx, q)
		if err != nil {
			return nil, model.NewStorageError("List", err)
		}
		entries, total = page, n
	} else {
		all, err := s.store.SelectMemories(ctx, q)
		if err != nil {
			return nil, model.NewStorageError("List", err)
		}
		matched := filterEntries(all, opts.Search)
		total = len(matched)
		entries = paginate(matched, opts.Offset, opts.Limit)
	}

	if entries == nil {
		entries = []*model.MemoryEntry{}
	}

	return &EntryPage{
		Entries: entries,
		Total:   total,
		HasMore: opts.Offset+opts.Limit < total,
	}, nil
}

func filterEntries(entries []*model.MemoryEntry, search string) []*model.MemoryEntry {
	needle := strings.ToLower(search)
	var out []*model.MemoryEntry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(haystack(e)), needle) {
			out = append(out, e)
		}
	}
	return out
}

func haystack(e *model.MemoryEntry) string {
	if len(e.Metadata) == 0 {
		return e.Content
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return e.Content
	}
	return e.Content + " " + string(meta)
}

func paginate(entries []*model.MemoryEntry, offset, limit int) []*model.MemoryEntry {
	if offset >= len(entries) {
		return nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}

// SearchSimilar returns the entries closest to query by cosine similarity.
// Only entries with a positive score are returned.
func (s *Service) SearchSimilar(ctx context.Context, query string, limit int) ([]*storage.ScoredMemory, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if s.embedder == nil {
		return nil, model.NewEngineError("SearchSimilar", fmt.Errorf("%w: no embedder configured", model.ErrEmbeddingFailed))
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, model.NewEngineError("SearchSimilar", fmt.Errorf("%w: %w", model.ErrEmbeddingFailed, err))
	}

	results, err := s.store.SearchMemories(ctx, vector, limit)
	if err != nil {
		return nil, model.NewStorageError("SearchSimilar", err)
	}
	if results == nil {
		results = []*storage.ScoredMemory{}
	}
	return results, nil
}

// CapturePage stores the visible text of tab as a page entry.
func (s *Service) CapturePage(ctx context.Context, tab browser.Tab) (*model.MemoryEntry, error) {
	if tab == nil {
		return nil, model.NewEngineError("CapturePage", model.ErrNoActiveTab)
	}

	text, err := tab.CaptureText(ctx)
	if err != nil {
		return nil, model.NewEngineError("CapturePage", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, model.NewEngineError("CapturePage", fmt.Errorf("%w: page has no text", model.ErrInvalidInput))
	}

	return s.Add(ctx, text, model.KindPage, WithMetadata(map[string]interface{}{
		"url":   tab.URL(),
		"title": tab.Title(),
	}))
}
