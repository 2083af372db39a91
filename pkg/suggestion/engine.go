// Package suggestion turns inferred workflows into suggestions the user can
// accept or reject.
//
// Each workflow is reduced to a content hash. A hash is stored once: a
// workflow whose hash already exists, in any status, is dropped, so a
// rejected suggestion is never offered again.
package suggestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blueberry-browser/blueberry-go/pkg/inference"
	"github.com/blueberry-browser/blueberry-go/pkg/metrics"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
	"github.com/blueberry-browser/blueberry-go/pkg/notify"
	"github.com/blueberry-browser/blueberry-go/pkg/storage"
)

// Kind is the kind recorded on every suggestion the engine creates.
const Kind = "workflow"

// DefaultTTL is how long a suggestion may stay pending before it expires.
const DefaultTTL = 24 * time.Hour

// SnapshotSource provides the context an analysis runs on.
type SnapshotSource interface {
	Assemble(ctx context.Context) (*model.ContextSnapshot, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithNotifier sets where suggestion_created notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithTTL sets the default pending lifetime used by ExpireStale.
func WithTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine runs pattern analysis and owns the suggestion lifecycle.
type Engine struct {
	store     storage.SuggestionStore
	source    SnapshotSource
	suggester inference.Suggester
	notifier  notify.Notifier
	log       zerolog.Logger
	metrics   *metrics.Metrics
	ttl       time.Duration
	now       func() time.Time

	// running is the single-slot analysis guard.
	running atomic.Bool

	// mu makes the hash lookup and insert of ProcessWorkflow atomic.
	mu sync.Mutex
}

// NewEngine creates a suggestion engine.
func NewEngine(store storage.SuggestionStore, source SnapshotSource, suggester inference.Suggester, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, model.NewEngineError("NewEngine", fmt.Errorf("%w: suggestion store is nil", model.ErrInvalidConfig))
	}

	e := &Engine{
		store:     store,
		source:    source,
		suggester: suggester,
		notifier:  notify.Discard{},
		log:       zerolog.Nop(),
		ttl:       DefaultTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AnalyzePatterns runs one analysis cycle: snapshot, inference, and
// ProcessWorkflow. When a cycle is already in flight it returns false at
// once without waiting. Failures are logged and never returned.
func (e *Engine) AnalyzePatterns(ctx context.Context) bool {
	if !e.running.CompareAndSwap(false, true) {
		e.metrics.AnalysisRun(metrics.OutcomeSkipped)
		e.log.Debug().Msg("analysis already in progress; skipping")
		return false
	}
	defer e.running.Store(false)

	if e.source == nil || e.suggester == nil {
		e.metrics.AnalysisRun(metrics.OutcomeNoPattern)
		return true
	}

	snapshot, err := e.source.Assemble(ctx)
	if err != nil {
		e.metrics.AnalysisRun(metrics.OutcomeError)
		e.log.Error().Err(err).Msg("assemble context")
		return true
	}

	wf, err := e.suggester.SuggestWorkflow(ctx, snapshot)
	if err != nil {
		e.metrics.AnalysisRun(metrics.OutcomeError)
		e.log.Error().Err(err).Msg("workflow inference")
		return true
	}
	if wf == nil {
		e.metrics.AnalysisRun(metrics.OutcomeNoPattern)
		return true
	}

	sg, err := e.ProcessWorkflow(ctx, wf, snapshot)
	switch {
	case errors.Is(err, model.ErrDuplicateSuggestion):
		e.metrics.AnalysisRun(metrics.OutcomeDuplicate)
		e.log.Debug().Str("title", wf.Title).Msg("workflow already suggested")
	case err != nil:
		e.metrics.AnalysisRun(metrics.OutcomeError)
		e.log.Error().Err(err).Msg("process workflow")
	default:
		e.metrics.AnalysisRun(metrics.OutcomeCreated)
		e.log.Info().Str("suggestion_id", sg.ID).Str("title", sg.Title).Msg("new suggestion")
	}
	return true
}

// Analyzing reports whether an analysis cycle is in flight.
func (e *Engine) Analyzing() bool {
	return e.running.Load()
}

// ProcessWorkflow stores wf as a pending suggestion unless a suggestion with
// the same hash exists, in which case ErrDuplicateSuggestion is returned.
func (e *Engine) ProcessWorkflow(ctx context.Context, wf *model.Workflow, snapshot *model.ContextSnapshot) (*model.Suggestion, error) {
	if wf == nil {
		return nil, model.NewEngineError("ProcessWorkflow", fmt.Errorf("%w: workflow is nil", model.ErrInvalidInput))
	}

	hash, err := Hash(wf)
	if err != nil {
		return nil, model.NewEngineError("ProcessWorkflow", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Any stored status blocks the hash, expired included: a workflow that
	// has left pending never resurfaces.
	if exists, err := e.hashExists(ctx, hash); err != nil {
		return nil, model.NewStorageError("ProcessWorkflow", err)
	} else if exists {
		return nil, model.NewEngineError("ProcessWorkflow", model.ErrDuplicateSuggestion)
	}

	sg := &model.Suggestion{
		ID:              uuid.NewString(),
		Hash:            hash,
		Kind:            Kind,
		Title:           wf.Title,
		Description:     wf.Description,
		Workflow:        *wf,
		Status:          model.StatusPending,
		Timestamp:       e.now().UnixMilli(),
		ContextSnapshot: snapshot,
	}

	if err := e.store.InsertSuggestion(ctx, sg); err != nil {
		// Another process may have stored the same hash between the lookup
		// and the insert; the unique index rejects it.
		if exists, lookupErr := e.hashExists(ctx, hash); lookupErr == nil && exists {
			return nil, model.NewEngineError("ProcessWorkflow", model.ErrDuplicateSuggestion)
		}
		return nil, model.NewStorageError("ProcessWorkflow", err)
	}

	e.metrics.SuggestionStatus(string(model.StatusPending))
	e.notifier.Publish(notify.Event{Kind: notify.SuggestionCreated, ID: sg.ID, Payload: sg})

	return sg, nil
}

func (e *Engine) hashExists(ctx context.Context, hash string) (bool, error) {
	_, err := e.store.GetSuggestionByHash(ctx, hash)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Accept marks a pending suggestion accepted.
func (e *Engine) Accept(ctx context.Context, id string) (*model.Suggestion, error) {
	return e.transition(ctx, "Accept", id, model.StatusAccepted)
}

// Reject marks a pending suggestion rejected.
func (e *Engine) Reject(ctx context.Context, id string) (*model.Suggestion, error) {
	return e.transition(ctx, "Reject", id, model.StatusRejected)
}

func (e *Engine) transition(ctx context.Context, op, id string, to model.SuggestionStatus) (*model.Suggestion, error) {
	ok, err := e.store.TransitionSuggestion(ctx, id, model.StatusPending, to)
	if err != nil {
		return nil, model.NewStorageError(op, err)
	}

	sg, err := e.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, model.NewStorageError(op, err)
	}
	if !ok {
		return nil, model.NewEngineError(op, fmt.Errorf("%w: suggestion %s is %s", model.ErrInvalidTransition, id, sg.Status))
	}

	e.metrics.SuggestionStatus(string(to))
	return sg, nil
}

// ExpireStale expires pending suggestions older than ttl and returns how
// many changed. A non-positive ttl uses the engine default.
func (e *Engine) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		ttl = e.ttl
	}

	n, err := e.store.ExpireSuggestions(ctx, e.now().Add(-ttl).UnixMilli())
	if err != nil {
		return 0, model.NewStorageError("ExpireStale", err)
	}
	if n > 0 {
		e.metrics.SuggestionsExpired(n)
		e.log.Info().Int64("expired", n).Msg("expired stale suggestions")
	}
	return int(n), nil
}

// Get returns the suggestion with id.
func (e *Engine) Get(ctx context.Context, id string) (*model.Suggestion, error) {
	sg, err := e.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, model.NewStorageError("Get", err)
	}
	return sg, nil
}

// List returns suggestions newest first, optionally filtered by status.
func (e *Engine) List(ctx context.Context, status model.SuggestionStatus) ([]*model.Suggestion, error) {
	if status != "" && !status.Valid() {
		return nil, model.NewEngineError("List", fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, status))
	}
	out, err := e.store.ListSuggestions(ctx, status)
	if err != nil {
		return nil, model.NewStorageError("List", err)
	}
	if out == nil {
		out = []*model.Suggestion{}
	}
	return out, nil
}
