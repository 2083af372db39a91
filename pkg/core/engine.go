package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/blueberry-browser/blueberry-go/pkg/api"
	"github.com/blueberry-browser/blueberry-go/pkg/assembler"
	"github.com/blueberry-browser/blueberry-go/pkg/browser"
	"github.com/blueberry-browser/blueberry-go/pkg/embedder"
	ollamaEmbedder "github.com/blueberry-browser/blueberry-go/pkg/embedder/ollama"
	openaiEmbedder "github.com/blueberry-browser/blueberry-go/pkg/embedder/openai"
	"github.com/blueberry-browser/blueberry-go/pkg/inference"
	"github.com/blueberry-browser/blueberry-go/pkg/llm"
	anthropicLLM "github.com/blueberry-browser/blueberry-go/pkg/llm/anthropic"
	openaiLLM "github.com/blueberry-browser/blueberry-go/pkg/llm/openai"
	"github.com/blueberry-browser/blueberry-go/pkg/memory"
	"github.com/blueberry-browser/blueberry-go/pkg/metrics"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
	"github.com/blueberry-browser/blueberry-go/pkg/notify"
	"github.com/blueberry-browser/blueberry-go/pkg/storage"
	mysqlStore "github.com/blueberry-browser/blueberry-go/pkg/storage/mysql"
	postgresStore "github.com/blueberry-browser/blueberry-go/pkg/storage/postgres"
	sqliteStore "github.com/blueberry-browser/blueberry-go/pkg/storage/sqlite"
	"github.com/blueberry-browser/blueberry-go/pkg/suggestion"
	"github.com/blueberry-browser/blueberry-go/pkg/telemetry"
	"github.com/blueberry-browser/blueberry-go/pkg/workflow"
)

// notifyBuffer is the capacity of the notification bus.
const notifyBuffer = 64

// Engine owns every component of the background pipeline.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	engine, _ := core.NewEngine(config, core.WithSurface(surface))
//	defer engine.Close()
//
//	go engine.Run(ctx)
//	engine.Events.Append(ctx, telemetry.EventInput{TabID: "t1", EventType: "navigation"})
type Engine struct {
	Config *Config
	Log    zerolog.Logger

	Store       storage.Store
	Embedder    embedder.Provider
	LLM         llm.Provider
	Surface     browser.Surface
	Bus         *notify.Bus
	Metrics     *metrics.Metrics
	Events      *telemetry.Service
	Memories    *memory.Service
	Assembler   *assembler.Assembler
	Suggestions *suggestion.Engine
	Runner      *suggestion.Runner
	Executor    *workflow.Executor

	owned ownership
}

// ownership records which resources NewEngine opened and Close must release.
// Injected ones belong to the caller.
type ownership struct {
	store    bool
	embedder bool
	llm      bool
}

// Option overrides a component built by NewEngine.
type Option func(*engineOptions)

type engineOptions struct {
	log       *zerolog.Logger
	store     storage.Store
	embedder  embedder.Provider
	llm       llm.Provider
	suggester inference.Suggester
	surface   browser.Surface
}

// WithLogger sets the logger instead of building one from Config.Log.
func WithLogger(log zerolog.Logger) Option {
	return func(o *engineOptions) {
		o.log = &log
	}
}

// WithStore uses store instead of opening Config.Storage.
func WithStore(store storage.Store) Option {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithEmbedder uses p instead of Config.Embedder.
func WithEmbedder(p embedder.Provider) Option {
	return func(o *engineOptions) {
		o.embedder = p
	}
}

// WithLLM uses p instead of Config.LLM.
func WithLLM(p llm.Provider) Option {
	return func(o *engineOptions) {
		o.llm = p
	}
}

// WithSuggester bypasses the LLM-backed suggester.
func WithSuggester(s inference.Suggester) Option {
	return func(o *engineOptions) {
		o.suggester = s
	}
}

// WithSurface attaches the browser surface. Without one an empty in-memory
// surface is used.
func WithSurface(s browser.Surface) Option {
	return func(o *engineOptions) {
		o.surface = s
	}
}

// NewEngine validates cfg and builds the engine.
func NewEngine(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{
		Config:  cfg,
		Bus:     notify.NewBus(notifyBuffer),
		Metrics: metrics.New(),
		Surface: o.surface,
	}
	if o.log != nil {
		e.Log = *o.log
	} else {
		e.Log = NewLogger(cfg.Log)
	}
	if e.Surface == nil {
		e.Surface = browser.NewMemorySurface()
	}

	var err error
	if e.Store = o.store; e.Store == nil {
		if e.Store, err = initStorage(cfg.Storage); err != nil {
			return nil, err
		}
		e.owned.store = true
	}

	if e.Embedder = o.embedder; e.Embedder == nil {
		e.Embedder = initEmbedder(cfg.Embedder)
		e.owned.embedder = e.Embedder != nil
	}

	if e.LLM = o.llm; e.LLM == nil && cfg.LLM.Provider != "" {
		if e.LLM, err = initLLM(cfg.LLM); err != nil {
			_ = e.Close()
			return nil, err
		}
		e.owned.llm = true
	}

	if err := e.build(cfg, o.suggester); err != nil {
		_ = e.Close()
		return nil, err
	}

	e.Log.Info().
		Str("storage", cfg.Storage.Provider).
		Str("embedder", cfg.Embedder.Provider).
		Str("llm", cfg.LLM.Provider).
		Int("max_events", cfg.Engine.MaxEvents).
		Msg("engine ready")

	return e, nil
}

func (e *Engine) build(cfg *Config, suggester inference.Suggester) error {
	var err error

	e.Events, err = telemetry.NewService(e.Store,
		telemetry.WithMaxRetention(cfg.Engine.MaxEvents),
		telemetry.WithNodeID(cfg.Engine.NodeID),
		telemetry.WithLogger(e.Log.With().Str("component", "telemetry").Logger()),
		telemetry.WithMetrics(e.Metrics),
	)
	if err != nil {
		return err
	}

	e.Memories, err = memory.NewService(e.Store, e.Embedder,
		memory.WithLogger(e.Log.With().Str("component", "memory").Logger()),
		memory.WithMetrics(e.Metrics),
		memory.WithNotifier(e.Bus),
	)
	if err != nil {
		return err
	}

	e.Assembler = assembler.New(e.Surface, e.Events, assembler.WithWindow(cfg.Engine.ContextWindow))

	if suggester == nil {
		if e.LLM != nil {
			suggester = inference.NewLLMSuggester(e.LLM, e.Log.With().Str("component", "inference").Logger())
		} else {
			suggester = inference.NewSiteVisitSuggester(e.Memories)
		}
	}

	e.Suggestions, err = suggestion.NewEngine(e.Store, e.Assembler, suggester,
		suggestion.WithLogger(e.Log.With().Str("component", "suggestion").Logger()),
		suggestion.WithMetrics(e.Metrics),
		suggestion.WithNotifier(e.Bus),
		suggestion.WithTTL(cfg.Engine.SuggestionTTL),
	)
	if err != nil {
		return err
	}

	e.Runner = suggestion.NewRunner(e.Suggestions, cfg.Engine.AnalysisInterval, cfg.Engine.SuggestionTTL,
		e.Log.With().Str("component", "runner").Logger())
	if cfg.Engine.AnalyzeOnAdd {
		e.Memories.SetOnAdded(e.Runner.OnEntryAdded)
	}

	e.Executor = workflow.NewExecutor(e.Surface,
		workflow.WithSuggestions(e.Suggestions),
		workflow.WithLogger(e.Log.With().Str("component", "workflow").Logger()),
		workflow.WithMetrics(e.Metrics),
	)

	return nil
}

// Handler returns the HTTP API for the engine.
func (e *Engine) Handler() http.Handler {
	return api.NewRouter(api.Services{
		Events:        e.Events,
		Memories:      e.Memories,
		Suggestions:   e.Suggestions,
		Executor:      e.Executor,
		Metrics:       e.Metrics,
		Notifications: e.Bus,
	}, e.Log.With().Str("component", "api").Logger())
}

// Run drives scheduled analysis until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	err := e.Runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Serve runs the scheduler and the HTTP API until ctx is canceled.
func (e *Engine) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- e.Run(ctx)
	}()

	err := api.Serve(ctx, e.Config.HTTP.Addr, e.Handler(), e.Log)
	cancel()
	if rerr := <-runErr; err == nil {
		err = rerr
	}
	return err
}

// Close waits for pending embeddings and releases the resources NewEngine
// opened. Stores and providers passed in with options stay open.
func (e *Engine) Close() error {
	if e.Memories != nil {
		e.Memories.Wait()
	}

	var errs []error
	if e.owned.embedder && e.Embedder != nil {
		if err := e.Embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.owned.llm && e.LLM != nil {
		if err := e.LLM.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.owned.store && e.Store != nil {
		if err := e.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return model.NewEngineError("Close", errors.Join(errs...))
	}
	return nil
}

// initStorage opens the configured backend.
func initStorage(cfg StorageConfig) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)

	switch cfg.Provider {
	case "sqlite":
		store, err = sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:      cfg.DBPath,
			TablePrefix: cfg.TablePrefix,
		})
	case "postgres":
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		store, err = postgresStore.NewClient(&postgresStore.Config{
			Host:        cfg.Host,
			Port:        port,
			User:        cfg.User,
			Password:    cfg.Password,
			DBName:      cfg.Database,
			TablePrefix: cfg.TablePrefix,
			SSLMode:     cfg.SSLMode,
		})
	case "mysql":
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		store, err = mysqlStore.NewClient(&mysqlStore.Config{
			Host:        cfg.Host,
			Port:        port,
			User:        cfg.User,
			Password:    cfg.Password,
			DBName:      cfg.Database,
			TablePrefix: cfg.TablePrefix,
		})
	default:
		return nil, model.NewEngineError("initStorage", fmt.Errorf("%w: unknown storage provider %q", model.ErrInvalidConfig, cfg.Provider))
	}
	if err != nil {
		return nil, model.NewStorageError("initStorage", err)
	}

	return store, nil
}

// initEmbedder returns a lazily constructed, retrying provider, or nil when
// no provider is configured. Construction errors surface on first use.
func initEmbedder(cfg EmbedderConfig) embedder.Provider {
	var factory embedder.Factory

	switch cfg.Provider {
	case "openai":
		factory = func() (embedder.Provider, error) {
			return openaiEmbedder.NewClient(&openaiEmbedder.Config{
				APIKey:     cfg.APIKey,
				Model:      cfg.Model,
				BaseURL:    cfg.BaseURL,
				Dimensions: cfg.Dimensions,
			})
		}
	case "ollama":
		factory = func() (embedder.Provider, error) {
			return ollamaEmbedder.NewClient(&ollamaEmbedder.Config{
				BaseURL:    cfg.BaseURL,
				Model:      cfg.Model,
				Dimensions: cfg.Dimensions,
			})
		}
	default:
		return nil
	}

	retry := embedder.DefaultRetryConfig()
	if cfg.MaxRetries >= 0 {
		retry.MaxRetries = uint64(cfg.MaxRetries)
	}
	return embedder.WithRetry(embedder.NewHandle(factory), retry)
}

// initLLM initializes the LLM provider.
func initLLM(cfg LLMConfig) (llm.Provider, error) {
	var (
		p   llm.Provider
		err error
	)

	switch cfg.Provider {
	case "openai":
		p, err = openaiLLM.NewClient(&openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "anthropic":
		p, err = anthropicLLM.NewClient(&anthropicLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: 60 * time.Second,
		})
	default:
		return nil, model.NewEngineError("initLLM", fmt.Errorf("%w: unknown llm provider %q", model.ErrInvalidConfig, cfg.Provider))
	}
	if err != nil {
		return nil, model.NewEngineError("initLLM", fmt.Errorf("%w: %w", model.ErrLLMOperation, err))
	}

	return p, nil
}
