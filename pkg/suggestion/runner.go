package suggestion

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

// DefaultInterval is the default time between scheduled analyses.
const DefaultInterval = 5 * time.Minute

// Runner schedules analysis cycles on a ticker and on demand.
type Runner struct {
	engine   *Engine
	interval time.Duration
	ttl      time.Duration
	log      zerolog.Logger
	trigger  chan struct{}
}

// NewRunner creates a runner for engine. A non-positive interval uses
// DefaultInterval; a non-positive ttl uses the engine's.
func NewRunner(engine *Engine, interval, ttl time.Duration, log zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		engine:   engine,
		interval: interval,
		ttl:      ttl,
		log:      log,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an analysis soon. It never blocks; requests made while
// one is already queued collapse into it.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// OnEntryAdded adapts Trigger to the memory service callback.
func (r *Runner) OnEntryAdded(*model.MemoryEntry) {
	r.Trigger()
}

// Run blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info().Dur("interval", r.interval).Msg("suggestion runner starting")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("suggestion runner stopping")
			return ctx.Err()
		case <-ticker.C:
			r.cycle(ctx, true)
		case <-r.trigger:
			r.cycle(ctx, false)
		}
	}
}

func (r *Runner) cycle(ctx context.Context, scheduled bool) {
	r.engine.AnalyzePatterns(ctx)
	if !scheduled {
		return
	}
	if _, err := r.engine.ExpireStale(ctx, r.ttl); err != nil {
		r.log.Error().Err(err).Msg("expire stale suggestions")
	}
}
