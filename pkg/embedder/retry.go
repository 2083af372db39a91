package embedder

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// RetryConfig controls the exponential backoff applied to embedding calls.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64

	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration

	// MaxInterval caps a single backoff delay.
	MaxInterval time.Duration
}

// DefaultRetryConfig returns the retry settings used by the engine.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Retrying wraps a Provider and retries failed Embed and EmbedBatch calls.
type Retrying struct {
	Provider
	cfg RetryConfig
}

// WithRetry decorates p with exponential backoff.
func WithRetry(p Provider, cfg RetryConfig) *Retrying {
	return &Retrying{Provider: p, cfg: cfg}
}

func (r *Retrying) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		exp.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxInterval > 0 {
		exp.MaxInterval = r.cfg.MaxInterval
	}
	exp.Multiplier = 2
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, r.cfg.MaxRetries), ctx)
}

// Embed implements Provider.
func (r *Retrying) Embed(ctx context.Context, text string) ([]float64, error) {
	var out []float64
	err := backoff.Retry(func() error {
		v, err := r.Provider.Embed(ctx, text)
		if err != nil {
			return classify(err)
		}
		out = v
		return nil
	}, r.policy(ctx))
	return out, err
}

// EmbedBatch implements Provider.
func (r *Retrying) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	var out [][]float64
	err := backoff.Retry(func() error {
		v, err := r.Provider.EmbedBatch(ctx, texts)
		if err != nil {
			return classify(err)
		}
		out = v
		return nil
	}, r.policy(ctx))
	return out, err
}

// classify stops retrying on cancellation and on a closed handle.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrHandleClosed) {
		return backoff.Permanent(err)
	}
	return err
}
