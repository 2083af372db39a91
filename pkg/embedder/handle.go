package embedder

import (
	"context"
	"errors"
	"sync"
)

// ErrHandleClosed is returned by a Handle that was closed before first use.
var ErrHandleClosed = errors.New("embedder handle closed")

// Factory builds the underlying provider on first use.
type Factory func() (Provider, error)

// Handle is a Provider that defers construction of the real provider until
// the first embedding request. Construction runs at most once; its error is
// sticky and returned by every later call.
type Handle struct {
	factory Factory

	once     sync.Once
	provider Provider
	err      error
}

// NewHandle returns a Handle that will build its provider with factory.
func NewHandle(factory Factory) *Handle {
	return &Handle{factory: factory}
}

// Get returns the underlying provider, building it if necessary.
func (h *Handle) Get() (Provider, error) {
	h.once.Do(func() {
		if h.factory == nil {
			h.err = errors.New("embedder factory is nil")
			return
		}
		h.provider, h.err = h.factory()
	})
	return h.provider, h.err
}

// Embed implements Provider.
func (h *Handle) Embed(ctx context.Context, text string) ([]float64, error) {
	p, err := h.Get()
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, text)
}

// EmbedBatch implements Provider.
func (h *Handle) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	p, err := h.Get()
	if err != nil {
		return nil, err
	}
	return p.EmbedBatch(ctx, texts)
}

// Dimensions implements Provider. It returns 0 when the provider cannot be built.
func (h *Handle) Dimensions() int {
	p, err := h.Get()
	if err != nil {
		return 0
	}
	return p.Dimensions()
}

// Close closes the provider if it was built. A Handle closed before first
// use never builds its provider.
func (h *Handle) Close() error {
	h.once.Do(func() { h.err = ErrHandleClosed })
	if h.provider != nil {
		return h.provider.Close()
	}
	return nil
}
