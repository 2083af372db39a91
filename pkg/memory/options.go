package memory

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/blueberry-browser/blueberry-go/pkg/metrics"
	"github.com/blueberry-browser/blueberry-go/pkg/notify"
)

// AddOptions contains options for adding an entry.
type AddOptions struct {
	// Metadata is stored with the entry and is searchable by List.
	Metadata map[string]interface{}

	// Embedding is a precomputed vector. When empty, one is requested in
	// the background.
	Embedding []float64

	// ChatID groups chat entries of one conversation.
	ChatID string
}

// AddOption is a function type for configuring AddOptions.
type AddOption func(*AddOptions)

// WithMetadata attaches metadata to the entry.
func WithMetadata(metadata map[string]interface{}) AddOption {
	return func(opts *AddOptions) {
		opts.Metadata = metadata
	}
}

// WithEmbedding supplies the entry's embedding up front.
func WithEmbedding(embedding []float64) AddOption {
	return func(opts *AddOptions) {
		opts.Embedding = embedding
	}
}

// WithChatID sets the conversation the entry belongs to.
func WithChatID(chatID string) AddOption {
	return func(opts *AddOptions) {
		opts.ChatID = chatID
	}
}

func applyAddOptions(opts []AddOption) *AddOptions {
	options := &AddOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Option configures a Service.
type Option func(*Service)

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

// WithNotifier sets where entries_updated notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithEmbedTimeout bounds each background embedding request.
func WithEmbedTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.embedTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
