// Package metrics holds the prometheus instruments of the engine pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blueberry"

// Metrics groups the pipeline counters. A nil *Metrics is valid and records
// nothing, so services can run without instrumentation.
type Metrics struct {
	Registry *prometheus.Registry

	eventsAppended    prometheus.Counter
	eventsEvicted     prometheus.Counter
	evictionFailures  prometheus.Counter
	entriesAdded      *prometheus.CounterVec
	embeddingFailures prometheus.Counter
	analysisRuns      *prometheus.CounterVec
	suggestions       *prometheus.CounterVec
	actionsExecuted   *prometheus.CounterVec
}

// New registers the instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		eventsAppended: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_appended_total",
			Help:      "Activity events written to the event log.",
		}),
		eventsEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_evicted_total",
			Help:      "Events removed by the retention sweep.",
		}),
		evictionFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_eviction_failures_total",
			Help:      "Retention sweeps that failed and will be retried.",
		}),
		entriesAdded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_entries_added_total",
			Help:      "Memory entries persisted, by kind.",
		}, []string{"kind"}),
		embeddingFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Background embeddings that failed; the entry stays non-searchable.",
		}),
		analysisRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Pattern analysis attempts, by outcome.",
		}, []string{"outcome"}),
		suggestions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_transitions_total",
			Help:      "Suggestion lifecycle changes, by resulting status.",
		}, []string{"status"}),
		actionsExecuted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_actions_total",
			Help:      "Workflow actions handled by the executor, by type and result.",
		}, []string{"type", "result"}),
	}
}

func (m *Metrics) EventAppended() {
	if m != nil {
		m.eventsAppended.Inc()
	}
}

func (m *Metrics) EventsEvicted(n int64) {
	if m != nil && n > 0 {
		m.eventsEvicted.Add(float64(n))
	}
}

func (m *Metrics) EvictionFailed() {
	if m != nil {
		m.evictionFailures.Inc()
	}
}

func (m *Metrics) EntryAdded(kind string) {
	if m != nil {
		m.entriesAdded.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) EmbeddingFailed() {
	if m != nil {
		m.embeddingFailures.Inc()
	}
}

// Analysis outcomes.
const (
	OutcomeSkipped   = "skipped"
	OutcomeNoPattern = "no_pattern"
	OutcomeDuplicate = "duplicate"
	OutcomeCreated   = "created"
	OutcomeError     = "error"
)

func (m *Metrics) AnalysisRun(outcome string) {
	if m != nil {
		m.analysisRuns.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SuggestionStatus(status string) {
	if m != nil {
		m.suggestions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) SuggestionsExpired(n int64) {
	if m != nil && n > 0 {
		m.suggestions.WithLabelValues("expired").Add(float64(n))
	}
}

// Action results.
const (
	ResultOK      = "ok"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

func (m *Metrics) ActionExecuted(actionType, result string) {
	if m != nil {
		m.actionsExecuted.WithLabelValues(actionType, result).Inc()
	}
}
