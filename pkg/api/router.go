// Package api exposes the engine over HTTP.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/blueberry-browser/blueberry-go/pkg/memory"
	"github.com/blueberry-browser/blueberry-go/pkg/metrics"
	"github.com/blueberry-browser/blueberry-go/pkg/notify"
	"github.com/blueberry-browser/blueberry-go/pkg/suggestion"
	"github.com/blueberry-browser/blueberry-go/pkg/telemetry"
	"github.com/blueberry-browser/blueberry-go/pkg/workflow"
)

// Services are the engine components served by the router. Metrics and
// Notifications may be nil, in which case /metrics and /notifications are
// not mounted.
type Services struct {
	Events        *telemetry.Service
	Memories      *memory.Service
	Suggestions   *suggestion.Engine
	Executor      *workflow.Executor
	Metrics       *metrics.Metrics
	Notifications *notify.Bus
}

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(svc Services, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recovery(log))

	healthH := NewHealthHandler(svc.Events)
	eventH := NewEventHandler(svc.Events)
	memoryH := NewMemoryHandler(svc.Memories)
	suggestionH := NewSuggestionHandler(svc.Suggestions, svc.Executor)

	r.Get("/health", healthH.Health)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", eventH.List)
		r.Post("/", eventH.Record)
	})

	r.Route("/memories", func(r chi.Router) {
		r.Get("/", memoryH.List)
		r.Post("/", memoryH.Add)
		r.Post("/search", memoryH.Search)
		r.Get("/{id}", memoryH.Get)
	})

	r.Route("/suggestions", func(r chi.Router) {
		r.Get("/", suggestionH.List)
		r.Get("/{id}", suggestionH.Get)
		r.Post("/{id}/accept", suggestionH.Accept)
		r.Post("/{id}/reject", suggestionH.Reject)
		r.Post("/{id}/run", suggestionH.Run)
	})

	r.Post("/analyze", suggestionH.Analyze)

	if svc.Notifications != nil {
		r.Get("/notifications", NewNotificationHandler(svc.Notifications).Stream)
	}

	if svc.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(svc.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	return r
}
