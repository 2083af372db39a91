// Package workflow replays workflows against the browser surface.
//
// Actions run in order. Malformed actions (unknown type, invalid URL, empty
// selector, bad tab order) are logged and skipped. A failure of the browser
// itself aborts the run; actions already performed are not undone.
package workflow

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/blueberry-browser/blueberry-go/pkg/browser"
	"github.com/blueberry-browser/blueberry-go/pkg/metrics"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

// DefaultWait is used for wait actions without a usable duration.
const DefaultWait = 1000 * time.Millisecond

// MaxWait is the longest wait a workflow may request.
const MaxWait = time.Minute

// SuggestionSource looks up suggestions for RunSuggestion.
type SuggestionSource interface {
	Get(ctx context.Context, id string) (*model.Suggestion, error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Executor) {
		e.log = log
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithSuggestions sets where RunSuggestion loads suggestions from.
func WithSuggestions(src SuggestionSource) Option {
	return func(e *Executor) {
		e.suggestions = src
	}
}

// Executor runs workflow actions.
type Executor struct {
	surface     browser.Surface
	suggestions SuggestionSource
	log         zerolog.Logger
	metrics     *metrics.Metrics
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor driving surface.
func NewExecutor(surface browser.Surface, opts ...Option) *Executor {
	e := &Executor{
		surface: surface,
		log:     zerolog.Nop(),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunSuggestion executes the workflow of an accepted suggestion.
func (e *Executor) RunSuggestion(ctx context.Context, id string) error {
	if e.suggestions == nil {
		return model.NewEngineError("RunSuggestion", fmt.Errorf("%w: no suggestion source", model.ErrInvalidConfig))
	}

	sg, err := e.suggestions.Get(ctx, id)
	if err != nil {
		return model.NewEngineError("RunSuggestion", err)
	}
	if sg.Status != model.StatusAccepted {
		return model.NewEngineError("RunSuggestion", fmt.Errorf("%w: suggestion %s is %s", model.ErrNotAccepted, id, sg.Status))
	}

	wf := sg.Workflow
	return e.ExecuteWorkflow(ctx, &wf)
}

// ExecuteWorkflow runs the actions of wf in order.
func (e *Executor) ExecuteWorkflow(ctx context.Context, wf *model.Workflow) error {
	if wf == nil {
		return model.NewEngineError("ExecuteWorkflow", fmt.Errorf("%w: workflow is nil", model.ErrInvalidInput))
	}

	e.log.Info().Str("workflow_id", wf.ID).Int("actions", len(wf.Actions)).Msg("executing workflow")

	for i, action := range wf.Actions {
		log := e.log.With().Int("step", i).Str("type", string(action.Type)).Logger()

		skipped, err := e.execute(ctx, action)
		switch {
		case err != nil:
			e.metrics.ActionExecuted(string(action.Type), metrics.ResultFailed)
			log.Error().Err(err).Msg("action failed; aborting workflow")
			return model.NewEngineError("ExecuteWorkflow", fmt.Errorf("step %d (%s): %w", i, action.Type, err))
		case skipped != "":
			e.metrics.ActionExecuted(string(action.Type), metrics.ResultSkipped)
			log.Warn().Str("reason", skipped).Msg("skipping action")
		default:
			e.metrics.ActionExecuted(string(action.Type), metrics.ResultOK)
			log.Debug().Msg("action done")
		}
	}

	return nil
}

// execute performs one action. A non-empty skip reason means the action was
// malformed and ignored.
func (e *Executor) execute(ctx context.Context, action model.Action) (skip string, err error) {
	switch action.Type {
	case model.ActionNavigate:
		if !validNavigationURL(action.Target) {
			return fmt.Sprintf("invalid url %q", action.Target), nil
		}
		tab, err := e.activeTab()
		if err != nil {
			return "", err
		}
		return "", tab.LoadURL(ctx, action.Target)

	case model.ActionClick:
		if action.Target == "" {
			return "empty selector", nil
		}
		return "", e.runElementScript(ctx, clickScript, action.Target)

	case model.ActionInput:
		if action.Target == "" {
			return "empty selector", nil
		}
		return "", e.runElementScript(ctx, inputScript, action.Target, action.Value)

	case model.ActionWait:
		return "", e.sleep(ctx, waitDuration(action.Value))

	case model.ActionReorderTabs:
		order, reason := e.tabOrder(action.Payload)
		if reason != "" {
			return reason, nil
		}
		return "", e.surface.ReorderTabs(ctx, order)

	default:
		return "unknown action type", nil
	}
}

func (e *Executor) activeTab() (browser.Tab, error) {
	if e.surface == nil {
		return nil, model.ErrNoActiveTab
	}
	tab := e.surface.ActiveTab()
	if tab == nil {
		return nil, model.ErrNoActiveTab
	}
	return tab, nil
}

func (e *Executor) runElementScript(ctx context.Context, script, selector string, args ...interface{}) error {
	tab, err := e.activeTab()
	if err != nil {
		return err
	}

	result, err := tab.RunScript(ctx, script, append([]interface{}{selector}, args...)...)
	if err != nil {
		return err
	}
	if found, _ := result.(bool); !found {
		return fmt.Errorf("%w: %s", model.ErrElementNotFound, selector)
	}
	return nil
}

// tabOrder extracts payload["order"] and checks that it is a permutation of
// the open tab IDs.
func (e *Executor) tabOrder(payload map[string]interface{}) ([]string, string) {
	if e.surface == nil {
		return nil, "no browser surface"
	}

	var order []string
	switch raw := payload["order"].(type) {
	case []string:
		order = raw
	case []interface{}:
		for _, v := range raw {
			id, ok := v.(string)
			if !ok {
				return nil, "tab order must contain strings"
			}
			order = append(order, id)
		}
	default:
		return nil, "missing tab order"
	}

	tabs := e.surface.Tabs()
	if len(order) != len(tabs) {
		return nil, fmt.Sprintf("tab order lists %d ids for %d tabs", len(order), len(tabs))
	}

	open := make(map[string]bool, len(tabs))
	for _, t := range tabs {
		open[t.ID()] = true
	}
	for _, id := range order {
		if !open[id] {
			return nil, fmt.Sprintf("tab order has unknown or repeated id %q", id)
		}
		delete(open, id)
	}

	return order, ""
}

func validNavigationURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "file", "about":
		return true
	}
	return false
}

// waitDuration parses a millisecond count. Missing, unparsable,
// non-positive and longer-than-MaxWait values fall back to DefaultWait.
func waitDuration(value string) time.Duration {
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms <= 0 || ms > MaxWait.Milliseconds() {
		return DefaultWait
	}
	return time.Duration(ms) * time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
