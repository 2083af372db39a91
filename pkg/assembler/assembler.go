// Package assembler builds point-in-time context snapshots from the open
// tabs and recent activity.
package assembler

import (
	"context"
	"net/url"
	"time"

	"github.com/blueberry-browser/blueberry-go/pkg/browser"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

// DefaultWindow is how far back recent events reach.
const DefaultWindow = 5 * time.Minute

// EventSource provides recent activity.
type EventSource interface {
	RecentSince(ctx context.Context, window time.Duration) ([]model.Event, error)
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithWindow sets the recent-events window.
func WithWindow(d time.Duration) Option {
	return func(a *Assembler) {
		if d > 0 {
			a.window = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

// Assembler reads the browser surface and the event log. It never writes.
type Assembler struct {
	surface browser.Surface
	events  EventSource
	window  time.Duration
	now     func() time.Time
}

// New creates an Assembler. surface may be nil, yielding snapshots without tabs.
func New(surface browser.Surface, events EventSource, opts ...Option) *Assembler {
	a := &Assembler{
		surface: surface,
		events:  events,
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Window returns the configured recent-events window.
func (a *Assembler) Window() time.Duration {
	return a.window
}

// Assemble captures the current tabs and the events of the last window.
func (a *Assembler) Assemble(ctx context.Context) (*model.ContextSnapshot, error) {
	snapshot := &model.ContextSnapshot{
		OpenTabs:     []model.TabContext{},
		RecentEvents: []model.Event{},
		Timestamp:    a.now().UnixMilli(),
	}

	if a.surface != nil {
		activeID := ""
		if active := a.surface.ActiveTab(); active != nil {
			activeID = active.ID()
		}
		for _, tab := range a.surface.Tabs() {
			snapshot.OpenTabs = append(snapshot.OpenTabs, model.TabContext{
				ID:       tab.ID(),
				Title:    tab.Title(),
				URL:      tab.URL(),
				Domain:   ExtractDomain(tab.URL()),
				IsActive: tab.ID() == activeID,
			})
		}
	}

	if a.events != nil {
		events, err := a.events.RecentSince(ctx, a.window)
		if err != nil {
			return nil, model.NewEngineError("Assemble", err)
		}
		if events != nil {
			snapshot.RecentEvents = events
		}
	}

	return snapshot, nil
}

// ExtractDomain returns the host name of rawURL, or "" when it has none or
// cannot be parsed.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
