// Package browser defines the browser-shell collaborator the engine drives:
// the ordered tab strip, the active tab, and per-tab navigation and script
// execution.
package browser

import "context"

// Tab is one open browser tab.
type Tab interface {
	ID() string
	Title() string
	URL() string

	// LoadURL navigates the tab.
	LoadURL(ctx context.Context, url string) error

	// RunScript evaluates script in the page. args are passed to the script
	// as data and are never spliced into its source.
	RunScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)

	// CaptureText returns the visible text of the page.
	CaptureText(ctx context.Context) (string, error)
}

// Surface is the window the engine observes and automates.
type Surface interface {
	// Tabs returns the open tabs in display order.
	Tabs() []Tab

	// ActiveTab returns the focused tab, or nil when there is none.
	ActiveTab() Tab

	// ReorderTabs rearranges the tab strip. order must list every open tab ID
	// exactly once.
	ReorderTabs(ctx context.Context, order []string) error
}
