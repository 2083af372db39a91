package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownTab is returned for operations naming a tab that is not open.
var ErrUnknownTab = errors.New("unknown tab")

// Element is a form control inside a MemoryTab.
type Element struct {
	Value  string
	Clicks int
}

// MemoryTab is an in-process Tab backed by a small element table.
//
// RunScript treats its first argument as a selector. With one argument the
// element is clicked, with two the second is typed into it. The result is
// true when the selector exists and false otherwise, which mirrors what the
// page scripts return in a real shell.
type MemoryTab struct {
	mu       sync.Mutex
	id       string
	title    string
	url      string
	text     string
	elements map[string]*Element
	history  []string
	scripts  []string

	// LoadErr, when set, is returned by LoadURL.
	LoadErr error
	// ScriptErr, when set, is returned by RunScript.
	ScriptErr error
}

// NewMemoryTab creates a tab showing url.
func NewMemoryTab(id, title, url string) *MemoryTab {
	return &MemoryTab{
		id:       id,
		title:    title,
		url:      url,
		elements: make(map[string]*Element),
	}
}

func (t *MemoryTab) ID() string { return t.id }

func (t *MemoryTab) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

func (t *MemoryTab) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// SetText sets the text returned by CaptureText.
func (t *MemoryTab) SetText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = text
}

// AddElement registers a selector in the page.
func (t *MemoryTab) AddElement(selector string) *Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	el := &Element{}
	t.elements[selector] = el
	return el
}

// Element returns the element registered under selector.
func (t *MemoryTab) Element(selector string) (Element, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.elements[selector]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// History returns every URL loaded into the tab.
func (t *MemoryTab) History() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.history...)
}

// Scripts returns the source of every script run in the tab.
func (t *MemoryTab) Scripts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.scripts...)
}

func (t *MemoryTab) LoadURL(ctx context.Context, url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.LoadErr != nil {
		return t.LoadErr
	}
	t.url = url
	t.history = append(t.history, url)
	return nil
}

func (t *MemoryTab) RunScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts = append(t.scripts, script)
	if t.ScriptErr != nil {
		return nil, t.ScriptErr
	}
	if len(args) == 0 {
		return nil, nil
	}

	selector, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("selector must be a string, got %T", args[0])
	}
	el, ok := t.elements[selector]
	if !ok {
		return false, nil
	}

	if len(args) > 1 {
		el.Value = fmt.Sprint(args[1])
	} else {
		el.Clicks++
	}
	return true, nil
}

func (t *MemoryTab) CaptureText(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text, nil
}

// MemorySurface is an in-process Surface used by the CLI, the examples and
// tests.
type MemorySurface struct {
	mu     sync.RWMutex
	tabs   []*MemoryTab
	active string
}

// NewMemorySurface creates a surface with the given tabs in order. The first
// tab becomes active.
func NewMemorySurface(tabs ...*MemoryTab) *MemorySurface {
	s := &MemorySurface{tabs: tabs}
	if len(tabs) > 0 {
		s.active = tabs[0].id
	}
	return s
}

// Open appends a tab and makes it active.
func (s *MemorySurface) Open(tab *MemoryTab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs = append(s.tabs, tab)
	s.active = tab.id
}

// Activate focuses the tab with id. An empty id clears the focus.
func (s *MemorySurface) Activate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.active = ""
		return nil
	}
	if s.find(id) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTab, id)
	}
	s.active = id
	return nil
}

// Tab returns the tab with id, or nil.
func (s *MemorySurface) Tab(id string) *MemoryTab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(id)
}

func (s *MemorySurface) find(id string) *MemoryTab {
	for _, t := range s.tabs {
		if t.id == id {
			return t
		}
	}
	return nil
}

func (s *MemorySurface) Tabs() []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tab, len(s.tabs))
	for i, t := range s.tabs {
		out[i] = t
	}
	return out
}

func (s *MemorySurface) ActiveTab() Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.find(s.active); t != nil {
		return t
	}
	return nil
}

func (s *MemorySurface) ReorderTabs(ctx context.Context, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(order) != len(s.tabs) {
		return fmt.Errorf("reorder: got %d ids for %d tabs", len(order), len(s.tabs))
	}
	next := make([]*MemoryTab, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		t := s.find(id)
		if t == nil {
			return fmt.Errorf("reorder: %w: %s", ErrUnknownTab, id)
		}
		if seen[id] {
			return fmt.Errorf("reorder: duplicate id %s", id)
		}
		seen[id] = true
		next = append(next, t)
	}
	s.tabs = next
	return nil
}
