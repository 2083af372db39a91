package assembler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberry-browser/blueberry-go/pkg/browser"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

type stubEvents struct {
	window time.Duration
	events []model.Event
	err    error
}

func (s *stubEvents) RecentSince(ctx context.Context, window time.Duration) ([]model.Event, error) {
	s.window = window
	return s.events, s.err
}

func TestExtractDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.example.com/path?q=1": "www.example.com",
		"http://localhost:8080/":           "localhost",
		"https://[::1]:443/":               "::1",
		"about:blank":                      "",
		"not a url":                        "",
		"":                                 "",
		"://broken":                        "",
		"file:///tmp/x.html":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractDomain(in), in)
	}
}

func TestAssemble(t *testing.T) {
	a := browser.NewMemoryTab("a", "Docs", "https://go.dev/doc")
	b := browser.NewMemoryTab("b", "Bad", "::::")
	surface := browser.NewMemorySurface(a, b)
	require.NoError(t, surface.Activate("b"))

	events := &stubEvents{events: []model.Event{{ID: "e1"}, {ID: "e2"}}}
	asm := New(surface, events, WithClock(func() time.Time { return time.UnixMilli(42) }))

	snap, err := asm.Assemble(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(42), snap.Timestamp)
	assert.Equal(t, DefaultWindow, events.window)
	require.Len(t, snap.OpenTabs, 2)
	assert.Equal(t, "go.dev", snap.OpenTabs[0].Domain)
	assert.False(t, snap.OpenTabs[0].IsActive)
	assert.Equal(t, "", snap.OpenTabs[1].Domain)
	assert.True(t, snap.OpenTabs[1].IsActive)
	assert.Len(t, snap.RecentEvents, 2)

	active, ok := snap.ActiveTab()
	require.True(t, ok)
	assert.Equal(t, "b", active.ID)
}

func TestAssemble_NoSurface(t *testing.T) {
	asm := New(nil, &stubEvents{}, WithWindow(time.Minute))
	assert.Equal(t, time.Minute, asm.Window())

	snap, err := asm.Assemble(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.OpenTabs)
	assert.NotNil(t, snap.RecentEvents)
}

func TestAssemble_EventError(t *testing.T) {
	asm := New(nil, &stubEvents{err: errors.New("db closed")})
	_, err := asm.Assemble(context.Background())
	assert.Error(t, err)
}
