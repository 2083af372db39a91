package memory_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberry-browser/blueberry-go/pkg/browser"
	"github.com/blueberry-browser/blueberry-go/pkg/memory"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
	"github.com/blueberry-browser/blueberry-go/pkg/notify"
	sqliteStore "github.com/blueberry-browser/blueberry-go/pkg/storage/sqlite"
)

// keywordEmbedder maps text onto fixed axes so similarity is predictable.
type keywordEmbedder struct {
	calls atomic.Int32
	fail  bool
	dims  int
}

var axes = []string{"golang", "python", "cooking", "travel"}

func (k *keywordEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	k.calls.Add(1)
	if k.fail {
		return nil, errors.New("embedding service unavailable")
	}
	dims := k.dims
	if dims == 0 {
		dims = len(axes)
	}
	v := make([]float64, dims)
	lower := strings.ToLower(text)
	for i, axis := range axes {
		if i < dims {
			v[i] = float64(strings.Count(lower, axis))
		}
	}
	return v, nil
}

func (k *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := k.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (k *keywordEmbedder) Dimensions() int { return len(axes) }
func (k *keywordEmbedder) Close() error    { return nil }

func newService(t *testing.T, emb *keywordEmbedder, opts ...memory.Option) *memory.Service {
	t.Helper()
	store, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var svc *memory.Service
	if emb == nil {
		svc, err = memory.NewService(store, nil, opts...)
	} else {
		svc, err = memory.NewService(store, emb, opts...)
	}
	require.NoError(t, err)
	t.Cleanup(svc.Wait)
	return svc
}

// steppingClock returns strictly increasing times so entries order predictably.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.UnixMilli(1_000_000)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

func TestAdd_AsyncEmbedding(t *testing.T) {
	emb := &keywordEmbedder{}
	svc := newService(t, emb)
	ctx := context.Background()

	entry, err := svc.Add(ctx, "golang channels", model.KindChat, memory.WithChatID("chat-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "chat-1", entry.ChatID)

	svc.Wait()

	got, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0}, got.Embedding)
	assert.Equal(t, int32(1), emb.calls.Load())
}

func TestAdd_PrecomputedEmbeddingSkipsEmbedder(t *testing.T) {
	emb := &keywordEmbedder{}
	svc := newService(t, emb)

	entry, err := svc.Add(context.Background(), "x", model.KindPage, memory.WithEmbedding([]float64{0, 1}))
	require.NoError(t, err)
	svc.Wait()

	assert.Zero(t, emb.calls.Load())
	got, err := svc.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, got.Embedding)
}

func TestAdd_EmbeddingFailureLeavesEntryUnsearchable(t *testing.T) {
	emb := &keywordEmbedder{fail: true}
	svc := newService(t, emb)
	ctx := context.Background()

	entry, err := svc.Add(ctx, "golang", model.KindChat)
	require.NoError(t, err, "embedding failures never fail Add")
	svc.Wait()

	got, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Embedding)

	page, err := svc.List(ctx, memory.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total, "still listable")
}

func TestAdd_Validation(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Add(context.Background(), "text", model.MemoryKind("video"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.Add(context.Background(), "  ", model.KindChat)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestAdd_CallbackAndNotification(t *testing.T) {
	bus := notify.NewBus(4)
	events, cancel := bus.Subscribe()
	defer cancel()
	svc := newService(t, &keywordEmbedder{fail: true}, memory.WithNotifier(bus))

	var calls []string
	svc.SetOnAdded(func(e *model.MemoryEntry) { calls = append(calls, e.ID) })

	entry, err := svc.Add(context.Background(), "hello", model.KindChat)
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, []string{entry.ID}, calls)

	evt := <-events
	assert.Equal(t, notify.EntriesUpdated, evt.Kind)
	assert.Equal(t, entry.ID, evt.ID)
}

func TestList_Pagination(t *testing.T) {
	svc := newService(t, nil, memory.WithClock(steppingClock()))
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Add(ctx, fmt.Sprintf("entry %d", i), model.KindChat)
		require.NoError(t, err)
	}

	var ids []string
	for offset := 0; offset < 12; offset += 5 {
		page, err := svc.List(ctx, memory.ListOptions{Limit: 5, Offset: offset})
		require.NoError(t, err)
		assert.Equal(t, 12, page.Total)
		assert.Equal(t, offset+5 < 12, page.HasMore)
		for _, e := range page.Entries {
			ids = append(ids, e.Content)
		}
	}
	require.Len(t, ids, 12)
	assert.Equal(t, "entry 11", ids[0])
	assert.Equal(t, "entry 0", ids[11])
}

func TestList_NeedleSearch(t *testing.T) {
	svc := newService(t, nil, memory.WithClock(steppingClock()))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := svc.Add(ctx, fmt.Sprintf("filler %d", i), model.KindPage)
		require.NoError(t, err)
	}
	_, err := svc.Add(ctx, "Found the NeEdLe here", model.KindPage)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "plain", model.KindChat, memory.WithMetadata(map[string]interface{}{"tag": "needle"}))
	require.NoError(t, err)

	page, err := svc.List(ctx, memory.ListOptions{Search: "needle", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "plain", page.Entries[0].Content)

	page, err = svc.List(ctx, memory.ListOptions{Search: "NEEDLE", Kind: model.KindPage})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "Found the NeEdLe here", page.Entries[0].Content)

	page, err = svc.List(ctx, memory.ListOptions{Search: "haystack"})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.False(t, page.HasMore)
}

func TestList_TimeRange(t *testing.T) {
	svc := newService(t, nil, memory.WithClock(steppingClock()))
	ctx := context.Background()

	var stamps []int64
	for i := 0; i < 5; i++ {
		e, err := svc.Add(ctx, fmt.Sprintf("e%d", i), model.KindChat)
		require.NoError(t, err)
		stamps = append(stamps, e.Timestamp)
	}

	page, err := svc.List(ctx, memory.ListOptions{StartTime: stamps[1], EndTime: stamps[3]})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
}

func TestSearchSimilar_Ordering(t *testing.T) {
	emb := &keywordEmbedder{}
	svc := newService(t, emb)
	ctx := context.Background()

	_, err := svc.Add(ctx, "golang golang python", model.KindPage)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "golang", model.KindPage)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "cooking travel", model.KindPage)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "short", model.KindPage, memory.WithEmbedding([]float64{1, 0}))
	require.NoError(t, err)
	svc.Wait()

	results, err := svc.SearchSimilar(ctx, "golang", 5)
	require.NoError(t, err)
	require.Len(t, results, 2, "orthogonal and mismatched entries are excluded")
	assert.Equal(t, "golang", results[0].Entry.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "golang golang python", results[1].Entry.Content)
	assert.Greater(t, results[0].Score, results[1].Score)

	results, err = svc.SearchSimilar(ctx, "golang", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchSimilar_EmbedFailure(t *testing.T) {
	svc := newService(t, &keywordEmbedder{fail: true})

	_, err := svc.SearchSimilar(context.Background(), "q", 0)
	assert.ErrorIs(t, err, model.ErrEmbeddingFailed)

	noEmb := newService(t, nil)
	_, err = noEmb.SearchSimilar(context.Background(), "q", 0)
	assert.ErrorIs(t, err, model.ErrEmbeddingFailed)
}

func TestRecent(t *testing.T) {
	svc := newService(t, nil, memory.WithClock(steppingClock()))
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := svc.Add(ctx, fmt.Sprintf("e%d", i), model.KindChat)
		require.NoError(t, err)
	}

	recent, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "e3", recent[0].Content)
}

func TestCapturePage(t *testing.T) {
	svc := newService(t, nil)
	tab := browser.NewMemoryTab("t1", "Go Docs", "https://go.dev/doc")
	tab.SetText("Effective Go")

	entry, err := svc.CapturePage(context.Background(), tab)
	require.NoError(t, err)
	assert.Equal(t, model.KindPage, entry.Kind)
	assert.Equal(t, "https://go.dev/doc", entry.Metadata["url"])
	assert.Equal(t, "Go Docs", entry.Metadata["title"])

	_, err = svc.CapturePage(context.Background(), browser.NewMemoryTab("t2", "", "about:blank"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
