package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
	"github.com/blueberry-browser/blueberry-go/pkg/storage"
	sqliteStore "github.com/blueberry-browser/blueberry-go/pkg/storage/sqlite"
)

func setupSQLiteTest(t *testing.T) *sqliteStore.Client {
	t.Helper()

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "blueberry.db"),
	})
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func insertEvents(t *testing.T, store storage.EventStore, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		err := store.InsertEvent(ctx, &model.Event{
			ID:           fmt.Sprintf("evt-%d", i),
			TabID:        "tab-1",
			EventType:    "navigation",
			CreatedAt:    int64(1000 + i),
			LastActiveAt: int64(1000 + i),
		})
		require.NoError(t, err)
	}
}

func TestSQLiteClient_InMemory(t *testing.T) {
	store, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	insertEvents(t, store, 3)

	n, err := store.CountEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteClient_RequiresPath(t *testing.T) {
	_, err := sqliteStore.NewClient(&sqliteStore.Config{})
	assert.Error(t, err)
}

func TestSQLiteClient_EventRoundTrip(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	err := store.InsertEvent(ctx, &model.Event{
		ID:           "evt-1",
		TabID:        "tab-7",
		Title:        "Docs",
		URL:          "https://example.com/docs",
		EventType:    "navigation",
		Metadata:     map[string]interface{}{"source": "test"},
		CreatedAt:    42,
		LastActiveAt: 42,
	})
	require.NoError(t, err)

	events, total, err := store.ListEvents(ctx, &storage.EventQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "tab-7", events[0].TabID)
	assert.Equal(t, "https://example.com/docs", events[0].URL)
	assert.Equal(t, "test", events[0].Metadata["source"])
	assert.Equal(t, int64(42), events[0].LastActiveAt)
}

func TestSQLiteClient_DuplicateEventID(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	ev := &model.Event{ID: "dup", TabID: "t", EventType: "x", CreatedAt: 1, LastActiveAt: 1}
	require.NoError(t, store.InsertEvent(ctx, ev))
	assert.Error(t, store.InsertEvent(ctx, ev))
}

func TestSQLiteClient_EvictOldestEvents(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	insertEvents(t, store, 25)

	removed, err := store.EvictOldestEvents(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(5), removed)

	events, total, err := store.ListEvents(ctx, &storage.EventQuery{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 20, total)
	assert.Equal(t, "evt-24", events[0].ID)
	assert.Equal(t, "evt-5", events[len(events)-1].ID)

	// Nothing to evict below the cap.
	removed, err = store.EvictOldestEvents(ctx, 20)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSQLiteClient_EvictOldestEvents_TiedTimestamps(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.InsertEvent(ctx, &model.Event{
			ID: fmt.Sprintf("tie-%d", i), TabID: "t", EventType: "x", CreatedAt: 7, LastActiveAt: 7,
		}))
	}

	removed, err := store.EvictOldestEvents(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	events, _, err := store.ListEvents(ctx, &storage.EventQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "tie-4", events[0].ID)
	assert.Equal(t, "tie-3", events[1].ID)
}

func TestSQLiteClient_ListEventsFilterAndPage(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	insertEvents(t, store, 10)
	require.NoError(t, store.InsertEvent(ctx, &model.Event{
		ID: "switch", TabID: "t", EventType: "tab-switch", CreatedAt: 5000, LastActiveAt: 5000,
	}))

	events, total, err := store.ListEvents(ctx, &storage.EventQuery{EventType: "navigation", Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	require.Len(t, events, 3)
	assert.Equal(t, "evt-6", events[0].ID)

	since, err := store.EventsSince(ctx, 1008)
	require.NoError(t, err)
	require.Len(t, since, 3)
	assert.Equal(t, "evt-8", since[0].ID)
	assert.Equal(t, "switch", since[2].ID)
}

func TestSQLiteClient_MemoryEmbedding(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	entry := &model.MemoryEntry{ID: "m1", Content: "hello", Kind: model.KindChat, ChatID: "c1", Timestamp: 10}
	require.NoError(t, store.InsertMemory(ctx, entry))

	got, err := store.GetMemory(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, got.Embedding)
	assert.Equal(t, "c1", got.ChatID)

	ok, err := store.AttachEmbedding(ctx, "m1", []float64{1, 0})
	require.NoError(t, err)
	assert.True(t, ok)

	// Never replaced once set.
	ok, err = store.AttachEmbedding(ctx, "m1", []float64{0, 1})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = store.GetMemory(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, got.Embedding)

	_, err = store.GetMemory(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSQLiteClient_SelectMemories(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		kind := model.KindChat
		if i%2 == 1 {
			kind = model.KindPage
		}
		require.NoError(t, store.InsertMemory(ctx, &model.MemoryEntry{
			ID: fmt.Sprintf("m%d", i), Content: "c", Kind: kind, Timestamp: int64(100 + i),
		}))
	}

	all, err := store.SelectMemories(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "m5", all[0].ID)

	pages, err := store.SelectMemories(ctx, &storage.MemoryQuery{Kind: model.KindPage})
	require.NoError(t, err)
	assert.Len(t, pages, 3)

	window, err := store.SelectMemories(ctx, &storage.MemoryQuery{StartTime: 101, EndTime: 103, Limit: 2})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "m3", window[0].ID)

	n, err := store.CountMemories(ctx, &storage.MemoryQuery{StartTime: 101, EndTime: 103})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteClient_SearchMemories(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	vectors := map[string][]float64{
		"exact":    {1, 0, 0},
		"close":    {0.9, 0.1, 0},
		"opposite": {-1, 0, 0},
		"short":    {1, 0},
	}
	ts := int64(1)
	for id, v := range vectors {
		require.NoError(t, store.InsertMemory(ctx, &model.MemoryEntry{
			ID: id, Content: id, Kind: model.KindPage, Timestamp: ts, Embedding: v,
		}))
		ts++
	}
	require.NoError(t, store.InsertMemory(ctx, &model.MemoryEntry{
		ID: "bare", Content: "bare", Kind: model.KindPage, Timestamp: ts,
	}))

	results, err := store.SearchMemories(ctx, []float64{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Entry.ID)
	assert.Equal(t, "close", results[1].Entry.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)

	results, err = store.SearchMemories(ctx, []float64{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSQLiteClient_Suggestions(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	sg := &model.Suggestion{
		ID:     "s1",
		Hash:   "abc",
		Kind:   "workflow",
		Title:  "Open docs",
		Status: model.StatusPending,
		Workflow: model.Workflow{
			ID:      "wf",
			Title:   "Open docs",
			Actions: []model.Action{{Type: model.ActionNavigate, Target: "https://example.com"}},
		},
		Timestamp:       100,
		ContextSnapshot: &model.ContextSnapshot{Timestamp: 99},
	}
	require.NoError(t, store.InsertSuggestion(ctx, sg))

	dup := *sg
	dup.ID = "s2"
	assert.Error(t, store.InsertSuggestion(ctx, &dup), "hash must be unique")

	byHash, err := store.GetSuggestionByHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "s1", byHash.ID)
	require.Len(t, byHash.Workflow.Actions, 1)
	assert.Equal(t, model.ActionNavigate, byHash.Workflow.Actions[0].Type)
	require.NotNil(t, byHash.ContextSnapshot)
	assert.Equal(t, int64(99), byHash.ContextSnapshot.Timestamp)

	ok, err := store.TransitionSuggestion(ctx, "s1", model.StatusPending, model.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TransitionSuggestion(ctx, "s1", model.StatusPending, model.StatusRejected)
	require.NoError(t, err)
	assert.False(t, ok)

	accepted, err := store.ListSuggestions(ctx, model.StatusAccepted)
	require.NoError(t, err)
	assert.Len(t, accepted, 1)

	_, err = store.GetSuggestion(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSQLiteClient_ExpireSuggestions(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	for i, status := range []model.SuggestionStatus{model.StatusPending, model.StatusPending, model.StatusAccepted} {
		require.NoError(t, store.InsertSuggestion(ctx, &model.Suggestion{
			ID:        fmt.Sprintf("s%d", i),
			Hash:      fmt.Sprintf("h%d", i),
			Status:    status,
			Timestamp: int64(i * 100),
		}))
	}

	n, err := store.ExpireSuggestions(ctx, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	expired, err := store.ListSuggestions(ctx, model.StatusExpired)
	require.NoError(t, err)
	assert.Len(t, expired, 2)

	pending, err := store.ListSuggestions(ctx, model.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
