package inference

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberry-browser/blueberry-go/pkg/llm"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

type scriptedLLM struct {
	reply    string
	err      error
	messages []llm.Message
	opts     *llm.GenerateOptions
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return s.GenerateWithMessages(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (s *scriptedLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	s.messages = messages
	s.opts = llm.ApplyGenerateOptions(opts)
	return s.reply, s.err
}

func (s *scriptedLLM) Close() error { return nil }

func snapshot() *model.ContextSnapshot {
	return &model.ContextSnapshot{
		OpenTabs: []model.TabContext{{ID: "t1", URL: "https://go.dev", Domain: "go.dev", IsActive: true}},
		RecentEvents: []model.Event{
			{ID: "e1", TabID: "t1", EventType: "navigation"},
		},
	}
}

func TestLLMSuggester_ValidReply(t *testing.T) {
	provider := &scriptedLLM{reply: "```json\n" + `{
		"title": "Open docs",
		"description": "Opens the Go docs",
		"triggerContext": "user reads go.dev",
		"isValid": true,
		"actions": [
			{"type": "navigate", "target": "https://pkg.go.dev"},
			{"type": "teleport"},
			{"type": "wait", "value": "500"}
		]
	}` + "\n```"}

	s := NewLLMSuggester(provider, zerolog.Nop())
	wf, err := s.SuggestWorkflow(context.Background(), snapshot())
	require.NoError(t, err)
	require.NotNil(t, wf)

	assert.NotEmpty(t, wf.ID)
	assert.Equal(t, "Open docs", wf.Title)
	assert.Equal(t, "user reads go.dev", wf.TriggerContext)
	require.Len(t, wf.Actions, 2)
	assert.Equal(t, model.ActionNavigate, wf.Actions[0].Type)
	assert.Equal(t, model.ActionWait, wf.Actions[1].Type)

	require.Len(t, provider.messages, 2)
	assert.Equal(t, llm.RoleSystem, provider.messages[0].Role)
	assert.True(t, strings.Contains(provider.messages[1].Content, "go.dev"))
	assert.True(t, provider.opts.JSONMode)
}

func TestLLMSuggester_NoPattern(t *testing.T) {
	for _, reply := range []string{
		`{"isValid": false, "actions": []}`,
		`{"isValid": true, "actions": []}`,
		`{"isValid": true, "actions": [{"type": "unknown"}]}`,
	} {
		s := NewLLMSuggester(&scriptedLLM{reply: reply}, zerolog.Nop())
		wf, err := s.SuggestWorkflow(context.Background(), snapshot())
		require.NoError(t, err, reply)
		assert.Nil(t, wf, reply)
	}
}

func TestLLMSuggester_Errors(t *testing.T) {
	s := NewLLMSuggester(&scriptedLLM{err: errors.New("rate limited")}, zerolog.Nop())
	_, err := s.SuggestWorkflow(context.Background(), snapshot())
	assert.ErrorIs(t, err, model.ErrLLMOperation)

	s = NewLLMSuggester(&scriptedLLM{reply: "I think you should open docs"}, zerolog.Nop())
	_, err = s.SuggestWorkflow(context.Background(), snapshot())
	assert.ErrorIs(t, err, model.ErrLLMOperation)

	wf, err := s.SuggestWorkflow(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, wf)
}

func TestSuggesterFunc(t *testing.T) {
	var sg Suggester = SuggesterFunc(func(ctx context.Context, snap *model.ContextSnapshot) (*model.Workflow, error) {
		return &model.Workflow{Title: "x"}, nil
	})
	wf, err := sg.SuggestWorkflow(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "x", wf.Title)
}

func TestLLMSuggester_LooseActionValues(t *testing.T) {
	provider := &scriptedLLM{reply: `{
		"title": "Read later",
		"triggerContext": "reading list",
		"isValid": true,
		"actions": [
			{"type": "wait", "value": 1000},
			{"type": "wait", "value": 2.5e3},
			{"type": "click", "target": {"css": "#save"}},
			{"type": "input", "target": "#q", "value": ["go"]},
			{"type": "navigate", "target": "https://go.dev/blog", "value": null}
		]
	}`}

	s := NewLLMSuggester(provider, zerolog.Nop())
	wf, err := s.SuggestWorkflow(context.Background(), snapshot())
	require.NoError(t, err)
	require.NotNil(t, wf)

	require.Len(t, wf.Actions, 3)
	assert.Equal(t, model.Action{Type: model.ActionWait, Value: "1000"}, wf.Actions[0])
	assert.Equal(t, "2500", wf.Actions[1].Value)
	assert.Equal(t, model.ActionNavigate, wf.Actions[2].Type)
	assert.Empty(t, wf.Actions[2].Value)
}

func TestActionValue(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: `"750"`, want: "750"},
		{raw: `750`, want: "750"},
		{raw: `1.5`, want: "1.5"},
		{raw: `null`, want: ""},
		{raw: ``, want: ""},
		{raw: `true`, wantErr: true},
		{raw: `{"ms": 5}`, wantErr: true},
	}

	for _, tt := range tests {
		got, err := actionValue([]byte(tt.raw))
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

type entryList struct {
	entries []*model.MemoryEntry
	limit   int
	err     error
}

func (l *entryList) Recent(ctx context.Context, limit int) ([]*model.MemoryEntry, error) {
	l.limit = limit
	return l.entries, l.err
}

func pages(url string, n int) []*model.MemoryEntry {
	out := make([]*model.MemoryEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &model.MemoryEntry{
			Kind:     model.KindPage,
			Content:  "page",
			Metadata: map[string]interface{}{"url": url},
		})
	}
	return out
}

func TestSiteVisitSuggester_TopDomains(t *testing.T) {
	var entries []*model.MemoryEntry
	entries = append(entries, pages("https://go.dev/doc", 3)...)
	entries = append(entries, pages("https://github.com/golang/go", 5)...)
	entries = append(entries, pages("https://news.ycombinator.com", 4)...)
	entries = append(entries, pages("https://pkg.go.dev/net/http", 3)...)
	entries = append(entries, pages("https://example.com", 2)...)
	entries = append(entries, &model.MemoryEntry{
		Kind:     model.KindChat,
		Content:  "chat about example.com",
		Metadata: map[string]interface{}{"url": "https://example.com"},
	})

	source := &entryList{entries: entries}
	s := NewSiteVisitSuggester(source)

	wf, err := s.SuggestWorkflow(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, wf)
	assert.Equal(t, DefaultSiteVisitWindow, source.limit)

	require.Len(t, wf.Actions, 3)
	assert.Equal(t, "https://github.com", wf.Actions[0].Target)
	assert.Equal(t, "https://news.ycombinator.com", wf.Actions[1].Target)
	assert.Equal(t, "https://go.dev", wf.Actions[2].Target)
	for _, a := range wf.Actions {
		assert.Equal(t, model.ActionNavigate, a.Type)
	}
	assert.Equal(t, "site-visits:github.com,news.ycombinator.com,go.dev", wf.TriggerContext)
	assert.Equal(t, "Open your frequent sites", wf.Title)
}

func TestSiteVisitSuggester_Threshold(t *testing.T) {
	source := &entryList{entries: pages("https://go.dev", 2)}
	s := NewSiteVisitSuggester(source)

	wf, err := s.SuggestWorkflow(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, wf, "two visits are below the threshold")

	source.entries = append(source.entries, pages("https://go.dev/blog", 1)...)
	wf, err = s.SuggestWorkflow(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, wf)
	assert.Equal(t, "Visit go.dev", wf.Title)
	require.Len(t, wf.Actions, 1)
	assert.Equal(t, "https://go.dev", wf.Actions[0].Target)

	s = NewSiteVisitSuggester(source, WithMinVisits(4))
	wf, err = s.SuggestWorkflow(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, wf)
}

func TestSiteVisitSuggester_SourceError(t *testing.T) {
	s := NewSiteVisitSuggester(&entryList{err: errors.New("db closed")})
	_, err := s.SuggestWorkflow(context.Background(), nil)
	assert.Error(t, err)
}
