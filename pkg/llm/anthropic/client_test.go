package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberry-browser/blueberry-go/pkg/llm"
)

func TestClient_GenerateWithMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, "be brief", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, llm.RoleUser, req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hi"},{"type":"text","text":" there"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(&Config{APIKey: "secret", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := c.GenerateWithMessages(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be brief"},
		{Role: llm.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestClient_JSONModePrefill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		last := req.Messages[len(req.Messages)-1]
		assert.Equal(t, llm.RoleAssistant, last.Role)
		assert.Equal(t, "{", last.Content)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"\"isValid\":false}"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(&Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "analyze", llm.WithJSONMode())
	require.NoError(t, err)
	assert.JSONEq(t, `{"isValid":false}`, out)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, 529)
	}))
	defer srv.Close()

	c, err := NewClient(&Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "x")
	assert.ErrorContains(t, err, "status 529")
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(&Config{})
	assert.Error(t, err)
}
