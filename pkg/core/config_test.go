package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BLUEBERRY_STORAGE_PROVIDER", "postgres")
	t.Setenv("BLUEBERRY_STORAGE_HOST", "db.internal")
	t.Setenv("BLUEBERRY_STORAGE_PORT", "6543")
	t.Setenv("BLUEBERRY_LLM_PROVIDER", "anthropic")
	t.Setenv("BLUEBERRY_LLM_API_KEY", "test-key")
	t.Setenv("BLUEBERRY_ENGINE_MAX_EVENTS", "500")
	t.Setenv("BLUEBERRY_ENGINE_CONTEXT_WINDOW", "90s")
	t.Setenv("BLUEBERRY_LOG_PRETTY", "true")

	config, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", config.Storage.Provider)
	assert.Equal(t, "db.internal", config.Storage.Host)
	assert.Equal(t, 6543, config.Storage.Port)
	assert.Equal(t, "blueberry", config.Storage.Database)
	assert.Equal(t, "anthropic", config.LLM.Provider)
	assert.Equal(t, "test-key", config.LLM.APIKey)
	assert.Equal(t, 500, config.Engine.MaxEvents)
	assert.Equal(t, 90*time.Second, config.Engine.ContextWindow)
	assert.Equal(t, 24*time.Hour, config.Engine.SuggestionTTL)
	assert.True(t, config.Log.Pretty)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigFromEnv_BadValue(t *testing.T) {
	t.Setenv("BLUEBERRY_ENGINE_MAX_EVENTS", "lots")

	_, err := LoadConfigFromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blueberry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  provider: sqlite
  db_path: /tmp/bb.db
embedder:
  provider: ollama
  model: nomic-embed-text
engine:
  analysis_interval: 2m
  analyze_on_add: false
`), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bb.db", config.Storage.DBPath)
	assert.Equal(t, "ollama", config.Embedder.Provider)
	assert.Equal(t, 2*time.Minute, config.Engine.AnalysisInterval)
	assert.False(t, config.Engine.AnalyzeOnAdd)
	assert.Equal(t, 2000, config.Engine.MaxEvents)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blueberry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"storage": {"provider": "mysql", "host": "127.0.0.1", "database": "bb"},
		"http": {"addr": ":9090"}
	}`), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", config.Storage.Provider)
	assert.Equal(t, ":9090", config.HTTP.Addr)
	assert.Equal(t, 5*time.Minute, config.Engine.ContextWindow)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	_, err = LoadConfigFromJSON(bad)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	_, err := LoadConfig("config.toml")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Provider = "oracle" }, wantErr: true},
		{name: "sqlite without path", mutate: func(c *Config) { c.Storage.DBPath = "" }, wantErr: true},
		{name: "openai embedder without key", mutate: func(c *Config) { c.Embedder.Provider = "openai" }, wantErr: true},
		{name: "ollama embedder with model", mutate: func(c *Config) {
			c.Embedder.Provider = "ollama"
			c.Embedder.Model = "nomic-embed-text"
		}},
		{name: "unknown llm", mutate: func(c *Config) { c.LLM.Provider = "qwen" }, wantErr: true},
		{name: "llm without key", mutate: func(c *Config) { c.LLM.Provider = "openai" }, wantErr: true},
		{name: "zero retention", mutate: func(c *Config) { c.Engine.MaxEvents = 0 }, wantErr: true},
		{name: "zero window", mutate: func(c *Config) { c.Engine.ContextWindow = 0 }, wantErr: true},
		{name: "node id out of range", mutate: func(c *Config) { c.Engine.NodeID = 4096 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
