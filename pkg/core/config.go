// Package core wires the engine together from configuration.
package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

// EnvPrefix is the prefix of every environment variable read by
// LoadConfigFromEnv, e.g. BLUEBERRY_STORAGE_PROVIDER.
const EnvPrefix = "BLUEBERRY"

// Config contains the complete configuration of the engine.
//
// Example:
//
//	config := &core.Config{
//	    Storage: core.StorageConfig{
//	        Provider: "sqlite",
//	        DBPath:   "./blueberry.db",
//	    },
//	    Embedder: core.EmbedderConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	    },
//	    LLM: core.LLMConfig{
//	        Provider: "anthropic",
//	        APIKey:   "sk-ant-...",
//	    },
//	}
type Config struct {
	// Storage selects and configures the SQL backend.
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Embedder configures the embedding provider. An empty provider
	// disables similarity search.
	Embedder EmbedderConfig `json:"embedder" yaml:"embedder"`

	// LLM configures the model used for workflow inference. An empty
	// provider disables pattern analysis.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Engine holds the pipeline tunables.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// HTTP configures the API server.
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Log configures the logger.
	Log LogConfig `json:"log" yaml:"log"`
}

// StorageConfig contains configuration for the storage backend.
//
// Supported providers: sqlite, postgres, mysql
type StorageConfig struct {
	Provider    string `json:"provider" yaml:"provider" default:"sqlite"`
	TablePrefix string `json:"table_prefix" yaml:"table_prefix" split_words:"true"`

	// DBPath is the sqlite database file; ":memory:" keeps everything in RAM.
	DBPath string `json:"db_path" yaml:"db_path" split_words:"true" default:"./blueberry.db"`

	// Host, Port, User, Password and Database apply to postgres and mysql.
	Host     string `json:"host" yaml:"host" default:"127.0.0.1"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database" default:"blueberry"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode" split_words:"true" default:"disable"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai, ollama
type EmbedderConfig struct {
	Provider   string `json:"provider" yaml:"provider"`
	APIKey     string `json:"api_key" yaml:"api_key" split_words:"true"`
	Model      string `json:"model" yaml:"model"`
	BaseURL    string `json:"base_url" yaml:"base_url" split_words:"true"`
	Dimensions int    `json:"dimensions" yaml:"dimensions"`

	// MaxRetries is the number of retries after a failed embedding call.
	MaxRetries int `json:"max_retries" yaml:"max_retries" split_words:"true" default:"3"`
}

// LLMConfig contains configuration for the LLM provider.
//
// Supported providers: openai, anthropic
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	APIKey   string `json:"api_key" yaml:"api_key" split_words:"true"`
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url" split_words:"true"`
}

// EngineConfig holds the tunables of the background pipeline.
type EngineConfig struct {
	// MaxEvents is the event log retention ceiling.
	MaxEvents int `json:"max_events" yaml:"max_events" split_words:"true" default:"2000"`

	// ContextWindow is how far back the context assembler looks.
	ContextWindow time.Duration `json:"context_window" yaml:"context_window" split_words:"true" default:"5m"`

	// AnalysisInterval is the period of scheduled analyses.
	AnalysisInterval time.Duration `json:"analysis_interval" yaml:"analysis_interval" split_words:"true" default:"5m"`

	// SuggestionTTL is how long a pending suggestion lives before expiry.
	SuggestionTTL time.Duration `json:"suggestion_ttl" yaml:"suggestion_ttl" split_words:"true" default:"24h"`

	// AnalyzeOnAdd triggers an analysis after every new memory entry.
	AnalyzeOnAdd bool `json:"analyze_on_add" yaml:"analyze_on_add" split_words:"true" default:"true"`

	// NodeID seeds the event ID generator; it must be unique per process
	// writing to the same store.
	NodeID int64 `json:"node_id" yaml:"node_id" split_words:"true" default:"1"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr" default:":8080"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" default:"info"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Provider: "sqlite",
			DBPath:   "./blueberry.db",
			Host:     "127.0.0.1",
			Database: "blueberry",
			SSLMode:  "disable",
		},
		Embedder: EmbedderConfig{
			MaxRetries: 3,
		},
		Engine: EngineConfig{
			MaxEvents:        2000,
			ContextWindow:    5 * time.Minute,
			AnalysisInterval: 5 * time.Minute,
			SuggestionTTL:    24 * time.Hour,
			AnalyzeOnAdd:     true,
			NodeID:           1,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Decodes BLUEBERRY_* variables into a Config
//
// Variables already set in the environment win over the file. Multi-word
// fields use underscores, e.g. BLUEBERRY_ENGINE_MAX_EVENTS.
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	}

	var config Config
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, model.NewEngineError("LoadConfigFromEnv", fmt.Errorf("%w: %w", model.ErrInvalidConfig, err))
	}

	return &config, nil
}

// LoadConfigFromEnvFile loads a specific .env file and then the environment.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file. Fields missing
// from the file keep their defaults.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewEngineError("LoadConfigFromJSON", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, model.NewEngineError("LoadConfigFromJSON", fmt.Errorf("%w: %w", model.ErrInvalidConfig, err))
	}

	return config, nil
}

// LoadConfigFromYAML loads configuration from a YAML file. Fields missing
// from the file keep their defaults.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewEngineError("LoadConfigFromYAML", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, model.NewEngineError("LoadConfigFromYAML", fmt.Errorf("%w: %w", model.ErrInvalidConfig, err))
	}

	return config, nil
}

// LoadConfig loads path by extension (.yaml, .yml or .json), or the
// environment when path is empty.
func LoadConfig(path string) (*Config, error) {
	switch filepath.Ext(path) {
	case "":
		if path == "" {
			return LoadConfigFromEnv()
		}
	case ".yaml", ".yml":
		return LoadConfigFromYAML(path)
	case ".json":
		return LoadConfigFromJSON(path)
	}
	return nil, model.NewEngineError("LoadConfig", fmt.Errorf("%w: unsupported config file %q", model.ErrInvalidConfig, path))
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return model.NewEngineError("Validate", fmt.Errorf("%w: "+format, append([]interface{}{model.ErrInvalidConfig}, args...)...))
	}

	switch c.Storage.Provider {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return invalid("db_path is required")
		}
	case "postgres", "mysql":
		if c.Storage.Host == "" || c.Storage.Database == "" {
			return invalid("%s requires host and database", c.Storage.Provider)
		}
	default:
		return invalid("unknown storage provider %q", c.Storage.Provider)
	}

	switch c.Embedder.Provider {
	case "":
	case "openai":
		if c.Embedder.APIKey == "" {
			return invalid("openai embedder requires an api key")
		}
	case "ollama":
		if c.Embedder.Model == "" {
			return invalid("ollama embedder requires a model")
		}
	default:
		return invalid("unknown embedder provider %q", c.Embedder.Provider)
	}

	switch c.LLM.Provider {
	case "":
	case "openai", "anthropic":
		if c.LLM.APIKey == "" {
			return invalid("%s llm requires an api key", c.LLM.Provider)
		}
	default:
		return invalid("unknown llm provider %q", c.LLM.Provider)
	}

	if c.Engine.MaxEvents < 1 {
		return invalid("max_events must be positive")
	}
	if c.Engine.ContextWindow <= 0 || c.Engine.AnalysisInterval <= 0 || c.Engine.SuggestionTTL <= 0 {
		return invalid("engine durations must be positive")
	}
	if c.Engine.NodeID < 0 || c.Engine.NodeID > 1023 {
		return invalid("node_id must be within 0..1023")
	}

	return nil
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}

	for i := 0; i < 5; i++ {
		for _, name := range []string{".env", ".env.example"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
