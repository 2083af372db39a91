package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/blueberry-browser/blueberry-go/pkg/storage/sqldb"
)

// Client is a PostgreSQL store.
type Client struct {
	*sqldb.Store
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	TablePrefix string
	SSLMode     string
}

// NewClient creates a new PostgreSQL client.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	store, err := sqldb.New(context.Background(), db, Dialect{}, cfg.TablePrefix)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{Store: store}, nil
}

// Dialect is the PostgreSQL flavour of the shared SQL layer.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Rebind(query string) string { return sqldb.RebindDollar(query) }

func (Dialect) Schema(t sqldb.Tables) []string {
	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq BIGSERIAL PRIMARY KEY,
				id VARCHAR(100) NOT NULL UNIQUE,
				tab_id VARCHAR(255) NOT NULL,
				title TEXT,
				url TEXT,
				event_type VARCHAR(64) NOT NULL,
				metadata TEXT,
				created_at BIGINT NOT NULL,
				last_active_at BIGINT NOT NULL
			)
		`, t.Events),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created ON %s(created_at)`, t.Events, t.Events),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq BIGSERIAL PRIMARY KEY,
				id VARCHAR(100) NOT NULL UNIQUE,
				content TEXT NOT NULL,
				kind VARCHAR(16) NOT NULL,
				metadata TEXT,
				chat_id VARCHAR(255),
				created_at BIGINT NOT NULL,
				embedding TEXT NOT NULL DEFAULT '[]'
			)
		`, t.Memories),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_kind_created ON %s(kind, created_at)`, t.Memories, t.Memories),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(100) PRIMARY KEY,
				hash VARCHAR(64) NOT NULL UNIQUE,
				kind VARCHAR(32),
				title TEXT,
				description TEXT,
				workflow TEXT NOT NULL,
				status VARCHAR(16) NOT NULL,
				created_at BIGINT NOT NULL,
				context_snapshot TEXT
			)
		`, t.Suggestions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status)`, t.Suggestions, t.Suggestions),
	}
}
