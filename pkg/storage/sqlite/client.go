// Package sqlite provides the SQLite backend for the engine store.
//
// SQLite is a lightweight, file-based database suitable for a single browser
// profile. Embeddings are stored as JSON strings in TEXT fields, and
// similarity search uses in-memory cosine similarity calculation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/blueberry-browser/blueberry-go/pkg/storage/sqldb"
)

// Client is a storage.Store backed by a SQLite file.
type Client struct {
	*sqldb.Store
}

// Config contains configuration for creating a SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for a throwaway database.
	DBPath string

	// TablePrefix is prepended to every table name.
	TablePrefix string
}

// NewClient opens (or creates) the database file and initializes the schema.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.DBPath == "" {
		return nil, fmt.Errorf("NewSQLiteClient: db path is required")
	}

	dsn := cfg.DBPath
	if dsn == ":memory:" {
		dsn += "?_foreign_keys=1"
	} else {
		dbDir := filepath.Dir(cfg.DBPath)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0755); err != nil {
				return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
			}
		}
		dsn += "?_foreign_keys=1&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}
	if cfg.DBPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	store, err := sqldb.New(context.Background(), db, Dialect{}, cfg.TablePrefix)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{Store: store}, nil
}

// Dialect is the SQLite flavour of the shared SQL layer.
type Dialect struct{}

// Name implements sqldb.Dialect.
func (Dialect) Name() string { return "sqlite" }

// Rebind implements sqldb.Dialect.
func (Dialect) Rebind(query string) string { return sqldb.RebindQuestion(query) }

// Schema implements sqldb.Dialect.
func (Dialect) Schema(t sqldb.Tables) []string {
	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				tab_id TEXT NOT NULL,
				title TEXT,
				url TEXT,
				event_type TEXT NOT NULL,
				metadata TEXT,
				created_at INTEGER NOT NULL,
				last_active_at INTEGER NOT NULL
			)
		`, t.Events),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created ON %s(created_at)`, t.Events, t.Events),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				content TEXT NOT NULL,
				kind TEXT NOT NULL,
				metadata TEXT,
				chat_id TEXT,
				created_at INTEGER NOT NULL,
				embedding TEXT NOT NULL DEFAULT '[]'
			)
		`, t.Memories),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_kind_created ON %s(kind, created_at)`, t.Memories, t.Memories),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				hash TEXT NOT NULL UNIQUE,
				kind TEXT,
				title TEXT,
				description TEXT,
				workflow TEXT NOT NULL,
				status TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				context_snapshot TEXT
			)
		`, t.Suggestions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status)`, t.Suggestions, t.Suggestions),
	}
}
