// Package mysql provides the MySQL backend for the engine store. It also
// works against MySQL-compatible servers such as OceanBase and TiDB.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/blueberry-browser/blueberry-go/pkg/storage/sqldb"
)

// Client is a MySQL store.
type Client struct {
	*sqldb.Store
}

// Config contains MySQL configuration.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	TablePrefix string
}

// NewClient creates a new MySQL client.
func NewClient(cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	store, err := sqldb.New(context.Background(), db, Dialect{}, cfg.TablePrefix)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{Store: store}, nil
}

// Dialect is the MySQL flavour of the shared SQL layer. Indexes are declared
// inline because MySQL has no CREATE INDEX IF NOT EXISTS.
type Dialect struct{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) Rebind(query string) string { return sqldb.RebindQuestion(query) }

func (Dialect) Schema(t sqldb.Tables) []string {
	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq BIGINT AUTO_INCREMENT PRIMARY KEY,
				id VARCHAR(100) NOT NULL UNIQUE,
				tab_id VARCHAR(255) NOT NULL,
				title TEXT,
				url TEXT,
				event_type VARCHAR(64) NOT NULL,
				metadata LONGTEXT,
				created_at BIGINT NOT NULL,
				last_active_at BIGINT NOT NULL,
				INDEX idx_created (created_at)
			)
		`, t.Events),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq BIGINT AUTO_INCREMENT PRIMARY KEY,
				id VARCHAR(100) NOT NULL UNIQUE,
				content LONGTEXT NOT NULL,
				kind VARCHAR(16) NOT NULL,
				metadata LONGTEXT,
				chat_id VARCHAR(255),
				created_at BIGINT NOT NULL,
				embedding LONGTEXT NOT NULL,
				INDEX idx_kind_created (kind, created_at)
			)
		`, t.Memories),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(100) PRIMARY KEY,
				hash VARCHAR(64) NOT NULL UNIQUE,
				kind VARCHAR(32),
				title TEXT,
				description TEXT,
				workflow LONGTEXT NOT NULL,
				status VARCHAR(16) NOT NULL,
				created_at BIGINT NOT NULL,
				context_snapshot LONGTEXT,
				INDEX idx_status (status)
			)
		`, t.Suggestions),
	}
}
