// Package sqldb implements storage.Store on top of database/sql.
//
// The SQL is written once with '?' placeholders; a Dialect supplies the
// schema and placeholder rewriting for each backend. Embeddings and
// metadata are stored as JSON text, and similarity search is a full scan
// with in-memory cosine similarity.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/blueberry-browser/blueberry-go/pkg/storage"
)

// Dialect describes the backend-specific parts of the SQL layer.
type Dialect interface {
	// Name returns the backend name (e.g., "sqlite").
	Name() string

	// Schema returns the statements that create the tables and indexes.
	Schema(t Tables) []string

	// Rebind rewrites '?' placeholders into the backend's bind syntax.
	Rebind(query string) string
}

// Tables holds the table names used by the store.
type Tables struct {
	Events      string
	Memories    string
	Suggestions string
}

// NewTables returns the table names for the given prefix.
func NewTables(prefix string) Tables {
	return Tables{
		Events:      prefix + "events",
		Memories:    prefix + "memories",
		Suggestions: prefix + "suggestions",
	}
}

// Store implements storage.Store over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  Tables
}

var _ storage.Store = (*Store)(nil)

// New wraps db, creates the schema if needed and returns the store.
func New(ctx context.Context, db *sql.DB, dialect Dialect, tablePrefix string) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: dialect,
		tables:  NewTables(tablePrefix),
	}

	if err := s.initTables(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// initTables runs the dialect schema.
func (s *Store) initTables(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema(s.tables) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initTables(%s): %w", s.dialect.Name(), err)
		}
	}
	return nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// q formats a query with table names and rebinds its placeholders.
func (s *Store) q(format string, args ...interface{}) string {
	return s.dialect.Rebind(fmt.Sprintf(format, args...))
}

// RebindQuestion leaves '?' placeholders untouched.
func RebindQuestion(query string) string {
	return query
}

// RebindDollar rewrites '?' placeholders into $1, $2, ...
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// where joins conditions into a WHERE clause.
func where(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}
