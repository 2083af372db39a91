package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
	"github.com/blueberry-browser/blueberry-go/pkg/storage"
)

const memoryColumns = "id, content, kind, metadata, chat_id, created_at, embedding"

// InsertMemory stores a new memory entry.
func (s *Store) InsertMemory(ctx context.Context, entry *model.MemoryEntry) error {
	embedding, err := encodeVector(entry.Embedding)
	if err != nil {
		return fmt.Errorf("InsertMemory: %w", err)
	}

	metadata, err := encodeJSON(entry.Metadata)
	if err != nil {
		return fmt.Errorf("InsertMemory: %w", err)
	}

	query := s.q(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.tables.Memories, memoryColumns)

	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Content,
		string(entry.Kind),
		metadata,
		entry.ChatID,
		entry.Timestamp,
		embedding,
	)
	if err != nil {
		return fmt.Errorf("InsertMemory: %w", err)
	}

	return nil
}

// GetMemory retrieves an entry by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (*model.MemoryEntry, error) {
	query := s.q("SELECT %s FROM %s WHERE id = ?", memoryColumns, s.tables.Memories)

	entry, err := scanMemory(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetMemory: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetMemory: %w", err)
	}

	return entry, nil
}

// AttachEmbedding sets the embedding of an entry that has none yet.
func (s *Store) AttachEmbedding(ctx context.Context, id string, embedding []float64) (bool, error) {
	if len(embedding) == 0 {
		return false, nil
	}

	encoded, err := encodeVector(embedding)
	if err != nil {
		return false, fmt.Errorf("AttachEmbedding: %w", err)
	}

	query := s.q(`
		UPDATE %s SET embedding = ?
		WHERE id = ? AND embedding = ?
	`, s.tables.Memories)

	result, err := s.db.ExecContext(ctx, query, encoded, id, emptyVector)
	if err != nil {
		return false, fmt.Errorf("AttachEmbedding: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("AttachEmbedding: %w", err)
	}
	return n > 0, nil
}

// SelectMemories returns entries matching the selector, newest first.
func (s *Store) SelectMemories(ctx context.Context, q *storage.MemoryQuery) ([]*model.MemoryEntry, error) {
	whereClause, args := memoryWhere(q)

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		%s
		ORDER BY created_at DESC, seq DESC
	`, memoryColumns, s.tables.Memories, whereClause)

	if q != nil && q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	entries, err := s.queryMemories(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("SelectMemories: %w", err)
	}
	return entries, nil
}

// CountMemories returns the number of entries matching the selector.
func (s *Store) CountMemories(ctx context.Context, q *storage.MemoryQuery) (int, error) {
	whereClause, args := memoryWhere(q)

	var n int
	query := s.q("SELECT COUNT(*) FROM %s %s", s.tables.Memories, whereClause)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountMemories: %w", err)
	}
	return n, nil
}

// SearchMemories scores every entry that has an embedding against the query
// vector and returns the best matches.
//
// There is no vector index: the table is scanned and cosine similarity is
// computed in memory. Entries whose embedding length differs from the query
// score 0 and are dropped.
func (s *Store) SearchMemories(ctx context.Context, embedding []float64, limit int) ([]*storage.ScoredMemory, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := s.q(`
		SELECT %s FROM %s
		WHERE embedding <> ?
		ORDER BY created_at DESC, seq DESC
	`, memoryColumns, s.tables.Memories)

	entries, err := s.queryMemories(ctx, query, emptyVector)
	if err != nil {
		return nil, fmt.Errorf("SearchMemories: %w", err)
	}

	scored := make([]*storage.ScoredMemory, 0, len(entries))
	for _, entry := range entries {
		scored = append(scored, &storage.ScoredMemory{
			Entry: entry,
			Score: storage.CosineSimilarity(embedding, entry.Embedding),
		})
	}

	return storage.RankByScore(scored, limit), nil
}

func memoryWhere(q *storage.MemoryQuery) (string, []interface{}) {
	if q == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}

	if q.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.StartTime > 0 {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, q.StartTime)
	}
	if q.EndTime > 0 {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, q.EndTime)
	}

	return where(conditions), args
}

func (s *Store) queryMemories(ctx context.Context, query string, args ...interface{}) ([]*model.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*model.MemoryEntry
	for rows.Next() {
		entry, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func scanMemory(row rowScanner) (*model.MemoryEntry, error) {
	var entry model.MemoryEntry
	var kind, embedding string
	var metadata, chatID sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.Content,
		&kind,
		&metadata,
		&chatID,
		&entry.Timestamp,
		&embedding,
	)
	if err != nil {
		return nil, err
	}

	entry.Kind = model.MemoryKind(kind)
	entry.ChatID = chatID.String
	if entry.Metadata, err = decodeMap(metadata.String); err != nil {
		return nil, err
	}
	if entry.Embedding, err = decodeVector(embedding); err != nil {
		return nil, err
	}

	return &entry, nil
}
