package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
	"github.com/blueberry-browser/blueberry-go/pkg/storage"
)

const eventColumns = "id, tab_id, title, url, event_type, metadata, created_at, last_active_at"

// InsertEvent appends an event to the log.
func (s *Store) InsertEvent(ctx context.Context, event *model.Event) error {
	metadata, err := encodeJSON(event.Metadata)
	if err != nil {
		return fmt.Errorf("InsertEvent: %w", err)
	}

	query := s.q(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tables.Events, eventColumns)

	_, err = s.db.ExecContext(ctx, query,
		event.ID,
		event.TabID,
		event.Title,
		event.URL,
		event.EventType,
		metadata,
		event.CreatedAt,
		event.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("InsertEvent: %w", err)
	}

	return nil
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	query := s.q("SELECT COUNT(*) FROM %s", s.tables.Events)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountEvents: %w", err)
	}
	return n, nil
}

// EvictOldestEvents keeps the newest keep events and deletes the rest.
//
// The cut-off row is located first and everything strictly older than it
// in (created_at, seq) order is removed, so the statement works on every
// dialect without LIMIT inside a subquery.
func (s *Store) EvictOldestEvents(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("EvictOldestEvents: %w: keep must be positive", model.ErrInvalidInput)
	}

	var createdAt, seq int64
	cutoff := s.q(`
		SELECT created_at, seq FROM %s
		ORDER BY created_at DESC, seq DESC
		LIMIT 1 OFFSET ?
	`, s.tables.Events)

	err := s.db.QueryRowContext(ctx, cutoff, keep-1).Scan(&createdAt, &seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("EvictOldestEvents: %w", err)
	}

	del := s.q(`
		DELETE FROM %s
		WHERE created_at < ? OR (created_at = ? AND seq < ?)
	`, s.tables.Events)

	result, err := s.db.ExecContext(ctx, del, createdAt, createdAt, seq)
	if err != nil {
		return 0, fmt.Errorf("EvictOldestEvents: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("EvictOldestEvents: %w", err)
	}
	return n, nil
}

// ListEvents returns one page of events, newest first.
func (s *Store) ListEvents(ctx context.Context, opts *storage.EventQuery) ([]*model.Event, int, error) {
	if opts == nil {
		opts = &storage.EventQuery{}
	}

	var conditions []string
	var args []interface{}
	if opts.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, opts.EventType)
	}
	whereClause := where(conditions)

	var total int
	countQuery := s.q("SELECT COUNT(*) FROM %s %s", s.tables.Events, whereClause)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListEvents: %w", err)
	}

	query := s.q(`
		SELECT %s FROM %s
		%s
		ORDER BY created_at DESC, seq DESC
		LIMIT ? OFFSET ?
	`, eventColumns, s.tables.Events, whereClause)
	args = append(args, opts.Limit, opts.Offset)

	events, err := s.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListEvents: %w", err)
	}

	return events, total, nil
}

// EventsSince returns events created at or after since, oldest first.
func (s *Store) EventsSince(ctx context.Context, since int64) ([]*model.Event, error) {
	query := s.q(`
		SELECT %s FROM %s
		WHERE created_at >= ?
		ORDER BY created_at ASC, seq ASC
	`, eventColumns, s.tables.Events)

	events, err := s.queryEvents(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("EventsSince: %w", err)
	}
	return events, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var event model.Event
	var title, url, metadata sql.NullString

	err := row.Scan(
		&event.ID,
		&event.TabID,
		&title,
		&url,
		&event.EventType,
		&metadata,
		&event.CreatedAt,
		&event.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}

	event.Title = title.String
	event.URL = url.String
	if event.Metadata, err = decodeMap(metadata.String); err != nil {
		return nil, err
	}

	return &event, nil
}
