package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blueberry-browser/blueberry-go/pkg/model"
)

const suggestionColumns = "id, hash, kind, title, description, workflow, status, created_at, context_snapshot"

// InsertSuggestion stores a new suggestion.
func (s *Store) InsertSuggestion(ctx context.Context, sg *model.Suggestion) error {
	workflow, err := json.Marshal(sg.Workflow)
	if err != nil {
		return fmt.Errorf("InsertSuggestion: %w", err)
	}

	var snapshot string
	if sg.ContextSnapshot != nil {
		if snapshot, err = encodeJSON(sg.ContextSnapshot); err != nil {
			return fmt.Errorf("InsertSuggestion: %w", err)
		}
	}

	query := s.q(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tables.Suggestions, suggestionColumns)

	_, err = s.db.ExecContext(ctx, query,
		sg.ID,
		sg.Hash,
		sg.Kind,
		sg.Title,
		sg.Description,
		string(workflow),
		string(sg.Status),
		sg.Timestamp,
		snapshot,
	)
	if err != nil {
		return fmt.Errorf("InsertSuggestion: %w", err)
	}

	return nil
}

// GetSuggestion retrieves a suggestion by ID.
func (s *Store) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	return s.getSuggestion(ctx, "GetSuggestion", "id", id)
}

// GetSuggestionByHash retrieves a suggestion by its content hash.
func (s *Store) GetSuggestionByHash(ctx context.Context, hash string) (*model.Suggestion, error) {
	return s.getSuggestion(ctx, "GetSuggestionByHash", "hash", hash)
}

func (s *Store) getSuggestion(ctx context.Context, op, column, value string) (*model.Suggestion, error) {
	query := s.q("SELECT %s FROM %s WHERE %s = ?", suggestionColumns, s.tables.Suggestions, column)

	sg, err := scanSuggestion(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sg, nil
}

// ListSuggestions returns suggestions newest first.
func (s *Store) ListSuggestions(ctx context.Context, status model.SuggestionStatus) ([]*model.Suggestion, error) {
	var conditions []string
	var args []interface{}
	if status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(status))
	}

	query := s.q(`
		SELECT %s FROM %s
		%s
		ORDER BY created_at DESC, id DESC
	`, suggestionColumns, s.tables.Suggestions, where(conditions))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListSuggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("ListSuggestions: %w", err)
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSuggestions: %w", err)
	}

	return out, nil
}

// TransitionSuggestion performs a compare-and-set on the status column.
func (s *Store) TransitionSuggestion(ctx context.Context, id string, from, to model.SuggestionStatus) (bool, error) {
	query := s.q("UPDATE %s SET status = ? WHERE id = ? AND status = ?", s.tables.Suggestions)

	result, err := s.db.ExecContext(ctx, query, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("TransitionSuggestion: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("TransitionSuggestion: %w", err)
	}
	return n > 0, nil
}

// ExpireSuggestions marks old pending suggestions as expired.
func (s *Store) ExpireSuggestions(ctx context.Context, before int64) (int64, error) {
	query := s.q(`
		UPDATE %s SET status = ?
		WHERE status = ? AND created_at < ?
	`, s.tables.Suggestions)

	result, err := s.db.ExecContext(ctx, query, string(model.StatusExpired), string(model.StatusPending), before)
	if err != nil {
		return 0, fmt.Errorf("ExpireSuggestions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ExpireSuggestions: %w", err)
	}
	return n, nil
}

func scanSuggestion(row rowScanner) (*model.Suggestion, error) {
	var sg model.Suggestion
	var status string
	var kind, title, description, workflow, snapshot sql.NullString

	err := row.Scan(
		&sg.ID,
		&sg.Hash,
		&kind,
		&title,
		&description,
		&workflow,
		&status,
		&sg.Timestamp,
		&snapshot,
	)
	if err != nil {
		return nil, err
	}

	sg.Kind = kind.String
	sg.Title = title.String
	sg.Description = description.String
	sg.Status = model.SuggestionStatus(status)

	if workflow.String != "" {
		if err := json.Unmarshal([]byte(workflow.String), &sg.Workflow); err != nil {
			return nil, fmt.Errorf("parse workflow: %w", err)
		}
	}
	if snapshot.String != "" {
		var snap model.ContextSnapshot
		if err := json.Unmarshal([]byte(snapshot.String), &snap); err != nil {
			return nil, fmt.Errorf("parse context snapshot: %w", err)
		}
		sg.ContextSnapshot = &snap
	}

	return &sg, nil
}
