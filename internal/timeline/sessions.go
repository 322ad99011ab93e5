package timeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveSession inserts or replaces a session record.
func (s *TimelineService) SaveSession(ctx context.Context, rec *SessionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if rec.Messages == "" {
		rec.Messages = "[]"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, messages, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, messages = excluded.messages,
			updated_at = excluded.updated_at
	`, rec.ID, rec.Title, rec.Messages, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	return err
}

// GetSession returns one session or ErrNotFound.
func (s *TimelineService) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	var rec SessionRecord
	err := s.db.QueryRowContext(ctx, `SELECT id, title, messages, created_at, updated_at
		FROM sessions WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Title, &rec.Messages, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *TimelineService) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, messages, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Messages, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteSession removes a session.
func (s *TimelineService) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
