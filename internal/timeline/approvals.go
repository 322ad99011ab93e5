package timeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AddApproval queues a new pending approval item.
func (s *TimelineService) AddApproval(ctx context.Context, agentID, actionType, preview string) (*ApprovalItem, error) {
	if actionType == "" {
		return nil, fmt.Errorf("approval action type is required")
	}
	item := &ApprovalItem{
		ID:             uuid.NewString(),
		AgentID:        agentID,
		ActionType:     actionType,
		ContentPreview: preview,
		Status:         ApprovalPending,
		CreatedAt:      s.now(),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO approval_queue
		(id, agent_id, action_type, content_preview, status, created_at)
		VALUES (?, ?, ?, ?, 'pending', ?)`,
		item.ID, item.AgentID, item.ActionType, item.ContentPreview, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert approval: %w", err)
	}
	return item, nil
}

// UpdateApproval moves a pending item to a terminal status. The update is a
// compare-and-set on status: an item that already left pending yields
// ErrAlreadyResolved, an unknown id yields ErrNotFound.
func (s *TimelineService) UpdateApproval(ctx context.Context, id string, status ApprovalStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE approval_queue SET status = ?, resolved_at = ?
		WHERE id = ? AND status = 'pending'`, string(status), s.now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM approval_queue WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, current)
}

// GetApproval returns one approval item or ErrNotFound.
func (s *TimelineService) GetApproval(ctx context.Context, id string) (*ApprovalItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, COALESCE(agent_id,''), action_type,
		COALESCE(content_preview,''), status, created_at, resolved_at
		FROM approval_queue WHERE id = ?`, id)
	item, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

// GetApprovals returns every approval item, newest first.
func (s *TimelineService) GetApprovals(ctx context.Context) ([]ApprovalItem, error) {
	return s.queryApprovals(ctx, `SELECT id, COALESCE(agent_id,''), action_type,
		COALESCE(content_preview,''), status, created_at, resolved_at
		FROM approval_queue ORDER BY created_at DESC, rowid DESC`)
}

// GetPendingApprovals returns approval items with status 'pending', oldest first.
func (s *TimelineService) GetPendingApprovals(ctx context.Context) ([]ApprovalItem, error) {
	return s.queryApprovals(ctx, `SELECT id, COALESCE(agent_id,''), action_type,
		COALESCE(content_preview,''), status, created_at, resolved_at
		FROM approval_queue WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC`)
}

func (s *TimelineService) queryApprovals(ctx context.Context, query string) ([]ApprovalItem, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApprovalItem
	for rows.Next() {
		item, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func scanApproval(r rowScanner) (*ApprovalItem, error) {
	var item ApprovalItem
	var status string
	var resolvedAt sql.NullTime
	if err := r.Scan(&item.ID, &item.AgentID, &item.ActionType, &item.ContentPreview,
		&status, &item.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	item.Status = ApprovalStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		item.ResolvedAt = &t
	}
	return &item, nil
}

// ---------------------------------------------------------------------------
// Schedules (descriptive only; nothing fires them)
// ---------------------------------------------------------------------------

// UpsertSchedule records the schedule of an agent, replacing any previous one.
func (s *TimelineService) UpsertSchedule(ctx context.Context, rec *ScheduleRecord) error {
	if rec.AgentID == "" || rec.CronExpr == "" {
		return fmt.Errorf("schedule requires agent id and cron expression")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	var next any
	if rec.NextRun != nil {
		next = rec.NextRun.UTC()
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE agent_id = ?`, rec.AgentID)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO schedules
		(id, agent_id, cron_expr, description, enabled, next_run)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentID, rec.CronExpr, rec.Description, rec.Enabled, next)
	return err
}

// GetSchedule returns the schedule recorded for an agent or ErrNotFound.
func (s *TimelineService) GetSchedule(ctx context.Context, agentID string) (*ScheduleRecord, error) {
	var rec ScheduleRecord
	var lastRun, nextRun sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT id, agent_id, cron_expr, COALESCE(description,''),
		enabled, last_run, next_run FROM schedules WHERE agent_id = ?`, agentID).
		Scan(&rec.ID, &rec.AgentID, &rec.CronExpr, &rec.Description, &rec.Enabled, &lastRun, &nextRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.LastRun = nullTimePtr(lastRun)
	rec.NextRun = nullTimePtr(nextRun)
	return &rec, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
