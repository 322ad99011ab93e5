package timeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultLogLimit is the number of log entries returned when no limit is given.
const DefaultLogLimit = 100

type TimelineService struct {
	db  *sql.DB
	now func() time.Time
}

func NewTimelineService(dbPath string) (*TimelineService, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline db: %w", err)
	}
	// A single writer keeps the approval compare-and-set and the log
	// autoincrement free of SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// Best-effort migration for databases created before resolution tracking.
	_, _ = db.Exec(`ALTER TABLE approval_queue ADD COLUMN resolved_at DATETIME`)

	return &TimelineService{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *TimelineService) DB() *sql.DB { return s.db }

func (s *TimelineService) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// GetSetting returns the value for key. ok is false when the key is absent.
func (s *TimelineService) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetSetting persists a setting value.
func (s *TimelineService) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.now())
	return err
}

// DeleteSetting removes a key. Deleting an absent key is not an error.
func (s *TimelineService) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	return err
}

// ListSettings returns every stored setting sorted by key.
func (s *TimelineService) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings ORDER BY key ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Execution logs
// ---------------------------------------------------------------------------

// AddLog appends an audit entry. An empty agent id is stored as "system".
func (s *TimelineService) AddLog(ctx context.Context, entry *ExecutionLog) (*ExecutionLog, error) {
	if entry.Action == "" {
		return nil, fmt.Errorf("log action is required")
	}
	rec := *entry
	if rec.AgentID == "" {
		rec.AgentID = SystemAgentID
	}
	if rec.Status == "" {
		rec.Status = LogInfo
	}
	rec.CreatedAt = s.now()

	res, err := s.db.ExecContext(ctx, `INSERT INTO execution_logs
		(agent_id, action, status, output, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.AgentID, rec.Action, string(rec.Status), rec.Output, rec.Error, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert log: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return &rec, nil
}

// GetLogs returns the newest entries first. limit <= 0 means DefaultLogLimit.
func (s *TimelineService) GetLogs(ctx context.Context, limit int) ([]ExecutionLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, COALESCE(agent_id,''), action, status,
		COALESCE(output,''), COALESCE(error,''), created_at
		FROM execution_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExecutionLog
	for rows.Next() {
		var l ExecutionLog
		var status string
		if err := rows.Scan(&l.ID, &l.AgentID, &l.Action, &status, &l.Output, &l.Error, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Status = LogStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

// CreateAgent stores a new agent and returns it with id and timestamps set.
// ConfigJSON is derived from the other fields when empty.
func (s *TimelineService) CreateAgent(ctx context.Context, a *Agent) (*Agent, error) {
	if a.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	rec := *a
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now()
	if rec.Tools == nil {
		rec.Tools = []string{}
	}
	toolsJSON, err := json.Marshal(rec.Tools)
	if err != nil {
		return nil, fmt.Errorf("marshal tools: %w", err)
	}
	if rec.ConfigJSON == "" {
		cfg, _ := json.Marshal(map[string]any{
			"name":     rec.Name,
			"role":     rec.Role,
			"goal":     rec.Goal,
			"tools":    rec.Tools,
			"schedule": rec.Schedule,
			"sandbox":  rec.Sandbox,
		})
		rec.ConfigJSON = string(cfg)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO agents
		(id, name, role, goal, tools, schedule, config_json, sandbox, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Role, rec.Goal, string(toolsJSON), rec.Schedule, rec.ConfigJSON, rec.Sandbox, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert agent: %w", err)
	}
	return &rec, nil
}

// ListAgents returns all agents, newest first.
func (s *TimelineService) ListAgents(ctx context.Context) ([]Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(role,''), COALESCE(goal,''),
		COALESCE(tools,'[]'), COALESCE(schedule,''), COALESCE(config_json,'{}'), sandbox, created_at
		FROM agents ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetAgent returns a single agent or ErrNotFound.
func (s *TimelineService) GetAgent(ctx context.Context, id string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, COALESCE(role,''), COALESCE(goal,''),
		COALESCE(tools,'[]'), COALESCE(schedule,''), COALESCE(config_json,'{}'), sandbox, created_at
		FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// DeleteAgent removes an agent and its schedule. Logs and approvals are kept.
func (s *TimelineService) DeleteAgent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, _ = s.db.ExecContext(ctx, "DELETE FROM schedules WHERE agent_id = ?", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(r rowScanner) (*Agent, error) {
	var a Agent
	var toolsJSON string
	if err := r.Scan(&a.ID, &a.Name, &a.Role, &a.Goal, &toolsJSON, &a.Schedule, &a.ConfigJSON, &a.Sandbox, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(toolsJSON), &a.Tools); err != nil {
		a.Tools = []string{}
	}
	return &a, nil
}
