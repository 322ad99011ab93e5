package timeline

import (
	"errors"
	"strings"
	"time"
)

// Schema creates every table the desk persists. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT DEFAULT '',
	goal TEXT DEFAULT '',
	tools TEXT DEFAULT '[]',
	schedule TEXT DEFAULT '',
	config_json TEXT DEFAULT '{}',
	sandbox INTEGER DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS execution_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT DEFAULT '',
	action TEXT NOT NULL,
	status TEXT NOT NULL,
	output TEXT DEFAULT '',
	error TEXT DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_execution_logs_agent ON execution_logs(agent_id);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS approval_queue (
	id TEXT PRIMARY KEY,
	agent_id TEXT DEFAULT '',
	action_type TEXT NOT NULL,
	content_preview TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL,
	resolved_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_approval_queue_status ON approval_queue(status);

CREATE TABLE IF NOT EXISTS schedules (
	id TEXT PRIMARY KEY,
	agent_id TEXT DEFAULT '',
	cron_expr TEXT NOT NULL,
	description TEXT DEFAULT '',
	enabled INTEGER DEFAULT 1,
	last_run DATETIME,
	next_run DATETIME
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT 'New Chat',
	messages TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SystemAgentID is the agent id used for log entries that belong to no agent.
const SystemAgentID = "system"

// Setting keys owned by the conversation engine.
const (
	SettingLLMProvider = "llm_provider"
	SettingLLMAPIKey   = "llm_api_key"
	SettingLLMModel    = "llm_model"
)

// LogStatus is the outcome recorded on an execution log entry.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogError   LogStatus = "error"
	LogInfo    LogStatus = "info"
)

// ApprovalStatus is the lifecycle state of a queued action.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

var (
	// ErrNotFound is returned when a record with the given id does not exist.
	ErrNotFound = errors.New("timeline: record not found")
	// ErrAlreadyResolved is returned when an approval has already left pending.
	ErrAlreadyResolved = errors.New("timeline: approval already resolved")
	// ErrInvalidStatus is returned for transitions to a non-terminal status.
	ErrInvalidStatus = errors.New("timeline: invalid approval status")
)

// Agent is a named automation configuration.
type Agent struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Goal       string    `json:"goal"`
	Tools      []string  `json:"tools"`
	Schedule   string    `json:"schedule"`       // cron expression, empty = manual
	ConfigJSON string    `json:"config_json"`    // snapshot of the creation form
	Sandbox    bool      `json:"sandbox"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasTool reports whether the agent carries the given capability tag.
// Comparison ignores case and surrounding space.
func (a *Agent) HasTool(tag string) bool {
	for _, t := range a.Tools {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// ExecutionLog is one append-only audit entry.
type ExecutionLog struct {
	ID        int64     `json:"id"`
	AgentID   string    `json:"agent_id"`
	Action    string    `json:"action"`
	Status    LogStatus `json:"status"`
	Output    string    `json:"output"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

// ApprovalItem is an action waiting for human sign-off.
type ApprovalItem struct {
	ID             string         `json:"id"`
	AgentID        string         `json:"agent_id"`
	ActionType     string         `json:"action_type"`
	ContentPreview string         `json:"content_preview"`
	Status         ApprovalStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
}

// Setting is a flat key-value pair.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ScheduleRecord describes when an agent would run. Nothing fires it.
type ScheduleRecord struct {
	ID          string     `json:"id"`
	AgentID     string     `json:"agent_id"`
	CronExpr    string     `json:"cron_expr"`
	Description string     `json:"description"`
	Enabled     bool       `json:"enabled"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
}

// SessionRecord is the persisted form of a chat session. Messages holds the
// JSON-encoded message list.
type SessionRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  string    `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
