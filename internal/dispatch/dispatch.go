// Package dispatch decides how an agent run is carried out: simulated in the
// sandbox, held for approval, or executed straight away.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clawdesk/clawdesk/internal/timeline"
)

// Trigger says why an agent runs.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Path is the branch a run took.
type Path string

const (
	PathSandbox  Path = "sandbox"
	PathApproval Path = "approval"
	PathAuto     Path = "auto"
)

// ToolBrowser is the tool tag that routes a run through approval.
const ToolBrowser = "browser"

// Store is the persistence the dispatcher writes to.
type Store interface {
	AddLog(ctx context.Context, entry *timeline.ExecutionLog) (*timeline.ExecutionLog, error)
	AddApproval(ctx context.Context, agentID, actionType, preview string) (*timeline.ApprovalItem, error)
}

// Notifier is told about newly queued approvals. Failures are logged only.
type Notifier interface {
	ApprovalQueued(ctx context.Context, item *timeline.ApprovalItem, agentName string) error
}

// Outcome describes a finished dispatch. Failed runs carry the error text in
// Report and have an error log entry.
type Outcome struct {
	Path       Path   `json:"path,omitempty"`
	Report     string `json:"report"`
	ApprovalID string `json:"approval_id,omitempty"`
	Failed     bool   `json:"failed"`
	LogID      int64  `json:"log_id,omitempty"`
}

// Dispatcher runs agents.
type Dispatcher struct {
	store    Store
	notifier Notifier
}

// New creates a dispatcher. notifier may be nil.
func New(store Store, notifier Notifier) *Dispatcher {
	return &Dispatcher{store: store, notifier: notifier}
}

// Dispatch runs agent a once. It never returns an error: any failure becomes an
// error entry in the execution log and Outcome.Failed.
func (d *Dispatcher) Dispatch(ctx context.Context, a *timeline.Agent, trigger Trigger) Outcome {
	if a == nil {
		return d.fail(ctx, &timeline.Agent{ID: timeline.SystemAgentID, Name: "unknown agent"}, "", errors.New("no agent given"))
	}
	if trigger == "" {
		trigger = TriggerManual
	}

	var (
		out Outcome
		err error
	)
	switch {
	case a.Sandbox:
		out, err = d.sandbox(ctx, a)
	case a.HasTool(ToolBrowser):
		out, err = d.queue(ctx, a)
	default:
		out, err = d.execute(ctx, a)
	}
	if err != nil {
		return d.fail(ctx, a, out.Path, err)
	}
	slog.Info("Agent dispatched", "agent", a.ID, "name", a.Name, "path", out.Path, "trigger", trigger)
	return out
}

func (d *Dispatcher) sandbox(ctx context.Context, a *timeline.Agent) (Outcome, error) {
	out := Outcome{Path: PathSandbox, Report: SandboxReport(a)}
	entry, err := d.store.AddLog(ctx, &timeline.ExecutionLog{
		AgentID: a.ID,
		Action:  "[SANDBOX] Run: " + a.Name,
		Status:  timeline.LogSuccess,
		Output:  out.Report,
	})
	if err != nil {
		return out, fmt.Errorf("log sandbox run: %w", err)
	}
	out.LogID = entry.ID
	return out, nil
}

// queue holds a browser run for approval. Nothing is executed until the item
// is resolved.
func (d *Dispatcher) queue(ctx context.Context, a *timeline.Agent) (Outcome, error) {
	category := Classify(a.Name + " " + a.Goal)
	preview := Preview(a, category)
	out := Outcome{Path: PathApproval}

	item, err := d.store.AddApproval(ctx, a.ID, category.ActionType(), preview)
	if err != nil {
		return out, fmt.Errorf("queue approval: %w", err)
	}
	out.ApprovalID = item.ID
	out.Report = "Queued for approval: " + preview

	entry, err := d.store.AddLog(ctx, &timeline.ExecutionLog{
		AgentID: a.ID,
		Action:  "Queued for approval: " + a.Name,
		Status:  timeline.LogInfo,
		Output:  preview,
	})
	if err != nil {
		return out, fmt.Errorf("log queued run: %w", err)
	}
	out.LogID = entry.ID

	if d.notifier != nil {
		if err := d.notifier.ApprovalQueued(ctx, item, a.Name); err != nil {
			slog.Warn("Approval notification failed", "approval", item.ID, "error", err)
		}
	}
	return out, nil
}

func (d *Dispatcher) execute(ctx context.Context, a *timeline.Agent) (Outcome, error) {
	out := Outcome{Path: PathAuto, Report: AutoReport(a)}
	entry, err := d.store.AddLog(ctx, &timeline.ExecutionLog{
		AgentID: a.ID,
		Action:  "Run: " + a.Name,
		Status:  timeline.LogSuccess,
		Output:  out.Report,
	})
	if err != nil {
		return out, fmt.Errorf("log run: %w", err)
	}
	out.LogID = entry.ID
	return out, nil
}

func (d *Dispatcher) fail(ctx context.Context, a *timeline.Agent, path Path, cause error) Outcome {
	slog.Error("Agent run failed", "agent", a.ID, "name", a.Name, "error", cause)
	out := Outcome{Path: path, Report: "Run failed: " + cause.Error(), Failed: true}
	entry, err := d.store.AddLog(ctx, &timeline.ExecutionLog{
		AgentID: a.ID,
		Action:  "Run failed: " + a.Name,
		Status:  timeline.LogError,
		Error:   cause.Error(),
	})
	if err != nil {
		slog.Error("Error entry not logged", "agent", a.ID, "error", err)
		return out
	}
	out.LogID = entry.ID
	return out
}
