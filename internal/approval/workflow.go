// Package approval resolves queued actions. An item leaves pending exactly
// once, to approved or rejected, and each resolution produces one log entry.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clawdesk/clawdesk/internal/dispatch"
	"github.com/clawdesk/clawdesk/internal/timeline"
)

// Decision is the human answer to a queued action.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// DecisionFor maps a boolean answer to a Decision.
func DecisionFor(approved bool) Decision {
	if approved {
		return Approve
	}
	return Reject
}

func (d Decision) status() (timeline.ApprovalStatus, error) {
	switch d {
	case Approve:
		return timeline.ApprovalApproved, nil
	case Reject:
		return timeline.ApprovalRejected, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDecision, d)
}

var (
	ErrNotFound        = timeline.ErrNotFound
	ErrAlreadyResolved = timeline.ErrAlreadyResolved
	// ErrInvalidDecision is returned for a decision other than approve or reject.
	ErrInvalidDecision = errors.New("invalid approval decision")
	// ErrLogWriteFailed means the item was resolved but its log entry was not
	// written. The resolution stands and is not retried.
	ErrLogWriteFailed = errors.New("approval resolved but not logged")
)

// Store is the persistence the workflow needs.
type Store interface {
	GetApproval(ctx context.Context, id string) (*timeline.ApprovalItem, error)
	GetApprovals(ctx context.Context) ([]timeline.ApprovalItem, error)
	GetPendingApprovals(ctx context.Context) ([]timeline.ApprovalItem, error)
	UpdateApproval(ctx context.Context, id string, status timeline.ApprovalStatus) error
	AddLog(ctx context.Context, entry *timeline.ExecutionLog) (*timeline.ExecutionLog, error)
}

// Resolution is the result of resolving one item.
type Resolution struct {
	Item   *timeline.ApprovalItem `json:"item"`
	Report string                 `json:"report"`
	LogID  int64                  `json:"log_id,omitempty"`
}

// Workflow handles the approval lifecycle.
type Workflow struct {
	store Store
}

// NewWorkflow creates an approval workflow.
func NewWorkflow(store Store) *Workflow {
	return &Workflow{store: store}
}

// ListPending returns the actionable items, oldest first.
func (w *Workflow) ListPending(ctx context.Context) ([]timeline.ApprovalItem, error) {
	return w.store.GetPendingApprovals(ctx)
}

// List returns every item, newest first.
func (w *Workflow) List(ctx context.Context) ([]timeline.ApprovalItem, error) {
	return w.store.GetApprovals(ctx)
}

// Resolve moves a pending item to its terminal status and writes the matching
// log entry. The status change is a compare-and-set in the store, so of two
// concurrent resolutions only one succeeds; the other gets ErrAlreadyResolved
// and writes nothing.
func (w *Workflow) Resolve(ctx context.Context, id string, decision Decision) (*Resolution, error) {
	status, err := decision.status()
	if err != nil {
		return nil, err
	}
	item, err := w.store.GetApproval(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, item.Status)
	}

	if err := w.store.UpdateApproval(ctx, id, status); err != nil {
		return nil, err
	}
	item.Status = status

	agentID := item.AgentID
	if agentID == "" {
		agentID = timeline.SystemAgentID
	}
	res := &Resolution{Item: item}
	entry := &timeline.ExecutionLog{AgentID: agentID}
	if status == timeline.ApprovalApproved {
		res.Report = dispatch.ExecutionReport(dispatch.Classify(item.ContentPreview), item.ContentPreview)
		entry.Action = "Approved: " + item.ActionType
		entry.Status = timeline.LogSuccess
		entry.Output = res.Report
	} else {
		res.Report = "Action skipped: " + item.ContentPreview
		entry.Action = "Rejected: " + item.ActionType
		entry.Status = timeline.LogInfo
		entry.Output = res.Report
	}

	logged, err := w.store.AddLog(ctx, entry)
	if err != nil {
		slog.Error("Approval resolved but not logged", "approval", id, "status", status, "error", err)
		return res, fmt.Errorf("%w: %s: %v", ErrLogWriteFailed, id, err)
	}
	res.LogID = logged.ID
	slog.Info("Approval resolved", "approval", id, "agent", agentID, "status", status)
	return res, nil
}
