// Package agents creates and removes agent records along with their
// descriptive schedules and audit entries.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clawdesk/clawdesk/internal/scheduler"
	"github.com/clawdesk/clawdesk/internal/timeline"
)

// ErrInvalidAgent is returned for an agent without a name.
var ErrInvalidAgent = errors.New("invalid agent")

// Store is the persistence the service needs.
type Store interface {
	CreateAgent(ctx context.Context, a *timeline.Agent) (*timeline.Agent, error)
	DeleteAgent(ctx context.Context, id string) error
	UpsertSchedule(ctx context.Context, rec *timeline.ScheduleRecord) error
	AddLog(ctx context.Context, entry *timeline.ExecutionLog) (*timeline.ExecutionLog, error)
}

// Service creates agents.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an agent service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create validates, stores and logs a new agent. A non-empty schedule must be
// a valid cron expression; its next run is recorded but never fired.
func (s *Service) Create(ctx context.Context, in *timeline.Agent) (*timeline.Agent, error) {
	a := *in
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidAgent)
	}
	a.Tools = NormalizeTools(a.Tools)
	a.Schedule = strings.TrimSpace(a.Schedule)
	var plan *scheduler.Plan
	if a.Schedule != "" {
		p, err := scheduler.PlanFor(a.Schedule, s.now())
		if err != nil {
			return nil, err
		}
		a.Schedule = p.Expr
		plan = &p
	}

	created, err := s.store.CreateAgent(ctx, &a)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	if plan != nil {
		rec := &timeline.ScheduleRecord{
			AgentID:     created.ID,
			CronExpr:    plan.Expr,
			Description: plan.Description,
			Enabled:     true,
		}
		if !plan.Next.IsZero() {
			next := plan.Next
			rec.NextRun = &next
		}
		if err := s.store.UpsertSchedule(ctx, rec); err != nil {
			slog.Warn("Schedule not recorded", "agent", created.ID, "error", err)
		}
	}

	if _, err := s.store.AddLog(ctx, &timeline.ExecutionLog{
		AgentID: created.ID,
		Action:  "Agent created: " + created.Name,
		Status:  timeline.LogSuccess,
		Output:  describe(created, plan),
	}); err != nil {
		slog.Warn("Agent creation not logged", "agent", created.ID, "error", err)
	}
	slog.Info("Agent created", "agent", created.ID, "name", created.Name, "sandbox", created.Sandbox)
	return created, nil
}

// NormalizeTools trims and lower-cases tool tags, dropping empty and repeated
// ones. Tag matching downstream is exact, so "Browser" must become "browser".
func NormalizeTools(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Delete removes an agent and logs the removal.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAgent(ctx, id); err != nil {
		return err
	}
	if _, err := s.store.AddLog(ctx, &timeline.ExecutionLog{
		AgentID: id,
		Action:  "Agent deleted",
		Status:  timeline.LogInfo,
	}); err != nil {
		slog.Warn("Agent deletion not logged", "agent", id, "error", err)
	}
	return nil
}

func describe(a *timeline.Agent, plan *scheduler.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\nGoal: %s\nTools: %s\n", a.Role, a.Goal, strings.Join(a.Tools, ", "))
	if plan != nil {
		fmt.Fprintf(&b, "Schedule: %s (%s)\n", plan.Expr, plan.Description)
	} else {
		b.WriteString("Schedule: manual\n")
	}
	if a.Sandbox {
		b.WriteString("Sandbox: on\n")
	}
	return b.String()
}
