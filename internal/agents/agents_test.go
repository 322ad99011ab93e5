package agents

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clawdesk/clawdesk/internal/dispatch"
	"github.com/clawdesk/clawdesk/internal/scheduler"
	"github.com/clawdesk/clawdesk/internal/timeline"
)

func newTestService(t *testing.T) (*Service, *timeline.TimelineService) {
	t.Helper()
	svc, err := timeline.NewTimelineService(filepath.Join(t.TempDir(), "agents.db"))
	if err != nil {
		t.Fatalf("open timeline: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	s := NewService(svc)
	s.now = func() time.Time { return time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC) }
	return s, svc
}

func TestCreateRecordsScheduleAndLog(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, &timeline.Agent{Name: "  Morning Brief ", Tools: []string{"cron"}, Schedule: "0  9 * * *"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Name != "Morning Brief" || a.Schedule != "0 9 * * *" {
		t.Fatalf("expected normalized fields, got %+v", a)
	}

	rec, err := store.GetSchedule(ctx, a.ID)
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if rec.Description != "every day at 09:00" || rec.NextRun == nil {
		t.Fatalf("unexpected schedule record %+v", rec)
	}
	if !rec.NextRun.Equal(time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next run %v", rec.NextRun)
	}

	logs, _ := store.GetLogs(ctx, 10)
	if len(logs) != 1 || logs[0].AgentID != a.ID || logs[0].Status != timeline.LogSuccess {
		t.Fatalf("expected one creation log, got %+v", logs)
	}
	if !strings.Contains(logs[0].Action, "Morning Brief") {
		t.Fatalf("log should name the agent: %q", logs[0].Action)
	}
}

func TestCreateManualAgentHasNoSchedule(t *testing.T) {
	s, store := newTestService(t)
	a, err := s.Create(context.Background(), &timeline.Agent{Name: "Manual"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.GetSchedule(context.Background(), a.ID); !errors.Is(err, timeline.ErrNotFound) {
		t.Fatalf("expected no schedule, got %v", err)
	}
}

func TestCreateNormalizesToolTags(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, &timeline.Agent{Name: "Poster", Tools: []string{"Browser", " browser ", "", "CRON"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stored, err := store.GetAgent(ctx, a.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if strings.Join(stored.Tools, ",") != "browser,cron" {
		t.Fatalf("expected normalized tags, got %q", stored.Tools)
	}

	out := dispatch.New(store, nil).Dispatch(ctx, stored, dispatch.TriggerManual)
	if out.Path != dispatch.PathApproval {
		t.Fatalf("mixed-case browser tag must be gated, got path %q", out.Path)
	}
	if pending, _ := store.GetPendingApprovals(ctx); len(pending) != 1 {
		t.Fatalf("expected one pending approval, got %d", len(pending))
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, &timeline.Agent{Name: " "}); !errors.Is(err, ErrInvalidAgent) {
		t.Fatalf("expected ErrInvalidAgent, got %v", err)
	}
	if _, err := s.Create(ctx, &timeline.Agent{Name: "Bad", Schedule: "every tuesday"}); !errors.Is(err, scheduler.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
	agents, _ := store.ListAgents(ctx)
	logs, _ := store.GetLogs(ctx, 0)
	if len(agents) != 0 || len(logs) != 0 {
		t.Fatalf("rejected agents must leave no trace: agents=%d logs=%d", len(agents), len(logs))
	}
}

func TestDeleteLogsRemoval(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	a, _ := s.Create(ctx, &timeline.Agent{Name: "Temp"})

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, a.ID); !errors.Is(err, timeline.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	logs, _ := store.GetLogs(ctx, 1)
	if logs[0].Action != "Agent deleted" {
		t.Fatalf("unexpected latest log %+v", logs[0])
	}
}
