package timeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestTimeline(t *testing.T) *TimelineService {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "timeline.db")
	svc, err := NewTimelineService(dbPath)
	if err != nil {
		t.Fatalf("failed to create timeline service: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Close()
		_ = os.RemoveAll(dir)
	})
	return svc
}

func TestSettingLifecycle(t *testing.T) {
	svc := newTestTimeline(t)
	ctx := context.Background()

	if _, ok, err := svc.GetSetting(ctx, SettingLLMProvider); err != nil || ok {
		t.Fatalf("expected absent setting, got ok=%v err=%v", ok, err)
	}
	if err := svc.SetSetting(ctx, SettingLLMProvider, "openai"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := svc.SetSetting(ctx, SettingLLMProvider, "anthropic"); err != nil {
		t.Fatalf("overwrite setting: %v", err)
	}
	val, ok, err := svc.GetSetting(ctx, SettingLLMProvider)
	if err != nil || !ok || val != "anthropic" {
		t.Fatalf("unexpected setting: %q ok=%v err=%v", val, ok, err)
	}
	settings, err := svc.ListSettings(ctx)
	if err != nil || len(settings) != 1 {
		t.Fatalf("list settings: len=%d err=%v", len(settings), err)
	}
	if err := svc.DeleteSetting(ctx, SettingLLMProvider); err != nil {
		t.Fatalf("delete setting: %v", err)
	}
	if err := svc.DeleteSetting(ctx, "never-set"); err != nil {
		t.Fatalf("delete absent setting should not fail: %v", err)
	}
	if _, ok, _ := svc.GetSetting(ctx, SettingLLMProvider); ok {
		t.Fatal("expected setting to be gone")
	}
}

func TestAgentLifecycle(t *testing.T) {
	svc := newTestTimeline(t)
	ctx := context.Background()

	first, err := svc.CreateAgent(ctx, &Agent{Name: "Trend Watcher", Tools: []string{"browser", "cron"}, Schedule: "0 9 * * *"})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", first)
	}
	if first.ConfigJSON == "" || first.ConfigJSON == "{}" {
		t.Fatalf("expected config snapshot, got %q", first.ConfigJSON)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := svc.CreateAgent(ctx, &Agent{Name: "Sandboxed", Sandbox: true})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	agents, err := svc.ListAgents(ctx)
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 2 || agents[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", agents)
	}
	if !agents[0].Sandbox || agents[0].Tools == nil {
		t.Fatalf("unexpected round trip: %+v", agents[0])
	}

	got, err := svc.GetAgent(ctx, first.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if !got.HasTool("browser") || got.HasTool("shell") {
		t.Fatalf("unexpected tools: %v", got.Tools)
	}

	if err := svc.DeleteAgent(ctx, first.ID); err != nil {
		t.Fatalf("delete agent: %v", err)
	}
	if _, err := svc.GetAgent(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteAgent(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := svc.CreateAgent(ctx, &Agent{}); err == nil {
		t.Fatal("expected error for unnamed agent")
	}
}

func TestLogsAreNewestFirstAndDefaultToSystem(t *testing.T) {
	svc := newTestTimeline(t)
	ctx := context.Background()

	for _, action := range []string{"one", "two", "three"} {
		if _, err := svc.AddLog(ctx, &ExecutionLog{Action: action, Status: LogSuccess}); err != nil {
			t.Fatalf("add log: %v", err)
		}
	}
	logs, err := svc.GetLogs(ctx, 2)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if len(logs) != 2 || logs[0].Action != "three" || logs[1].Action != "two" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
	if logs[0].AgentID != SystemAgentID {
		t.Fatalf("expected system agent id, got %q", logs[0].AgentID)
	}
	all, _ := svc.GetLogs(ctx, 0)
	if len(all) != 3 {
		t.Fatalf("expected default limit to return all 3, got %d", len(all))
	}
	if _, err := svc.AddLog(ctx, &ExecutionLog{}); err == nil {
		t.Fatal("expected error for empty action")
	}
}

func TestApprovalCompareAndSet(t *testing.T) {
	svc := newTestTimeline(t)
	ctx := context.Background()

	item, err := svc.AddApproval(ctx, "agent-1", "social_post", "Post trending summary")
	if err != nil {
		t.Fatalf("add approval: %v", err)
	}
	if item.Status != ApprovalPending {
		t.Fatalf("expected pending, got %s", item.Status)
	}

	pending, err := svc.GetPendingApprovals(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending approvals: len=%d err=%v", len(pending), err)
	}

	if err := svc.UpdateApproval(ctx, item.ID, ApprovalPending); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := svc.UpdateApproval(ctx, item.ID, ApprovalApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := svc.UpdateApproval(ctx, item.ID, ApprovalRejected); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if err := svc.UpdateApproval(ctx, "missing", ApprovalApproved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := svc.GetApproval(ctx, item.ID)
	if err != nil {
		t.Fatalf("get approval: %v", err)
	}
	if got.Status != ApprovalApproved || got.ResolvedAt == nil {
		t.Fatalf("unexpected approval after resolve: %+v", got)
	}
	pending, _ = svc.GetPendingApprovals(ctx)
	if len(pending) != 0 {
		t.Fatalf("resolved item still pending: %+v", pending)
	}
	all, _ := svc.GetApprovals(ctx)
	if len(all) != 1 {
		t.Fatalf("expected 1 approval overall, got %d", len(all))
	}
}

func TestScheduleUpsert(t *testing.T) {
	svc := newTestTimeline(t)
	ctx := context.Background()

	next := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	if err := svc.UpsertSchedule(ctx, &ScheduleRecord{AgentID: "a1", CronExpr: "0 9 * * *", Enabled: true, NextRun: &next}); err != nil {
		t.Fatalf("upsert schedule: %v", err)
	}
	if err := svc.UpsertSchedule(ctx, &ScheduleRecord{AgentID: "a1", CronExpr: "0 10 * * *", Enabled: true}); err != nil {
		t.Fatalf("replace schedule: %v", err)
	}
	rec, err := svc.GetSchedule(ctx, "a1")
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if rec.CronExpr != "0 10 * * *" || rec.NextRun != nil {
		t.Fatalf("expected replaced schedule, got %+v", rec)
	}
	if _, err := svc.GetSchedule(ctx, "a2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestTimeline(t)
	ctx := context.Background()
	now := time.Now()

	rec := &SessionRecord{ID: "s1", Title: "New Chat", CreatedAt: now, UpdatedAt: now}
	if err := svc.SaveSession(ctx, rec); err != nil {
		t.Fatalf("save session: %v", err)
	}
	rec.Title = "Build a trending agent"
	rec.Messages = `[{"role":"user","content":"Build a trending agent"}]`
	rec.UpdatedAt = now.Add(time.Second)
	if err := svc.SaveSession(ctx, rec); err != nil {
		t.Fatalf("update session: %v", err)
	}

	got, err := svc.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Title != "Build a trending agent" || got.Messages != rec.Messages {
		t.Fatalf("unexpected session: %+v", got)
	}
	list, err := svc.ListSessions(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list sessions: len=%d err=%v", len(list), err)
	}
	if err := svc.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := svc.GetSession(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
