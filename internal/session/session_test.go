package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/clawdesk/clawdesk/internal/bus"
	"github.com/clawdesk/clawdesk/internal/timeline"
)

func newTestManager(t *testing.T, events Publisher) *Manager {
	t.Helper()
	svc, err := timeline.NewTimelineService(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open timeline: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return NewManager(svc, events)
}

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("a", 40)
	exact := strings.Repeat("b", TitleLimit)
	multibyte := strings.Repeat("é", 36)

	tests := []struct {
		name string
		msgs []Message
		want string
	}{
		{"empty", nil, DefaultTitle},
		{"assistant only", []Message{{Role: RoleAssistant, Content: WelcomeMessage}}, DefaultTitle},
		{"short", []Message{{Role: RoleAssistant, Content: "hi"}, {Role: RoleUser, Content: "setup please"}}, "setup please"},
		{"exact limit", []Message{{Role: RoleUser, Content: exact}}, exact},
		{"truncated", []Message{{Role: RoleUser, Content: long}}, strings.Repeat("a", TitleLimit) + "…"},
		{"runes not bytes", []Message{{Role: RoleUser, Content: multibyte}}, strings.Repeat("é", TitleLimit) + "…"},
		{"first user wins", []Message{{Role: RoleUser, Content: "one"}, {Role: RoleUser, Content: "two"}}, "one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTitle(tt.msgs)
			if got != tt.want {
				t.Fatalf("DeriveTitle() = %q, want %q", got, tt.want)
			}
			if again := DeriveTitle(tt.msgs); again != got {
				t.Fatalf("not idempotent: %q then %q", got, again)
			}
			if strings.Count(got, "…") > 1 {
				t.Fatalf("more than one ellipsis in %q", got)
			}
			if utf8.RuneCountInString(got) > TitleLimit+1 {
				t.Fatalf("title too long: %q", got)
			}
		})
	}
}

func TestNewSessionStartsWithWelcome(t *testing.T) {
	s := NewSession(time.Now())
	if len(s.Messages) != 1 || s.Messages[0].Role != RoleAssistant || s.Messages[0].Content != WelcomeMessage {
		t.Fatalf("unexpected first message %+v", s.Messages)
	}
	if s.Title != DefaultTitle || s.ID == "" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestManagerLifecycleAndEvents(t *testing.T) {
	events := bus.New(16)
	m := newTestManager(t, events)
	ctx := context.Background()

	first, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Active() != first.ID {
		t.Fatalf("expected new session active")
	}
	updated, err := m.Append(ctx, first.ID,
		Message{Role: RoleUser, Content: "build me a trending topics agent please"},
		Message{Role: RoleAssistant, Content: "drafted"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if updated.Title != "build me a trending topics agent pl…" {
		t.Fatalf("unexpected title %q", updated.Title)
	}

	if _, err := m.Create(ctx); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := m.Activate(ctx, first.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	list, err := m.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %+v %v", list, err)
	}
	activeCount := 0
	for _, s := range list {
		if s.Active {
			activeCount++
			if s.ID != first.ID || s.Messages != 3 {
				t.Fatalf("unexpected active summary %+v", s)
			}
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active session, got %d", activeCount)
	}

	if err := m.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if m.Active() != "" {
		t.Fatal("deleting the active session should clear the pointer")
	}
	if err := m.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Activate(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var names []string
	for events.Pending() > 0 {
		ev, _ := events.Consume(ctx)
		names = append(names, ev.EventName())
	}
	want := []string{
		bus.NameSessionCreated, bus.NameSessionUpdated, bus.NameSessionCreated,
		bus.NameSessionActivated, bus.NameSessionDeleted,
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", names, want)
	}
}

func TestEnsureActiveCreatesOnce(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	s, created, err := m.EnsureActive(ctx)
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}
	again, created, err := m.EnsureActive(ctx)
	if err != nil || created || again.ID != s.ID {
		t.Fatalf("expected same session, got %+v created=%v err=%v", again, created, err)
	}
	if err := m.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	fresh, created, err := m.EnsureActive(ctx)
	if err != nil || !created || fresh.ID == s.ID {
		t.Fatalf("expected a new session after delete, got %+v created=%v err=%v", fresh, created, err)
	}
}
