package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clawdesk/clawdesk/internal/presets"
	"github.com/clawdesk/clawdesk/internal/session"
)

// ActionAgentCreation is the approval action type queued when a confirmed
// agent carries the browser tool.
const ActionAgentCreation = "agent_creation"

// Vocabularies matched by substring against the lower-cased, trimmed text.
var (
	affirmWords   = []string{"yes", "sure", "ok", "go ahead", "start", "set it up"}
	setupWords    = []string{"setup", "set up", "install", "configure openclaw", "install openclaw", "get started"}
	confirmWords  = []string{"yes", "create", "confirm", "deploy", "do it"}
	newAgentWords = []string{"create agent", "new agent", "build agent", "make an agent", "create an agent"}
	trendingWords = []string{"trending", "trend", "viral"}
	hashtagWords  = []string{"hashtag", "#"}
	scheduleWords = []string{"schedule", "cron", "every day", "daily", "hourly"}
	sandboxWords  = []string{"sandbox", "dry run", "dry-run", "safe mode"}
	helpWords     = []string{"help", "what can you do", "commands"}
	statusWords   = []string{"status", "health", "running"}
	greetings     = []string{"hi", "hello", "hey"}
)

// turn is one message as seen by the rule table.
type turn struct {
	raw  string // trimmed input
	norm string // trimmed, lower-cased input
}

func newTurn(text string) turn {
	raw := strings.TrimSpace(text)
	return turn{raw: raw, norm: strings.ToLower(raw)}
}

// rule is one entry of the local decision table. Rules are evaluated in
// order and the first match answers.
type rule struct {
	name    string
	match   func(e *Engine, t turn) bool
	respond func(e *Engine, ctx context.Context, t turn) string
}

func defaultRules() []rule {
	return []rule{
		{
			name:    "setup-confirm",
			match:   func(e *Engine, t turn) bool { return e.pendingSetup && containsAny(t.norm, affirmWords) },
			respond: (*Engine).confirmSetup,
		},
		{
			name:    "setup-request",
			match:   func(_ *Engine, t turn) bool { return containsAny(t.norm, setupWords) },
			respond: (*Engine).previewSetup,
		},
		{
			name:    "agent-confirm",
			match:   func(e *Engine, t turn) bool { return e.drafted != nil && containsAny(t.norm, confirmWords) },
			respond: (*Engine).confirmAgent,
		},
		{
			name:    "agent-guide",
			match:   func(_ *Engine, t turn) bool { return containsAny(t.norm, newAgentWords) },
			respond: static(tmplCreateGuide),
		},
		{
			name:    "draft-trending",
			match:   func(_ *Engine, t turn) bool { return containsAny(t.norm, trendingWords) },
			respond: draft(presets.Trending),
		},
		{
			name:    "draft-hashtag",
			match:   func(_ *Engine, t turn) bool { return containsAny(t.norm, hashtagWords) },
			respond: draft(presets.Hashtag),
		},
		{
			name:    "cron-help",
			match:   func(_ *Engine, t turn) bool { return containsAny(t.norm, scheduleWords) },
			respond: static(tmplCronHelp),
		},
		{
			name:    "sandbox-help",
			match:   func(_ *Engine, t turn) bool { return containsAny(t.norm, sandboxWords) },
			respond: static(tmplSandboxHelp),
		},
		{
			name:    "help",
			match:   func(_ *Engine, t turn) bool { return containsAny(t.norm, helpWords) },
			respond: static(tmplHelp),
		},
		{
			name:    "status",
			match:   func(_ *Engine, t turn) bool { return containsAny(t.norm, statusWords) },
			respond: static(tmplStatus),
		},
		{
			name:  "welcome",
			match: func(_ *Engine, t turn) bool { return isGreeting(t.norm) },
			respond: func(*Engine, context.Context, turn) string {
				return session.WelcomeMessage
			},
		},
		{
			name:    "fallback",
			match:   func(*Engine, turn) bool { return true },
			respond: fallback,
		},
	}
}

// localReply runs the rule table. The caller holds e.mu.
func (e *Engine) localReply(ctx context.Context, text string) string {
	t := newTurn(text)
	for _, r := range e.rules {
		if r.match(e, t) {
			slog.Debug("Local rule matched", "rule", r.name)
			return r.respond(e, ctx, t)
		}
	}
	return fallback(e, ctx, t)
}

// matchRule returns the name of the rule that would answer text without
// running it.
func (e *Engine) matchRule(text string) string {
	t := newTurn(text)
	for _, r := range e.rules {
		if r.match(e, t) {
			return r.name
		}
	}
	return ""
}

func (e *Engine) previewSetup(context.Context, turn) string {
	e.pendingSetup = true
	return template(tmplSetupPreview)
}

func (e *Engine) confirmSetup(ctx context.Context, _ turn) string {
	e.pendingSetup = false
	return e.runSetup(ctx)
}

func (e *Engine) confirmAgent(ctx context.Context, _ turn) string {
	drafted := e.drafted
	e.drafted = nil

	created, err := e.agents.Create(ctx, drafted)
	if err != nil {
		slog.Warn("Drafted agent could not be created", "name", drafted.Name, "error", err)
		return fmt.Sprintf("I couldn't create **%s**: %v\n\nThe draft has been discarded. Ask me again to start over.", drafted.Name, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** has been created.\n\n", created.Name)
	fmt.Fprintf(&b, "- Role: %s\n- Goal: %s\n- Tools: %s\n", created.Role, created.Goal, strings.Join(created.Tools, ", "))
	if created.Schedule != "" {
		fmt.Fprintf(&b, "- Schedule: `%s`\n", created.Schedule)
	}

	if created.HasTool("browser") {
		preview := fmt.Sprintf("Create agent %q with browser access: %s", created.Name, created.Goal)
		item, err := e.store.AddApproval(ctx, created.ID, ActionAgentCreation, preview)
		if err != nil {
			slog.Warn("Approval for agent creation not queued", "agent", created.ID, "error", err)
		} else {
			if e.notifier != nil {
				if err := e.notifier.ApprovalQueued(ctx, item, created.Name); err != nil {
					slog.Warn("Approval notification failed", "approval", item.ID, "error", err)
				}
			}
			b.WriteString("\nBecause it uses the browser, it is waiting in the approval queue before it can act.")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func draft(key string) func(*Engine, context.Context, turn) string {
	return func(e *Engine, _ context.Context, _ turn) string {
		p := presets.MustGet(key)
		e.drafted = p.Agent()
		return draftPreview(p)
	}
}

func draftPreview(p presets.Preset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's a draft agent for you:\n\n**%s**\n%s\n\n", p.Name, p.Summary)
	fmt.Fprintf(&b, "- Role: %s\n- Goal: %s\n- Tools: %s\n", p.Role, p.Goal, strings.Join(p.Tools, ", "))
	if p.Schedule != "" {
		fmt.Fprintf(&b, "- Schedule: `%s`\n", p.Schedule)
	}
	b.WriteString("\nSay **create** to deploy it, or describe something else.")
	return b.String()
}

func static(name string) func(*Engine, context.Context, turn) string {
	return func(*Engine, context.Context, turn) string { return template(name) }
}

func fallback(_ *Engine, _ context.Context, t turn) string {
	return fmt.Sprintf("Let me help with %q. I can set up OpenClaw, draft agents for trending topics or hashtags, "+
		"explain schedules and sandbox mode, or show status. Say \"help\" for the full list, "+
		"or connect OpenAI or Anthropic in Settings for free-form answers.", t.raw)
}

func isGreeting(norm string) bool {
	bare := strings.TrimRight(norm, "!.? ")
	for _, g := range greetings {
		if bare == g {
			return true
		}
	}
	return len([]rune(norm)) < 5 && !containsAny(norm, affirmWords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
