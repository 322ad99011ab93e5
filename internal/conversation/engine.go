// Package conversation implements the dialogue engine: backend selection,
// the local rule table and the multi-turn state behind it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/clawdesk/clawdesk/internal/presets"
	"github.com/clawdesk/clawdesk/internal/provider"
	"github.com/clawdesk/clawdesk/internal/session"
	"github.com/clawdesk/clawdesk/internal/timeline"
)

// Mode selects the backend that answers a message.
type Mode string

const (
	ModeLocal     Mode = "local"
	ModeOpenAI    Mode = Mode(provider.KindOpenAI)
	ModeAnthropic Mode = Mode(provider.KindAnthropic)
)

// SystemInstruction is sent ahead of the history on every remote call.
const SystemInstruction = "You are ClawDesk, an assistant that helps people install and run OpenClaw " +
	"and build automation agents for social media. Be concise and practical. " +
	"Anything that posts publicly must go through the approval queue."

var (
	// ErrEmptyMessage is returned by SendMessage for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMissingAPIKey is returned by SwitchProvider without a key.
	ErrMissingAPIKey = errors.New("api key is required")
	// ErrUnknownProvider is returned by SwitchProvider for an unknown name.
	ErrUnknownProvider = provider.ErrUnknownProvider
)

// Store is the persistence the engine reads and writes.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
	AddLog(ctx context.Context, entry *timeline.ExecutionLog) (*timeline.ExecutionLog, error)
	AddApproval(ctx context.Context, agentID, actionType, preview string) (*timeline.ApprovalItem, error)
}

// AgentCreator persists a confirmed agent.
type AgentCreator interface {
	Create(ctx context.Context, a *timeline.Agent) (*timeline.Agent, error)
}

// Installer performs the OpenClaw setup steps.
type Installer interface {
	Version(ctx context.Context) (string, error)
	Install(ctx context.Context) error
	Onboard(ctx context.Context) error
	StartGateway(ctx context.Context) error
}

// Notifier announces a newly queued approval. Delivery is best effort.
type Notifier interface {
	ApprovalQueued(ctx context.Context, item *timeline.ApprovalItem, agentName string) error
}

// BackendFactory builds the remote client for a provider kind.
type BackendFactory func(kind provider.Kind, apiKey, model string) (provider.LLMProvider, error)

// Options contains configuration for the engine.
type Options struct {
	Store     Store
	Agents    AgentCreator
	Installer Installer
	Backends  BackendFactory

	RemoteTimeout  time.Duration // per remote call, default 30s
	SetupStepDelay time.Duration // pause between setup steps
	HistoryWindow  int           // messages sent to the remote backend, default 20
	// MaxTokens caps each remote completion per backend kind, default 1024.
	MaxTokens map[provider.Kind]int
	// Notifier, when set, is told about approvals queued by the conversation.
	Notifier Notifier
	// DemoSetup reports every setup step as successful to the user. The log
	// always records the real outcome.
	DemoSetup bool
}

// Reply is the assistant's answer to one message.
type Reply struct {
	Content  string `json:"content"`
	Backend  Mode   `json:"backend"`
	FellBack bool   `json:"fell_back"`
}

// Engine is the conversation engine. All public methods are serialized.
type Engine struct {
	store     Store
	agents    AgentCreator
	installer Installer
	backends  BackendFactory
	notifier  Notifier
	rules     []rule

	remoteTimeout  time.Duration
	setupStepDelay time.Duration
	historyWindow  int
	maxTokens      map[provider.Kind]int
	demoSetup      bool

	// mu serializes turns and provider switches. stateMu guards mode and
	// model so status reads never wait behind a turn; writers hold both.
	mu           sync.Mutex
	stateMu      sync.RWMutex
	mode         Mode
	model        string
	apiKey       string
	backend      provider.LLMProvider
	history      []session.Message
	pendingSetup bool
	drafted      *timeline.Agent
}

// NewEngine creates an engine in local mode.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		store:          opts.Store,
		agents:         opts.Agents,
		installer:      opts.Installer,
		backends:       opts.Backends,
		notifier:       opts.Notifier,
		remoteTimeout:  opts.RemoteTimeout,
		setupStepDelay: opts.SetupStepDelay,
		historyWindow:  opts.HistoryWindow,
		maxTokens:      opts.MaxTokens,
		demoSetup:      opts.DemoSetup,
		mode:           ModeLocal,
	}
	if e.remoteTimeout <= 0 {
		e.remoteTimeout = 30 * time.Second
	}
	if e.historyWindow <= 0 {
		e.historyWindow = 20
	}
	e.rules = defaultRules()
	return e
}

// Initialize restores the backend choice from settings. Missing or unreadable
// settings leave the engine in local mode.
func (e *Engine) Initialize(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name, okName, err := e.store.GetSetting(ctx, timeline.SettingLLMProvider)
	if err != nil {
		slog.Debug("Provider setting unreadable, staying local", "error", err)
		return
	}
	key, okKey, err := e.store.GetSetting(ctx, timeline.SettingLLMAPIKey)
	if err != nil {
		slog.Debug("API key setting unreadable, staying local", "error", err)
		return
	}
	if !okName || !okKey || name == "" || key == "" {
		return
	}
	model, _, err := e.store.GetSetting(ctx, timeline.SettingLLMModel)
	if err != nil {
		slog.Debug("Model setting unreadable, using default", "error", err)
		model = ""
	}
	kind, err := provider.ParseKind(name)
	if err != nil {
		slog.Warn("Stored provider is unknown, staying local", "provider", name)
		return
	}
	backend, err := e.backends(kind, key, model)
	if err != nil {
		slog.Warn("Stored provider could not be built, staying local", "provider", name, "error", err)
		return
	}
	e.setBackend(Mode(kind), key, backend.DefaultModel(), backend)
	slog.Info("Conversation engine initialized", "mode", e.mode, "model", e.model)
}

// SwitchProvider selects a remote backend and persists the choice. An empty
// model selects the backend's default. On error the engine is unchanged.
func (e *Engine) SwitchProvider(ctx context.Context, name, apiKey, model string) error {
	kind, err := provider.ParseKind(name)
	if err != nil {
		return err
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrMissingAPIKey
	}
	backend, err := e.backends(kind, apiKey, strings.TrimSpace(model))
	if err != nil {
		return fmt.Errorf("build %s backend: %w", kind, err)
	}
	model = backend.DefaultModel()

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, kv := range [][2]string{
		{timeline.SettingLLMProvider, string(kind)},
		{timeline.SettingLLMAPIKey, apiKey},
		{timeline.SettingLLMModel, model},
	} {
		if err := e.store.SetSetting(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("persist %s: %w", kv[0], err)
		}
	}
	e.setBackend(Mode(kind), apiKey, model, backend)
	e.systemLog(ctx, fmt.Sprintf("Switched LLM provider to %s (%s)", kind, model))
	slog.Info("LLM provider switched", "provider", kind, "model", model)
	return nil
}

// SwitchToLocal returns to the rule table and forgets the stored provider.
func (e *Engine) SwitchToLocal(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.setBackend(ModeLocal, "", "", nil)
	for _, key := range []string{timeline.SettingLLMProvider, timeline.SettingLLMAPIKey, timeline.SettingLLMModel} {
		if err := e.store.DeleteSetting(ctx, key); err != nil {
			slog.Debug("Setting delete failed", "key", key, "error", err)
		}
	}
	e.systemLog(ctx, "Switched to local inference")
}

// setBackend replaces the backend selection. The caller holds e.mu.
func (e *Engine) setBackend(mode Mode, apiKey, model string, backend provider.LLMProvider) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.mode, e.apiKey, e.model, e.backend = mode, apiKey, model, backend
}

// SendMessage answers one user message. Remote failures are never returned:
// the local rule table answers instead and Reply.FellBack is set.
func (e *Engine) SendMessage(ctx context.Context, text string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, ErrEmptyMessage
	}
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, session.Message{Role: session.RoleUser, Content: text, Timestamp: time.Now()})

	reply := Reply{Backend: e.mode}
	if e.mode != ModeLocal && e.backend != nil {
		content, err := e.remoteReply(ctx)
		if err == nil {
			reply.Content = content
		} else {
			slog.Warn("Remote inference failed, answering locally", "mode", e.mode, "error", err)
			reply.Backend = ModeLocal
			reply.FellBack = true
		}
	}
	if reply.Content == "" {
		reply.Backend = ModeLocal
		reply.Content = e.localReply(ctx, text)
	}

	e.history = append(e.history, session.Message{Role: session.RoleAssistant, Content: reply.Content, Timestamp: time.Now()})
	return reply, nil
}

// ClearHistory forgets the conversation and any pending confirmation.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
	e.pendingSetup = false
	e.drafted = nil
}

// Resume replaces the history with a stored conversation. When the last
// assistant message is a setup preview or an agent draft, that confirmation
// is pending again, so a conversation can continue in a new process.
func (e *Engine) Resume(msgs []session.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append([]session.Message(nil), msgs...)
	e.pendingSetup = false
	e.drafted = nil

	last := ""
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == session.RoleAssistant {
			last = msgs[i].Content
			break
		}
	}
	if last == "" {
		return
	}
	if last == template(tmplSetupPreview) {
		e.pendingSetup = true
		return
	}
	for _, p := range presets.All() {
		if last == draftPreview(p) {
			e.drafted = p.Agent()
			return
		}
	}
}

// Mode returns the active backend mode.
func (e *Engine) Mode() Mode {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.mode
}

// Model returns the remote model, or "" in local mode.
func (e *Engine) Model() string {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.model
}

// History returns a copy of the in-memory conversation.
func (e *Engine) History() []session.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]session.Message(nil), e.history...)
}

// PendingSetup reports whether a setup preview awaits confirmation.
func (e *Engine) PendingSetup() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingSetup
}

// DraftedAgent returns a copy of the agent awaiting confirmation, or nil.
func (e *Engine) DraftedAgent() *timeline.Agent {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drafted == nil {
		return nil
	}
	a := *e.drafted
	a.Tools = append([]string(nil), e.drafted.Tools...)
	return &a
}

func (e *Engine) remoteReply(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.remoteTimeout)
	defer cancel()

	window := e.history
	if len(window) > e.historyWindow {
		window = window[len(window)-e.historyWindow:]
	}
	// Anthropic requires the first message to come from the user.
	for len(window) > 0 && window[0].Role != session.RoleUser {
		window = window[1:]
	}
	msgs := make([]provider.Message, len(window))
	for i, m := range window {
		msgs[i] = provider.Message{Role: m.Role, Content: m.Content}
	}

	resp, err := e.backend.Chat(ctx, &provider.ChatRequest{
		System:      SystemInstruction,
		Messages:    msgs,
		Model:       e.model,
		MaxTokens:   e.maxTokensFor(e.mode),
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", errors.New("empty completion")
	}
	return content, nil
}

func (e *Engine) maxTokensFor(mode Mode) int {
	if n := e.maxTokens[provider.Kind(mode)]; n > 0 {
		return n
	}
	return 1024
}

// systemLog writes an info entry for the system agent. Failures are logged only.
func (e *Engine) systemLog(ctx context.Context, action string) {
	if _, err := e.store.AddLog(ctx, &timeline.ExecutionLog{
		AgentID: timeline.SystemAgentID,
		Action:  action,
		Status:  timeline.LogInfo,
	}); err != nil {
		slog.Warn("Audit log write failed", "action", action, "error", err)
	}
}
