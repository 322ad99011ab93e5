package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clawdesk/clawdesk/internal/agents"
	"github.com/clawdesk/clawdesk/internal/approval"
	"github.com/clawdesk/clawdesk/internal/audit"
	"github.com/clawdesk/clawdesk/internal/bus"
	"github.com/clawdesk/clawdesk/internal/clinst"
	"github.com/clawdesk/clawdesk/internal/config"
	"github.com/clawdesk/clawdesk/internal/conversation"
	"github.com/clawdesk/clawdesk/internal/dispatch"
	"github.com/clawdesk/clawdesk/internal/gateway"
	"github.com/clawdesk/clawdesk/internal/notify"
	"github.com/clawdesk/clawdesk/internal/provider"
	"github.com/clawdesk/clawdesk/internal/session"
	"github.com/clawdesk/clawdesk/internal/timeline"
	"github.com/clawdesk/clawdesk/internal/tools"
)

// loadConfig resolves the effective configuration for a command.
var loadConfig = config.Load

// deskStore is what every component writes through. With audit enabled it
// is the Kafka-mirrored timeline.
type deskStore interface {
	conversation.Store
	agents.Store
	dispatch.Store
	approval.Store
	gateway.Store
}

// app holds the wired components for one command invocation.
type app struct {
	cfg        *config.Config
	store      deskStore
	engine     *conversation.Engine
	sessions   *session.Manager
	agents     *agents.Service
	dispatcher *dispatch.Dispatcher
	approvals  *approval.Workflow
	openclaw   *clinst.OpenClaw

	closers []func() error
}

// openApp loads config, opens the timeline and wires every component. The
// session manager only publishes events when events is non-nil.
func openApp(ctx context.Context, events *bus.EventBus) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	tl, err := timeline.NewTimelineService(cfg.Paths.DBPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: tl}
	a.closers = append(a.closers, tl.Close)

	if cfg.Audit.Enabled() {
		pub, err := audit.NewKafkaPublisher(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			a.Close()
			return nil, err
		}
		// Flush the writer before the database goes away.
		a.closers = append([]func() error{pub.Close}, a.closers...)
		a.store = audit.Mirror(tl, pub)
		slog.Debug("Audit mirroring enabled", "brokers", cfg.Audit.KafkaBrokers, "topic", cfg.Audit.KafkaTopic)
	}

	var notifier dispatch.Notifier
	if cfg.Notify.Enabled() {
		n, err := notify.NewSlackNotifier(cfg.Notify.SlackToken, cfg.Notify.SlackChannel, cfg.Notify.SlackAPIURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = n
	}

	a.openclaw = clinst.New(tools.NewRunner(cfg.OpenClaw.CommandTimeout), cfg.OpenClaw.Binary, cfg.OpenClaw.InstallPackage)
	a.agents = agents.NewService(a.store)
	a.dispatcher = dispatch.New(a.store, notifier)
	a.approvals = approval.NewWorkflow(a.store)
	if events != nil {
		a.sessions = session.NewManager(tl, events)
	} else {
		a.sessions = session.NewManager(tl, nil)
	}

	providers := cfg.Providers
	a.engine = conversation.NewEngine(conversation.Options{
		Store:     a.store,
		Agents:    a.agents,
		Installer: a.openclaw,
		Backends: func(kind provider.Kind, apiKey, model string) (provider.LLMProvider, error) {
			return provider.Resolve(providers, kind, apiKey, model)
		},
		RemoteTimeout:  cfg.Engine.RemoteTimeout,
		SetupStepDelay: cfg.Engine.SetupStepDelay,
		HistoryWindow:  cfg.Engine.HistoryWindow,
		MaxTokens: map[provider.Kind]int{
			provider.KindOpenAI:    providers.OpenAI.MaxTokens,
			provider.KindAnthropic: providers.Anthropic.MaxTokens,
		},
		Notifier:  notifier,
		DemoSetup: cfg.Engine.DemoSetup,
	})
	a.engine.Initialize(ctx)
	return a, nil
}

// Close releases resources in order.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("Close failed", "error", err)
		}
	}
}
