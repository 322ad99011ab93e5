// Package gateway hosts the HTTP API and the event loop that owns the
// conversation engine.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/clawdesk/clawdesk/internal/agents"
	"github.com/clawdesk/clawdesk/internal/approval"
	"github.com/clawdesk/clawdesk/internal/bus"
	"github.com/clawdesk/clawdesk/internal/conversation"
	"github.com/clawdesk/clawdesk/internal/dispatch"
	"github.com/clawdesk/clawdesk/internal/session"
	"github.com/clawdesk/clawdesk/internal/timeline"
	"golang.org/x/sync/errgroup"
)

// Store is the read side the API serves directly.
type Store interface {
	ListAgents(ctx context.Context) ([]timeline.Agent, error)
	GetAgent(ctx context.Context, id string) (*timeline.Agent, error)
	GetLogs(ctx context.Context, limit int) ([]timeline.ExecutionLog, error)
	GetPendingApprovals(ctx context.Context) ([]timeline.ApprovalItem, error)
}

// Deps are the components a Host serves.
type Deps struct {
	Store      Store
	Engine     *conversation.Engine
	Sessions   *session.Manager
	Agents     *agents.Service
	Dispatcher *dispatch.Dispatcher
	Approvals  *approval.Workflow
	Events     *bus.EventBus

	Version   string
	AuthToken string // empty disables bearer auth
}

// Host runs the API server and the event loop. The loop is the only
// goroutine that sends messages to the engine, so chat turns and session
// switches are applied in the order they were published.
type Host struct {
	deps    Deps
	started time.Time

	// Owned by the event loop.
	loopCtx context.Context
	current string
}

// New creates a host and subscribes its loop handlers on deps.Events.
func New(deps Deps) *Host {
	h := &Host{deps: deps, started: time.Now(), loopCtx: context.Background()}
	ev := deps.Events
	ev.Subscribe(bus.NameTurnRequested, func(e bus.Event) { h.handleTurn(e.(bus.TurnRequested)) })
	ev.Subscribe(bus.NameSessionCreated, func(e bus.Event) { h.switchTo(e.(bus.SessionCreated).SessionID) })
	ev.Subscribe(bus.NameSessionActivated, func(e bus.Event) { h.switchTo(e.(bus.SessionActivated).SessionID) })
	ev.Subscribe(bus.NameSessionDeleted, func(e bus.Event) {
		if d := e.(bus.SessionDeleted); d.WasActive && d.SessionID == h.current {
			h.switchTo("")
		}
	})
	ev.Subscribe(bus.NameSessionUpdated, func(e bus.Event) {
		u := e.(bus.SessionUpdated)
		slog.Debug("Session updated", "session", u.SessionID, "title", u.Title, "messages", u.Messages)
	})
	return h
}

// Run serves on host:port until ctx is cancelled.
func (h *Host) Run(ctx context.Context, host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return h.Serve(ctx, ln)
}

// Serve runs the event loop and the API on ln until ctx is cancelled.
func (h *Host) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.Loop(gctx)
	})
	g.Go(func() error {
		slog.Info("Gateway listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	slog.Info("Gateway stopped")
	return err
}

// Loop consumes the event bus until ctx is cancelled. Call it from exactly
// one goroutine.
func (h *Host) Loop(ctx context.Context) error {
	h.loopCtx = ctx
	return h.deps.Events.Dispatch(ctx)
}

// switchTo makes id the engine's session. The engine forgets its history
// and pending confirmations only when the session really changes.
func (h *Host) switchTo(id string) {
	if id == h.current {
		return
	}
	slog.Info("Active session changed", "from", h.current, "to", id)
	h.current = id
	h.deps.Engine.ClearHistory()
}

func (h *Host) handleTurn(req bus.TurnRequested) {
	// Turns are not cancelled by the caller going away.
	ctx := context.WithoutCancel(h.loopCtx)
	result := bus.TurnResult{}

	s, _, err := h.deps.Sessions.EnsureActive(ctx)
	if err != nil {
		result.Err = fmt.Errorf("active session: %w", err)
		h.reply(req, result)
		return
	}
	h.switchTo(s.ID)
	result.SessionID = s.ID

	reply, err := h.deps.Engine.SendMessage(ctx, req.Text)
	if err != nil {
		result.Err = err
		h.reply(req, result)
		return
	}
	result.Content = reply.Content
	result.Backend = string(reply.Backend)
	result.FellBack = reply.FellBack

	now := time.Now()
	if _, err := h.deps.Sessions.Append(ctx, s.ID,
		session.Message{Role: session.RoleUser, Content: req.Text, Timestamp: now},
		session.Message{Role: session.RoleAssistant, Content: reply.Content, Timestamp: now},
	); err != nil {
		slog.Warn("Session not saved", "session", s.ID, "error", err)
	}
	h.reply(req, result)
}

func (h *Host) reply(req bus.TurnRequested, res bus.TurnResult) {
	select {
	case req.Reply <- res:
	default:
		slog.Warn("Turn reply dropped", "session", res.SessionID)
	}
}
