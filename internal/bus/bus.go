// Package bus carries typed events between the session list owner and the
// conversation owner.
package bus

import (
	"context"
	"sync"
	"sync/atomic"
)

// Event is implemented by every payload the bus carries.
type Event interface {
	EventName() string
}

// Event names, usable as Subscribe keys.
const (
	NameSessionCreated   = "session.created"
	NameSessionActivated = "session.activated"
	NameSessionDeleted   = "session.deleted"
	NameSessionUpdated   = "session.updated"
	NameTurnRequested    = "turn.requested"
)

// SessionCreated is published after a new session is stored and made active.
type SessionCreated struct {
	SessionID string
	Title     string
}

// SessionActivated is published when an existing session becomes active.
type SessionActivated struct {
	SessionID string
}

// SessionDeleted is published after a session is removed.
type SessionDeleted struct {
	SessionID string
	WasActive bool
}

// SessionUpdated is published after messages were appended to a session.
type SessionUpdated struct {
	SessionID string
	Title     string
	Messages  int
}

// TurnResult is the answer to a TurnRequested.
type TurnResult struct {
	SessionID string
	Content   string
	Backend   string
	FellBack  bool
	Err       error
}

// TurnRequested asks the conversation owner to process one user message.
// Reply must be buffered; the consumer never blocks on it.
type TurnRequested struct {
	Text  string
	Reply chan TurnResult
}

func (SessionCreated) EventName() string   { return NameSessionCreated }
func (SessionActivated) EventName() string { return NameSessionActivated }
func (SessionDeleted) EventName() string   { return NameSessionDeleted }
func (SessionUpdated) EventName() string   { return NameSessionUpdated }
func (TurnRequested) EventName() string    { return NameTurnRequested }

// EventBus is a single FIFO queue. Order of publication is order of delivery,
// which is what lets a session switch take effect before the next turn.
type EventBus struct {
	events  chan Event
	subs    map[string][]func(Event)
	mu      sync.RWMutex
	dropped atomic.Int64
}

// New creates an event bus with the given queue capacity (minimum 1).
func New(size int) *EventBus {
	if size < 1 {
		size = 1
	}
	return &EventBus{
		events: make(chan Event, size),
		subs:   make(map[string][]func(Event)),
	}
}

// Publish enqueues ev, blocking while the queue is full.
func (b *EventBus) Publish(ctx context.Context, ev Event) error {
	select {
	case b.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish enqueues ev only if there is room. Use it for notifications
// raised from the consuming goroutine itself.
func (b *EventBus) TryPublish(ev Event) bool {
	select {
	case b.events <- ev:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Consume blocks until an event is available or ctx is cancelled.
func (b *EventBus) Consume(ctx context.Context) (Event, error) {
	select {
	case ev := <-b.events:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers a callback for events with the given name.
func (b *EventBus) Subscribe(name string, callback func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], callback)
}

// Notify runs the subscribers registered for ev.
func (b *EventBus) Notify(ev Event) {
	b.mu.RLock()
	callbacks := b.subs[ev.EventName()]
	b.mu.RUnlock()
	for _, cb := range callbacks {
		cb(ev)
	}
}

// Dispatch consumes events and hands each to its subscribers until ctx is
// cancelled. Run it from exactly one goroutine.
func (b *EventBus) Dispatch(ctx context.Context) error {
	for {
		ev, err := b.Consume(ctx)
		if err != nil {
			return err
		}
		b.Notify(ev)
	}
}

// Pending returns the number of queued events.
func (b *EventBus) Pending() int {
	return len(b.events)
}

// Dropped returns how many TryPublish calls found the queue full.
func (b *EventBus) Dropped() int64 {
	return b.dropped.Load()
}
