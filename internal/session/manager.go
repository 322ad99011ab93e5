package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clawdesk/clawdesk/internal/bus"
	"github.com/clawdesk/clawdesk/internal/timeline"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Store persists sessions.
type Store interface {
	SaveSession(ctx context.Context, rec *timeline.SessionRecord) error
	GetSession(ctx context.Context, id string) (*timeline.SessionRecord, error)
	ListSessions(ctx context.Context) ([]timeline.SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
}

// Publisher receives session events. TryPublish is used for updates because
// they are raised from inside a turn, on the consuming goroutine.
type Publisher interface {
	Publish(ctx context.Context, ev bus.Event) error
	TryPublish(ev bus.Event) bool
}

// Summary is a session without its messages.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager manages the session list and which session is active.
type Manager struct {
	store  Store
	events Publisher // nil disables events
	now    func() time.Time

	mu     sync.Mutex
	active string
}

// NewManager creates a new session manager. events may be nil.
func NewManager(store Store, events Publisher) *Manager {
	return &Manager{store: store, events: events, now: time.Now}
}

// Active returns the id of the active session, or "".
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Create stores a fresh session and makes it active.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s, err := m.create(ctx)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, bus.SessionCreated{SessionID: s.ID, Title: s.Title})
	return s, nil
}

func (m *Manager) create(ctx context.Context) (*Session, error) {
	s := NewSession(m.now())
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.active = s.ID
	m.mu.Unlock()
	slog.Debug("Session created", "session", s.ID)
	return s, nil
}

// Activate makes an existing session the active one.
func (m *Manager) Activate(ctx context.Context, id string) (*Session, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.active = s.ID
	m.mu.Unlock()
	m.publish(ctx, bus.SessionActivated{SessionID: s.ID})
	return s, nil
}

// EnsureActive returns the active session, creating one when none is active
// or the active one has vanished. created reports whether a session was made.
// It never blocks on the event queue, so the turn loop may call it.
func (m *Manager) EnsureActive(ctx context.Context) (s *Session, created bool, err error) {
	if id := m.Active(); id != "" {
		s, err = m.Get(ctx, id)
		if err == nil {
			return s, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}
	s, err = m.create(ctx)
	if err != nil {
		return nil, false, err
	}
	if m.events != nil {
		m.events.TryPublish(bus.SessionCreated{SessionID: s.ID, Title: s.Title})
	}
	return s, true, nil
}

// Get loads one session.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	rec, err := m.store.GetSession(ctx, id)
	if errors.Is(err, timeline.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return fromRecord(rec)
}

// List returns summaries, most recently updated first.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	recs, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	active := m.Active()
	out := make([]Summary, 0, len(recs))
	for i := range recs {
		s, err := fromRecord(&recs[i])
		if err != nil {
			slog.Warn("Skipping unreadable session", "session", recs[i].ID, "error", err)
			continue
		}
		out = append(out, Summary{
			ID:        s.ID,
			Title:     s.Title,
			Messages:  len(s.Messages),
			Active:    s.ID == active,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}
	return out, nil
}

// Append adds messages to a session and saves it.
func (m *Manager) Append(ctx context.Context, id string, msgs ...Message) (*Session, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Append(m.now(), msgs...)
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	if m.events != nil {
		m.events.TryPublish(bus.SessionUpdated{SessionID: s.ID, Title: s.Title, Messages: len(s.Messages)})
	}
	return s, nil
}

// Delete removes a session. Deleting the active session leaves none active.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, timeline.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	m.mu.Lock()
	wasActive := m.active == id
	if wasActive {
		m.active = ""
	}
	m.mu.Unlock()
	m.publish(ctx, bus.SessionDeleted{SessionID: id, WasActive: wasActive})
	return nil
}

func (m *Manager) publish(ctx context.Context, ev bus.Event) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, ev); err != nil {
		slog.Warn("Session event not delivered", "event", ev.EventName(), "error", err)
	}
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	return m.store.SaveSession(ctx, &timeline.SessionRecord{
		ID:        s.ID,
		Title:     s.Title,
		Messages:  string(data),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	})
}

func fromRecord(rec *timeline.SessionRecord) (*Session, error) {
	s := &Session{
		ID:        rec.ID,
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(rec.Messages), &s.Messages); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", rec.ID, err)
	}
	return s, nil
}
