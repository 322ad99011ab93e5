// Package session owns the chat session list: the message model, title
// derivation and the active-session pointer.
package session

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle is used until a session has a user message.
const DefaultTitle = "New Chat"

// TitleLimit is the number of characters kept from the first user message.
const TitleLimit = 35

// WelcomeMessage opens every new session.
const WelcomeMessage = `Welcome to ClawDesk! I can install and start OpenClaw for you, draft automation agents, and queue anything that touches the outside world for your approval.

Try "set up openclaw", "create a trending topics agent" or "help".`

// Message represents a chat message in a session.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Session represents a conversation session.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session whose first message is the welcome message.
func NewSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  []Message{{Role: RoleAssistant, Content: WelcomeMessage, Timestamp: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds messages and refreshes the title.
func (s *Session) Append(now time.Time, msgs ...Message) {
	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		s.Messages = append(s.Messages, m)
	}
	s.Title = DeriveTitle(s.Messages)
	s.UpdatedAt = now
}

// DeriveTitle returns the first user message cut to TitleLimit runes, with a
// single ellipsis appended only when something was cut.
func DeriveTitle(msgs []Message) string {
	for _, m := range msgs {
		if m.Role != RoleUser {
			continue
		}
		if utf8.RuneCountInString(m.Content) <= TitleLimit {
			return m.Content
		}
		return string([]rune(m.Content)[:TitleLimit]) + "…"
	}
	return DefaultTitle
}
