// Package session owns the chat history of one identity: which session is
// active, how it is saved, and how saved sessions are found again.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/sentiment-bot/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidMessage  = errors.New("invalid message")
)

// Summary is the listing view of a saved session.
type Summary struct {
	ID           models.SessionID `json:"id"`
	Title        string           `json:"title"`
	MessageCount int              `json:"message_count"`
	CreatedAt    time.Time        `json:"created_at"`
}

type Option func(*Manager)

// WithClock replaces time.Now for session and message timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager holds the active session and the registry of saved ones. All
// mutation happens on the active copy and is committed by a save.
type Manager struct {
	mu     sync.Mutex
	store  Store
	now    func() time.Time
	lastID models.SessionID
	active models.ChatSession
}

// NewManager starts with a fresh empty active session.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, saved := range store.List() {
		if saved.ID > m.lastID {
			m.lastID = saved.ID
		}
	}
	m.startLocked()
	return m
}

// CreateSession saves the active session if it has messages and starts a new
// one. The id counter advances even when the previous session was empty.
func (m *Manager) CreateSession() models.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveLocked()
	m.startLocked()
	return m.active.Clone()
}

// AppendMessage adds a message to the end of the active session.
func (m *Manager) AppendMessage(msg models.Message) error {
	if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, msg.Role)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	m.active.Messages = append(m.active.Messages, msg)
	return nil
}

// SaveActiveSession upserts the active session under its id. Sessions
// without messages are not saved.
func (m *Manager) SaveActiveSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveLocked()
}

// LoadSession saves the active session and replaces it with a copy of the
// stored session id.
func (m *Manager) LoadSession(id models.SessionID) (models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveLocked()

	stored, ok := m.store.Get(id)
	if !ok {
		return models.ChatSession{}, fmt.Errorf("load session %d: %w", id, ErrSessionNotFound)
	}
	m.active = stored
	return m.active.Clone(), nil
}

// DeleteSession removes a saved session. Deleting the active session replaces
// it with a fresh empty one.
func (m *Manager) DeleteSession(id models.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.store.Delete(id)
	if id == m.active.ID {
		m.startLocked()
		return nil
	}
	if !removed {
		return fmt.Errorf("delete session %d: %w", id, ErrSessionNotFound)
	}
	return nil
}

// Search matches query against saved session titles, ignoring case. Results
// are ordered newest first by id.
func (m *Manager) Search(query string) []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	needle := strings.ToLower(query)
	var out []Summary
	for _, s := range m.store.List() {
		if needle != "" && !strings.Contains(strings.ToLower(s.Title), needle) {
			continue
		}
		out = append(out, Summary{
			ID:           s.ID,
			Title:        s.Title,
			MessageCount: s.MessageCount(),
			CreatedAt:    s.CreatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return out
}

// Active returns a copy of the active session.
func (m *Manager) Active() models.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	session := m.active.Clone()
	session.Title = session.DeriveTitle()
	return session
}

func (m *Manager) saveLocked() {
	if m.active.IsEmpty() {
		return
	}
	m.active.Title = m.active.DeriveTitle()
	m.store.Upsert(m.active)
}

func (m *Manager) startLocked() {
	m.lastID++
	m.active = models.ChatSession{
		ID:        m.lastID,
		Title:     models.DefaultTitle,
		CreatedAt: m.now(),
	}
}
