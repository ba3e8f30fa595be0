package models

import "time"

const (
	titleMaxRunes = 30
	titleEllipsis = "..."
	// DefaultTitle is used for sessions that have no user message yet.
	DefaultTitle = "New Chat"
)

// SessionID identifies a chat session. IDs are allocated in strictly
// increasing order, so comparing them numerically gives creation order.
type SessionID int64

// ChatSession is one ordered thread of user and assistant messages
type ChatSession struct {
	ID        SessionID `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// IsEmpty reports whether the session has no messages.
func (s ChatSession) IsEmpty() bool {
	return len(s.Messages) == 0
}

// MessageCount returns the number of messages in the session
func (s ChatSession) MessageCount() int {
	return len(s.Messages)
}

// Clone returns a deep copy of the session.
func (s ChatSession) Clone() ChatSession {
	out := s
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}

// DeriveTitle builds a title from the first user message: its first 30
// characters, followed by an ellipsis when it was truncated.
func (s ChatSession) DeriveTitle() string {
	for _, msg := range s.Messages {
		if msg.Role != RoleUser {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > titleMaxRunes {
			return string(runes[:titleMaxRunes]) + titleEllipsis
		}
		return msg.Content
	}
	return DefaultTitle
}
