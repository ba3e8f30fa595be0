package models

import "time"

// Role identifies who authored a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single turn in a chat session. Messages are never
// modified after they are appended to a session.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Identity is the opaque user handle supplied by the identity provider
type Identity struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// Key returns the value used to group sessions for this identity.
func (i Identity) Key() string {
	if i.Email != "" {
		return i.Email
	}
	return i.ID
}

// DisplayName returns the part of the email before the @ sign, or the raw key.
func (i Identity) DisplayName() string {
	key := i.Key()
	for idx := 0; idx < len(key); idx++ {
		if key[idx] == '@' {
			return key[:idx]
		}
	}
	return key
}
