package domain

import (
	"time"

	"github.com/segmentio/ksuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Sources   []Metadata `json:"sources,omitempty"`
	IsError   bool       `json:"is_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role Role, content string, sources []Metadata) Message {
	return Message{
		ID:        NewID("msg"),
		Role:      role,
		Content:   content,
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}
}

// Conversation is the chat history of a session.
type Conversation struct {
	ID        string          `json:"id"`
	Level     ComplexityLevel `json:"level,omitempty"`
	Messages  []Message       `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Sealed holds the encrypted payload when the conversation is stored through
	// an encrypting store. It is empty in plaintext conversations.
	Sealed string `json:"sealed,omitempty"`
}

// NewConversation creates an empty conversation.
func NewConversation(id string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        id,
		Level:     LevelEasy,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds messages and bumps UpdatedAt.
func (c *Conversation) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
	c.UpdatedAt = time.Now().UTC()
}

// Trim keeps only the last keep messages once the history grows past max.
// It reports whether anything was dropped.
func (c *Conversation) Trim(max, keep int) bool {
	if max <= 0 || len(c.Messages) <= max {
		return false
	}
	if keep <= 0 || keep > max {
		keep = max
	}
	c.Messages = append([]Message(nil), c.Messages[len(c.Messages)-keep:]...)
	return true
}

// Clear removes all messages.
func (c *Conversation) Clear() {
	c.Messages = []Message{}
	c.UpdatedAt = time.Now().UTC()
}

// Snapshot returns a deep copy safe to hand to another goroutine or store.
func (c *Conversation) Snapshot() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		cp.Messages[i] = m
		if m.Sources != nil {
			cp.Messages[i].Sources = make([]Metadata, len(m.Sources))
			for j, s := range m.Sources {
				cp.Messages[i].Sources[j] = s.Clone()
			}
		}
	}
	return &cp
}

// NewID returns a sortable unique identifier with the given prefix.
func NewID(prefix string) string {
	return prefix + "_" + ksuid.New().String()
}
