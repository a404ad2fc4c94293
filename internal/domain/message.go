package domain

import (
	"context"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser MessageRole = "user"
	// RoleBot covers generated replies and scripted messages (welcome, idle reminder, error).
	RoleBot MessageRole = "bot"
)

// Valid reports whether the role is one the widget understands
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// Message is one entry of a conversation thread
type Message struct {
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// QuickReply is a pre-scripted utterance offered as a shortcut button
type QuickReply struct {
	Label   string `json:"label" mapstructure:"label"`
	Message string `json:"message" mapstructure:"message"`
}

// HistoryStore defines the interface for durable per-session message storage.
// List must return messages in chronological order.
type HistoryStore interface {
	Append(ctx context.Context, sessionID SessionID, message Message) error
	List(ctx context.Context, sessionID SessionID) ([]Message, error)
	Delete(ctx context.Context, sessionID SessionID) error
}
