package widget

import (
	"sync"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
)

// Conversation is the in-memory, authoritative message list of a session
type Conversation struct {
	mu       sync.RWMutex
	messages []domain.Message
	now      func() time.Time
}

func NewConversation() *Conversation {
	return &Conversation{now: time.Now}
}

// Append stamps the message with the current time and adds it
func (c *Conversation) Append(role domain.MessageRole, text string) domain.Message {
	msg := domain.Message{Role: role, Text: text, Timestamp: c.now()}
	c.AppendMessage(msg)
	return msg
}

// AppendMessage adds a message keeping its timestamp
func (c *Conversation) AppendMessage(msg domain.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

// ContextWindow returns a copy of the last n messages in chronological order
func (c *Conversation) ContextWindow(n int) []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 {
		return []domain.Message{}
	}
	start := len(c.messages) - n
	if start < 0 {
		start = 0
	}
	window := make([]domain.Message, len(c.messages)-start)
	copy(window, c.messages[start:])
	return window
}

// LastRole reports the role of the newest message, false when empty
func (c *Conversation) LastRole() (domain.MessageRole, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) == 0 {
		return "", false
	}
	return c.messages[len(c.messages)-1].Role, true
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Messages returns a copy of the whole conversation
func (c *Conversation) Messages() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}
