package service

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockBroadcaster mocks the Broadcaster interface
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(data []byte) {
	m.Called(data)
}

// capturingBroadcaster keeps every frame it is asked to send
type capturingBroadcaster struct {
	mu     sync.Mutex
	frames []string
}

func (c *capturingBroadcaster) Broadcast(data []byte) {
	c.mu.Lock()
	c.frames = append(c.frames, string(data))
	c.mu.Unlock()
}

func (c *capturingBroadcaster) Frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}
