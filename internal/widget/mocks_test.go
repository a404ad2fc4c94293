package widget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockHistoryStore mocks the domain.HistoryStore interface
type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) Append(ctx context.Context, id domain.SessionID, msg domain.Message) error {
	args := m.Called(ctx, id, msg)
	return args.Error(0)
}

func (m *MockHistoryStore) List(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockHistoryStore) Delete(ctx context.Context, id domain.SessionID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ops lists the store calls in order as "append:<text>", "delete" and "list"
func (m *MockHistoryStore) ops() []string {
	var out []string
	for _, c := range m.Calls {
		switch c.Method {
		case "Append":
			out = append(out, "append:"+c.Arguments.Get(2).(domain.Message).Text)
		case "Delete":
			out = append(out, "delete")
		case "List":
			out = append(out, "list")
		}
	}
	return out
}

// MockGenerator mocks the Generator interface
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// blockingGenerator holds every call until released or cancelled
type blockingGenerator struct {
	reply   string
	release chan struct{}
	started chan struct{}
}

func newBlockingGenerator(reply string) *blockingGenerator {
	return &blockingGenerator{
		reply:   reply,
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
	}
}

func (g *blockingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return g.reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// stubbornGenerator ignores cancellation and answers only when released
type stubbornGenerator struct {
	blockingGenerator
}

func (g *stubbornGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.started <- struct{}{}
	<-g.release
	return g.reply, nil
}

// recordingSink records rendered output as short event strings
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) add(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recordingSink) RenderMessage(msg domain.Message, isWelcome bool) {
	if isWelcome {
		r.add("welcome:%s", msg.Text)
		return
	}
	r.add("msg:%s:%s", msg.Role, msg.Text)
}

func (r *recordingSink) RenderQuickReplies(replies []domain.QuickReply) {
	r.add("quick:%d", len(replies))
}

func (r *recordingSink) RemoveQuickReplies() { r.add("quick:remove") }

func (r *recordingSink) SetTypingIndicator(visible bool) {
	if visible {
		r.add("typing:on")
		return
	}
	r.add("typing:off")
}

func (r *recordingSink) ShowWidget()    { r.add("show") }
func (r *recordingSink) HideWidget()    { r.add("hide") }
func (r *recordingSink) ClearMessages() { r.add("clear") }

func (r *recordingSink) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingSink) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func testOptions() Options {
	return Options{
		IdleTimeout:    time.Hour,
		MaxRetries:     2,
		RetryBackoff:   time.Millisecond,
		ContextWindow:  6,
		MinReplyLength: 10,
		PersistTimeout: time.Second,
	}
}

func permissiveStore() *MockHistoryStore {
	store := new(MockHistoryStore)
	store.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Delete", mock.Anything, mock.Anything).Return(nil)
	store.On("List", mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
	return store
}
