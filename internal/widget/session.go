package widget

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/Rrens/chatwidget/internal/llm"
	"github.com/Rrens/chatwidget/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionConfig wires a Session to its collaborators. Generator is required.
// A nil Store keeps history in memory only and a nil Sink renders nothing.
type SessionConfig struct {
	ID        domain.SessionID
	Store     domain.HistoryStore
	Generator Generator
	Sink      MessageSink
	Script    Script
	Options   Options
	Logger    *zerolog.Logger
}

// Session is the controller for one widget activation
type Session struct {
	mu sync.Mutex

	id      domain.SessionID
	script  Script
	opts    Options
	sink    MessageSink
	conv    *Conversation
	idle    *IdleWatchdog
	engine  *ResponseEngine
	persist *persister
	base    zerolog.Logger
	log     zerolog.Logger
	now     func() time.Time

	opened     bool
	visible    bool
	closed     bool
	offered    []domain.QuickReply
	generating bool
	// epoch changes on clear, end and close; replies from an older epoch are dropped
	epoch    uint64
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.ID == "" {
		cfg.ID = domain.NewSessionID()
	}
	if cfg.Sink == nil {
		cfg.Sink = nopSink{}
	}
	if cfg.Script.Welcome == "" {
		cfg.Script = DefaultScript()
	}
	opts := cfg.Options.withDefaults()

	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	base = base.With().Str("component", "widget").Logger()

	s := &Session{
		id:     cfg.ID,
		script: cfg.Script,
		opts:   opts,
		sink:   cfg.Sink,
		conv:   NewConversation(),
		base:   base,
		now:    time.Now,
	}
	s.log = s.sessionLogger()
	s.persist = newPersister(cfg.Store, opts.PersistTimeout, base)
	s.engine = NewResponseEngine(cfg.Generator, cfg.Script, opts, base)
	s.idle = NewIdleWatchdog(opts.IdleTimeout, &s.mu, s.lastTurnIsUser, s.remind)

	return s
}

// Open shows the widget. The first activation restores stored history and
// greets the user with the welcome message and quick replies.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	first := !s.opened
	id := s.id
	s.mu.Unlock()

	// loaded without the lock so commands and replies are not held up by the store
	var history []domain.Message
	if first {
		history = s.persist.list(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionClosed
	}

	s.visible = true
	s.sink.ShowWidget()

	if !s.opened {
		s.opened = true
		if s.id != id {
			// ended while loading, the new id has nothing stored
			history = nil
		}
		s.restore(history)
	}

	s.idle.Reset()
	return nil
}

// Send submits free text typed by the user
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(llm.Sanitize(text))
	if text == "" {
		return domain.ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return err
	}

	s.submit(text)
	return nil
}

// SelectQuickReply submits the message behind an offered quick reply label
func (s *Session) SelectQuickReply(ctx context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReady(); err != nil {
		return err
	}

	qr, ok := quickReply(s.offered, label)
	if !ok {
		return domain.ErrUnknownQuickReply
	}

	s.submit(llm.Sanitize(qr.Message))
	s.offered = nil
	s.sink.RemoveQuickReplies()
	return nil
}

// Clear wipes the conversation and its stored history, then starts over with the welcome message
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionClosed
	}

	s.invalidate()
	s.idle.Stop()
	s.sink.ClearMessages()
	s.conv.Clear()
	s.dropQuickReplies()
	s.persist.delete(s.id)

	s.emitWelcome()
	s.idle.Reset()

	s.log.Info().Msg("Chat cleared")
	return nil
}

// End asks for confirmation, then hides the widget, deletes the stored history
// and moves to a new session id. It reports whether the chat was ended.
func (s *Session) End(ctx context.Context, confirmer Confirmer) (bool, error) {
	s.mu.Lock()
	closed := s.closed
	question := s.script.EndConfirmation
	s.mu.Unlock()

	if closed {
		return false, domain.ErrSessionClosed
	}
	// asked outside the lock, the user may take a while to answer
	if confirmer == nil || !confirmer.Confirm(ctx, question) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, domain.ErrSessionClosed
	}

	s.visible = false
	s.sink.HideWidget()
	s.invalidate()
	s.idle.Stop()
	s.sink.ClearMessages()
	s.conv.Clear()
	s.dropQuickReplies()
	s.opened = false
	s.persist.delete(s.id)

	previous := s.id
	s.id = domain.NewSessionID()
	s.log = s.sessionLogger()
	s.log.Info().Str("previous_session_id", previous.String()).Msg("Chat ended")

	return true, nil
}

// Close releases the session on page unload. Stored history is kept.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.invalidate()
	s.idle.Stop()
	s.mu.Unlock()

	s.persist.close()
	s.log.Debug().Msg("Session closed")
}

// Wait blocks until any in-flight generation has resolved
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) ID() domain.SessionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *Session) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

func (s *Session) IdleState() IdleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle.State()
}

// QuickReplies returns the currently offered menu
func (s *Session) QuickReplies() []domain.QuickReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.QuickReply(nil), s.offered...)
}

// Messages returns a copy of the conversation
func (s *Session) Messages() []domain.Message {
	return s.conv.Messages()
}

// Flush waits until queued history writes have been applied
func (s *Session) Flush(ctx context.Context) error {
	return s.persist.flush(ctx)
}

func (s *Session) checkReady() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.generating {
		return domain.ErrGenerationInProgress
	}
	return nil
}

// submit appends a user turn and starts generating the reply. Caller holds s.mu.
func (s *Session) submit(text string) {
	msg := s.conv.Append(domain.RoleUser, text)
	s.sink.RenderMessage(msg, false)
	s.persist.append(s.id, msg)
	s.idle.Reset()

	window := s.conv.ContextWindow(s.opts.ContextWindow)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.generating = true
	epoch := s.epoch

	s.sink.SetTypingIndicator(true)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()

		reply := s.engine.Respond(ctx, text, window)
		s.deliver(epoch, reply)
	}()
}

func (s *Session) deliver(epoch uint64, reply Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		metrics.DiscardedReplies.Inc()
		s.log.Debug().Str("outcome", string(reply.Outcome)).Msg("Discarding reply from a previous conversation")
		return
	}

	s.generating = false
	s.cancel = nil
	s.sink.SetTypingIndicator(false)

	if reply.Outcome == OutcomeCancelled {
		return
	}

	msg := s.conv.Append(domain.RoleBot, reply.Text)
	s.sink.RenderMessage(msg, false)
	s.persist.append(s.id, msg)
	metrics.Replies.WithLabelValues(string(reply.Outcome)).Inc()
	s.idle.Reset()

	s.log.Debug().
		Str("outcome", string(reply.Outcome)).
		Int("attempts", reply.Attempts).
		Msg("Reply delivered")
}

// invalidate cancels the in-flight generation and bumps the epoch. Caller holds s.mu.
func (s *Session) invalidate() {
	s.epoch++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.generating {
		s.generating = false
		s.sink.SetTypingIndicator(false)
	}
}

// restore replays stored history into the thread and the conversation without
// writing it back. Stored welcomes are shown as welcomes and kept out of the
// conversation; a fresh one is emitted only when the history has none.
// Caller holds s.mu.
func (s *Session) restore(history []domain.Message) {
	if !slices.ContainsFunc(history, s.isWelcome) {
		s.emitWelcome()
	}

	replayed := 0
	for _, msg := range history {
		if !msg.Role.Valid() {
			s.log.Warn().Str("role", string(msg.Role)).Msg("Skipping stored message with unknown role")
			continue
		}
		if s.isWelcome(msg) {
			s.sink.RenderMessage(msg, true)
			s.offerQuickReplies()
			continue
		}
		s.conv.AppendMessage(msg)
		s.sink.RenderMessage(msg, false)
		replayed++
	}
	s.log.Info().Int("replayed", replayed).Msg("Widget opened")
}

func (s *Session) isWelcome(msg domain.Message) bool {
	return msg.Role == domain.RoleBot && msg.Text == s.script.Welcome
}

// emitWelcome renders and persists the welcome text and offers the quick replies.
// The welcome is not part of the conversation, so it never enters the prompt.
func (s *Session) emitWelcome() {
	msg := domain.Message{Role: domain.RoleBot, Text: s.script.Welcome, Timestamp: s.now()}
	s.sink.RenderMessage(msg, true)
	s.persist.append(s.id, msg)
	s.offerQuickReplies()
}

func (s *Session) offerQuickReplies() {
	if len(s.script.QuickReplies) == 0 || s.offered != nil {
		return
	}
	s.offered = append([]domain.QuickReply(nil), s.script.QuickReplies...)
	s.sink.RenderQuickReplies(append([]domain.QuickReply(nil), s.offered...))
}

func (s *Session) dropQuickReplies() {
	if s.offered != nil {
		s.offered = nil
		s.sink.RemoveQuickReplies()
	}
}

func (s *Session) lastTurnIsUser() bool {
	role, ok := s.conv.LastRole()
	return ok && role == domain.RoleUser
}

// remind runs from the idle watchdog with s.mu held
func (s *Session) remind() {
	msg := s.conv.Append(domain.RoleBot, s.script.IdleReminder)
	s.sink.RenderMessage(msg, false)
	s.persist.append(s.id, msg)
	metrics.IdleReminders.Inc()
	s.log.Info().Msg("Idle reminder sent")
}

func (s *Session) sessionLogger() zerolog.Logger {
	return s.base.With().Str("session_id", s.id.String()).Logger()
}
