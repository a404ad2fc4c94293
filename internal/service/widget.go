package service

import (
	"context"
	"sync"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/Rrens/chatwidget/internal/metrics"
	"github.com/Rrens/chatwidget/internal/stream"
	"github.com/Rrens/chatwidget/internal/widget"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Widget is one hosted widget activation: its session, event log and websocket clients
type Widget struct {
	ID        string
	CreatedAt time.Time
	Session   *widget.Session
	Events    *EventSink
	Pool      *stream.ConnectionPool
}

// WidgetState is the externally visible snapshot of a widget
type WidgetState struct {
	ID           string              `json:"id"`
	SessionID    domain.SessionID    `json:"session_id"`
	Opened       bool                `json:"opened"`
	Visible      bool                `json:"visible"`
	Generating   bool                `json:"generating"`
	QuickReplies []domain.QuickReply `json:"quick_replies"`
	Messages     []domain.Message    `json:"messages"`
	LastSeq      int64               `json:"last_seq"`
	CreatedAt    time.Time           `json:"created_at"`
}

func (w *Widget) State() WidgetState {
	return WidgetState{
		ID:           w.ID,
		SessionID:    w.Session.ID(),
		Opened:       w.Session.Opened(),
		Visible:      w.Session.Visible(),
		Generating:   w.Session.Generating(),
		QuickReplies: w.Session.QuickReplies(),
		Messages:     w.Session.Messages(),
		LastSeq:      w.Events.LastSeq(),
		CreatedAt:    w.CreatedAt,
	}
}

// WidgetService hosts widget sessions for browser clients
type WidgetService struct {
	store      domain.HistoryStore
	generator  widget.Generator
	script     widget.Script
	options    widget.Options
	evictAfter time.Duration

	mu      sync.RWMutex
	widgets map[string]*Widget
}

// NewWidgetService creates a new widget service. Widgets without websocket
// clients or activity for evictAfter are closed; zero disables eviction.
func NewWidgetService(
	store domain.HistoryStore,
	generator widget.Generator,
	script widget.Script,
	options widget.Options,
	evictAfter time.Duration,
) *WidgetService {
	return &WidgetService{
		store:      store,
		generator:  generator,
		script:     script,
		options:    options,
		evictAfter: evictAfter,
		widgets:    make(map[string]*Widget),
	}
}

// Create starts a widget. A non-empty sessionID resumes that session's stored history.
func (s *WidgetService) Create(ctx context.Context, sessionID string) (*Widget, error) {
	id := domain.NewSessionID()
	if sessionID != "" {
		parsed, err := domain.ParseSessionID(sessionID)
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	w := &Widget{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
	w.Pool = stream.NewConnectionPool(w.ID, s.evictAfter, func() { s.evict(w.ID) })
	w.Events = NewEventSink(w.Pool)
	w.Session = widget.NewSession(widget.SessionConfig{
		ID:        id,
		Store:     s.store,
		Generator: s.generator,
		Sink:      w.Events,
		Script:    s.script,
		Options:   s.options,
	})

	s.mu.Lock()
	s.widgets[w.ID] = w
	s.mu.Unlock()

	metrics.ActiveSessions.Inc()
	w.Pool.Touch()

	log.Info().
		Str("widget_id", w.ID).
		Str("session_id", id.String()).
		Bool("resumed", sessionID != "").
		Msg("Widget created")

	return w, nil
}

// Get looks up a widget and counts the lookup as activity
func (s *WidgetService) Get(id string) (*Widget, error) {
	s.mu.RLock()
	w, ok := s.widgets[id]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	w.Pool.Touch()
	return w, nil
}

// Remove closes a widget on page unload. Stored history is kept.
func (s *WidgetService) Remove(id string) error {
	s.mu.Lock()
	w, ok := s.widgets[id]
	delete(s.widgets, id)
	s.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	s.closeWidget(w)
	return nil
}

func (s *WidgetService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.widgets)
}

// Shutdown closes every widget, draining queued history writes
func (s *WidgetService) Shutdown() {
	s.mu.Lock()
	widgets := make([]*Widget, 0, len(s.widgets))
	for id, w := range s.widgets {
		widgets = append(widgets, w)
		delete(s.widgets, id)
	}
	s.mu.Unlock()

	for _, w := range widgets {
		s.closeWidget(w)
	}
	log.Info().Int("widgets", len(widgets)).Msg("Widget sessions closed")
}

func (s *WidgetService) evict(id string) {
	if err := s.Remove(id); err == nil {
		log.Info().Str("widget_id", id).Dur("idle", s.evictAfter).Msg("Evicted idle widget")
	}
}

func (s *WidgetService) closeWidget(w *Widget) {
	w.Pool.CloseAll()
	w.Session.Close()
	metrics.ActiveSessions.Dec()
}
