package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventMessage             EventType = "message"
	EventQuickReplies        EventType = "quick_replies"
	EventQuickRepliesRemoved EventType = "quick_replies_removed"
	EventTyping              EventType = "typing"
	EventShow                EventType = "show"
	EventHide                EventType = "hide"
	EventClear               EventType = "clear"
)

// Event is one rendering instruction for the widget front end
type Event struct {
	Seq          int64               `json:"seq"`
	Type         EventType           `json:"type"`
	Message      *domain.Message     `json:"message,omitempty"`
	Welcome      bool                `json:"welcome,omitempty"`
	QuickReplies []domain.QuickReply `json:"quick_replies,omitempty"`
	Typing       bool                `json:"typing,omitempty"`
	At           time.Time           `json:"at"`
}

// Broadcaster pushes serialized events to connected clients
type Broadcaster interface {
	Broadcast(data []byte)
}

const defaultBacklog = 500

// EventSink records a widget's rendering as an ordered event log and
// broadcasts each event. A clear event truncates the log.
type EventSink struct {
	mu          sync.Mutex
	seq         int64
	events      []Event
	maxBacklog  int
	broadcaster Broadcaster
	now         func() time.Time
}

func NewEventSink(broadcaster Broadcaster) *EventSink {
	return &EventSink{
		maxBacklog:  defaultBacklog,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

func (s *EventSink) RenderMessage(msg domain.Message, isWelcome bool) {
	s.emit(Event{Type: EventMessage, Message: &msg, Welcome: isWelcome})
}

func (s *EventSink) RenderQuickReplies(replies []domain.QuickReply) {
	s.emit(Event{Type: EventQuickReplies, QuickReplies: replies})
}

func (s *EventSink) RemoveQuickReplies() {
	s.emit(Event{Type: EventQuickRepliesRemoved})
}

func (s *EventSink) SetTypingIndicator(visible bool) {
	s.emit(Event{Type: EventTyping, Typing: visible})
}

func (s *EventSink) ShowWidget()    { s.emit(Event{Type: EventShow}) }
func (s *EventSink) HideWidget()    { s.emit(Event{Type: EventHide}) }
func (s *EventSink) ClearMessages() { s.emit(Event{Type: EventClear}) }

// Since returns the retained events with a sequence number greater than seq
func (s *EventSink) Since(seq int64) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Event{}
	for _, e := range s.events {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// LastSeq returns the sequence number of the newest event
func (s *EventSink) LastSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func (s *EventSink) emit(e Event) {
	s.mu.Lock()
	s.seq++
	e.Seq = s.seq
	e.At = s.now()

	if e.Type == EventClear {
		s.events = s.events[:0]
	}
	s.events = append(s.events, e)
	if len(s.events) > s.maxBacklog {
		s.events = append([]Event(nil), s.events[len(s.events)-s.maxBacklog:]...)
	}
	s.mu.Unlock()

	if s.broadcaster == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("type", string(e.Type)).Msg("Failed to marshal widget event")
		return
	}
	s.broadcaster.Broadcast(data)
}
