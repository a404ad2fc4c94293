package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Rrens/chatwidget/internal/api/response"
	"github.com/Rrens/chatwidget/internal/service"
	"github.com/Rrens/chatwidget/internal/widget"
	"github.com/go-chi/chi/v5"
)

type CreateWidgetRequest struct {
	// SessionID resumes a previous session and replays its history
	SessionID string `json:"session_id" validate:"omitempty,uuid4"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type QuickReplyRequest struct {
	Label string `json:"label" validate:"required,max=200"`
}

type EndChatRequest struct {
	Confirmed bool `json:"confirmed"`
}

// WidgetHandler exposes widget sessions over HTTP
type WidgetHandler struct {
	widgets *service.WidgetService
}

// NewWidgetHandler creates a new widget handler
func NewWidgetHandler(widgets *service.WidgetService) *WidgetHandler {
	return &WidgetHandler{widgets: widgets}
}

// Create starts a new widget, optionally resuming a session
func (h *WidgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateWidgetRequest
	if !decode(w, r, &input, true) {
		return
	}

	wg, err := h.widgets.Create(r.Context(), input.SessionID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, wg.State())
}

// Get returns the widget state
func (h *WidgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	wg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.OK(w, wg.State())
}

// Delete closes the widget on page unload, keeping its history
func (h *WidgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.widgets.Remove(chi.URLParam(r, "widgetID")); err != nil {
		response.FromError(w, err)
		return
	}
	response.NoContent(w)
}

// Open shows the widget; the first call renders the welcome and replays history
func (h *WidgetHandler) Open(w http.ResponseWriter, r *http.Request) {
	wg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := wg.Session.Open(r.Context()); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, wg.State())
}

// SendMessage submits user text. The reply is delivered as events.
func (h *WidgetHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	wg, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var input SendMessageRequest
	if !decode(w, r, &input, false) {
		return
	}

	if err := wg.Session.Send(r.Context(), input.Text); err != nil {
		response.FromError(w, err)
		return
	}
	response.Accepted(w, map[string]any{"last_seq": wg.Events.LastSeq()})
}

// SelectQuickReply submits an offered quick reply by label
func (h *WidgetHandler) SelectQuickReply(w http.ResponseWriter, r *http.Request) {
	wg, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var input QuickReplyRequest
	if !decode(w, r, &input, false) {
		return
	}

	if err := wg.Session.SelectQuickReply(r.Context(), input.Label); err != nil {
		response.FromError(w, err)
		return
	}
	response.Accepted(w, map[string]any{"last_seq": wg.Events.LastSeq()})
}

// Clear wipes the conversation and starts over
func (h *WidgetHandler) Clear(w http.ResponseWriter, r *http.Request) {
	wg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := wg.Session.Clear(r.Context()); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, wg.State())
}

// End ends the chat. The browser asks the confirmation question and sends the answer.
func (h *WidgetHandler) End(w http.ResponseWriter, r *http.Request) {
	wg, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var input EndChatRequest
	if !decode(w, r, &input, true) {
		return
	}

	confirm := widget.ConfirmFunc(func(context.Context, string) bool { return input.Confirmed })
	ended, err := wg.Session.End(r.Context(), confirm)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"ended":      ended,
		"session_id": wg.Session.ID(),
	})
}

// Events returns retained events newer than the since query parameter
func (h *WidgetHandler) Events(w http.ResponseWriter, r *http.Request) {
	wg, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var since int64
	if s := r.URL.Query().Get("since"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			response.BadRequest(w, "since must be a non-negative integer")
			return
		}
		since = v
	}

	response.OK(w, map[string]any{
		"events":   wg.Events.Since(since),
		"last_seq": wg.Events.LastSeq(),
	})
}

func (h *WidgetHandler) lookup(w http.ResponseWriter, r *http.Request) (*service.Widget, bool) {
	return lookupWidget(w, r, h.widgets)
}

func lookupWidget(w http.ResponseWriter, r *http.Request, widgets *service.WidgetService) (*service.Widget, bool) {
	wg, err := widgets.Get(chi.URLParam(r, "widgetID"))
	if err != nil {
		response.FromError(w, err)
		return nil, false
	}
	return wg, true
}
