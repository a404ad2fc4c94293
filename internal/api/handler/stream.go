package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Rrens/chatwidget/internal/service"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// StreamHandler pushes widget events over websockets
type StreamHandler struct {
	widgets  *service.WidgetService
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a stream handler. checkOrigin nil accepts any origin.
func NewStreamHandler(widgets *service.WidgetService, checkOrigin func(r *http.Request) bool) *StreamHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &StreamHandler{
		widgets:  widgets,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// Connect upgrades to a websocket, replays events after ?since= and then streams
// new ones. An event emitted while the client attaches may arrive twice; clients
// drop seq numbers they already have.
func (h *StreamHandler) Connect(w http.ResponseWriter, r *http.Request) {
	wg, ok := lookupWidget(w, r, h.widgets)
	if !ok {
		return
	}

	var since int64
	if s := r.URL.Query().Get("since"); s != "" {
		since, _ = strconv.ParseInt(s, 10, 64)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("widget_id", wg.ID).Msg("Websocket upgrade failed")
		return
	}
	replay := func() [][]byte {
		var frames [][]byte
		for _, e := range wg.Events.Since(since) {
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			frames = append(frames, data)
		}
		return frames
	}
	if !wg.Pool.Attach(conn, replay) {
		return
	}
	defer wg.Pool.Detach(conn)

	log.Debug().Str("widget_id", wg.ID).Int("clients", wg.Pool.Count()).Msg("Websocket client connected")

	// commands go through the HTTP routes; reads only detect disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Debug().Err(err).Str("widget_id", wg.ID).Msg("Websocket client disconnected")
			return
		}
	}
}
