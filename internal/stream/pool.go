// Package stream fans widget events out to websocket clients.
package stream

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// ConnectionPool holds the websocket clients of one widget. Once the widget has
// no clients and no activity for idleAfter, onIdle runs exactly once.
type ConnectionPool struct {
	idleAfter time.Duration
	onIdle    func()
	log       zerolog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	idle    *time.Timer
	closed  bool
}

func NewConnectionPool(widgetID string, idleAfter time.Duration, onIdle func()) *ConnectionPool {
	return &ConnectionPool{
		idleAfter: idleAfter,
		onIdle:    onIdle,
		log:       log.With().Str("component", "stream").Str("widget_id", widgetID).Logger(),
		clients:   make(map[*websocket.Conn]struct{}),
	}
}

// Attach registers a client and writes the replay frames to it before any
// broadcast can reach it. It returns false, closing conn, once the pool is closed.
func (p *ConnectionPool) Attach(conn *websocket.Conn, replay func() [][]byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = conn.Close()
		return false
	}
	p.clients[conn] = struct{}{}
	p.rearmLocked()

	if replay == nil {
		return true
	}
	for _, frame := range replay() {
		if !p.writeLocked(conn, frame) {
			return false
		}
	}
	return true
}

// Detach drops a client and closes its connection
func (p *ConnectionPool) Detach(conn *websocket.Conn) {
	p.mu.Lock()
	delete(p.clients, conn)
	p.rearmLocked()
	p.mu.Unlock()

	_ = conn.Close()
}

// Broadcast writes one frame to every client. Broadcasting counts as activity.
func (p *ConnectionPool) Broadcast(frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for conn := range p.clients {
		p.writeLocked(conn, frame)
	}
	p.rearmLocked()
}

// Touch records activity that did not produce a frame
func (p *ConnectionPool) Touch() {
	p.mu.Lock()
	p.rearmLocked()
	p.mu.Unlock()
}

func (p *ConnectionPool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// CloseAll disconnects every client. The idle callback never runs afterwards.
func (p *ConnectionPool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.rearmLocked()
	for conn := range p.clients {
		_ = conn.Close()
	}
	clear(p.clients)
}

// writeLocked reports whether the frame went out; a failing client is dropped
func (p *ConnectionPool) writeLocked(conn *websocket.Conn, frame []byte) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		p.log.Warn().Err(err).Msg("Websocket write failed, dropping client")
		delete(p.clients, conn)
		_ = conn.Close()
		return false
	}
	return true
}

// rearmLocked restarts the idle countdown, or cancels it while clients are attached
func (p *ConnectionPool) rearmLocked() {
	if p.idle != nil {
		p.idle.Stop()
		p.idle = nil
	}
	if p.closed || len(p.clients) > 0 || p.idleAfter <= 0 || p.onIdle == nil {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(p.idleAfter, func() {
		p.mu.Lock()
		fire := p.idle == t && !p.closed && len(p.clients) == 0
		if fire {
			p.idle = nil
		}
		p.mu.Unlock()

		if fire {
			p.onIdle()
		}
	})
	p.idle = t
}
