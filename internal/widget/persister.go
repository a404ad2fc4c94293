package widget

import (
	"context"
	"sync"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/Rrens/chatwidget/internal/metrics"
	"github.com/rs/zerolog"
)

type persistKind int

const (
	persistAppend persistKind = iota
	persistDelete
	persistBarrier
)

func (k persistKind) String() string {
	switch k {
	case persistAppend:
		return "append"
	case persistDelete:
		return "delete"
	default:
		return "barrier"
	}
}

type persistOp struct {
	kind      persistKind
	sessionID domain.SessionID
	msg       domain.Message
	done      chan struct{}
}

// persister applies history writes in issue order on a single worker goroutine.
// Failures are logged and counted, never returned to the caller.
type persister struct {
	store   domain.HistoryStore
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	queue  []persistOp
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newPersister(store domain.HistoryStore, timeout time.Duration, logger zerolog.Logger) *persister {
	p := &persister{
		store:   store,
		timeout: timeout,
		log:     logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) append(id domain.SessionID, msg domain.Message) {
	p.enqueue(persistOp{kind: persistAppend, sessionID: id, msg: msg})
}

func (p *persister) delete(id domain.SessionID) {
	p.enqueue(persistOp{kind: persistDelete, sessionID: id})
}

// list reads history synchronously after draining queued writes
func (p *persister) list(ctx context.Context, id domain.SessionID) []domain.Message {
	if p.store == nil {
		return nil
	}
	if err := p.flush(ctx); err != nil {
		p.log.Warn().Err(err).Msg("History flush interrupted before list")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msgs, err := p.store.List(ctx, id)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("list").Inc()
		p.log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to load chat history")
		return nil
	}
	return msgs
}

// flush blocks until every operation queued before the call has run
func (p *persister) flush(ctx context.Context) error {
	done := make(chan struct{})
	if !p.enqueue(persistOp{kind: persistBarrier, done: done}) {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting operations and waits for the queue to drain
func (p *persister) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.signal()
	<-p.done
}

func (p *persister) enqueue(op persistOp) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if op.kind != persistBarrier {
			p.log.Warn().Str("op", op.kind.String()).Msg("History persister closed, dropping operation")
		}
		return false
	}
	p.queue = append(p.queue, op)
	p.mu.Unlock()
	p.signal()
	return true
}

func (p *persister) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)

	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return
			}
			<-p.wake
			continue
		}
		op := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.exec(op)
	}
}

func (p *persister) exec(op persistOp) {
	if op.kind == persistBarrier {
		close(op.done)
		return
	}
	if p.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var err error
	switch op.kind {
	case persistAppend:
		err = p.store.Append(ctx, op.sessionID, op.msg)
	case persistDelete:
		err = p.store.Delete(ctx, op.sessionID)
	}

	if err != nil {
		metrics.PersistenceFailures.WithLabelValues(op.kind.String()).Inc()
		p.log.Error().
			Err(err).
			Str("op", op.kind.String()).
			Str("session_id", op.sessionID.String()).
			Msg("Failed to persist chat history")
	}
}
