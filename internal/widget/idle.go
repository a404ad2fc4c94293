package widget

import (
	"sync"
	"time"
)

type IdleState int

const (
	IdleUnarmed IdleState = iota
	IdleArmed
	IdleFired
)

func (s IdleState) String() string {
	switch s {
	case IdleArmed:
		return "armed"
	case IdleFired:
		return "fired"
	default:
		return "unarmed"
	}
}

// IdleWatchdog sends at most one reminder per idle period.
//
// Reset, Stop and State must be called with the owner's lock held. The timer
// callback acquires the same lock before calling shouldFire and onFire, so both
// run with the lock held.
type IdleWatchdog struct {
	timeout    time.Duration
	locker     sync.Locker
	shouldFire func() bool
	onFire     func()

	state      IdleState
	timer      *time.Timer
	generation uint64
}

func NewIdleWatchdog(timeout time.Duration, locker sync.Locker, shouldFire func() bool, onFire func()) *IdleWatchdog {
	return &IdleWatchdog{
		timeout:    timeout,
		locker:     locker,
		shouldFire: shouldFire,
		onFire:     onFire,
	}
}

// Reset replaces any pending deadline with a fresh one
func (w *IdleWatchdog) Reset() {
	w.stopTimer()
	w.generation++
	gen := w.generation
	w.state = IdleArmed
	w.timer = time.AfterFunc(w.timeout, func() { w.expire(gen) })
}

// Stop cancels the pending deadline and disarms the watchdog
func (w *IdleWatchdog) Stop() {
	w.stopTimer()
	w.generation++
	w.state = IdleUnarmed
}

func (w *IdleWatchdog) State() IdleState {
	return w.state
}

func (w *IdleWatchdog) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *IdleWatchdog) expire(gen uint64) {
	w.locker.Lock()
	defer w.locker.Unlock()

	// superseded by a Reset or Stop after this timer was scheduled
	if gen != w.generation || w.state != IdleArmed {
		return
	}
	w.timer = nil

	if !w.shouldFire() {
		return
	}
	w.state = IdleFired
	w.onFire()
}
