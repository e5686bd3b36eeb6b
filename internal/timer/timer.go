// Package timer implements the Thread Timer component (C4): a
// cooperative periodic runner with a handler, cancellation, and
// exception capture, translated from the original's bound-handler
// thread into a goroutine driven by a ticker and a stop channel.
package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/readium/lcp-crypto-core/internal/domain"
)

type state int32

const (
	stateIdle state = iota
	stateRunning
	stateCancelled
)

// Timer is a periodic task runner. It moves through the state machine
// Idle → Running → Cancelled; Cancelled is terminal.
type Timer struct {
	mu        sync.Mutex
	state     state
	handler   func() error
	autoReset bool
	interval  time.Duration

	stopCh   chan struct{}
	doneCh   chan struct{}
	lastErr  atomic.Pointer[error]
}

// New returns an Idle timer. The initial interval is used until a
// handler run changes it via SetInterval (the CRL updater adjusts this
// to the CRL's own nextUpdate cadence).
func New(interval time.Duration) *Timer {
	return &Timer{interval: interval}
}

// SetHandler installs the function the timer invokes on each tick.
// Must be called before Start.
func (t *Timer) SetHandler(handler func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// SetAutoReset controls whether the timer re-arms itself after each
// handler run (true) or fires once (false).
func (t *Timer) SetAutoReset(autoReset bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoReset = autoReset
}

// SetInterval updates the period used for subsequent ticks.
func (t *Timer) SetInterval(interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = interval
}

// Start transitions Idle → Running and spawns the background worker.
// Starting an already-running or cancelled timer is an error.
func (t *Timer) Start() error {
	t.mu.Lock()
	if t.state == stateCancelled {
		t.mu.Unlock()
		return domain.ErrTimerCancelled
	}
	if t.state == stateRunning {
		t.mu.Unlock()
		return domain.ErrTimerAlreadyRunning
	}
	t.state = stateRunning
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	handler := t.handler
	autoReset := t.autoReset
	t.mu.Unlock()

	go t.run(handler, autoReset)
	return nil
}

func (t *Timer) run(handler func() error, autoReset bool) {
	defer close(t.doneCh)
	if handler == nil {
		return
	}
	for {
		t.mu.Lock()
		interval := t.interval
		t.mu.Unlock()

		select {
		case <-t.stopCh:
			return
		case <-time.After(interval):
		}

		if err := handler(); err != nil {
			e := err
			t.lastErr.Store(&e)
		}

		if !autoReset {
			return
		}
	}
}

// Stop cancels the timer, waiting for an in-flight handler run to
// finish before returning. Idempotent.
func (t *Timer) Stop() {
	t.mu.Lock()
	if t.state != stateRunning {
		t.state = stateCancelled
		t.mu.Unlock()
		return
	}
	t.state = stateCancelled
	stopCh := t.stopCh
	doneCh := t.doneCh
	t.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// RethrowExceptionIfAny surfaces the most recently captured handler
// error to the calling thread, then clears it.
func (t *Timer) RethrowExceptionIfAny() error {
	p := t.lastErr.Swap(nil)
	if p == nil {
		return nil
	}
	return *p
}
