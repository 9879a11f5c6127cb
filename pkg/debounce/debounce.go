// Package debounce coalesces bursts of updates into one call carrying the
// latest value.
package debounce

import (
	"errors"
	"sync"
	"time"
)

// DefaultDelay is the pause after the last keystroke before a field is
// normalized.
const DefaultDelay = 300 * time.Millisecond

// Debouncer calls fn with the most recent value once no new value has been
// triggered for the delay. Values triggered in between replace each other.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	timer   *time.Timer
	pending T
	has     bool
	seq     uint64
	stopped bool
}

// New returns a Debouncer calling fn after delay. A non-positive delay uses
// DefaultDelay.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger records v as the latest value and restarts the delay.
func (d *Debouncer[T]) Trigger(v T) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	d.pending, d.has = v, true
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
	return nil
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	// a later Trigger or Flush superseded this timer
	if seq != d.seq || !d.has || d.stopped {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()
	d.fn(v)
}

// take assumes d.mu is held.
func (d *Debouncer[T]) take() T {
	v := d.pending
	var zero T
	d.pending, d.has = zero, false
	return v
}

// Flush calls fn immediately with the pending value, if any, and reports
// whether it did.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.has || d.stopped {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	v := d.take()
	d.mu.Unlock()
	d.fn(v)
	return true
}

// Stop drops any pending value. Later triggers return ErrStopped.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.take()
}

// ErrStopped is returned by Trigger after Stop.
var ErrStopped = errors.New("debouncer stopped")
