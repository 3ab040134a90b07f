package queue

import (
	"sync"
	"time"
)

// Timer is the cancellable handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. The default is time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs fn once after the last Arm call has been quiet for delay.
// It owns at most one pending timer.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	after AfterFunc
	fn    func()
	timer Timer
	gen   uint64
}

// NewDebouncer creates a Debouncer. A nil after uses time.AfterFunc.
func NewDebouncer(delay time.Duration, fn func(), after AfterFunc) *Debouncer {
	if after == nil {
		after = realAfterFunc
	}
	return &Debouncer{delay: delay, after: after, fn: fn}
}

// Arm (re)starts the quiet period.
func (d *Debouncer) Arm() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	gen := d.gen
	d.timer = d.after(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending run, if any, and reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := d.timer != nil
	d.stopLocked()
	return pending
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() {
	// Bumping gen makes a timer that already fired but has not taken the
	// lock yet a no-op.
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}
