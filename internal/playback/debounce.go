package playback

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one signal on C after the
// wait has passed without a new trigger. A zero wait signals immediately.
type Debouncer struct {
	wait time.Duration
	c    chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiescence window
func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{
		wait: wait,
		c:    make(chan struct{}, 1),
	}
}

// C delivers one value per coalesced burst
func (d *Debouncer) C() <-chan struct{} {
	return d.c
}

// Trigger starts or restarts the quiescence window
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = true

	if d.wait <= 0 {
		d.signalLocked()
		return
	}
	// a callback already waiting on mu belongs to an older generation and
	// must not signal
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Pending reports whether a signal is scheduled or waiting to be read
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending || len(d.c) > 0
}

// Stop cancels any scheduled signal. Triggers after Stop are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	select {
	case <-d.c:
	default:
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || !d.pending || gen != d.gen {
		return
	}
	d.signalLocked()
}

func (d *Debouncer) signalLocked() {
	d.pending = false
	select {
	case d.c <- struct{}{}:
	default:
	}
}
