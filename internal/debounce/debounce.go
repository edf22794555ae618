// Package debounce coalesces concurrent same-key calls into a single
// execution shared by every waiter.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Default timing parameters.
const (
	DefaultWindow  = 300 * time.Millisecond
	DefaultMaxWait = 1 * time.Second
)

// Config holds timing parameters for a Debouncer.
type Config struct {
	// Window is the quiet period before a pending key executes. Each
	// new call for the key resets it.
	Window time.Duration

	// MaxWait caps the total delay from the first call: once reached,
	// execution is forced no matter how many calls keep arriving. This
	// is the liveness bound; no caller waits indefinitely.
	MaxWait time.Duration
}

// Debouncer coalesces calls that share a key within the debounce
// window. All callers joining the window receive the same execution's
// result; one upstream fetch fans out to N waiters.
type Debouncer[T any] struct {
	mu      sync.Mutex
	pending map[string]*pendingCall[T]
	window  time.Duration
	maxWait time.Duration
}

type pendingCall[T any] struct {
	timer    *time.Timer
	deadline time.Time
	once     sync.Once
	done     chan struct{}
	result   T
	err      error
}

// New creates a Debouncer with the given configuration.
func New[T any](cfg Config) *Debouncer[T] {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	return &Debouncer[T]{
		pending: make(map[string]*pendingCall[T]),
		window:  cfg.Window,
		maxWait: cfg.MaxWait,
	}
}

// Do schedules fn for key and blocks until the coalesced execution
// completes or ctx is done. The first call for a key starts the window
// and supplies the fn that will run; subsequent calls inside the window
// reset the timer (bounded by MaxWait) and wait for the same result.
//
// A caller whose context expires stops waiting, but the scheduled
// execution still runs for the remaining waiters.
func (d *Debouncer[T]) Do(ctx context.Context, key string, fn func() (T, error)) (T, error) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok {
		p = &pendingCall[T]{
			done:     make(chan struct{}),
			deadline: time.Now().Add(d.maxWait),
		}
		d.pending[key] = p
		p.timer = time.AfterFunc(d.window, func() {
			d.execute(key, p, fn)
		})
	} else {
		// Reset the quiet period, but never beyond the maxWait
		// deadline set by the first call.
		delay := d.window
		if remaining := time.Until(p.deadline); remaining < delay {
			delay = remaining
			if delay < 0 {
				delay = 0
			}
		}
		p.timer.Reset(delay)
	}
	d.mu.Unlock()

	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Pending returns the number of keys currently waiting to execute.
func (d *Debouncer[T]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// execute runs fn exactly once for the call, no matter how many timer
// firings race with resets, and removes the key so later calls start a
// fresh cycle.
func (d *Debouncer[T]) execute(key string, p *pendingCall[T], fn func() (T, error)) {
	p.once.Do(func() {
		d.mu.Lock()
		delete(d.pending, key)
		d.mu.Unlock()

		p.result, p.err = fn()
		close(p.done)
	})
}
