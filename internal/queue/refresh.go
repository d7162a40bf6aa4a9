package queue

import (
	"sync"
	"time"
)

// refresher coalesces panel refresh requests. A request inside the
// cool-down window is deferred until the window ends, and any newer
// request replaces the pending one so at most a single deferred
// refresh is scheduled at a time.
type refresher struct {
	mx       sync.Mutex
	cooldown time.Duration
	last     time.Time
	pending  *time.Timer
	fn       func()
}

func newRefresher(cooldown time.Duration, fn func()) *refresher {
	return &refresher{cooldown: cooldown, fn: fn}
}

func (r *refresher) Request() {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}

	now := time.Now()

	since := now.Sub(r.last)

	if since >= r.cooldown {
		r.last = now
		go r.fn()
		return
	}

	r.pending = time.AfterFunc(r.cooldown-since, r.fire)
}

func (r *refresher) fire() {
	r.mx.Lock()
	r.last = time.Now()
	r.pending = nil
	r.mx.Unlock()

	r.fn()
}

func (r *refresher) Stop() {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}
