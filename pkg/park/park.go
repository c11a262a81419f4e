// Package park provides per-goroutine block/wake handles.
//
// A Parker holds at most one wake token. Unpark deposits the token, Park
// consumes it, blocking until one is present. Tokens do not accumulate, so
// any number of Unpark calls before a Park release it once. Callers must
// treat every return from Park as possibly spurious and re-check whatever
// condition they were waiting on.
package park

import "sync"

// Parker is the wake handle of one waiting goroutine.
type Parker struct {
	token chan struct{}
}

// New returns a Parker with no pending token.
func New() *Parker {
	return &Parker{token: make(chan struct{}, 1)}
}

// Park blocks until a token is available and consumes it.
func (p *Parker) Park() {
	<-p.token
}

// Unpark makes a token available without blocking.
func (p *Parker) Unpark() {
	select {
	case p.token <- struct{}{}:
	default:
	}
}

// Pending reports whether a token is waiting to be consumed.
func (p *Parker) Pending() bool {
	return len(p.token) > 0
}

// drain discards a leftover token.
func (p *Parker) drain() {
	select {
	case <-p.token:
	default:
	}
}

var pool = sync.Pool{New: func() any { return New() }}

// Get returns a Parker from the shared pool.
func Get() *Parker {
	return pool.Get().(*Parker)
}

// Put returns p to the shared pool. p must not be reachable from any wait
// queue anymore.
func Put(p *Parker) {
	p.drain()
	pool.Put(p)
}
