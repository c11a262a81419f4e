// Copyright 2019 Andy Pan & Dietoad. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package spinlock provides a busy-wait lock for critical sections that are
// only a handful of memory operations long. It must never be held across
// anything that may block.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

const (
	// tight CAS retries before the first yield.
	activeSpin = 32
	maxBackoff = 16
)

// SpinLock is a single-flag exclusion lock. The zero value is unlocked.
type SpinLock struct {
	locked atomic.Bool
}

// Guard is returned by Acquire and releases the lock it was issued for.
type Guard struct {
	l *SpinLock
}

// Acquire spins until the flag moves from false to true.
func (sl *SpinLock) Acquire() Guard {
	if !sl.locked.CompareAndSwap(false, true) {
		sl.acquireSlow()
	}
	return Guard{l: sl}
}

func (sl *SpinLock) acquireSlow() {
	for i := 0; i < activeSpin; i++ {
		if !sl.locked.Load() && sl.locked.CompareAndSwap(false, true) {
			return
		}
	}
	// Leverage the exponential backoff algorithm, see https://en.wikipedia.org/wiki/Exponential_backoff.
	backoff := 1
	for !sl.locked.CompareAndSwap(false, true) {
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackoff {
			backoff <<= 1
		}
	}
}

// TryAcquire makes a single attempt at the flag.
func (sl *SpinLock) TryAcquire() (Guard, bool) {
	if sl.locked.CompareAndSwap(false, true) {
		return Guard{l: sl}, true
	}
	return Guard{}, false
}

// Locked reports the current state of the flag. Diagnostics only.
func (sl *SpinLock) Locked() bool {
	return sl.locked.Load()
}

// Lock locks the SpinLock.
func (sl *SpinLock) Lock() {
	sl.Acquire()
}

// TryLock tries to lock the SpinLock.
func (sl *SpinLock) TryLock() bool {
	return sl.locked.CompareAndSwap(false, true)
}

// Unlock unlocks the SpinLock.
func (sl *SpinLock) Unlock() {
	sl.locked.Store(false)
}

// Release clears the flag, publishing every write made while it was held.
// Only the first Release of a guard has an effect.
func (g *Guard) Release() {
	if l := g.l; l != nil {
		g.l = nil
		l.locked.Store(false)
	}
}

// Held reports whether the guard still owns its lock.
func (g *Guard) Held() bool {
	return g.l != nil
}
