// Package mutex implements a blocking mutual exclusion lock that owns the
// value it protects.
//
// The lock state and the queue of waiting goroutines are bookkeeping guarded
// by a spin lock that is only ever held for a few memory operations. A
// goroutine that finds the mutex taken links a wait entry at the tail of an
// intrusive wait list, parks, and re-checks the lock each time it resumes.
// Releasing a Guard clears the lock and wakes the goroutine at the head of
// the list, which unlinks itself once it observes the lock free.
//
// Newly arriving goroutines may take the lock ahead of a woken waiter. The
// waiter then parks again and keeps its place at the head of the list, so
// notification order is FIFO but acquisition order is not.
package mutex

import (
	"time"

	"golang.org/x/sys/cpu"

	"github.com/moontrade/parklock/pkg/counter"
	"github.com/moontrade/parklock/pkg/ilist"
	"github.com/moontrade/parklock/pkg/spinlock"
	"github.com/moontrade/parklock/pkg/timex"
)

// Mutex is a mutual exclusion lock around a value of type T. The zero value
// is an unlocked mutex holding the zero T.
//
// A Mutex must not be copied after first use: the wait list sentinel points
// at itself.
type Mutex[T any] struct {
	spin spinlock.SpinLock
	// fields below up to the padding are only touched while spin is held
	locked    bool
	waiters   ilist.Head
	acquired  uint64
	contended uint64
	wakes     uint64

	parks    counter.Counter
	waitTime counter.TimeCounter

	_    cpu.CacheLinePad
	data T
}

// Stats is a snapshot of a Mutex's activity.
type Stats struct {
	// Acquired counts successful Lock and TryLock calls.
	Acquired uint64
	// Contended counts Lock calls that had to queue.
	Contended uint64
	// Wakes counts notifications sent to the head waiter.
	Wakes uint64
	// Parks counts returns from a blocking park, spurious ones included.
	Parks int64
	// Waiting is the number of goroutines currently queued.
	Waiting int
	// Locked reports whether a Guard is outstanding.
	Locked bool
	// WaitTime is the total time spent queued by contended Lock calls.
	WaitTime time.Duration
}

// New returns an unlocked mutex holding val.
func New[T any](val T) *Mutex[T] {
	m := &Mutex[T]{data: val}
	m.waiters.Init()
	return m
}

// Lock acquires exclusive access, blocking while another Guard is
// outstanding. The returned Guard must be released exactly once.
func (m *Mutex[T]) Lock() Guard[T] {
	sg := m.spin.Acquire()
	if !m.locked {
		m.locked = true
		m.acquired++
		sg.Release()
		return Guard[T]{m: m}
	}
	m.lockSlow(sg)
	return Guard[T]{m: m}
}

// lockSlow is entered with the spin lock held and the mutex locked. It
// returns with the mutex locked on behalf of the caller and the spin lock
// released.
func (m *Mutex[T]) lockSlow(sg spinlock.Guard) {
	sw := timex.NewStopWatch()
	if !m.waiters.Initialized() {
		m.waiters.Init()
	}
	m.contended++
	e := newWaitEntry(&m.waiters)
	checkList(&m.waiters)

	// A wake is only a hint; the flag is re-tested under the spin lock
	// after every return from Park.
	for m.locked {
		sg.Release()
		e.parker.Park()
		m.parks.Incr()
		sg = m.spin.Acquire()
	}

	e.unlink()
	checkList(&m.waiters)
	m.locked = true
	m.acquired++
	sg.Release()

	e.recycle()
	m.waitTime.Since(&sw)
}

// TryLock acquires the mutex only if it is free right now. It never queues
// and never blocks beyond the spin lock.
func (m *Mutex[T]) TryLock() (Guard[T], bool) {
	sg := m.spin.Acquire()
	if m.locked {
		sg.Release()
		return Guard[T]{}, false
	}
	m.locked = true
	m.acquired++
	sg.Release()
	return Guard[T]{m: m}, true
}

// With runs fn with exclusive access to the value. The mutex is released
// when fn returns or panics.
func (m *Mutex[T]) With(fn func(*T)) {
	g := m.Lock()
	defer g.Release()
	fn(g.Get())
}

// unlock clears the lock and notifies the head waiter without unlinking
// it.
func (m *Mutex[T]) unlock() {
	sg := m.spin.Acquire()
	m.locked = false
	if head := m.waiters.First(); head != nil {
		entryOf(head).parker.Unpark()
		m.wakes++
	}
	sg.Release()
}

// Waiters returns the number of goroutines queued on m.
func (m *Mutex[T]) Waiters() int {
	sg := m.spin.Acquire()
	n := m.waiters.Len()
	sg.Release()
	return n
}

// Locked reports whether a Guard for m is outstanding.
func (m *Mutex[T]) Locked() bool {
	sg := m.spin.Acquire()
	locked := m.locked
	sg.Release()
	return locked
}

// Stats returns a snapshot of m's counters.
func (m *Mutex[T]) Stats() Stats {
	sg := m.spin.Acquire()
	s := Stats{
		Acquired:  m.acquired,
		Contended: m.contended,
		Wakes:     m.wakes,
		Waiting:   m.waiters.Len(),
		Locked:    m.locked,
	}
	sg.Release()
	s.Parks = m.parks.Load()
	s.WaitTime = m.waitTime.Duration()
	return s
}
