package mutex

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/moontrade/parklock/pkg/ilist"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// headEntry returns the entry at the front of the wait list.
func headEntry[T any](m *Mutex[T]) *waitEntry {
	sg := m.spin.Acquire()
	defer sg.Release()
	return entryOf(m.waiters.First())
}

// wakeHead unparks the head waiter without releasing the mutex.
func wakeHead[T any](m *Mutex[T]) {
	sg := m.spin.Acquire()
	defer sg.Release()
	if head := m.waiters.First(); head != nil {
		entryOf(head).parker.Unpark()
	}
}

func TestFastPathNeverQueues(t *testing.T) {
	c := qt.New(t)
	m := New(41)

	g := m.Lock()
	c.Assert(g.Held(), qt.IsTrue)
	c.Assert(m.Locked(), qt.IsTrue)
	*g.Get()++
	g.Release()
	c.Assert(g.Held(), qt.IsFalse)
	c.Assert(m.Locked(), qt.IsFalse)

	g, ok := m.TryLock()
	c.Assert(ok, qt.IsTrue)
	c.Assert(g.Load(), qt.Equals, 42)

	_, ok = m.TryLock()
	c.Assert(ok, qt.IsFalse)
	g.Release()

	s := m.Stats()
	c.Assert(s.Acquired, qt.Equals, uint64(2))
	c.Assert(s.Contended, qt.Equals, uint64(0))
	c.Assert(s.Parks, qt.Equals, int64(0))
	c.Assert(s.Wakes, qt.Equals, uint64(0))
	c.Assert(s.Waiting, qt.Equals, 0)
	c.Assert(s.Locked, qt.IsFalse)
}

func TestGuardStoreLoad(t *testing.T) {
	c := qt.New(t)
	m := New("a")
	g := m.Lock()
	g.Store("b")
	c.Assert(g.Load(), qt.Equals, "b")
	g.Release()

	g = m.Lock()
	c.Assert(*g.Get(), qt.Equals, "b")
	g.Release()
}

func TestReleaseTwicePanics(t *testing.T) {
	c := qt.New(t)
	m := New(0)
	g := m.Lock()
	g.Release()
	c.Assert(func() { g.Release() }, qt.PanicMatches, "mutex: release of released Guard")
	c.Assert(func() { g.Get() }, qt.PanicMatches, "mutex: access through released Guard")
	c.Assert(m.Locked(), qt.IsFalse)
}

func TestWithReleasesOnPanic(t *testing.T) {
	c := qt.New(t)
	m := New(0)
	c.Assert(func() {
		m.With(func(v *int) {
			*v = 5
			panic("inside critical section")
		})
	}, qt.PanicMatches, "inside critical section")
	c.Assert(m.Locked(), qt.IsFalse)

	m.With(func(v *int) {
		c.Check(*v, qt.Equals, 5)
		*v++
	})
	g := m.Lock()
	c.Assert(g.Load(), qt.Equals, 6)
	g.Release()
}

func TestZeroValueMutex(t *testing.T) {
	var (
		m  Mutex[int]
		wg sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 2000; j++ {
				g := m.Lock()
				*g.Get()++
				g.Release()
			}
		}()
	}
	wg.Wait()
	g := m.Lock()
	defer g.Release()
	if got := g.Load(); got != 8*2000 {
		t.Fatalf("expected %d, got %d", 8*2000, got)
	}
}

func TestMutualExclusion(t *testing.T) {
	var (
		m       = New(struct{}{})
		wg      sync.WaitGroup
		inside  int32
		overlap int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5000; j++ {
				g := m.Lock()
				if atomic.AddInt32(&inside, 1) != 1 {
					atomic.AddInt32(&overlap, 1)
				}
				if j%64 == 0 {
					time.Sleep(time.Microsecond)
				}
				atomic.AddInt32(&inside, -1)
				g.Release()
			}
		}()
	}
	wg.Wait()
	if overlap != 0 {
		t.Fatalf("%d overlapping critical sections", overlap)
	}
	if w := m.Waiters(); w != 0 {
		t.Fatalf("%d waiters left queued", w)
	}
}

func TestValueIntegrity(t *testing.T) {
	const (
		workers  = 20
		workload = 50000
	)
	var (
		m  = New(0)
		wg sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < workload; j++ {
				g := m.Lock()
				*g.Get()++
				g.Release()
			}
			time.Sleep(time.Duration(i) * time.Millisecond)
			for j := 0; j < workload; j++ {
				g := m.Lock()
				*g.Get()++
				g.Release()
			}
		}(i)
	}
	wg.Wait()

	c := qt.New(t)
	g := m.Lock()
	c.Assert(g.Load(), qt.Equals, workers*workload*2)
	g.Release()

	s := m.Stats()
	c.Assert(s.Acquired, qt.Equals, uint64(workers*workload*2+1))
	c.Assert(s.Waiting, qt.Equals, 0)
	c.Assert(s.Locked, qt.IsFalse)
	t.Log("contended", s.Contended, "parks", s.Parks, "wakes", s.Wakes, "wait", s.WaitTime)
}

func TestProgress(t *testing.T) {
	const n = 64
	var (
		m    = New(0)
		wg   sync.WaitGroup
		done = make(chan struct{})
	)
	g := m.Lock()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := m.Lock()
			*g.Get()++
			g.Release()
		}()
	}
	waitFor(t, "all goroutines to queue", func() bool { return m.Waiters() == n })
	g.Release()

	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("lock calls did not complete, %d still waiting", m.Waiters())
	}

	c := qt.New(t)
	s := m.Stats()
	c.Assert(s.Contended, qt.Equals, uint64(n))
	c.Assert(s.Waiting, qt.Equals, 0)
	c.Assert(s.Wakes >= uint64(n), qt.IsTrue)
}

func TestWaitersNotifiedInFIFOOrder(t *testing.T) {
	c := qt.New(t)
	var (
		m     = New([]int(nil))
		wg    sync.WaitGroup
		owner = m.Lock()
	)
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			g := m.Lock()
			*g.Get() = append(*g.Get(), id)
			g.Release()
		}(i)
		waitFor(t, "waiter "+strconv.Itoa(i)+" to queue", func() bool { return m.Waiters() == i })
	}
	owner.Release()
	wg.Wait()

	g := m.Lock()
	c.Assert(g.Load(), qt.DeepEquals, []int{1, 2, 3, 4, 5})
	g.Release()
}

func TestSpuriousWakeReparks(t *testing.T) {
	c := qt.New(t)
	var (
		m        = New(0)
		acquired atomic.Bool
		done     = make(chan struct{})
		owner    = m.Lock()
	)
	go func() {
		defer close(done)
		g := m.Lock()
		acquired.Store(true)
		g.Release()
	}()
	waitFor(t, "waiter to queue", func() bool { return m.Waiters() == 1 })

	wakeHead(m)
	waitFor(t, "spurious wake", func() bool { return m.Stats().Parks >= 1 })
	// the waiter must go back to sleep, still queued, without the lock
	time.Sleep(10 * time.Millisecond)
	c.Assert(acquired.Load(), qt.IsFalse)
	c.Assert(m.Waiters(), qt.Equals, 1)
	c.Assert(m.Locked(), qt.IsTrue)

	owner.Release()
	<-done
	c.Assert(acquired.Load(), qt.IsTrue)
	c.Assert(m.Stats().Parks >= 2, qt.IsTrue)
	c.Assert(m.Waiters(), qt.Equals, 0)
}

func TestLockStealingKeepsWaiterAtHead(t *testing.T) {
	c := qt.New(t)
	for attempt := 0; attempt < 50; attempt++ {
		var (
			m        = New(0)
			acquired atomic.Bool
			done     = make(chan struct{})
			owner    = m.Lock()
		)
		go func() {
			defer close(done)
			g := m.Lock()
			acquired.Store(true)
			g.Release()
		}()
		waitFor(t, "waiter to queue", func() bool { return m.Waiters() == 1 })
		head := headEntry(m)

		owner.Release()
		thief, ok := m.TryLock()
		if !ok {
			// the woken waiter won the race this time
			<-done
			continue
		}

		waitFor(t, "woken waiter to re-check", func() bool { return m.Stats().Parks >= 1 })
		time.Sleep(5 * time.Millisecond)
		c.Assert(acquired.Load(), qt.IsFalse)
		c.Assert(m.Waiters(), qt.Equals, 1)
		c.Assert(headEntry(m), qt.Equals, head)

		thief.Release()
		<-done
		c.Assert(acquired.Load(), qt.IsTrue)
		c.Assert(m.Stats().Contended, qt.Equals, uint64(1))
		return
	}
	t.Skip("could not provoke a lock steal")
}

func TestWaitEntryUnlinkTwice(t *testing.T) {
	c := qt.New(t)
	var list ilist.Head
	list.Init()
	a := newWaitEntry(&list)
	b := newWaitEntry(&list)
	c.Assert(entryOf(list.First()), qt.Equals, a)
	c.Assert(list.Len(), qt.Equals, 2)

	a.unlink()
	a.unlink()
	c.Assert(entryOf(list.First()), qt.Equals, b)
	c.Assert(list.Len(), qt.Equals, 1)
	c.Assert(list.Validate(0), qt.IsNil)

	b.unlink()
	c.Assert(list.Empty(), qt.IsTrue)
	a.recycle()
	b.recycle()
}

func TestRecycleLinkedEntryPanics(t *testing.T) {
	c := qt.New(t)
	var list ilist.Head
	list.Init()
	e := newWaitEntry(&list)
	c.Assert(func() { e.recycle() }, qt.PanicMatches, "mutex: recycle of linked wait entry")
	e.unlink()
	e.recycle()
}

func BenchmarkMutex_Lock(b *testing.B) {
	b.Run("Mutex 1 thread", func(b *testing.B) {
		m := New(0)
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			g := m.Lock()
			*g.Get()++
			g.Release()
		}
	})
	for _, threads := range []int{2, 4, 8, 16} {
		threads := threads
		b.Run("Mutex "+strconv.Itoa(threads)+" threads", func(b *testing.B) {
			var (
				m  = New(0)
				wg = new(sync.WaitGroup)
			)
			for i := 0; i < threads; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < b.N; i++ {
						g := m.Lock()
						*g.Get()++
						g.Release()
					}
				}()
			}
			wg.Wait()
		})
		b.Run("sync.Mutex "+strconv.Itoa(threads)+" threads", func(b *testing.B) {
			var (
				l  = new(sync.Mutex)
				n  int
				wg = new(sync.WaitGroup)
			)
			for i := 0; i < threads; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < b.N; i++ {
						l.Lock()
						n++
						l.Unlock()
					}
				}()
			}
			wg.Wait()
		})
	}
}
