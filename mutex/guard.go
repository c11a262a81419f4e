package mutex

// Guard is exclusive access to the value of a locked Mutex. It is obtained
// from Lock or TryLock and gives up access when released. A Guard must not
// be copied; pass a *Guard instead.
type Guard[T any] struct {
	_ noCopy
	m *Mutex[T]
}

// Get returns a pointer to the protected value. The pointer must not be
// used after the guard is released.
func (g *Guard[T]) Get() *T {
	return &g.mustHold().data
}

// Load returns a copy of the protected value.
func (g *Guard[T]) Load() T {
	return g.mustHold().data
}

// Store replaces the protected value.
func (g *Guard[T]) Store(v T) {
	g.mustHold().data = v
}

// Held reports whether g still owns its mutex.
func (g *Guard[T]) Held() bool {
	return g.m != nil
}

// Release gives up exclusive access and wakes the longest queued waiter,
// if any. Releasing a guard twice panics.
func (g *Guard[T]) Release() {
	m := g.m
	if m == nil {
		panic("mutex: release of released Guard")
	}
	g.m = nil
	m.unlock()
}

func (g *Guard[T]) mustHold() *Mutex[T] {
	if g.m == nil {
		panic("mutex: access through released Guard")
	}
	return g.m
}

// noCopy may be embedded into structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
