package mutex

import (
	"sync"

	"github.com/moontrade/parklock/pkg/ilist"
	"github.com/moontrade/parklock/pkg/park"
)

// waitEntry is the queue position of one goroutine for one contention
// episode. link must stay the first field so ilist.Entry can recover the
// entry from the head of the wait list.
type waitEntry struct {
	link   ilist.Head
	parker *park.Parker
}

var entryPool = sync.Pool{New: func() any { return new(waitEntry) }}

// newWaitEntry links a fresh entry at the tail of list. The caller holds the
// spin lock protecting list.
func newWaitEntry(list *ilist.Head) *waitEntry {
	e := entryPool.Get().(*waitEntry)
	e.parker = park.Get()
	e.link.InsertBefore(list)
	return e
}

// entryOf returns the entry owning a node of the wait list.
func entryOf(h *ilist.Head) *waitEntry {
	return ilist.Entry[waitEntry](h)
}

// unlink takes the entry out of the wait list. The caller holds the spin
// lock. Safe to call more than once.
func (e *waitEntry) unlink() {
	e.link.Unlink()
}

// recycle gives the parker and the entry back to their pools. The entry
// must already be unlinked.
func (e *waitEntry) recycle() {
	if e.link.Linked() {
		panic("mutex: recycle of linked wait entry")
	}
	if p := e.parker; p != nil {
		e.parker = nil
		park.Put(p)
	}
	entryPool.Put(e)
}
