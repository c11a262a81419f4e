// Package ilist is a circular doubly linked list whose links are embedded in
// the records being linked.
//
// A list is identified by a sentinel Head. An empty list is a sentinel that
// points at itself. A Head must stay at the same address for as long as it
// is linked; heap allocated owners satisfy this since the Go heap does not
// move objects. The list has no synchronisation of its own.
package ilist

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Head is a link record. Embed it as the first field of the owner when the
// owner needs to be recovered with Entry.
type Head struct {
	prev *Head
	next *Head
}

// Init self-links h, making it an empty sentinel or an unlinked node.
func (h *Head) Init() {
	h.prev = h
	h.next = h
}

// Initialized reports whether h has been self-linked or linked at least once.
func (h *Head) Initialized() bool {
	return h.next != nil
}

// InsertBefore links h immediately before sentinel, which appends it at the
// tail of the list.
func (h *Head) InsertBefore(sentinel *Head) {
	prev := sentinel.prev
	h.prev = prev
	h.next = sentinel
	prev.next = h
	sentinel.prev = h
}

// Unlink removes h from whatever list holds it and self-links it. Calling it
// on a node that is not linked does nothing.
func (h *Head) Unlink() {
	if h.next == nil || h.next == h {
		h.Init()
		return
	}
	h.prev.next = h.next
	h.next.prev = h.prev
	h.Init()
}

// First returns the node after the sentinel, or nil if the list is empty.
func (h *Head) First() *Head {
	if h.next == h || h.next == nil {
		return nil
	}
	return h.next
}

// Last returns the node before the sentinel, or nil if the list is empty.
func (h *Head) Last() *Head {
	if h.prev == h || h.prev == nil {
		return nil
	}
	return h.prev
}

// Next returns the node following h in traversal order.
func (h *Head) Next() *Head {
	return h.next
}

// Prev returns the node preceding h in traversal order.
func (h *Head) Prev() *Head {
	return h.prev
}

// Empty reports whether the sentinel h has no nodes.
func (h *Head) Empty() bool {
	return h.First() == nil
}

// Linked reports whether the node h currently sits in a list.
func (h *Head) Linked() bool {
	return h.next != nil && h.next != h
}

// Len walks the list and counts its nodes.
func (h *Head) Len() int {
	n := 0
	for p := h.First(); p != nil && p != h; p = p.next {
		n++
	}
	return n
}

// Each visits nodes front to back until fn returns false.
func (h *Head) Each(fn func(*Head) bool) {
	if h.next == nil {
		return
	}
	for p := h.next; p != h; {
		next := p.next
		if !fn(p) {
			return
		}
		p = next
	}
}

// Validate walks the ring from the sentinel and checks that every node's
// neighbours agree with it and that traversal comes back to the sentinel.
// limit bounds the walk so a corrupt ring cannot loop forever; zero means
// no bound.
func (h *Head) Validate(limit int) error {
	if h.next == nil || h.prev == nil {
		return errors.New("ilist: sentinel not initialized")
	}
	p := h
	for i := 0; ; i++ {
		if p.next == nil || p.prev == nil {
			return errors.Errorf("ilist: nil link at position %d", i)
		}
		if p.next.prev != p {
			return errors.Errorf("ilist: next.prev mismatch at position %d", i)
		}
		if p.prev.next != p {
			return errors.Errorf("ilist: prev.next mismatch at position %d", i)
		}
		p = p.next
		if p == h {
			return nil
		}
		if limit > 0 && i >= limit {
			return errors.Errorf("ilist: no return to sentinel after %d nodes", limit)
		}
	}
}

// Entry converts h back into its owner. h must be the first field of T and
// must actually be embedded in a T.
func Entry[T any](h *Head) *T {
	if h == nil {
		return nil
	}
	return (*T)(unsafe.Pointer(h))
}
