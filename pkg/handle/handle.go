// Package handle implements a small table of opaque handles. The engine owns
// a plugin's context between initialization and shutdown; what crosses the
// callback boundary is not the context value itself but a Handle referring to
// it. The plugin side resolves the handle on every callback and never retains
// an alias.
//
// The zero Handle is never valid, so it can double as an "absent" sentinel.
// The table has a fixed capacity: an instance holds at most one context, so
// the cap is generous.
package handle

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Handle is an opaque reference to a value stored in the table.
type Handle uintptr

const (
	// MaxHandle is the largest value a Handle can hold.
	MaxHandle = 256 - 1

	// rounds of compare-and-swap over the slot vector before giving up
	maxNewHandleRounds = 20
)

var (
	slots  [MaxHandle + 1]unsafe.Pointer // [int]*any
	noSlot unsafe.Pointer
)

// New stores a value and returns a handle for it. The handle stays valid
// until Delete is called on it; the caller must not retain deleted handles.
// Panics when every slot is taken.
func New(v any) Handle {
	rounds := 0
	for h := uintptr(1); ; h++ {
		// slots 1..MaxHandle are eligible, 0 stays the invalid sentinel
		if atomic.CompareAndSwapPointer(&slots[h], noSlot, (unsafe.Pointer)(&v)) {
			return Handle(h)
		}
		if h < MaxHandle {
			continue
		}
		h = uintptr(0)
		if rounds < maxNewHandleRounds {
			rounds++
			continue
		}
		panic(fmt.Sprintf("handle: table exhausted after round #%d", rounds))
	}
}

// Value resolves a handle to its stored value. Panics on an invalid handle.
func (h Handle) Value() any {
	if h == 0 || h > MaxHandle || atomic.LoadPointer(&slots[h]) == noSlot {
		panic(fmt.Sprintf("handle: misuse (value) of invalid handle %d", h))
	}
	return *(*any)(atomic.LoadPointer(&slots[h]))
}

// Valid reports whether the handle currently refers to a stored value.
func (h Handle) Valid() bool {
	return h > 0 && h <= MaxHandle && atomic.LoadPointer(&slots[h]) != noSlot
}

// Delete invalidates a handle, freeing its slot for reuse. Panics on an
// invalid handle.
func (h Handle) Delete() {
	if h == 0 || h > MaxHandle || atomic.LoadPointer(&slots[h]) == noSlot {
		panic(fmt.Sprintf("handle: misuse (delete) of invalid handle %d", h))
	}
	atomic.StorePointer(&slots[h], noSlot)
}

// Live returns the number of occupied slots. Intended for leak checks in
// tests and shutdown diagnostics.
func Live() int {
	n := 0
	for i := 1; i <= MaxHandle; i++ {
		if atomic.LoadPointer(&slots[i]) != noSlot {
			n++
		}
	}
	return n
}
