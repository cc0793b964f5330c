/*
Package Go_Lockfree holds the atomic primitives shared by the lock-free structures: a pointer carrying a deletion mark and a pointer carrying a version stamp. Both change their pointer and metadata together in one atomic step, so no goroutine ever observes one half of an update.

Go's sync/atomic operations are sequentially consistent, so none of the operations here take a memory ordering.
*/
package Go_Lockfree

import (
	"sync/atomic"
	"unsafe"
)

const markMask uintptr = 1

// markedNil is the address stored for (nil, true). Storing unsafe.Pointer(uintptr(1)) would put an invalid pointer in a traced word.
var markedNil uint16

func pack[T any](p *T, mark bool) unsafe.Pointer {
	if !mark {
		return unsafe.Pointer(p)
	}
	if p == nil {
		return unsafe.Pointer(&markedNil)
	}
	var zero T
	if unsafe.Alignof(zero) < 2 || unsafe.Sizeof(zero) < 2 {
		panic("Go_Lockfree: MarkedPointer needs a type with alignment and size of at least 2")
	}
	return unsafe.Add(unsafe.Pointer(p), 1) //still points inside *p, so the GC keeps it alive.
}

func unpack[T any](v unsafe.Pointer) (*T, bool) {
	if v == unsafe.Pointer(&markedNil) {
		return nil, true
	}
	if uintptr(v)&markMask == 0 {
		return (*T)(v), false
	}
	return (*T)(unsafe.Add(v, -1)), true
}

// MarkedPointer is an atomic (pointer, mark) pair packed into one word. The mark is the low bit of the address, so T must be at least 2-aligned. The zero value is (nil, false).
type MarkedPointer[T any] struct {
	_ [0]*T
	v unsafe.Pointer
}

func NewMarkedPointer[T any](p *T, mark bool) *MarkedPointer[T] {
	return &MarkedPointer[T]{v: pack(p, mark)}
}

func (mp *MarkedPointer[T]) Load() (*T, bool) {
	return unpack[T](atomic.LoadPointer(&mp.v))
}

// Ptr loads only the pointer.
func (mp *MarkedPointer[T]) Ptr() *T {
	p, _ := mp.Load()
	return p
}

// Marked loads only the mark.
func (mp *MarkedPointer[T]) Marked() bool {
	_, m := mp.Load()
	return m
}

func (mp *MarkedPointer[T]) Store(p *T, mark bool) {
	atomic.StorePointer(&mp.v, pack(p, mark))
}

func (mp *MarkedPointer[T]) Swap(p *T, mark bool) (*T, bool) {
	return unpack[T](atomic.SwapPointer(&mp.v, pack(p, mark)))
}

// CompareAndSwap replaces (oldP, oldMark) with (newP, newMark) if and only if both halves match.
func (mp *MarkedPointer[T]) CompareAndSwap(oldP, newP *T, oldMark, newMark bool) bool {
	return atomic.CompareAndSwapPointer(&mp.v, pack(oldP, oldMark), pack(newP, newMark))
}

// CompareExchange is CompareAndSwap that also reports the pair it observed. On success curP, curMark equal oldP, oldMark; on failure they are the up-to-date pair that made the swap fail.
func (mp *MarkedPointer[T]) CompareExchange(oldP *T, oldMark bool, newP *T, newMark bool) (curP *T, curMark bool, ok bool) {
	expected, desired := pack(oldP, oldMark), pack(newP, newMark)
	for {
		cur := atomic.LoadPointer(&mp.v)
		if cur != expected {
			curP, curMark = unpack[T](cur)
			return curP, curMark, false
		}
		if atomic.CompareAndSwapPointer(&mp.v, expected, desired) {
			return oldP, oldMark, true
		}
	}
}

// AttemptMark sets the mark to mark if the pointer is still p, keeping the pointer unchanged.
func (mp *MarkedPointer[T]) AttemptMark(p *T, mark bool) bool {
	for {
		cur := atomic.LoadPointer(&mp.v)
		curP, curMark := unpack[T](cur)
		if curP != p {
			return false
		}
		if curMark == mark || atomic.CompareAndSwapPointer(&mp.v, cur, pack(p, mark)) {
			return true
		}
	}
}

type stamped[T any] struct {
	p     *T
	stamp uint16
}

// StampedPointer is an atomic (pointer, stamp) pair. The pair lives in an immutable box swapped by CAS, which keeps it portable: nothing depends on unused address bits. A box is never reused, so comparing boxes can't suffer ABA. The zero value is (nil, 0).
type StampedPointer[T any] struct {
	v atomic.Pointer[stamped[T]]
}

func NewStampedPointer[T any](p *T, stamp uint16) *StampedPointer[T] {
	sp := new(StampedPointer[T])
	sp.v.Store(&stamped[T]{p, stamp})
	return sp
}

func (sp *StampedPointer[T]) Load() (*T, uint16) {
	if s := sp.v.Load(); s != nil {
		return s.p, s.stamp
	}
	return nil, 0
}

func (sp *StampedPointer[T]) Store(p *T, stamp uint16) {
	sp.v.Store(&stamped[T]{p, stamp})
}

func (sp *StampedPointer[T]) Swap(p *T, stamp uint16) (*T, uint16) {
	if s := sp.v.Swap(&stamped[T]{p, stamp}); s != nil {
		return s.p, s.stamp
	}
	return nil, 0
}

func (sp *StampedPointer[T]) CompareAndSwap(oldP, newP *T, oldStamp, newStamp uint16) bool {
	_, _, ok := sp.CompareExchange(oldP, oldStamp, newP, newStamp)
	return ok
}

// CompareExchange reports the observed pair on failure, like MarkedPointer.CompareExchange.
func (sp *StampedPointer[T]) CompareExchange(oldP *T, oldStamp uint16, newP *T, newStamp uint16) (curP *T, curStamp uint16, ok bool) {
	for {
		cur := sp.v.Load()
		if cur != nil {
			curP, curStamp = cur.p, cur.stamp
		} else {
			curP, curStamp = nil, 0
		}
		if curP != oldP || curStamp != oldStamp {
			return curP, curStamp, false
		}
		if curP == newP && curStamp == newStamp {
			return curP, curStamp, true
		}
		if sp.v.CompareAndSwap(cur, &stamped[T]{newP, newStamp}) {
			return oldP, oldStamp, true
		}
	}
}

// Bump increments the stamp if the pointer is still p and returns the new stamp. The stamp wraps at 1<<16.
func (sp *StampedPointer[T]) Bump(p *T) (uint16, bool) {
	for {
		curP, curStamp := sp.Load()
		if curP != p {
			return curStamp, false
		}
		if sp.CompareAndSwap(p, p, curStamp, curStamp+1) {
			return curStamp + 1, true
		}
	}
}
