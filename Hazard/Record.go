package Hazard

import (
	"sync/atomic"

	Go_Lockfree "github.com/g-m-twostay/go-lockfree"
	"github.com/g-m-twostay/go-lockfree/internal"
	"golang.org/x/sys/cpu"
)

// Slot is a single hazard pointer. Only the goroutine owning its Record writes it, every goroutine may read it.
type Slot[T any] struct {
	p atomic.Pointer[T]
}

// Publish announces that p is about to be dereferenced. The announcement alone isn't enough, see Protect.
func (s *Slot[T]) Publish(p *T) {
	s.p.Store(p)
}

// Clear withdraws the announcement. It's safe to call any number of times.
func (s *Slot[T]) Clear() {
	s.p.Store(nil)
}

func (s *Slot[T]) Load() *T {
	return s.p.Load()
}

// Protect publishes the current value of src and returns it once a reload confirms src still holds it. From then on the returned node won't be freed until the slot changes.
func (s *Slot[T]) Protect(src *atomic.Pointer[T]) *T {
	for p := src.Load(); ; {
		s.p.Store(p)
		q := src.Load()
		if p == q {
			return p
		}
		p = q
	}
}

// ProtectMarked is Protect for a marked pointer. Both the pointer and the mark have to be stable across the reload.
func (s *Slot[T]) ProtectMarked(src *Go_Lockfree.MarkedPointer[T]) (*T, bool) {
	for p, m := src.Load(); ; {
		s.p.Store(p)
		q, n := src.Load()
		if p == q && m == n {
			return p, m
		}
		p, m = q, n
	}
}

// Record is the per-goroutine part of a Domain: a fixed number of hazard slots and a private list of retired nodes. Between Domain.Acquire and Release a Record belongs to exactly one goroutine.
type Record[T any] struct {
	_      cpu.CacheLinePad
	slots  []Slot[T]
	active atomic.Bool
	next   *Record[T] //immutable once the record is linked.
	domain *Domain[T]
	local  internal.Ring[retired[T]]
	_      cpu.CacheLinePad
}

// Slot returns hazard slot i. i must be less than the domain's slots per record.
func (r *Record[T]) Slot(i int) *Slot[T] {
	return &r.slots[i]
}

// Slots is the number of hazard slots r owns.
func (r *Record[T]) Slots() int {
	return len(r.slots)
}

// Retire is RetireFunc with the domain's deleter.
func (r *Record[T]) Retire(p *T) {
	r.RetireFunc(p, r.domain.deleter)
}

// RetireFunc schedules free(p) for when no slot holds p. p must already be unreachable for goroutines that haven't published it. Once the waiting nodes outnumber the slots by the scan factor, a reclamation runs.
func (r *Record[T]) RetireFunc(p *T, free func(*T)) {
	if p == nil {
		return
	}
	d := r.domain
	r.local.Push(retired[T]{p, free})
	d.retired.Add(1)
	if int64(r.local.Size())+d.pending.Load() > int64(d.scanFactor)*d.totalSlots() {
		r.Reclaim()
	}
}

// Reclaim adopts the retired nodes left in the global list, takes one snapshot of the published slots, and frees every retired node the snapshot doesn't contain. The others stay for a later attempt.
func (r *Record[T]) Reclaim() {
	d := r.domain
	if d.global.Load() != nil {
		for b := d.global.Swap(nil); b != nil; b = b.next {
			d.pending.Add(-int64(len(b.items)))
			for _, it := range b.items {
				r.local.Push(it)
			}
		}
	}
	if r.local.Empty() {
		return
	}
	hs := d.snapshot()
	for n := r.local.Size(); n > 0; n-- {
		it, _ := r.local.Pop()
		if _, ok := hs[it.p]; ok {
			r.local.Push(it)
		} else {
			d.free(it)
		}
	}
}

// Pending is the number of retired nodes r holds.
func (r *Record[T]) Pending() int {
	return int(r.local.Size())
}

// Release clears every slot, hands the remaining retired nodes to the domain, and makes r available to the next Acquire. r must not be used afterwards.
func (r *Record[T]) Release() {
	if !r.active.Load() {
		panic("hazard: Release of an idle record")
	}
	for i := range r.slots {
		r.slots[i].Clear()
	}
	if !r.local.Empty() {
		r.domain.deposit(&batch[T]{items: r.local.Drain()})
	}
	r.active.Store(false)
}
