/*
Package Hazard implements hazard-pointer based safe memory reclamation.

A Domain owns an append-only list of Records. A Record is what a thread owns in the classic scheme: a handful of hazard slots published to every other goroutine, plus a private list of retired nodes. A goroutine acquires a Record, publishes the addresses it is about to dereference, retires the nodes it unlinked, and releases the Record when it is done. Release is the thread-exit hook: the slots are cleared and the remaining retired nodes move to the domain's global list, where any later reclamation picks them up.

A retired node is freed, meaning its deleter runs, only after a scan of every published slot didn't find it. In Go the deleter usually returns the node to a pool, and the hazard discipline is what stops a node from being recycled while another goroutine still reads it.

# Protocol

Publishing must follow the double-read rule: load the shared pointer, publish it, load it again, and only use it if both loads agree. Slot.Protect does exactly this for an atomic.Pointer. A caller that dereferences a node without a validated publication, or acts on a value read before publication, breaks the guarantee; the domain can't detect that.
*/
package Hazard

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrRecordsExhausted is returned by TryAcquire when a domain created with WithMaxRecords has no idle record left.
var ErrRecordsExhausted = errors.New("hazard: record table exhausted")

const (
	defaultSlots      = 3
	defaultScanFactor = 2
)

type retired[T any] struct {
	p    *T
	free func(*T)
}

// batch is a group of retired nodes left behind by a released Record.
type batch[T any] struct {
	items []retired[T]
	next  *batch[T]
}

// Domain is a hazard pointer domain for nodes of type T. All methods are safe for concurrent use, except Close.
type Domain[T any] struct {
	head      atomic.Pointer[Record[T]]
	records   atomic.Int32
	global    atomic.Pointer[batch[T]]
	pending   atomic.Int64 //retired nodes waiting in global.
	retired   atomic.Int64 //retired nodes not freed yet.
	reclaimed atomic.Uint64

	deleter                       func(*T)
	slots, maxRecords, scanFactor int
}

func NewDomain[T any](opts ...Option[T]) *Domain[T] {
	d := &Domain[T]{slots: defaultSlots, scanFactor: defaultScanFactor}
	for _, op := range opts {
		op.apply(d)
	}
	if d.slots < 1 {
		panic(errors.Newf("hazard: %d slots per record", d.slots))
	}
	if d.scanFactor < 1 {
		d.scanFactor = defaultScanFactor
	}
	return d
}

// Acquire is TryAcquire that panics when the record table is exhausted, which only happens with WithMaxRecords.
func (d *Domain[T]) Acquire() *Record[T] {
	r, err := d.TryAcquire()
	if err != nil {
		panic(err)
	}
	return r
}

// TryAcquire hands out an idle Record, appending a new one when every record is in use.
func (d *Domain[T]) TryAcquire() (*Record[T], error) {
	if r := d.idle(); r != nil {
		return r, nil
	}
	for {
		n := d.records.Load()
		if d.maxRecords > 0 && int(n) >= d.maxRecords {
			if r := d.idle(); r != nil {
				return r, nil
			}
			return nil, errors.Wrapf(ErrRecordsExhausted, "all %d records in use", n)
		}
		if d.records.CompareAndSwap(n, n+1) {
			break
		}
	}
	r := &Record[T]{slots: make([]Slot[T], d.slots), domain: d}
	r.active.Store(true)
	for {
		r.next = d.head.Load()
		if d.head.CompareAndSwap(r.next, r) {
			return r, nil
		}
	}
}

func (d *Domain[T]) idle() *Record[T] {
	for r := d.head.Load(); r != nil; r = r.next {
		if !r.active.Load() && r.active.CompareAndSwap(false, true) {
			return r
		}
	}
	return nil
}

// SlotsPerRecord is the number of hazard slots every Record owns.
func (d *Domain[T]) SlotsPerRecord() int {
	return d.slots
}

func (d *Domain[T]) totalSlots() int64 {
	return int64(d.records.Load()) * int64(d.slots)
}

// snapshot collects every published slot once.
func (d *Domain[T]) snapshot() map[*T]struct{} {
	hs := make(map[*T]struct{}, d.totalSlots())
	for r := d.head.Load(); r != nil; r = r.next {
		for i := range r.slots {
			if p := r.slots[i].p.Load(); p != nil {
				hs[p] = struct{}{}
			}
		}
	}
	return hs
}

func (d *Domain[T]) free(it retired[T]) {
	if it.free != nil {
		it.free(it.p)
	}
	d.retired.Add(-1)
	d.reclaimed.Add(1)
}

// deposit pushes b onto the global list.
func (d *Domain[T]) deposit(b *batch[T]) {
	d.pending.Add(int64(len(b.items)))
	for {
		b.next = d.global.Load()
		if d.global.CompareAndSwap(b.next, b) {
			return
		}
	}
}

// Retire retires p with the domain's deleter using a temporary Record.
func (d *Domain[T]) Retire(p *T) {
	r := d.Acquire()
	r.Retire(p)
	r.Release()
}

// Reclaim frees every retired node no slot currently holds. Once all goroutines are done with the domain, one call brings Stats().Retired to 0.
func (d *Domain[T]) Reclaim() {
	r := d.Acquire()
	r.Reclaim()
	r.Release()
}

// Close frees every retired node without scanning. It's the teardown of the domain and must only be called when no goroutine uses it anymore.
func (d *Domain[T]) Close() {
	for b := d.global.Swap(nil); b != nil; b = b.next {
		d.pending.Add(-int64(len(b.items)))
		for _, it := range b.items {
			d.free(it)
		}
	}
	for r := d.head.Load(); r != nil; r = r.next {
		if r.active.Load() {
			continue //owned by someone, not ours to touch.
		}
		for it, ok := r.local.Pop(); ok; it, ok = r.local.Pop() {
			d.free(it)
		}
	}
}

type Stats struct {
	Records   int    //records ever created; they are reused, never removed.
	Slots     int    //total hazard slots.
	Published int    //slots holding a pointer at the time of the call.
	Retired   int64  //retired nodes not freed yet.
	Reclaimed uint64 //nodes freed so far.
}

// Stats isn't a consistent snapshot, each field is read separately.
func (d *Domain[T]) Stats() Stats {
	s := Stats{Records: int(d.records.Load()), Retired: d.retired.Load(), Reclaimed: d.reclaimed.Load()}
	s.Slots = s.Records * d.slots
	for r := d.head.Load(); r != nil; r = r.next {
		for i := range r.slots {
			if r.slots[i].p.Load() != nil {
				s.Published++
			}
		}
	}
	return s
}
