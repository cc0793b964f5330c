package Queues

import (
	"sync"
	"sync/atomic"

	"github.com/g-m-twostay/go-lockfree/Hazard"
	"golang.org/x/sys/cpu"
)

type node[T any] struct {
	v  T
	nx atomic.Pointer[node[T]]
}

// MSQueue is the Michael-Scott lock-free FIFO queue with hazard pointers. The first node is always a dummy; the front element lives in the dummy's successor.
// Popped dummies are recycled, so a node is only reused after no goroutine holds it.
type MSQueue[T any] struct {
	head   atomic.Pointer[node[T]]
	_      cpu.CacheLinePad
	tail   atomic.Pointer[node[T]]
	_      cpu.CacheLinePad
	size   atomic.Int64
	domain *Hazard.Domain[node[T]]
	pool   sync.Pool
}

func NewMSQueue[T any](opts ...Option) *MSQueue[T] {
	q := &MSQueue[T]{domain: newDomain[T](opts)}
	a := new(node[T])
	q.head.Store(a)
	q.tail.Store(a)
	return q
}

func (q *MSQueue[T]) alloc(v T) *node[T] {
	n, _ := q.pool.Get().(*node[T])
	if n == nil {
		n = new(node[T])
	}
	n.v = v
	n.nx.Store(nil)
	return n
}

func (q *MSQueue[T]) recycle(n *node[T]) {
	var zero T
	n.v = zero
	q.pool.Put(n)
}

func (q *MSQueue[T]) Push(item T) {
	newNode := q.alloc(item)
	r := q.domain.Acquire()
	defer r.Release()
	hp := r.Slot(0)
	for {
		oldTail := hp.Protect(&q.tail)
		oldTailNext := oldTail.nx.Load()
		if q.tail.Load() != oldTail {
			continue
		}
		if oldTailNext != nil { //tail is lagging.
			q.tail.CompareAndSwap(oldTail, oldTailNext)
		} else if oldTail.nx.CompareAndSwap(nil, newNode) {
			q.size.Add(1)
			q.tail.CompareAndSwap(oldTail, newNode)
			return
		}
	}
}

// TryPop removes the front element. It reports false if the queue was empty.
func (q *MSQueue[T]) TryPop() (v T, ok bool) {
	r := q.domain.Acquire()
	defer r.Release()
	hpHead, hpNext := r.Slot(0), r.Slot(1)
	for {
		oldHead := hpHead.Protect(&q.head)
		oldTail := q.tail.Load()
		next := oldHead.nx.Load()
		hpNext.Publish(next)
		if q.head.Load() != oldHead {
			continue
		}
		if next == nil {
			return v, false
		}
		if oldHead == oldTail { //tail is lagging behind a pushed node.
			q.tail.CompareAndSwap(oldTail, next)
			continue
		}
		// next becomes the dummy once the CAS succeeds; its value is the popped one.
		v = next.v
		if q.head.CompareAndSwap(oldHead, next) {
			q.size.Add(-1)
			r.RetireFunc(oldHead, q.recycle)
			return v, true
		}
	}
}

func (q *MSQueue[T]) Pop() (T, error) {
	if v, ok := q.TryPop(); ok {
		return v, nil
	}
	return *new(T), &EmptyQueueError{}
}

// Peek returns the front element without removing it, or the zero value if the queue is empty.
func (q *MSQueue[T]) Peek() (v T) {
	r := q.domain.Acquire()
	defer r.Release()
	hpHead, hpNext := r.Slot(0), r.Slot(1)
	for {
		oldHead := hpHead.Protect(&q.head)
		next := oldHead.nx.Load()
		hpNext.Publish(next)
		if q.head.Load() != oldHead {
			continue
		}
		if next != nil {
			v = next.v
		}
		return
	}
}

func (q *MSQueue[T]) Empty() bool {
	r := q.domain.Acquire()
	defer r.Release()
	return r.Slot(0).Protect(&q.head).nx.Load() == nil
}

// Len isn't linearizable, it can be briefly off while pushes and pops are in flight.
func (q *MSQueue[T]) Len() int {
	return int(q.size.Load())
}

// Stats of the queue's hazard domain.
func (q *MSQueue[T]) Stats() Hazard.Stats {
	return q.domain.Stats()
}

// Reclaim recycles every popped node nobody reads anymore.
func (q *MSQueue[T]) Reclaim() {
	q.domain.Reclaim()
}
