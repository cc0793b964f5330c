/*
Package Stacks implements the Treiber lock-free stack. Pop protects the top node with a hazard pointer, so a popped node is only recycled once no other Pop holds it, and the CAS on the top can't succeed on a recycled node.
*/
package Stacks

import (
	"sync"
	"sync/atomic"

	"github.com/g-m-twostay/go-lockfree/Hazard"
)

type node[T any] struct {
	v  T
	nx *node[T] //immutable while the node is on the stack.
}

type Stack[T any] struct {
	top    atomic.Pointer[node[T]]
	size   atomic.Int64
	domain *Hazard.Domain[node[T]]
	pool   sync.Pool
}

// Option configures a Stack while it is being created.
type Option[T any] func(*[]Hazard.Option[node[T]])

// WithMaxRecords caps the number of goroutines popping at the same time. A pop beyond the cap panics.
func WithMaxRecords[T any](n int) Option[T] {
	return func(opts *[]Hazard.Option[node[T]]) {
		*opts = append(*opts, Hazard.WithMaxRecords[node[T]](n))
	}
}

// WithScanFactor, see Hazard.WithScanFactor.
func WithScanFactor[T any](f int) Option[T] {
	return func(opts *[]Hazard.Option[node[T]]) {
		*opts = append(*opts, Hazard.WithScanFactor[node[T]](f))
	}
}

func New[T any](opts ...Option[T]) *Stack[T] {
	s := &Stack[T]{}
	hopts := []Hazard.Option[node[T]]{Hazard.WithSlots[node[T]](1)}
	for _, op := range opts {
		op(&hopts)
	}
	s.domain = Hazard.NewDomain(hopts...)
	return s
}

func (s *Stack[T]) recycle(n *node[T]) {
	var zero T
	n.v, n.nx = zero, nil
	s.pool.Put(n)
}

// Push needs no hazard pointer: it never dereferences the current top.
func (s *Stack[T]) Push(v T) {
	n, _ := s.pool.Get().(*node[T])
	if n == nil {
		n = new(node[T])
	}
	n.v = v
	for {
		n.nx = s.top.Load()
		if s.top.CompareAndSwap(n.nx, n) {
			s.size.Add(1)
			return
		}
	}
}

func (s *Stack[T]) Pop() (v T, ok bool) {
	r := s.domain.Acquire()
	defer r.Release()
	hp := r.Slot(0)
	for {
		old := hp.Protect(&s.top)
		if old == nil {
			return v, false
		}
		if s.top.CompareAndSwap(old, old.nx) {
			s.size.Add(-1)
			v = old.v
			r.RetireFunc(old, s.recycle)
			return v, true
		}
	}
}

func (s *Stack[T]) Peek() (v T, ok bool) {
	r := s.domain.Acquire()
	defer r.Release()
	if old := r.Slot(0).Protect(&s.top); old != nil {
		return old.v, true
	}
	return v, false
}

func (s *Stack[T]) Empty() bool {
	return s.top.Load() == nil
}

// Len isn't linearizable.
func (s *Stack[T]) Len() int {
	return int(s.size.Load())
}

// Stats of the stack's hazard domain.
func (s *Stack[T]) Stats() Hazard.Stats {
	return s.domain.Stats()
}

// Reclaim recycles every popped node nobody reads anymore.
func (s *Stack[T]) Reclaim() {
	s.domain.Reclaim()
}
