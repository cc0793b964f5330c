package main

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	Go_Lockfree "github.com/g-m-twostay/go-lockfree"
	"github.com/g-m-twostay/go-lockfree/Hazard"
	"github.com/g-m-twostay/go-lockfree/Lists"
	"github.com/g-m-twostay/go-lockfree/Maps/SplitMap"
	"github.com/g-m-twostay/go-lockfree/Queues"
	"github.com/g-m-twostay/go-lockfree/Stacks"
)

type check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func expect(name string, ok bool, format string, args ...any) check {
	return check{name, ok, fmt.Sprintf(format, args...)}
}

// target is what every structure offers besides its own operations.
type target interface {
	Stats() Hazard.Stats
	Reclaim()
}

type workload struct {
	target
	run func(c config, m *metrics) []check
}

func newWorkload(structure string) workload {
	switch structure {
	case "queue":
		q := Queues.NewMSQueue[tagged]()
		return workload{q, func(c config, m *metrics) []check { return runQueue(q, c, m) }}
	case "stack":
		s := Stacks.New[int]()
		return workload{s, func(c config, m *metrics) []check { return runStack(s, c, m) }}
	case "list":
		l := listKV{Lists.New[int, int]()}
		return workload{l, func(c config, m *metrics) []check { return runKV(l, c, m) }}
	default:
		mp := mapKV{SplitMap.New[int, int](SplitMap.WithHasher[int, int](Go_Lockfree.HashInt[int]))}
		return workload{mp, func(c config, m *metrics) []check { return runKV(mp, c, m) }}
	}
}

// parallel runs f(0..n-1) on n goroutines and waits for all of them.
func parallel(n int, f func(g int)) {
	wg := sync.WaitGroup{}
	wg.Add(n)
	for g := range n {
		go func() {
			defer wg.Done()
			f(g)
		}()
	}
	wg.Wait()
}

type kv interface {
	target
	insert(k int) bool
	remove(k int) bool
	find(k int) (int, bool)
	size() int
}

type mapKV struct {
	*SplitMap.Map[int, int]
}

func (m mapKV) insert(k int) bool      { return m.Insert(k, k) }
func (m mapKV) remove(k int) bool      { return m.Remove(k) }
func (m mapKV) find(k int) (int, bool) { return m.Find(k) }
func (m mapKV) size() int              { return m.Len() }

type listKV struct {
	*Lists.List[int, int]
}

func (l listKV) insert(k int) bool      { return l.Add(uint64(k), k, k) }
func (l listKV) remove(k int) bool      { return l.Remove(uint64(k), k) }
func (l listKV) find(k int) (int, bool) { return l.Get(uint64(k), k) }
func (l listKV) size() int              { return l.Len() }
func (l listKV) Stats() Hazard.Stats    { return l.Domain().Stats() }
func (l listKV) Reclaim()               { l.Domain().Reclaim() }

// runKV races inserts, removes and finds on a shared key space, then inserts disjoint ranges and looks every one of them up.
func runKV(s kv, c config, m *metrics) []check {
	var net, bad atomic.Int64
	parallel(c.goroutines, func(g int) {
		rnd := rand.New(rand.NewSource(int64(g)))
		for range c.ops {
			k := rnd.Intn(c.keys)
			switch rnd.Intn(3) {
			case 0:
				ok := s.insert(k)
				if ok {
					net.Add(1)
				}
				m.observe("insert", ok)
			case 1:
				ok := s.remove(k)
				if ok {
					net.Add(-1)
				}
				m.observe("remove", ok)
			default:
				v, ok := s.find(k)
				if ok && v != k {
					bad.Add(1)
				}
				m.observe("find", ok)
			}
		}
	})
	checks := []check{
		expect("values intact", bad.Load() == 0, "%d finds returned a foreign value", bad.Load()),
		expect("size consistent", int64(s.size()) == net.Load(), "size %d, successful inserts minus removes %d", s.size(), net.Load()),
	}

	base := c.keys
	parallel(c.goroutines, func(g int) {
		for k := base + g*c.ops; k < base+(g+1)*c.ops; k++ {
			m.observe("insert", s.insert(k))
		}
	})
	lost := 0
	for k := base; k < base+c.goroutines*c.ops; k++ {
		if v, ok := s.find(k); !ok || v != k {
			lost++
		}
	}
	return append(checks, expect("no lost updates", lost == 0, "%d of %d disjoint inserts missing", lost, c.goroutines*c.ops))
}

type tagged struct {
	producer, seq int
}

// runQueue has as many consumers as producers. Consumers check that the values of each producer come out in push order.
func runQueue(q *Queues.MSQueue[tagged], c config, m *metrics) []check {
	total := int64(c.goroutines * c.ops)
	seen := make([]atomic.Int32, total)
	var popped, disorder atomic.Int64
	parallel(2*c.goroutines, func(g int) {
		if g < c.goroutines {
			for j := range c.ops {
				q.Push(tagged{g, j})
				m.observe("push", true)
			}
			return
		}
		last := make([]int, c.goroutines)
		for p := range last {
			last[p] = -1
		}
		for popped.Load() < total {
			v, ok := q.TryPop()
			m.observe("pop", ok)
			if !ok {
				continue
			}
			popped.Add(1)
			if v.seq <= last[v.producer] {
				disorder.Add(1)
			}
			last[v.producer] = v.seq
			seen[v.producer*c.ops+v.seq].Add(1)
		}
	})
	return []check{
		exactlyOnce(seen),
		expect("fifo per producer", disorder.Load() == 0, "%d values overtook an earlier one of the same producer", disorder.Load()),
		expect("drained", q.Empty() && q.Len() == 0, "len %d after popping everything", q.Len()),
	}
}

func runStack(s *Stacks.Stack[int], c config, m *metrics) []check {
	total := int64(c.goroutines * c.ops)
	seen := make([]atomic.Int32, total)
	var popped atomic.Int64
	parallel(2*c.goroutines, func(g int) {
		if g < c.goroutines {
			for j := g * c.ops; j < (g+1)*c.ops; j++ {
				s.Push(j)
				m.observe("push", true)
			}
			return
		}
		for popped.Load() < total {
			v, ok := s.Pop()
			m.observe("pop", ok)
			if ok {
				popped.Add(1)
				seen[v].Add(1)
			}
		}
	})
	return []check{
		exactlyOnce(seen),
		expect("drained", s.Empty() && s.Len() == 0, "len %d after popping everything", s.Len()),
	}
}

func exactlyOnce(seen []atomic.Int32) check {
	wrong := 0
	for i := range seen {
		if seen[i].Load() != 1 {
			wrong++
		}
	}
	return expect("every value popped once", wrong == 0, "%d of %d values popped a wrong number of times", wrong, len(seen))
}
