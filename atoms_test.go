package Go_Lockfree

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testThrdsN = 8

type pair struct {
	a, b int
}

func TestMarkedPointer_Basic(t *testing.T) {
	x, y := &pair{1, 2}, &pair{3, 4}
	var mp MarkedPointer[pair]
	p, m := mp.Load()
	require.Nil(t, p)
	require.False(t, m)

	mp.Store(x, true)
	p, m = mp.Load()
	require.Same(t, x, p)
	require.True(t, m)
	require.Equal(t, 1, mp.Ptr().a, "marked pointer must still dereference the node")

	require.False(t, mp.CompareAndSwap(x, y, false, false), "mark mismatch must fail")
	require.True(t, mp.CompareAndSwap(x, y, true, false))
	require.Same(t, y, mp.Ptr())
	require.False(t, mp.Marked())

	op, om := mp.Swap(nil, true)
	require.Same(t, y, op)
	require.False(t, om)
	p, m = mp.Load()
	require.Nil(t, p)
	require.True(t, m, "marked nil lost its mark")

	mp2 := NewMarkedPointer(x, false)
	require.Same(t, x, mp2.Ptr())
}

func TestMarkedPointer_CompareExchange(t *testing.T) {
	x, y := &pair{}, &pair{}
	mp := NewMarkedPointer(x, true)
	cp, cm, ok := mp.CompareExchange(x, false, y, false)
	require.False(t, ok)
	require.Same(t, x, cp)
	require.True(t, cm, "the observed mark must be reported")
	cp, cm, ok = mp.CompareExchange(x, true, y, false)
	require.True(t, ok)
	require.Same(t, x, cp)
	require.True(t, cm)
	require.Same(t, y, mp.Ptr())
}

func TestMarkedPointer_AttemptMark(t *testing.T) {
	x, y := &pair{}, &pair{}
	mp := NewMarkedPointer(x, false)
	require.False(t, mp.AttemptMark(y, true))
	require.True(t, mp.AttemptMark(x, true))
	require.True(t, mp.AttemptMark(x, true), "already marked")
	p, m := mp.Load()
	require.Same(t, x, p)
	require.True(t, m)
}

func TestMarkedPointer_BadType(t *testing.T) {
	var mp MarkedPointer[byte]
	b := new(byte)
	require.NotPanics(t, func() { mp.Store(b, false) })
	require.Panics(t, func() { mp.Store(b, true) })
}

// Exactly one goroutine wins the mark on each node.
func TestMarkedPointer_ConcurrentMark(t *testing.T) {
	const n = 1 << 10
	nodes := make([]pair, n)
	mps := make([]MarkedPointer[pair], n)
	for i := range mps {
		mps[i].Store(&nodes[i], false)
	}
	wins := make([]int, testThrdsN)
	wg := sync.WaitGroup{}
	wg.Add(testThrdsN)
	for g := range testThrdsN {
		go func() {
			defer wg.Done()
			for i := range mps {
				if mps[i].CompareAndSwap(&nodes[i], &nodes[i], false, true) {
					wins[g]++
				}
			}
		}()
	}
	wg.Wait()
	total := 0
	for _, w := range wins {
		total += w
	}
	require.Equal(t, n, total)
}

func TestStampedPointer(t *testing.T) {
	x, y := &pair{}, &pair{}
	var sp StampedPointer[pair]
	p, s := sp.Load()
	require.Nil(t, p)
	require.Zero(t, s)
	require.True(t, sp.CompareAndSwap(nil, x, 0, 1))
	require.False(t, sp.CompareAndSwap(x, y, 0, 2), "stale stamp accepted")

	cp, cs, ok := sp.CompareExchange(x, 5, y, 6)
	require.False(t, ok)
	require.Same(t, x, cp)
	require.EqualValues(t, 1, cs)

	ns, ok := sp.Bump(x)
	require.True(t, ok)
	require.EqualValues(t, 2, ns)
	_, ok = sp.Bump(y)
	require.False(t, ok)

	op, os := sp.Swap(y, 0xffff)
	require.Same(t, x, op)
	require.EqualValues(t, 2, os)
	ns, _ = sp.Bump(y)
	require.Zero(t, ns, "the stamp wraps")

	sp.Store(nil, 3)
	p, s = NewStampedPointer(x, 9).Load()
	require.Same(t, x, p)
	require.EqualValues(t, 9, s)
}

func TestStampedPointer_ConcurrentBump(t *testing.T) {
	x := &pair{}
	sp := NewStampedPointer(x, 0)
	wg := sync.WaitGroup{}
	wg.Add(testThrdsN)
	for range testThrdsN {
		go func() {
			defer wg.Done()
			for range 1000 {
				sp.Bump(x)
			}
		}()
	}
	wg.Wait()
	_, s := sp.Load()
	require.EqualValues(t, testThrdsN*1000%(1<<16), s)
}
