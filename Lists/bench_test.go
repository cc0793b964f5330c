package Lists

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/petar/GoLLRB/llrb"
)

// compares with a mutex guarded https://github.com/petar/GoLLRB tree, the usual ordered set in go.
const benchmarkItemCount = 1024

var sideEff bool

func setupList(b *testing.B) *List[int, int] {
	b.Helper()
	l := New[int, int]()
	for i := range benchmarkItemCount {
		l.Add(uint64(i), i, i)
	}
	return l
}

type lockedTree struct {
	sync.RWMutex
	t *llrb.LLRB
}

func setupTree(b *testing.B) *lockedTree {
	b.Helper()
	t := &lockedTree{t: llrb.New()}
	for i := range benchmarkItemCount {
		t.t.ReplaceOrInsert(llrb.Int(i))
	}
	return t
}

func BenchmarkList_Get(b *testing.B) {
	l := setupList(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := int((count.Add(1) - 1) % (2 * benchmarkItemCount))
			_, sideEff = l.Get(uint64(k), k)
		}
	})
}

func BenchmarkLLRB_Get(b *testing.B) {
	t := setupTree(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := int((count.Add(1) - 1) % (2 * benchmarkItemCount))
			t.RLock()
			sideEff = t.t.Has(llrb.Int(k))
			t.RUnlock()
		}
	})
}

func BenchmarkList_AddRemove(b *testing.B) {
	l := setupList(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := int((count.Add(1) - 1) % (2 * benchmarkItemCount))
			if !l.Add(uint64(k), k, k) {
				sideEff = l.Remove(uint64(k), k)
			}
		}
	})
}

func BenchmarkLLRB_AddRemove(b *testing.B) {
	t := setupTree(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := llrb.Int((count.Add(1) - 1) % (2 * benchmarkItemCount))
			t.Lock()
			if t.t.ReplaceOrInsert(k) != nil {
				sideEff = t.t.Delete(k) != nil
			}
			t.Unlock()
		}
	})
}
