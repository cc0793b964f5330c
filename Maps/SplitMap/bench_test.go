package SplitMap

import (
	"sync/atomic"
	"testing"

	"github.com/alphadose/haxmap"
	"github.com/cornelk/hashmap"
	Go_Lockfree "github.com/g-m-twostay/go-lockfree"
	"github.com/puzpuzpuz/xsync/v3"
)

// compares with https://github.com/cornelk/hashmap, https://github.com/alphadose/haxmap and https://github.com/puzpuzpuz/xsync using the balanced workloads of the cornelk/hashmap benchmarks.
const (
	benchmarkItemCount = 1024
	benchmarkMisses    = 1024
)

var sideEff bool

func setupSplitMap(b *testing.B) *Map[uintptr, uintptr] {
	b.Helper()
	m := New[uintptr, uintptr](WithHasher[uintptr, uintptr](Go_Lockfree.HashInt[uintptr]))
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.Insert(i, i)
	}
	return m
}

func setupHashMap(b *testing.B) *hashmap.Map[uintptr, uintptr] {
	b.Helper()
	m := hashmap.New[uintptr, uintptr]()
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.Set(i, i)
	}
	return m
}

func setupHaxMap(b *testing.B) *haxmap.Map[uintptr, uintptr] {
	b.Helper()
	m := haxmap.New[uintptr, uintptr]()
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.Set(i, i)
	}
	return m
}

func setupXSyncMap(b *testing.B) *xsync.MapOf[uintptr, uintptr] {
	b.Helper()
	m := xsync.NewMapOf[uintptr, uintptr]()
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.Store(i, i)
	}
	return m
}

func BenchmarkSplitMap_Find_Balanced(b *testing.B) {
	m := setupSplitMap(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, sideEff = m.Find((count.Add(1) - 1) % (benchmarkItemCount + benchmarkMisses))
		}
	})
}

func BenchmarkHashMap_Get_Balanced(b *testing.B) {
	m := setupHashMap(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, sideEff = m.Get((count.Add(1) - 1) % (benchmarkItemCount + benchmarkMisses))
		}
	})
}

func BenchmarkHaxMap_Get_Balanced(b *testing.B) {
	m := setupHaxMap(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, sideEff = m.Get((count.Add(1) - 1) % (benchmarkItemCount + benchmarkMisses))
		}
	})
}

func BenchmarkXSyncMap_Load_Balanced(b *testing.B) {
	m := setupXSyncMap(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, sideEff = m.Load((count.Add(1) - 1) % (benchmarkItemCount + benchmarkMisses))
		}
	})
}

// every goroutine keeps inserting and removing keys of the same range.
func BenchmarkSplitMap_InsertRemove(b *testing.B) {
	m := setupSplitMap(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % (benchmarkItemCount * 2)
			if !m.Insert(k, k) {
				sideEff = m.Remove(k)
			}
		}
	})
}

func BenchmarkHashMap_InsertRemove(b *testing.B) {
	m := setupHashMap(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % (benchmarkItemCount * 2)
			if !m.Insert(k, k) {
				sideEff = m.Del(k)
			}
		}
	})
}

func BenchmarkXSyncMap_InsertRemove(b *testing.B) {
	m := setupXSyncMap(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % (benchmarkItemCount * 2)
			if _, loaded := m.LoadOrStore(k, k); loaded {
				m.Delete(k)
			}
		}
	})
}

func BenchmarkHaxMap_InsertRemove(b *testing.B) {
	m := setupHaxMap(b)
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % (benchmarkItemCount * 2)
			if _, loaded := m.GetOrSet(k, k); loaded {
				m.Del(k)
			}
		}
	})
}
