/*
Package SplitMap implements the split-ordered lock-free hash map.

All entries live in a single Lists.List ordered by their bit-reversed hash. A bucket is a sentinel node in that list: bucket i starts at the sentinel whose order is the reversal of i, and every entry whose low hash bits equal i follows it before the next sentinel. Doubling the number of buckets therefore never moves an entry; the new buckets only need their sentinels, which get linked lazily the first time a bucket is used, after their parent bucket.

The bucket directory is a fixed array of lazily allocated segments, so growing it is a single CAS on the level.

# Linearizability
Insert, Find, Remove, LoadOrInsert and LoadAndRemove are linearizable. Len and Range aren't.
*/
package SplitMap

import (
	"math"
	"math/bits"
	"sync/atomic"

	Go_Lockfree "github.com/g-m-twostay/go-lockfree"
	"github.com/g-m-twostay/go-lockfree/Hazard"
	"github.com/g-m-twostay/go-lockfree/Lists"
)

const (
	hashMask          uint64 = math.MaxUint64 >> 2 //the reversed ordinary keys stay below the tail sentinel.
	maxLevel                 = 62
	segmentsN                = 64
	defaultLoadFactor        = 2
	defaultMaxLevel          = 32
)

type bucket[K comparable, V any] struct {
	sentinel atomic.Pointer[Lists.Node[K, V]]
}

type Map[K comparable, V any] struct {
	list       *Lists.List[K, V]
	dir        [segmentsN]atomic.Pointer[[]bucket[K, V]] //segment s holds buckets [2^(s-1), 2^s), segment 0 holds bucket 0.
	level      atomic.Uint32                             //2^level buckets are addressable.
	hasher     func(K) uint64
	loadFactor int64
	maxLevel   uint32
}

func New[K comparable, V any](opts ...Option[K, V]) *Map[K, V] {
	m := &Map[K, V]{list: Lists.New[K, V](), loadFactor: defaultLoadFactor, maxLevel: defaultMaxLevel}
	for _, op := range opts {
		op.apply(m)
	}
	if m.hasher == nil {
		m.hasher = Go_Lockfree.NewHasher[K]().Hash
	}
	if m.loadFactor < 1 {
		m.loadFactor = defaultLoadFactor
	}
	m.maxLevel = min(m.maxLevel, maxLevel)
	m.level.Store(min(m.level.Load(), m.maxLevel))
	first := make([]bucket[K, V], 1)
	first[0].sentinel.Store(m.list.Head())
	m.dir[0].Store(&first)
	return m
}

func ordinaryKey(hash uint64) uint64 {
	return bits.Reverse64(hash&hashMask) | 1
}

func sentinelKey(index uint64) uint64 {
	return bits.Reverse64(index)
}

// locate finds the segment and the offset in it of bucket i.
func locate(i uint64) (seg int, off uint64) {
	if i == 0 {
		return 0, 0
	}
	seg = bits.Len64(i)
	return seg, i - 1<<(seg-1)
}

func segmentLen(seg int) int {
	if seg == 0 {
		return 1
	}
	return 1 << (seg - 1)
}

// segment returns segment seg, allocating it if no one did yet.
func (m *Map[K, V]) segment(seg int) []bucket[K, V] {
	if s := m.dir[seg].Load(); s != nil {
		return *s
	}
	ns := make([]bucket[K, V], segmentLen(seg))
	if m.dir[seg].CompareAndSwap(nil, &ns) {
		return ns
	}
	return *m.dir[seg].Load()
}

// bucket returns the sentinel of bucket i, linking it after its parent's sentinel first if it's not there yet.
func (m *Map[K, V]) bucket(i uint64) *Lists.Node[K, V] {
	seg, off := locate(i)
	b := &m.segment(seg)[off]
	if s := b.sentinel.Load(); s != nil {
		return s
	}
	parent := m.bucket(i &^ (1 << (bits.Len64(i) - 1)))
	s := m.list.AddSentinel(parent, sentinelKey(i))
	b.sentinel.CompareAndSwap(nil, s) //every caller gets the same sentinel, so losing is fine.
	return s
}

func (m *Map[K, V]) locateKey(key K) (*Lists.Node[K, V], uint64) {
	h := m.hasher(key)
	return m.bucket(h & (1<<m.level.Load() - 1)), ordinaryKey(h)
}

func (m *Map[K, V]) grow() {
	if l := m.level.Load(); l < m.maxLevel && int64(m.list.Len()) > m.loadFactor<<l {
		m.level.CompareAndSwap(l, l+1)
	}
}

// Insert adds (key, val). It fails if key is already present.
func (m *Map[K, V]) Insert(key K, val V) bool {
	start, order := m.locateKey(key)
	if m.list.AddFrom(start, order, key, val) {
		m.grow()
		return true
	}
	return false
}

// LoadOrInsert returns the value stored for key and true, or stores val and returns it with false.
func (m *Map[K, V]) LoadOrInsert(key K, val V) (V, bool) {
	start, order := m.locateKey(key)
	actual, loaded := m.list.LoadOrAddFrom(start, order, key, val)
	if !loaded {
		m.grow()
	}
	return actual, loaded
}

func (m *Map[K, V]) Find(key K) (V, bool) {
	start, order := m.locateKey(key)
	return m.list.GetFrom(start, order, key)
}

func (m *Map[K, V]) Remove(key K) bool {
	start, order := m.locateKey(key)
	return m.list.RemoveFrom(start, order, key)
}

func (m *Map[K, V]) LoadAndRemove(key K) (V, bool) {
	start, order := m.locateKey(key)
	return m.list.LoadAndRemoveFrom(start, order, key)
}

// Range calls f on every entry until it returns false. Entries changed while Range runs may or may not be visited.
func (m *Map[K, V]) Range(f func(K, V) bool) {
	m.list.Range(func(_ uint64, key K, val V) bool {
		return f(key, val)
	})
}

func (m *Map[K, V]) Len() int {
	return m.list.Len()
}

// Buckets is the number of addressable buckets. Not all of them have a sentinel yet.
func (m *Map[K, V]) Buckets() int {
	return 1 << m.level.Load()
}

// Sentinels is the number of buckets with a linked sentinel, bucket 0 excluded.
func (m *Map[K, V]) Sentinels() int {
	return m.list.Sentinels()
}

// Stats of the hazard domain protecting the map's nodes.
func (m *Map[K, V]) Stats() Hazard.Stats {
	return m.list.Domain().Stats()
}

// Reclaim recycles every removed node nobody reads anymore.
func (m *Map[K, V]) Reclaim() {
	m.list.Domain().Reclaim()
}
