/*
Package Lists implements a lock-free sorted singly linked list with hazard pointer protected traversal.

Nodes are ordered by a uint64 order key; nodes with equal order are told apart by their key K. Removal is lazy: a node is first marked as deleted through the mark bit of its next pointer, then unlinked by a CAS on its predecessor. Any traversal that runs into a marked node may finish the unlink for the goroutine that marked it. Only the goroutine whose CAS unlinks a node retires it.

Removed nodes are recycled once the hazard domain proves no goroutine still reads them.

# Sentinels
Besides ordinary nodes the list holds sentinels: payload-free nodes that are never removed. A head sentinel of order 0 and a tail sentinel of order math.MaxUint64 always exist. More sentinels can be added with AddSentinel and used as starting points of the *From methods, which is how Maps/SplitMap builds its buckets. A sentinel must not share its order with an ordinary node.

# Linearizability
Add, Remove and Get are linearizable. Len and Range aren't: Len is a counter updated after the linearization point, Range may miss nodes that are added or removed while it runs.
*/
package Lists

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/g-m-twostay/go-lockfree/Hazard"
)

const listSlots = 3 //pred, cur, next.

type List[K comparable, V any] struct {
	head, tail *Node[K, V]
	size       atomic.Int64
	domain     *Hazard.Domain[Node[K, V]]
	pool       sync.Pool
}

// Option configures a List while it is being created.
type Option[K comparable, V any] interface {
	apply(l *List[K, V])
}

type domainOption[K comparable, V any] struct {
	d *Hazard.Domain[Node[K, V]]
}

func (op domainOption[K, V]) apply(l *List[K, V]) {
	l.domain = op.d
}

// WithDomain makes the list use d instead of a private domain. d needs at least 3 slots per record.
func WithDomain[K comparable, V any](d *Hazard.Domain[Node[K, V]]) Option[K, V] {
	return domainOption[K, V]{d}
}

func New[K comparable, V any](opts ...Option[K, V]) *List[K, V] {
	l := &List[K, V]{}
	for _, op := range opts {
		op.apply(l)
	}
	if l.domain == nil {
		l.domain = Hazard.NewDomain[Node[K, V]](Hazard.WithSlots[Node[K, V]](listSlots))
	} else if l.domain.SlotsPerRecord() < listSlots {
		panic("Lists: the hazard domain needs at least 3 slots per record")
	}
	l.tail = &Node[K, V]{order: math.MaxUint64, sentinel: true}
	l.head = &Node[K, V]{order: 0, sentinel: true}
	l.head.next.Store(l.tail, false)
	return l
}

// Domain is the hazard domain protecting the list's nodes.
func (l *List[K, V]) Domain() *Hazard.Domain[Node[K, V]] {
	return l.domain
}

// Head is the order 0 sentinel.
func (l *List[K, V]) Head() *Node[K, V] {
	return l.head
}

// Len isn't linearizable.
func (l *List[K, V]) Len() int {
	return int(l.size.Load())
}

func (l *List[K, V]) alloc(order uint64, key K, val V, sentinel bool) *Node[K, V] {
	n, _ := l.pool.Get().(*Node[K, V])
	if n == nil {
		n = new(Node[K, V])
	}
	n.order, n.key, n.val, n.sentinel = order, key, val, sentinel
	return n
}

// recycle is the deleter of retired nodes. It only runs on nodes no goroutine can reach or has protected.
func (l *List[K, V]) recycle(n *Node[K, V]) {
	var zeroK K
	var zeroV V
	n.key, n.val = zeroK, zeroV
	n.next.Store(nil, false)
	l.pool.Put(n)
}

// cursor is a window of 2 consecutive nodes, each protected by one of the three slots. The third slot is the scratch slot for the next node.
type cursor[K comparable, V any] struct {
	pred, cur             *Node[K, V]
	hpPred, hpCur, hpNext *Hazard.Slot[Node[K, V]]
}

func newCursor[K comparable, V any](r *Hazard.Record[Node[K, V]]) cursor[K, V] {
	return cursor[K, V]{hpPred: r.Slot(0), hpCur: r.Slot(1), hpNext: r.Slot(2)}
}

// reset positions the cursor at start, which must be a sentinel. Sentinels are never freed, so start itself needs no protection.
func (c *cursor[K, V]) reset(start *Node[K, V]) {
	c.pred = start
	c.hpPred.Clear()
	c.cur, _ = c.hpCur.ProtectMarked(&start.next)
}

// load protects the successor of cur and checks the window is still intact: pred is unmarked and still points to cur. Only then is next known to have been reachable after it was published.
func (c *cursor[K, V]) load() (next *Node[K, V], marked, ok bool) {
	next, marked = c.hpNext.ProtectMarked(&c.cur.next)
	if p, m := c.pred.next.Load(); p != c.cur || m {
		return nil, false, false
	}
	return next, marked, true
}

// advance moves the window one node forward.
func (c *cursor[K, V]) advance(next *Node[K, V]) {
	c.pred, c.cur = c.cur, next
	c.hpPred, c.hpCur, c.hpNext = c.hpCur, c.hpNext, c.hpPred
}

// skip replaces cur with next after cur has been unlinked.
func (c *cursor[K, V]) skip(next *Node[K, V]) {
	c.cur = next
	c.hpCur, c.hpNext = c.hpNext, c.hpCur
}

// find positions c so that c.cur is the first node at which a search for (order, key) stops, and c.pred is the node before it. Marked nodes met on the way are unlinked and retired. Every failed validation or CAS restarts from start.
func (l *List[K, V]) find(r *Hazard.Record[Node[K, V]], c *cursor[K, V], start *Node[K, V], order uint64, key K, sentinel bool) {
retry:
	c.reset(start)
	for {
		next, marked, ok := c.load()
		if !ok {
			goto retry
		}
		if marked {
			if !c.pred.next.CompareAndSwap(c.cur, next, false, false) {
				goto retry
			}
			r.RetireFunc(c.cur, l.recycle)
			c.skip(next)
			continue
		}
		if c.cur.stopsAt(order, key, sentinel) {
			return
		}
		c.advance(next)
	}
}

// insert links a new node for (order, key) after start unless an equal node is already there, in which case that node's value is returned.
func (l *List[K, V]) insert(start *Node[K, V], order uint64, key K, val V, sentinel bool) (n *Node[K, V], actual V, loaded bool) {
	if start.sentinel && start.order == order && sentinel {
		return start, actual, true
	}
	r := l.domain.Acquire()
	defer r.Release()
	c := newCursor(r)
	for {
		l.find(r, &c, start, order, key, sentinel)
		if c.cur.matches(order, key, sentinel) {
			if n != nil {
				l.recycle(n) //never linked, nobody saw it.
			}
			return c.cur, c.cur.val, true
		}
		if n == nil {
			n = l.alloc(order, key, val, sentinel)
		}
		n.next.Store(c.cur, false)
		if c.pred.next.CompareAndSwap(c.cur, n, false, false) {
			return n, val, false
		}
	}
}

// AddFrom is Add starting the search at the sentinel start, whose order must not exceed order.
func (l *List[K, V]) AddFrom(start *Node[K, V], order uint64, key K, val V) bool {
	_, loaded := l.LoadOrAddFrom(start, order, key, val)
	return !loaded
}

// LoadOrAddFrom is LoadOrAdd starting the search at the sentinel start.
func (l *List[K, V]) LoadOrAddFrom(start *Node[K, V], order uint64, key K, val V) (V, bool) {
	_, actual, loaded := l.insert(start, order, key, val, false)
	if !loaded {
		l.size.Add(1)
	}
	return actual, loaded
}

// Add inserts (key, val) at order. It fails if a node with the same order and key is present: the first writer wins.
func (l *List[K, V]) Add(order uint64, key K, val V) bool {
	return l.AddFrom(l.head, order, key, val)
}

// LoadOrAdd returns the value stored for (order, key) and true, or inserts val and returns it with false.
func (l *List[K, V]) LoadOrAdd(order uint64, key K, val V) (V, bool) {
	return l.LoadOrAddFrom(l.head, order, key, val)
}

// AddSentinel returns the sentinel of the given order after start, linking a new one if there isn't one yet. Concurrent calls for the same order all return the same node; the candidates of the losers are never linked.
func (l *List[K, V]) AddSentinel(start *Node[K, V], order uint64) *Node[K, V] {
	var zeroK K
	var zeroV V
	n, _, _ := l.insert(start, order, zeroK, zeroV, true)
	return n
}

// GetFrom is Get starting the search at the sentinel start.
func (l *List[K, V]) GetFrom(start *Node[K, V], order uint64, key K) (val V, ok bool) {
	r := l.domain.Acquire()
	defer r.Release()
	c := newCursor(r)
retry:
	c.reset(start)
	for {
		next, marked, valid := c.load()
		if !valid {
			goto retry
		}
		if marked {
			// a removal is half done on our path; help it and search again.
			l.find(r, &c, start, order, key, false)
			break
		}
		if c.cur.stopsAt(order, key, false) {
			break
		}
		c.advance(next)
	}
	if c.cur.matches(order, key, false) {
		return c.cur.val, true
	}
	return val, false
}

// Get returns the value stored for (order, key). It doesn't write shared memory unless it meets a node whose removal is still in progress.
func (l *List[K, V]) Get(order uint64, key K) (V, bool) {
	return l.GetFrom(l.head, order, key)
}

// LoadAndRemoveFrom is LoadAndRemove starting the search at the sentinel start.
func (l *List[K, V]) LoadAndRemoveFrom(start *Node[K, V], order uint64, key K) (val V, ok bool) {
	r := l.domain.Acquire()
	defer r.Release()
	c := newCursor(r)
	for {
		l.find(r, &c, start, order, key, false)
		if !c.cur.matches(order, key, false) {
			return val, false
		}
		next, marked := c.cur.next.Load()
		if marked {
			continue //someone else is removing it.
		}
		if !c.cur.next.CompareAndSwap(next, next, false, true) {
			continue
		}
		l.size.Add(-1)
		val = c.cur.val
		if c.pred.next.CompareAndSwap(c.cur, next, false, false) {
			r.RetireFunc(c.cur, l.recycle)
		} else {
			l.find(r, &c, start, order, key, false) //the unlink raced, let find finish it.
		}
		return val, true
	}
}

// RemoveFrom is Remove starting the search at the sentinel start.
func (l *List[K, V]) RemoveFrom(start *Node[K, V], order uint64, key K) bool {
	_, ok := l.LoadAndRemoveFrom(start, order, key)
	return ok
}

// Remove deletes (order, key). It reports success as soon as the node is logically deleted; the physical unlink may be finished by another goroutine.
func (l *List[K, V]) Remove(order uint64, key K) bool {
	return l.RemoveFrom(l.head, order, key)
}

// LoadAndRemove is Remove that also returns the removed value.
func (l *List[K, V]) LoadAndRemove(order uint64, key K) (V, bool) {
	return l.LoadAndRemoveFrom(l.head, order, key)
}

// walk calls f on every unmarked node between head and tail, sentinels included, in order. n is protected for the duration of the call. When the window breaks, walk searches again for the last node it visited and carries on after it.
func (l *List[K, V]) walk(f func(n *Node[K, V]) bool) {
	r := l.domain.Acquire()
	defer r.Release()
	c := newCursor(r)
	c.reset(l.head)
	var (
		lastOrder    uint64
		lastKey      K
		lastSentinel = true
		revisit      bool
	)
	for c.cur != l.tail {
		next, marked, ok := c.load()
		if !ok || marked {
			l.find(r, &c, l.head, lastOrder, lastKey, lastSentinel)
			revisit = c.cur.matches(lastOrder, lastKey, lastSentinel)
			continue
		}
		if revisit {
			revisit = false
		} else {
			if !f(c.cur) {
				return
			}
			lastOrder, lastKey, lastSentinel = c.cur.order, c.cur.key, c.cur.sentinel
		}
		c.advance(next)
	}
}

// Range calls yield on every ordinary node in order until yield returns false. It isn't a snapshot: nodes changed concurrently may or may not be seen.
func (l *List[K, V]) Range(yield func(order uint64, key K, val V) bool) {
	l.walk(func(n *Node[K, V]) bool {
		return n.sentinel || yield(n.order, n.key, n.val)
	})
}

// Sentinels counts the sentinels between head and tail.
func (l *List[K, V]) Sentinels() int {
	cnt := 0
	l.walk(func(n *Node[K, V]) bool {
		if n.sentinel {
			cnt++
		}
		return true
	})
	return cnt
}
