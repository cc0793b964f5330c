package Lists

import (
	"fmt"

	Go_Lockfree "github.com/g-m-twostay/go-lockfree"
)

// Node is an element of a List. Sentinel nodes carry no payload; they mark bucket boundaries and are never removed, so a *Node obtained from Head or AddSentinel may be kept and used without hazard protection.
type Node[K comparable, V any] struct {
	order    uint64
	key      K
	val      V
	sentinel bool
	next     Go_Lockfree.MarkedPointer[Node[K, V]] //marked means this node is logically deleted.
}

// Order of the node in the list.
func (n *Node[K, V]) Order() uint64 {
	return n.order
}

func (n *Node[K, V]) IsSentinel() bool {
	return n.sentinel
}

// stopsAt tells whether a search for (order, key) ends at n: n is the first node not ordered before the searched one.
func (n *Node[K, V]) stopsAt(order uint64, key K, sentinel bool) bool {
	if n.order != order {
		return n.order > order
	}
	return sentinel || n.sentinel || n.key == key
}

// matches tells whether n is the node searched by (order, key).
func (n *Node[K, V]) matches(order uint64, key K, sentinel bool) bool {
	if n.order != order || n.sentinel != sentinel {
		return false
	}
	return sentinel || n.key == key
}

func (n *Node[K, V]) String() string {
	next, del := n.next.Load()
	if n.sentinel {
		return fmt.Sprintf("sentinel: %#x; deleted: %t; next: %p", n.order, del, next)
	}
	return fmt.Sprintf("key: %#v; val: %#v; order: %#x; deleted: %t; next: %p", n.key, n.val, n.order, del, next)
}
