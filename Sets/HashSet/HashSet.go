package HashSet

import (
	"github.com/g-m-twostay/go-lockfree/Maps/SplitMap"
)

// HashSet is a lock-free set of comparable elements backed by a split-ordered map. All methods are safe for concurrent use.
type HashSet[E comparable] struct {
	m *SplitMap.Map[E, struct{}]
}

// New HashSet of type E. hash may be nil, in which case elements are hashed with hash/maphash.
func New[E comparable](hash func(E) uint64) *HashSet[E] {
	if hash == nil {
		return &HashSet[E]{SplitMap.New[E, struct{}]()}
	}
	return &HashSet[E]{SplitMap.New[E, struct{}](SplitMap.WithHasher[E, struct{}](hash))}
}

// Size of the set. It isn't exact while elements are being added or removed.
func (u *HashSet[E]) Size() uint {
	return uint(u.m.Len())
}

// Remove e from the set. Returns true if the removal is successful.
func (u *HashSet[E]) Remove(e E) bool {
	return u.m.Remove(e)
}

// Has e in the set. Returns true if e is present in the set.
func (u *HashSet[E]) Has(e E) bool {
	_, ok := u.m.Find(e)
	return ok
}

// Put e into the set. Returns true if e wasn't present.
func (u *HashSet[E]) Put(e E) bool {
	return u.m.Insert(e, struct{}{})
}

// Take an arbitrary element from the set without removing it. Returns zero value if the set is empty.
// Doesn't guarantee which element it will return.
func (u *HashSet[E]) Take() (e E) {
	u.m.Range(func(k E, _ struct{}) bool {
		e = k
		return false
	})
	return
}

// Range calls f on the elements until f returns false. Elements added or removed during the iteration may or may not be visited.
func (u *HashSet[E]) Range(f func(E) bool) {
	u.m.Range(func(k E, _ struct{}) bool {
		return f(k)
	})
}
