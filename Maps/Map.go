/*
Package Maps holds the interface shared by the concurrent maps. The implementation lives in SplitMap.
*/
package Maps

// Map is a concurrent map. All methods are safe for concurrent use; Len and Range aren't linearizable.
type Map[K comparable, V any] interface {
	Insert(K, V) bool
	LoadOrInsert(K, V) (V, bool)
	Find(K) (V, bool)
	Remove(K) bool
	LoadAndRemove(K) (V, bool)
	Range(func(K, V) bool)
	Len() int
}
