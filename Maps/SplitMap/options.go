package SplitMap

// Option configures a Map while it is being created.
type Option[K comparable, V any] interface {
	apply(m *Map[K, V])
}

type hasherOption[K comparable, V any] func(K) uint64

func (op hasherOption[K, V]) apply(m *Map[K, V]) {
	m.hasher = op
}

// WithHasher replaces the default maphash based hash function. Only the low 62 bits of the hash are used.
func WithHasher[K comparable, V any](hasher func(K) uint64) Option[K, V] {
	return hasherOption[K, V](hasher)
}

type loadFactorOption[K comparable, V any] int

func (op loadFactorOption[K, V]) apply(m *Map[K, V]) {
	m.loadFactor = int64(op)
}

// WithLoadFactor sets the average bucket size above which the number of buckets doubles. The default is 2.
func WithLoadFactor[K comparable, V any](f int) Option[K, V] {
	return loadFactorOption[K, V](f)
}

type levelOption[K comparable, V any] struct {
	initial bool
	level   uint32
}

func (op levelOption[K, V]) apply(m *Map[K, V]) {
	if op.initial {
		m.level.Store(op.level)
	} else {
		m.maxLevel = op.level
	}
}

// WithMaxLevel caps the number of buckets at 2^level. The default is 32, the hard limit 62.
func WithMaxLevel[K comparable, V any](level uint) Option[K, V] {
	return levelOption[K, V]{false, uint32(level)}
}

// WithInitialLevel starts the map with 2^level addressable buckets. Their sentinels are still created lazily.
func WithInitialLevel[K comparable, V any](level uint) Option[K, V] {
	return levelOption[K, V]{true, uint32(level)}
}
