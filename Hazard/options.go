package Hazard

// Option configures a Domain while it is being created.
type Option[T any] interface {
	apply(d *Domain[T])
}

type slotsOption[T any] struct {
	n int
}

func (op slotsOption[T]) apply(d *Domain[T]) {
	d.slots = op.n
}

// WithSlots sets the number of hazard slots each Record owns. A list traversal needs 3 (pred, cur, succ), which is the default.
func WithSlots[T any](n int) Option[T] {
	return slotsOption[T]{n}
}

type deleterOption[T any] struct {
	free func(*T)
}

func (op deleterOption[T]) apply(d *Domain[T]) {
	d.deleter = op.free
}

// WithDeleter sets the function Retire runs on a node once no hazard slot holds it. The default does nothing and leaves the node to the garbage collector.
func WithDeleter[T any](free func(*T)) Option[T] {
	return deleterOption[T]{free}
}

type maxRecordsOption[T any] struct {
	n int
}

func (op maxRecordsOption[T]) apply(d *Domain[T]) {
	d.maxRecords = op.n
}

// WithMaxRecords caps the number of records, turning the domain into a fixed-capacity slot table. Once n records are in use TryAcquire fails with ErrRecordsExhausted. 0 means unbounded.
func WithMaxRecords[T any](n int) Option[T] {
	return maxRecordsOption[T]{n}
}

type scanFactorOption[T any] struct {
	f int
}

func (op scanFactorOption[T]) apply(d *Domain[T]) {
	d.scanFactor = op.f
}

// WithScanFactor makes Retire attempt a reclamation once more than f times the total number of slots are waiting. The default is 2.
func WithScanFactor[T any](f int) Option[T] {
	return scanFactorOption[T]{f}
}
