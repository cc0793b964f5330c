package Queues

import "github.com/g-m-twostay/go-lockfree/Hazard"

type config struct {
	maxRecords, scanFactor int
}

// Option configures an MSQueue while it is being created. The settings go to the queue's hazard domain.
type Option interface {
	apply(c *config)
}

type maxRecordsOption int

func (op maxRecordsOption) apply(c *config) {
	c.maxRecords = int(op)
}

// WithMaxRecords caps the number of goroutines operating on the queue at the same time. An operation beyond the cap panics.
func WithMaxRecords(n int) Option {
	return maxRecordsOption(n)
}

type scanFactorOption int

func (op scanFactorOption) apply(c *config) {
	c.scanFactor = int(op)
}

// WithScanFactor, see Hazard.WithScanFactor.
func WithScanFactor(f int) Option {
	return scanFactorOption(f)
}

func newDomain[T any](opts []Option) *Hazard.Domain[node[T]] {
	var c config
	for _, op := range opts {
		op.apply(&c)
	}
	return Hazard.NewDomain[node[T]](Hazard.WithSlots[node[T]](2),
		Hazard.WithMaxRecords[node[T]](c.maxRecords), Hazard.WithScanFactor[node[T]](c.scanFactor))
}
