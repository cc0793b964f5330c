package internal

// Ring is a growable circular array queue. It isn't thread-safe.
type Ring[T any] struct {
	sz, head, tail uint
	content        []T
}

func MakeRing[T any](initCap uint) Ring[T] {
	return Ring[T]{content: make([]T, max(initCap, 1))}
}

func (r *Ring[T]) Empty() bool {
	return r.sz == 0
}

func (r *Ring[T]) Size() uint {
	return r.sz
}

func (r *Ring[T]) resize(newLen uint) {
	nc := make([]T, newLen)
	if r.sz > 0 {
		if r.head < r.tail {
			copy(nc, r.content[r.head:r.tail])
		} else {
			n := copy(nc, r.content[r.head:])
			copy(nc[n:], r.content[:r.tail])
		}
	}
	r.head, r.tail = 0, r.sz
	r.content = nc
}

func (r *Ring[T]) Push(item T) {
	if r.content == nil {
		r.content = make([]T, 4)
	} else if r.sz == uint(len(r.content)) {
		r.resize(r.sz*3/2 + 1)
	}
	r.content[r.tail] = item
	r.tail = (r.tail + 1) % uint(len(r.content))
	r.sz++
}

// Pop removes the oldest item. ok is false when r is empty.
func (r *Ring[T]) Pop() (item T, ok bool) {
	if r.sz == 0 {
		return item, false
	}
	item = r.content[r.head]
	r.content[r.head] = *new(T)
	r.head = (r.head + 1) % uint(len(r.content))
	r.sz--
	return item, true
}

// Drain moves every item into a new slice in FIFO order and empties r.
func (r *Ring[T]) Drain() []T {
	out := make([]T, 0, r.sz)
	for item, ok := r.Pop(); ok; item, ok = r.Pop() {
		out = append(out, item)
	}
	r.head, r.tail = 0, 0
	return out
}
