// Package collect holds small generic container types shared across the
// generator: flyweight pools that hand out stable integer handles, and
// string-keyed sets used by the editor's reachability passes.
package collect

// Pool is a flat, append-only store of flyweights. Handles are indices into
// the backing slice and stay valid for the lifetime of the Pool; nothing is
// ever removed individually; the whole pool is dropped at once by its owner.
type Pool[T any] struct {
	items []T
}

// NewPool returns an empty Pool.
func NewPool[T any]() *Pool[T] {
	return &Pool[T]{}
}

// Add appends an item and returns its handle.
func (p *Pool[T]) Add(item T) int {
	p.items = append(p.items, item)
	return len(p.items) - 1
}

// Get returns the item at handle h. It panics on an out-of-range handle;
// callers own the invariant that handles they hold were returned by Add.
func (p *Pool[T]) Get(h int) T {
	return p.items[h]
}

// Set overwrites the item at handle h in place.
func (p *Pool[T]) Set(h int, item T) {
	p.items[h] = item
}

// Len returns the number of items in the pool.
func (p *Pool[T]) Len() int {
	return len(p.items)
}

// All returns the backing slice. Callers must not retain it past the next
// mutating call to the Pool.
func (p *Pool[T]) All() []T {
	return p.items
}

// Find returns the handle of the first item for which pred returns true, and
// true, or (0, false) if none match.
func (p *Pool[T]) Find(pred func(T) bool) (int, bool) {
	for i := range p.items {
		if pred(p.items[i]) {
			return i, true
		}
	}
	return 0, false
}
