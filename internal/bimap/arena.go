package bimap

import "cmp"

// handle identifies an interned key inside an arena.
type handle uint32

// arena stores each distinct key once and hands out integer handles to it.
// Handles are reference counted: every map entry and every set membership
// holding a handle owns one reference. A handle whose count drops to zero is
// recycled and its key forgotten.
type arena[K cmp.Ordered] struct {
	keys  []K
	refs  []int
	index map[K]handle
	free  []handle
}

func newArena[K cmp.Ordered]() arena[K] {
	return arena[K]{index: make(map[K]handle)}
}

// lookup returns the handle of k without taking a reference.
func (a *arena[K]) lookup(k K) (handle, bool) {
	h, ok := a.index[k]
	return h, ok
}

// acquire interns k if needed and takes one reference to it.
func (a *arena[K]) acquire(k K) handle {
	if h, ok := a.index[k]; ok {
		a.refs[h]++
		return h
	}

	var h handle
	if n := len(a.free); n > 0 {
		h = a.free[n-1]
		a.free = a.free[:n-1]
		a.keys[h] = k
		a.refs[h] = 1
	} else {
		h = handle(len(a.keys))
		a.keys = append(a.keys, k)
		a.refs = append(a.refs, 1)
	}
	a.index[k] = h
	return h
}

// retain takes one more reference to an existing handle.
func (a *arena[K]) retain(h handle) {
	a.refs[h]++
}

// release drops one reference; the key is forgotten when none remain.
func (a *arena[K]) release(h handle) {
	a.refs[h]--
	if a.refs[h] > 0 {
		return
	}

	var zero K
	delete(a.index, a.keys[h])
	a.keys[h] = zero
	a.refs[h] = 0
	a.free = append(a.free, h)
}

func (a *arena[K]) key(h handle) K {
	return a.keys[h]
}

// live returns the number of interned keys.
func (a *arena[K]) live() int {
	return len(a.index)
}
