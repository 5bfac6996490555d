// Package bimap provides a bidirectional multi-valued relation.
//
// A MultiBiMap holds edges (left, right). Every left key maps to the set of
// right values it is related to and every right key maps back to its set of
// lefts; the two directions are always exact inverses:
//
//	r ∈ GetByLeft(l)  ⟺  l ∈ GetByRight(r)
//
// Keys are interned once per side and shared by both directions, so a path
// that appears in a thousand edges is stored a single time.
//
// Removing the last edge of a key deletes that key entirely; no key is left
// pointing at an empty set unless it was registered explicitly with
// InsertLeft or InsertRight.
//
// A MultiBiMap is not safe for concurrent use.
package bimap

import (
	"cmp"
	"slices"
)

type set map[handle]struct{}

// MultiBiMap relates keys of type L to keys of type R in both directions.
type MultiBiMap[L, R cmp.Ordered] struct {
	lefts  arena[L]
	rights arena[R]

	leftToRight map[handle]set
	rightToLeft map[handle]set
	edges       int
}

// New returns an empty MultiBiMap.
func New[L, R cmp.Ordered]() *MultiBiMap[L, R] {
	return &MultiBiMap[L, R]{
		lefts:       newArena[L](),
		rights:      newArena[R](),
		leftToRight: make(map[handle]set),
		rightToLeft: make(map[handle]set),
	}
}

// Insert relates left to right. It is idempotent. It returns every left now
// related to right and every right now related to left, both in key order.
func (m *MultiBiMap[L, R]) Insert(left L, right R) ([]L, []R) {
	lh := m.ensureLeft(left)
	rh := m.ensureRight(right)

	rights := m.leftToRight[lh]
	if _, ok := rights[rh]; !ok {
		rights[rh] = struct{}{}
		m.rights.retain(rh)

		m.rightToLeft[rh][lh] = struct{}{}
		m.lefts.retain(lh)

		m.edges++
	}

	return m.leftsOf(rh), m.rightsOf(lh)
}

// InsertLeft registers left with no edges if it is not already present.
func (m *MultiBiMap[L, R]) InsertLeft(left L) {
	m.ensureLeft(left)
}

// InsertRight registers right with no edges if it is not already present.
func (m *MultiBiMap[L, R]) InsertRight(right R) {
	m.ensureRight(right)
}

// RemoveByLeft deletes left and every edge touching it. Rights that lose
// their last left are deleted too.
func (m *MultiBiMap[L, R]) RemoveByLeft(left L) {
	lh, ok := m.lefts.lookup(left)
	if !ok {
		return
	}
	rights, ok := m.leftToRight[lh]
	if !ok {
		return
	}

	for rh := range rights {
		lefts := m.rightToLeft[rh]
		delete(lefts, lh)
		m.lefts.release(lh)
		if len(lefts) == 0 {
			delete(m.rightToLeft, rh)
			m.rights.release(rh)
		}
		m.rights.release(rh)
		m.edges--
	}

	delete(m.leftToRight, lh)
	m.lefts.release(lh)
}

// RemoveByRight deletes right and every edge touching it. Lefts that lose
// their last right are deleted too.
func (m *MultiBiMap[L, R]) RemoveByRight(right R) {
	rh, ok := m.rights.lookup(right)
	if !ok {
		return
	}
	lefts, ok := m.rightToLeft[rh]
	if !ok {
		return
	}

	for lh := range lefts {
		rights := m.leftToRight[lh]
		delete(rights, rh)
		m.rights.release(rh)
		if len(rights) == 0 {
			delete(m.leftToRight, lh)
			m.lefts.release(lh)
		}
		m.lefts.release(lh)
		m.edges--
	}

	delete(m.rightToLeft, rh)
	m.rights.release(rh)
}

// GetByLeft returns the rights related to left in key order. The boolean is
// false when left is not present. The returned slice is a copy.
func (m *MultiBiMap[L, R]) GetByLeft(left L) ([]R, bool) {
	lh, ok := m.lefts.lookup(left)
	if !ok {
		return nil, false
	}
	if _, ok := m.leftToRight[lh]; !ok {
		return nil, false
	}
	return m.rightsOf(lh), true
}

// GetByRight returns the lefts related to right in key order. The boolean is
// false when right is not present. The returned slice is a copy.
func (m *MultiBiMap[L, R]) GetByRight(right R) ([]L, bool) {
	rh, ok := m.rights.lookup(right)
	if !ok {
		return nil, false
	}
	if _, ok := m.rightToLeft[rh]; !ok {
		return nil, false
	}
	return m.leftsOf(rh), true
}

// Lefts returns every left key in order.
func (m *MultiBiMap[L, R]) Lefts() []L {
	out := make([]L, 0, len(m.leftToRight))
	for lh := range m.leftToRight {
		out = append(out, m.lefts.key(lh))
	}
	slices.Sort(out)
	return out
}

// Rights returns every right key in order.
func (m *MultiBiMap[L, R]) Rights() []R {
	out := make([]R, 0, len(m.rightToLeft))
	for rh := range m.rightToLeft {
		out = append(out, m.rights.key(rh))
	}
	slices.Sort(out)
	return out
}

// Len returns the number of edges.
func (m *MultiBiMap[L, R]) Len() int {
	return m.edges
}

func (m *MultiBiMap[L, R]) ensureLeft(left L) handle {
	if lh, ok := m.lefts.lookup(left); ok {
		if _, present := m.leftToRight[lh]; present {
			return lh
		}
	}
	lh := m.lefts.acquire(left)
	m.leftToRight[lh] = make(set)
	return lh
}

func (m *MultiBiMap[L, R]) ensureRight(right R) handle {
	if rh, ok := m.rights.lookup(right); ok {
		if _, present := m.rightToLeft[rh]; present {
			return rh
		}
	}
	rh := m.rights.acquire(right)
	m.rightToLeft[rh] = make(set)
	return rh
}

func (m *MultiBiMap[L, R]) rightsOf(lh handle) []R {
	rights := m.leftToRight[lh]
	out := make([]R, 0, len(rights))
	for rh := range rights {
		out = append(out, m.rights.key(rh))
	}
	slices.Sort(out)
	return out
}

func (m *MultiBiMap[L, R]) leftsOf(rh handle) []L {
	lefts := m.rightToLeft[rh]
	out := make([]L, 0, len(lefts))
	for lh := range lefts {
		out = append(out, m.lefts.key(lh))
	}
	slices.Sort(out)
	return out
}
