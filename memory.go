package bptree

import "cmp"

// inMemory is the in-memory backend: nodes are ordinary Go values linked by
// direct pointers, so save/remove are no-ops — mutating a node already
// mutates the tree.
type inMemory[K cmp.Ordered, V any] struct {
	root0 *Node[K, V]
}

// NewInMemory creates an empty B+-tree of the given degree backed directly
// by in-process node pointers. degree must be at least 3.
func NewInMemory[K cmp.Ordered, V any](degree int) *Tree[K, V] {
	if degree < 3 {
		panic("bptree: degree must be at least 3")
	}
	return &Tree[K, V]{degree: degree, b: &inMemory[K, V]{}}
}

func (m *inMemory[K, V]) root(ctx *opCtx[K, V]) (*Node[K, V], error) {
	return m.root0, nil
}

func (m *inMemory[K, V]) child(ctx *opCtx[K, V], r ref) (*Node[K, V], error) {
	if r == nil {
		return nil, nil
	}
	return r.(*Node[K, V]), nil
}

func (m *inMemory[K, V]) save(ctx *opCtx[K, V], n *Node[K, V]) (ref, error) {
	return n, nil
}

func (m *inMemory[K, V]) setRoot(ctx *opCtx[K, V], n *Node[K, V]) error {
	m.root0 = n
	return nil
}

func (m *inMemory[K, V]) setRootRef(ctx *opCtx[K, V], r ref) error {
	if r == nil {
		m.root0 = nil
		return nil
	}
	m.root0 = r.(*Node[K, V])
	return nil
}

func (m *inMemory[K, V]) remove(ctx *opCtx[K, V], n *Node[K, V]) error {
	return nil
}
