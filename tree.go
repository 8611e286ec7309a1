// Package bptree implements a generic B+-tree with two interchangeable
// storage backends: an in-memory backend where nodes live directly in
// process memory, and a persistent backend where every node is an opaque
// record in an external Store addressed by location handles.
//
// Both backends share the same search, insertion, and deletion algorithms,
// implemented once in this file against the small backend capability any
// storage strategy must provide: resolve a child reference to a node,
// persist a mutated node, install a new root, and discard a merged-away
// node.
package bptree

import "cmp"

// Tree is a B+-tree of a fixed degree, backed by a pluggable backend.
type Tree[K cmp.Ordered, V any] struct {
	degree int
	b      backend[K, V]
}

// Degree returns the maximum number of child pointers an internal node of
// this Tree can have.
func (t *Tree[K, V]) Degree() int { return t.degree }

// backend abstracts the four operations that differ between the in-memory
// and persistent strategies: resolving a child reference to a node,
// persisting a node, installing a root, and discarding a node. ctx carries
// the per-operation bookkeeping (parent map, and, for the persistent
// backend, the node-to-location map) that is discarded when the public
// operation that created it returns.
type backend[K cmp.Ordered, V any] interface {
	// root returns the tree's root node, or nil if the tree is empty.
	root(ctx *opCtx[K, V]) (*Node[K, V], error)
	// child resolves r to the Node it refers to, or nil if r is absent.
	child(ctx *opCtx[K, V], r ref) (*Node[K, V], error)
	// save persists n (new or mutated) and returns a ref by which a parent
	// node can reach it.
	save(ctx *opCtx[K, V], n *Node[K, V]) (ref, error)
	// setRoot installs n, a node not yet known to the backend, as the new
	// root.
	setRoot(ctx *opCtx[K, V], n *Node[K, V]) error
	// setRootRef installs an already-saved node, known only by its ref, as
	// the new root (the root-collapse case).
	setRootRef(ctx *opCtx[K, V], r ref) error
	// remove discards n, which has just been unlinked from its parent,
	// from the backing store.
	remove(ctx *opCtx[K, V], n *Node[K, V]) error
}

// opCtx carries the per-operation, discarded-on-return state threaded
// through a single Insert/Delete/search call: a map from node to parent
// (used by every backend) and a map from node to location (used only by the
// persistent backend, harmlessly unused otherwise).
type opCtx[K cmp.Ordered, V any] struct {
	parent    map[*Node[K, V]]*Node[K, V]
	locations map[*Node[K, V]]ref
}

func newOpCtx[K cmp.Ordered, V any]() *opCtx[K, V] {
	return &opCtx[K, V]{
		parent:    make(map[*Node[K, V]]*Node[K, V]),
		locations: make(map[*Node[K, V]]ref),
	}
}

// Root returns the root node of the tree, or nil if the tree is empty.
func (t *Tree[K, V]) Root() (*Node[K, V], error) {
	return t.b.root(newOpCtx[K, V]())
}

// Child returns the i-th child of the specified internal node, or nil if
// that slot is empty.
func (t *Tree[K, V]) Child(n *Node[K, V], i int) (*Node[K, V], error) {
	if i < 0 || i >= len(n.children) || n.children[i] == nil {
		return nil, nil
	}
	return t.b.child(newOpCtx[K, V](), n.children[i])
}

// Successor returns the leaf immediately following leaf n in key order, or
// nil if n is the last leaf.
func (t *Tree[K, V]) Successor(n *Node[K, V]) (*Node[K, V], error) {
	return t.b.child(newOpCtx[K, V](), n.successor())
}

// find descends from n to the leaf responsible for key k, recording the
// parent of every visited node along the way.
func (t *Tree[K, V]) find(ctx *opCtx[K, V], k K, n *Node[K, V]) (*Node[K, V], error) {
	if n.IsLeaf() {
		return n, nil
	}
	c, err := t.b.child(ctx, n.child(k))
	if err != nil {
		return nil, err
	}
	ctx.parent[c] = n
	return t.find(ctx, k, c)
}

// Insert inserts the specified key and pointer into the tree. It returns
// ErrInvalidInsertion, leaving the tree unchanged, if k is already present.
func (t *Tree[K, V]) Insert(k K, v V) error {
	ctx := newOpCtx[K, V]()
	root, err := t.b.root(ctx)
	if err != nil {
		return err
	}
	if root == nil {
		l := newLeaf[K, V](t.degree)
		l.insert(k, v)
		return t.b.setRoot(ctx, l)
	}
	l, err := t.find(ctx, k, root)
	if err != nil {
		return err
	}
	if l.contains(k) {
		return ErrInvalidInsertion
	}
	if !l.isFull() {
		l.insert(k, v)
		_, err := t.b.save(ctx, l)
		return err
	}
	return t.splitLeafAndInsert(ctx, l, k, v, root)
}

func (t *Tree[K, V]) splitLeafAndInsert(ctx *opCtx[K, V], l *Node[K, V], k K, v V, root *Node[K, V]) error {
	d := t.degree
	tmp := newLeaf[K, V](d + 1)
	tmp.appendRange(l, 0, d-2)
	tmp.insert(k, v)

	lp := newLeaf[K, V](d)
	lp.setSuccessor(l.successor())
	l.clear()
	m := ceilDiv(d, 2)
	l.appendRange(tmp, 0, m-1)
	lp.appendRange(tmp, m, d-1)

	lpRef, err := t.b.save(ctx, lp)
	if err != nil {
		return err
	}
	l.setSuccessor(lpRef)
	if _, err := t.b.save(ctx, l); err != nil {
		return err
	}
	return t.insertInParent(ctx, l, lp.Key(0), lp, root)
}

// insertInParent inserts separator k, between nodes n and np, into n's
// parent, splitting the parent (and recursing) if it is full, or creating a
// new root if n is currently the root.
func (t *Tree[K, V]) insertInParent(ctx *opCtx[K, V], n *Node[K, V], k K, np *Node[K, V], root *Node[K, V]) error {
	if n == root {
		nRef, err := t.b.save(ctx, n)
		if err != nil {
			return err
		}
		npRef, err := t.b.save(ctx, np)
		if err != nil {
			return err
		}
		r := newInternalWithChildren[K, V](t.degree, nRef, k, npRef)
		return t.b.setRoot(ctx, r)
	}
	par := ctx.parent[n]
	nRef, err := t.b.save(ctx, n)
	if err != nil {
		return err
	}
	npRef, err := t.b.save(ctx, np)
	if err != nil {
		return err
	}
	if !par.isFull() {
		par.insertAfter(k, npRef, nRef)
		_, err := t.b.save(ctx, par)
		return err
	}
	d := t.degree
	tmp := newInternal[K, V](d + 1)
	tmp.copyFrom(par, 0, par.KeyCount())
	tmp.insertAfter(k, npRef, nRef)

	par.clear()
	pp := newInternal[K, V](d)
	m := ceilDiv(d+1, 2)
	par.copyFrom(tmp, 0, m-1)
	pp.copyFrom(tmp, m, d)

	if _, err := t.b.save(ctx, pp); err != nil {
		return err
	}
	if _, err := t.b.save(ctx, par); err != nil {
		return err
	}
	return t.insertInParent(ctx, par, tmp.Key(m-1), pp, root)
}

// Delete removes the specified key and its corresponding pointer from the
// tree. It returns ErrInvalidDeletion, leaving the tree unchanged, if k is
// absent.
func (t *Tree[K, V]) Delete(k K) error {
	ctx := newOpCtx[K, V]()
	root, err := t.b.root(ctx)
	if err != nil {
		return err
	}
	if root == nil {
		return ErrInvalidDeletion
	}
	l, err := t.find(ctx, k, root)
	if err != nil {
		return err
	}
	if !l.contains(k) {
		return ErrInvalidDeletion
	}
	return t.deleteEntry(ctx, l, k, root)
}

func (t *Tree[K, V]) deleteEntry(ctx *opCtx[K, V], n *Node[K, V], k K, root *Node[K, V]) error {
	if n.IsLeaf() {
		n.removeKey(k)
	} else if err := n.removeSeparator(k); err != nil {
		return err
	}

	if n == root {
		if !n.IsLeaf() && n.ChildCount() == 1 {
			childRef := n.child0()
			if err := t.b.setRootRef(ctx, childRef); err != nil {
				return err
			}
			return t.b.remove(ctx, n)
		}
		_, err := t.b.save(ctx, n)
		return err
	}

	if n.isUnderUtilized() {
		par := ctx.parent[n]
		nPrimeRef, kPrime, leftBiased := par.siblingFor(k)
		nPrime, err := t.b.child(ctx, nPrimeRef)
		if err != nil {
			return err
		}
		ctx.parent[nPrime] = par

		if n.mergeable(nPrime) {
			if leftBiased {
				return t.merge(ctx, nPrime, kPrime, n, par, root)
			}
			return t.merge(ctx, n, kPrime, nPrime, par, root)
		}
		return t.redistribute(ctx, n, nPrime, kPrime, leftBiased, par)
	}

	_, err := t.b.save(ctx, n)
	return err
}

// merge absorbs right into left, using sep as the separator re-introduced
// for internal nodes, then removes the now-defunct separator and pointer
// to right from par and discards right.
func (t *Tree[K, V]) merge(ctx *opCtx[K, V], left *Node[K, V], sep K, right *Node[K, V], par *Node[K, V], root *Node[K, V]) error {
	if left.IsLeaf() {
		left.appendRange(right, 0, right.KeyCount()-1)
		left.setSuccessor(right.successor())
	} else {
		left.absorb(sep, right)
	}
	if _, err := t.b.save(ctx, left); err != nil {
		return err
	}
	if err := t.deleteEntry(ctx, par, sep, root); err != nil {
		return err
	}
	return t.b.remove(ctx, right)
}

// redistribute borrows one entry across the boundary between n (the
// under-utilized node) and its chosen sibling nPrime, per par's separator
// kPrime.
func (t *Tree[K, V]) redistribute(ctx *opCtx[K, V], n, nPrime *Node[K, V], kPrime K, leftBiased bool, par *Node[K, V]) error {
	if n.IsLeaf() {
		if leftBiased {
			m := nPrime.KeyCount() - 1
			n.insertAt(0, nPrime.Key(m), nPrime.Value(m))
			nPrime.removeAt(m)
			par.replaceKey(kPrime, n.Key(0))
		} else {
			n.insertAt(n.KeyCount(), nPrime.Key(0), nPrime.Value(0))
			nPrime.removeAt(0)
			par.replaceKey(kPrime, nPrime.Key(0))
		}
	} else {
		if leftBiased {
			m := nPrime.ChildCount() - 1
			n.insertPointerAt(kPrime, 0, nPrime.children[m], 0)
			newSep := nPrime.Key(m - 1)
			nPrime.deletePointerAt(m-1, m)
			par.replaceKey(kPrime, newSep)
		} else {
			newSep := nPrime.Key(0)
			childRef := nPrime.children[0]
			n.insertPointerAt(kPrime, n.KeyCount(), childRef, n.ChildCount())
			nPrime.deletePointerAt(0, 0)
			par.replaceKey(kPrime, newSep)
		}
	}
	if _, err := t.b.save(ctx, n); err != nil {
		return err
	}
	if _, err := t.b.save(ctx, nPrime); err != nil {
		return err
	}
	_, err := t.b.save(ctx, par)
	return err
}
