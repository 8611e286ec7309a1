package bptree

import (
	"cmp"
	"fmt"
	"slices"
)

// kind tags the two node variants described in the data model: a Node is
// either a leaf, holding key/payload pairs plus a successor link, or an
// internal node, holding separator keys and child pointers.
type kind uint8

const (
	leafKind kind = iota
	internalKind
)

// Node is a single B+-tree node. Leaves and internal nodes share this type
// and differ only in how the pointer slots (values vs. children) and the
// successor field are used, matching the single tagged-variant strategy
// described for heterogeneous node variants.
//
// K is the ordered key type. V is the opaque payload pointer type stored by
// leaves; it is never interpreted by the tree. Internal child references and
// a leaf's successor link are stored as the unexported ref type, an opaque
// any that only a backend knows how to dereference (a direct *Node for the
// in-memory backend, a location for the persistent backend).
type Node[K cmp.Ordered, V any] struct {
	kind   kind
	degree int

	keys []K

	// leaf-only
	values []V
	succ   ref

	// internal-only
	children []ref
}

// ref is an opaque reference to a child node (internal nodes) or to the
// next leaf (leaf successor link). Its concrete dynamic type is a backend
// concern: *Node[K, V] for the in-memory backend, a location value for the
// persistent backend.
type ref = any

func newLeaf[K cmp.Ordered, V any](degree int) *Node[K, V] {
	return &Node[K, V]{
		kind:   leafKind,
		degree: degree,
		keys:   make([]K, 0, degree-1),
		values: make([]V, 0, degree-1),
	}
}

func newInternal[K cmp.Ordered, V any](degree int) *Node[K, V] {
	return &Node[K, V]{
		kind:     internalKind,
		degree:   degree,
		keys:     make([]K, 0, degree-1),
		children: make([]ref, 0, degree),
	}
}

// newInternalWithChildren builds the new root created when a split
// propagates past the former root: a single separator key between two
// children.
func newInternalWithChildren[K cmp.Ordered, V any](degree int, left ref, key K, right ref) *Node[K, V] {
	n := newInternal[K, V](degree)
	n.keys = append(n.keys, key)
	n.children = append(n.children, left, right)
	return n
}

// IsLeaf reports whether n is a leaf node.
func (n *Node[K, V]) IsLeaf() bool { return n.kind == leafKind }

// KeyCount returns the number of keys stored in n.
func (n *Node[K, V]) KeyCount() int { return len(n.keys) }

// Key returns the i-th key of n, in ascending order.
func (n *Node[K, V]) Key(i int) K { return n.keys[i] }

// Value returns the i-th payload pointer of a leaf node.
func (n *Node[K, V]) Value(i int) V { return n.values[i] }

// ChildCount returns the number of child pointers of an internal node
// (KeyCount()+1).
func (n *Node[K, V]) ChildCount() int { return len(n.children) }

// KeyString renders the i-th key in its default textual form, for display
// by a visualizer that knows nothing about K.
func (n *Node[K, V]) KeyString(i int) string { return fmt.Sprint(n.keys[i]) }

// isFull reports whether n has no room for one more entry: keyCount == d-1
// for both leaves and internal nodes (the latter having exactly d children
// at that point).
func (n *Node[K, V]) isFull() bool {
	return len(n.keys) == n.degree-1
}

// isUnderUtilized reports whether n holds strictly fewer entries than the
// minimum occupancy: ceil((d-1)/2) keys for a leaf, ceil(d/2) children for
// an internal node. The leaf minimum is stated in terms of the d-1 entry
// capacity rather than d itself: splitting a full leaf of odd degree leaves
// one half with floor(d/2) entries, so any larger minimum would be violated
// by every split.
func (n *Node[K, V]) isUnderUtilized() bool {
	if n.IsLeaf() {
		return len(n.keys) < ceilDiv(n.degree-1, 2)
	}
	return n.ChildCount() < ceilDiv(n.degree, 2)
}

// mergeable reports whether n and other's combined contents fit within one
// node of degree d. Leaves merge entry lists directly, so the limit is the
// d-1 key capacity. An internal merge re-introduces one separator from the
// parent between the two key lists, so the constraint is on children: the
// combined child count must fit within d, which bounds the merged key count
// at d-1.
func (n *Node[K, V]) mergeable(other *Node[K, V]) bool {
	if n.IsLeaf() {
		return len(n.keys)+len(other.keys) <= n.degree-1
	}
	return n.ChildCount()+other.ChildCount() <= n.degree
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// --- leaf operations ---

// search returns the index at which k is found, or the insertion point if
// it is absent.
func (n *Node[K, V]) search(k K) (int, bool) {
	return slices.BinarySearch(n.keys, k)
}

// contains reports whether k is stored in this leaf.
func (n *Node[K, V]) contains(k K) bool {
	_, found := n.search(k)
	return found
}

// insert places (k, v) in sorted order. Precondition: n is not full and k
// is absent (the tree engine splits before calling this).
func (n *Node[K, V]) insert(k K, v V) {
	i, _ := n.search(k)
	n.insertAt(i, k, v)
}

// insertAt inserts (k, v) at an explicit index, used by redistribution to
// move an entry to the front of a sibling.
func (n *Node[K, V]) insertAt(i int, k K, v V) {
	n.keys = slices.Insert(n.keys, i, k)
	n.values = slices.Insert(n.values, i, v)
}

// removeKey removes the entry for k. Precondition: k is present.
func (n *Node[K, V]) removeKey(k K) {
	i, found := n.search(k)
	if !found {
		return
	}
	n.removeAt(i)
}

// removeAt removes the entry at an explicit index.
func (n *Node[K, V]) removeAt(i int) {
	n.keys = slices.Delete(n.keys, i, i+1)
	n.values = slices.Delete(n.values, i, i+1)
}

// successor returns the ref to the next leaf in key order, or nil.
func (n *Node[K, V]) successor() ref { return n.succ }

// setSuccessor sets the ref to the next leaf in key order.
func (n *Node[K, V]) setSuccessor(r ref) { n.succ = r }

// appendRange copies key/payload pairs src[begin..end] (inclusive) onto the
// tail of a leaf.
func (n *Node[K, V]) appendRange(src *Node[K, V], begin, end int) {
	n.keys = append(n.keys, src.keys[begin:end+1]...)
	n.values = append(n.values, src.values[begin:end+1]...)
}

// clear resets n to empty.
func (n *Node[K, V]) clear() {
	n.keys = n.keys[:0]
	if n.IsLeaf() {
		n.values = n.values[:0]
		n.succ = nil
	} else {
		n.children = n.children[:0]
	}
}

// --- internal operations ---

// childIndex returns the index of the child pointer responsible for key k:
// keys[i-1] <= k < keys[i]. Equality on a separator routes to the right
// child (pointer i+1); this is one of two equally correct choices (the tree
// disallows duplicate keys, so which side equality routes to never affects
// correctness) and is documented here as the one this implementation makes.
func (n *Node[K, V]) childIndex(k K) int {
	i := 0
	for ; i < len(n.keys); i++ {
		if k < n.keys[i] {
			return i
		}
		if k == n.keys[i] {
			return i + 1
		}
	}
	return i
}

// child returns the ref responsible for key k.
func (n *Node[K, V]) child(k K) ref {
	return n.children[n.childIndex(k)]
}

// insertAfter inserts separator k and pointer p immediately to the right of
// the existing pointer after.
func (n *Node[K, V]) insertAfter(k K, p ref, after ref) {
	idx := -1
	for i, c := range n.children {
		if c == after {
			idx = i
			break
		}
	}
	n.keys = slices.Insert(n.keys, idx, k)
	n.children = slices.Insert(n.children, idx+1, p)
}

// insertPointerAt inserts key k at key-index iK and pointer p at
// child-index iP.
func (n *Node[K, V]) insertPointerAt(k K, iK int, p ref, iP int) {
	n.keys = slices.Insert(n.keys, iK, k)
	n.children = slices.Insert(n.children, iP, p)
}

// deletePointerAt removes the key at iK and the pointer at iP.
func (n *Node[K, V]) deletePointerAt(iK, iP int) {
	n.keys = slices.Delete(n.keys, iK, iK+1)
	n.children = slices.Delete(n.children, iP, iP+1)
}

// removeSeparator removes separator key k and the pointer immediately to
// its right. Precondition: k is present.
func (n *Node[K, V]) removeSeparator(k K) error {
	for i, kk := range n.keys {
		if kk == k {
			n.keys = slices.Delete(n.keys, i, i+1)
			n.children = slices.Delete(n.children, i+1, i+2)
			return nil
		}
	}
	return ErrInvalidDeletion
}

// replaceKey replaces the first occurrence of oldKey with newKey.
func (n *Node[K, V]) replaceKey(oldKey, newKey K) {
	for i, k := range n.keys {
		if k == oldKey {
			n.keys[i] = newKey
			return
		}
	}
}

// copyFrom replaces n's contents with src's keys [begin, end) and the
// trailing pointer src.children[end].
func (n *Node[K, V]) copyFrom(src *Node[K, V], begin, end int) {
	n.clear()
	n.keys = append(n.keys, src.keys[begin:end]...)
	n.children = append(n.children, src.children[begin:end+1]...)
}

// absorb appends separator sep and then all of other's separators and
// children onto n's tail, implementing the merge shape for internal nodes.
func (n *Node[K, V]) absorb(sep K, other *Node[K, V]) {
	n.keys = append(n.keys, sep)
	n.keys = append(n.keys, other.keys...)
	n.children = append(n.children, other.children...)
}

// child0 returns the internal node's only child, used when collapsing a
// single-child root.
func (n *Node[K, V]) child0() ref { return n.children[0] }

// siblingFor chooses, for the child of n responsible for key k, the sibling
// to consider for merging or redistribution and the separator key between
// them: the left sibling if one exists, otherwise the right sibling.
// leftBiased reports whether the chosen sibling lies to the left of the
// child responsible for k.
func (n *Node[K, V]) siblingFor(k K) (sibling ref, sep K, leftBiased bool) {
	idx := n.childIndex(k)
	leftBiased = idx > 0
	sibIdx := idx - 1
	sepIdx := idx - 1
	if !leftBiased {
		sibIdx = idx + 1
		sepIdx = idx
	}
	return n.children[sibIdx], n.keys[sepIdx], leftBiased
}
