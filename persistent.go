package bptree

import (
	"cmp"
	"fmt"

	"github.com/vchandela/bptree/store"
)

// persistent is the record-store-backed backend: every node is an opaque
// record in s's fileID space, addressed by a location of type P. Unlike the
// in-memory backend, save/remove perform real store I/O, and the root is
// reached through one level of indirection — a pointer record kept at
// s.First(fileID) — so that a freshly opened store with an existing root
// can be found without any other bookkeeping.
type persistent[K cmp.Ordered, V any, P comparable] struct {
	store  store.Store[P]
	fileID string
}

// NewPersistent creates a B+-tree of the given degree backed by s, storing
// its nodes under fileID. degree must be at least 3. The tree is empty if
// nothing has been written under fileID yet; reopening the same (s, fileID)
// pair recovers whatever tree was last written there.
func NewPersistent[K cmp.Ordered, V any, P comparable](degree int, s store.Store[P], fileID string) *Tree[K, V] {
	if degree < 3 {
		panic("bptree: degree must be at least 3")
	}
	return &Tree[K, V]{degree: degree, b: &persistent[K, V, P]{store: s, fileID: fileID}}
}

func (p *persistent[K, V, P]) node(ctx *opCtx[K, V], loc P) (*Node[K, V], error) {
	obj, ok, err := p.store.Get(p.fileID, loc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	n, ok := obj.(*Node[K, V])
	if !ok {
		return nil, fmt.Errorf("bptree: corrupt record at %v", loc)
	}
	ctx.locations[n] = loc
	return n, nil
}

func (p *persistent[K, V, P]) root(ctx *opCtx[K, V]) (*Node[K, V], error) {
	obj, ok, err := p.store.Get(p.fileID, p.store.First(p.fileID))
	if err != nil {
		return nil, err
	}
	if !ok || obj == nil {
		return nil, nil
	}
	rootLoc, ok := obj.(P)
	if !ok {
		return nil, fmt.Errorf("bptree: corrupt root pointer record")
	}
	return p.node(ctx, rootLoc)
}

func (p *persistent[K, V, P]) child(ctx *opCtx[K, V], r ref) (*Node[K, V], error) {
	if r == nil {
		return nil, nil
	}
	loc, ok := r.(P)
	if !ok {
		return nil, fmt.Errorf("bptree: ref of unexpected type %T", r)
	}
	return p.node(ctx, loc)
}

// save persists n, reusing its existing location if this operation already
// loaded or saved n once (mirrors the original's node2pointer map: a node
// gets at most one location per operation, and every later save of it in
// that operation overwrites the record there).
func (p *persistent[K, V, P]) save(ctx *opCtx[K, V], n *Node[K, V]) (ref, error) {
	if loc, ok := ctx.locations[n]; ok {
		locP := loc.(P)
		if _, err := p.store.Put(p.fileID, locP, n); err != nil {
			return nil, err
		}
		return locP, nil
	}
	locP, err := p.store.Add(p.fileID, n)
	if err != nil {
		return nil, err
	}
	ctx.locations[n] = locP
	return locP, nil
}

func (p *persistent[K, V, P]) setRoot(ctx *opCtx[K, V], n *Node[K, V]) error {
	locP, err := p.store.Add(p.fileID, n)
	if err != nil {
		return err
	}
	ctx.locations[n] = locP
	_, err = p.store.Put(p.fileID, p.store.First(p.fileID), locP)
	return err
}

func (p *persistent[K, V, P]) setRootRef(ctx *opCtx[K, V], r ref) error {
	var val any
	if r != nil {
		val = r.(P)
	}
	_, err := p.store.Put(p.fileID, p.store.First(p.fileID), val)
	return err
}

func (p *persistent[K, V, P]) remove(ctx *opCtx[K, V], n *Node[K, V]) error {
	loc, ok := ctx.locations[n]
	if !ok {
		return nil
	}
	locP := loc.(P)
	delete(ctx.locations, n)
	_, err := p.store.Remove(p.fileID, locP)
	return err
}
