package bptree

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
)

// backendCtor builds an empty tree of the given degree against one of the
// two backends, so every scenario below runs twice.
type backendCtor struct {
	name string
	new  func(degree int) *Tree[int, string]
}

func backends() []backendCtor {
	return []backendCtor{
		{"memory", func(d int) *Tree[int, string] { return NewInMemory[int, string](d) }},
		{"store", func(d int) *Tree[int, string] { return NewPersistent[int, string, int](d, &fakeStore{}, "t") }},
	}
}

// fakeStore is a minimal store.Store[int]-shaped stand-in used only by this
// package's own tests, so the tree engine's tests don't need to import the
// store package and can stay self-contained.
type fakeStore struct {
	next    int
	records map[int]any
}

func (s *fakeStore) ensure() {
	if s.records == nil {
		s.records = make(map[int]any)
	}
}

func (s *fakeStore) First(fileID string) int { return 0 }

func (s *fakeStore) Add(fileID string, obj any) (int, error) {
	s.ensure()
	s.next++
	s.records[s.next] = obj
	return s.next, nil
}

func (s *fakeStore) Get(fileID string, p int) (any, bool, error) {
	s.ensure()
	obj, ok := s.records[p]
	return obj, ok, nil
}

func (s *fakeStore) Put(fileID string, p int, obj any) (any, error) {
	s.ensure()
	prior := s.records[p]
	s.records[p] = obj
	return prior, nil
}

func (s *fakeStore) Remove(fileID string, p int) (any, error) {
	s.ensure()
	prior, ok := s.records[p]
	if !ok {
		return nil, nil
	}
	delete(s.records, p)
	return prior, nil
}

// keysInOrder walks the leaf chain from the leftmost leaf and returns every
// key in ascending order, the structural property every scenario checks.
func keysInOrder(t *testing.T, tr *Tree[int, string]) []int {
	n, err := tr.Root()
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}
	if n == nil {
		return nil
	}
	for !n.IsLeaf() {
		n, err = tr.Child(n, 0)
		if err != nil {
			t.Fatalf("Child(): %v", err)
		}
	}
	var keys []int
	for n != nil {
		for i := 0; i < n.KeyCount(); i++ {
			keys = append(keys, n.Key(i))
		}
		n, err = tr.Successor(n)
		if err != nil {
			t.Fatalf("Successor(): %v", err)
		}
	}
	return keys
}

// checkInvariants walks the whole tree and verifies the structural
// invariants every node must satisfy: full/underflow bounds, and that an
// internal node's ChildCount is always KeyCount+1.
func checkInvariants(t *testing.T, tr *Tree[int, string]) {
	root, err := tr.Root()
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}
	if root == nil {
		return
	}
	var walk func(n *Node[int, string], isRoot bool)
	walk = func(n *Node[int, string], isRoot bool) {
		if n.KeyCount() > n.degree-1 {
			t.Errorf("node holds %d keys, exceeding degree-1=%d", n.KeyCount(), n.degree-1)
		}
		for i := 1; i < n.KeyCount(); i++ {
			if n.Key(i-1) >= n.Key(i) {
				t.Errorf("node keys not strictly ascending: %d before %d", n.Key(i-1), n.Key(i))
			}
		}
		if !isRoot && n.isUnderUtilized() {
			t.Errorf("non-root node is under-utilized: %d keys/children, degree %d", n.KeyCount(), n.degree)
		}
		if !n.IsLeaf() {
			if n.ChildCount() != n.KeyCount()+1 {
				t.Errorf("internal node has %d children and %d keys, want children = keys+1", n.ChildCount(), n.KeyCount())
			}
			for i := 0; i < n.ChildCount(); i++ {
				c, err := tr.Child(n, i)
				if err != nil {
					t.Fatalf("Child(%d): %v", i, err)
				}
				walk(c, false)
			}
		}
	}
	walk(root, true)
}

func TestInsertAscendingCausesSplits(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			tr := b.new(4)
			for i := 1; i <= 20; i++ {
				if err := tr.Insert(i, fmt.Sprintf("v%d", i)); err != nil {
					t.Fatalf("Insert(%d): %v", i, err)
				}
			}
			checkInvariants(t, tr)
			got := keysInOrder(t, tr)
			if len(got) != 20 {
				t.Fatalf("leaf chain has %d keys, want 20: %v", len(got), got)
			}
			for i, k := range got {
				if k != i+1 {
					t.Fatalf("leaf chain[%d] = %d, want %d", i, k, i+1)
				}
			}
		})
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			tr := b.new(4)
			if err := tr.Insert(1, "a"); err != nil {
				t.Fatalf("Insert(1): %v", err)
			}
			if err := tr.Insert(1, "b"); err != ErrInvalidInsertion {
				t.Fatalf("Insert(1) again = %v, want ErrInvalidInsertion", err)
			}
		})
	}
}

func TestDeleteMissingRejected(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			tr := b.new(4)
			if err := tr.Delete(1); err != ErrInvalidDeletion {
				t.Fatalf("Delete(1) on empty tree = %v, want ErrInvalidDeletion", err)
			}
			tr.Insert(5, "five")
			if err := tr.Delete(9); err != ErrInvalidDeletion {
				t.Fatalf("Delete(9) = %v, want ErrInvalidDeletion", err)
			}
		})
	}
}

func TestInsertThenDeleteAllRestoresEmptiness(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			tr := b.new(4)
			keys := []int{30, 10, 20, 5, 15, 25, 35, 1, 2, 3, 4}
			for _, k := range keys {
				if err := tr.Insert(k, fmt.Sprintf("v%d", k)); err != nil {
					t.Fatalf("Insert(%d): %v", k, err)
				}
			}
			checkInvariants(t, tr)

			for _, k := range keys {
				if err := tr.Delete(k); err != nil {
					t.Fatalf("Delete(%d): %v", k, err)
				}
				checkInvariants(t, tr)
			}
			if got := keysInOrder(t, tr); len(got) != 0 {
				t.Fatalf("leaf chain after deleting every key = %v, want empty", got)
			}
		})
	}
}

func TestDeleteTriggersMergeAndRedistribute(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			tr := b.new(3) // degree 3: every merge, redistribution, and root-collapse path fires quickly
			keys := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
			for _, k := range keys {
				if err := tr.Insert(k, fmt.Sprintf("v%d", k)); err != nil {
					t.Fatalf("Insert(%d): %v", k, err)
				}
			}
			checkInvariants(t, tr)

			remaining := append([]int{}, keys...)
			for _, k := range []int{3, 7, 1, 9, 5, 4, 2, 8, 6, 10} {
				if err := tr.Delete(k); err != nil {
					t.Fatalf("Delete(%d): %v", k, err)
				}
				checkInvariants(t, tr)
				remaining = remove(remaining, k)
				got := keysInOrder(t, tr)
				if !equalInts(got, remaining) {
					t.Fatalf("leaf chain after Delete(%d) = %v, want %v", k, got, remaining)
				}
			}
		})
	}
}

func TestDeleteRedistributesBetweenLeaves(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			// Degree 4: a leaf underflows at one key and its full sibling has
			// three, too many to merge, so an entry crosses the boundary.
			tr := b.new(4)
			for _, k := range []int{3, 4, 5, 1, 2} {
				if err := tr.Insert(k, fmt.Sprintf("v%d", k)); err != nil {
					t.Fatalf("Insert(%d): %v", k, err)
				}
			}
			// Leaves are now [1 2 3] and [4 5] under separator 4. Deleting 5
			// underflows the right leaf; the left one lends its last entry.
			if err := tr.Delete(5); err != nil {
				t.Fatalf("Delete(5): %v", err)
			}
			checkInvariants(t, tr)
			if got := keysInOrder(t, tr); !equalInts(got, []int{1, 2, 3, 4}) {
				t.Fatalf("leaf chain = %v, want [1 2 3 4]", got)
			}

			root, err := tr.Root()
			if err != nil {
				t.Fatalf("Root(): %v", err)
			}
			if root.IsLeaf() || root.KeyCount() != 1 || root.Key(0) != 3 {
				t.Fatalf("root separator after redistribution = %v, want exactly [3]", rootKeys(root))
			}
		})
	}
}

func rootKeys(n *Node[int, string]) []int {
	keys := make([]int, n.KeyCount())
	for i := range keys {
		keys[i] = n.Key(i)
	}
	return keys
}

func TestPersistentTreeSurvivesReopen(t *testing.T) {
	s := &fakeStore{}
	tr := NewPersistent[int, string, int](4, s, "t")
	for i := 1; i <= 12; i++ {
		if err := tr.Insert(i, fmt.Sprintf("v%d", i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	if err := tr.Delete(7); err != nil {
		t.Fatalf("Delete(7): %v", err)
	}

	// A second Tree over the same store and fileID sees the same state: the
	// only handle it needs is the root pointer record at the store's first
	// location.
	reopened := NewPersistent[int, string, int](4, s, "t")
	want := keysInOrder(t, tr)
	if got := keysInOrder(t, reopened); !equalInts(got, want) {
		t.Fatalf("reopened tree leaf chain = %v, want %v", got, want)
	}
	if err := reopened.Insert(7, "again"); err != nil {
		t.Fatalf("Insert(7) on reopened tree: %v", err)
	}
	checkInvariants(t, reopened)
}

// TestBackendsAgreeOnRandomScript drives both backends through the same
// pseudo-random insert/delete script and requires identical outcomes after
// every step: same accepted/rejected operations, same leaf chain, and a
// structurally valid tree on both sides.
func TestBackendsAgreeOnRandomScript(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mem := NewInMemory[int, string](4)
	persisted := NewPersistent[int, string, int](4, &fakeStore{}, "t")
	present := make(map[int]bool)

	for step := 0; step < 400; step++ {
		k := rng.Intn(40)
		insert := rng.Intn(2) == 0
		var memErr, storeErr error
		if insert {
			memErr = mem.Insert(k, "v")
			storeErr = persisted.Insert(k, "v")
		} else {
			memErr = mem.Delete(k)
			storeErr = persisted.Delete(k)
		}
		if (memErr == nil) != (storeErr == nil) {
			t.Fatalf("step %d: backends disagree on op (insert=%v, k=%d): memory=%v store=%v",
				step, insert, k, memErr, storeErr)
		}
		if insert {
			if present[k] && memErr != ErrInvalidInsertion {
				t.Fatalf("step %d: Insert(%d) of a present key = %v, want ErrInvalidInsertion", step, k, memErr)
			}
			if !present[k] && memErr != nil {
				t.Fatalf("step %d: Insert(%d): %v", step, k, memErr)
			}
			present[k] = true
		} else {
			if !present[k] && memErr != ErrInvalidDeletion {
				t.Fatalf("step %d: Delete(%d) of an absent key = %v, want ErrInvalidDeletion", step, k, memErr)
			}
			if present[k] && memErr != nil {
				t.Fatalf("step %d: Delete(%d): %v", step, k, memErr)
			}
			delete(present, k)
		}

		want := make([]int, 0, len(present))
		for k := range present {
			want = append(want, k)
		}
		sort.Ints(want)
		if got := keysInOrder(t, mem); !equalInts(got, want) {
			t.Fatalf("step %d: memory leaf chain = %v, want %v", step, got, want)
		}
		if got := keysInOrder(t, persisted); !equalInts(got, want) {
			t.Fatalf("step %d: store leaf chain = %v, want %v", step, got, want)
		}
		checkInvariants(t, mem)
		checkInvariants(t, persisted)
	}
}

func remove(xs []int, k int) []int {
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		if x != k {
			out = append(out, x)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
