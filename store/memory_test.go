package store

import (
	"errors"
	"testing"
)

func TestMemoryFirstIsStableAcrossCalls(t *testing.T) {
	m := NewMemory()
	a := m.First("tree-a")
	b := m.First("tree-a")
	if a != b {
		t.Fatalf("First(%q) returned %v then %v, want the same location both times", "tree-a", a, b)
	}
	if m.First("tree-b") == a {
		t.Fatalf("First returned the same location for two different fileIDs")
	}
}

func TestMemoryAddGetPutRemove(t *testing.T) {
	m := NewMemory()
	loc, err := m.Add("t", "hello")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	obj, ok, err := m.Get("t", loc)
	if err != nil || !ok || obj != "hello" {
		t.Fatalf("Get(%v) = (%v, %v, %v), want (\"hello\", true, nil)", loc, obj, ok, err)
	}

	prior, err := m.Put("t", loc, "world")
	if err != nil || prior != "hello" {
		t.Fatalf("Put(%v) = (%v, %v), want (\"hello\", nil)", loc, prior, err)
	}

	prior, err = m.Remove("t", loc)
	if err != nil || prior != "world" {
		t.Fatalf("Remove(%v) = (%v, %v), want (\"world\", nil)", loc, prior, err)
	}

	if _, ok, _ := m.Get("t", loc); ok {
		t.Fatalf("Get(%v) after Remove: ok = true, want false", loc)
	}
}

func TestMemoryPutRejectsUnknownLocation(t *testing.T) {
	m := NewMemory()
	_, err := m.Add("t", "x") // allocate the space so First isn't the very first write
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	bogus := m.First("other-file")
	if _, err := m.Put("t", bogus, "y"); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("Put with a foreign location: err = %v, want ErrInvalidLocation", err)
	}
}

func TestMemoryFirstWritableBeforeAnyAdd(t *testing.T) {
	m := NewMemory()
	loc := m.First("t")
	if _, err := m.Put("t", loc, "root-pointer"); err != nil {
		t.Fatalf("Put at First on a fresh store: %v", err)
	}
	obj, ok, err := m.Get("t", loc)
	if err != nil || !ok || obj != "root-pointer" {
		t.Fatalf("Get(First) = (%v, %v, %v), want (\"root-pointer\", true, nil)", obj, ok, err)
	}
}

func TestMemoryRemoveUnknownLocation(t *testing.T) {
	m := NewMemory()
	loc, _ := m.Add("t", "x")
	m.Remove("t", loc)
	if _, err := m.Remove("t", loc); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("Remove twice: err = %v, want ErrInvalidLocation", err)
	}
}
