package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is a goroutine-safe, in-process Store keyed by uuid.UUID
// locations. It exists to exercise a persistent backend's storage contract
// in tests and the CLI without a real disk or database.
//
// The mutex only guarantees that a single call into Memory observes a
// consistent map; it is not multi-version concurrency control and gives
// callers no isolation across a multi-step tree operation.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[uuid.UUID]any
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]map[uuid.UUID]any)}
}

// First returns the deterministic, namespace-derived location reserved for
// fileID's root pointer, so it is stable across process restarts given the
// same fileID.
func (m *Memory) First(fileID string) uuid.UUID {
	return uuid.NewMD5(uuid.Nil, []byte(fileID))
}

func (m *Memory) space(fileID string) map[uuid.UUID]any {
	s, ok := m.records[fileID]
	if !ok {
		s = make(map[uuid.UUID]any)
		m.records[fileID] = s
	}
	return s
}

// Add stores obj under a freshly minted random location.
func (m *Memory) Add(fileID string, obj any) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := uuid.New()
	m.space(fileID)[p] = obj
	return p, nil
}

// Get returns the record at p in fileID's space.
func (m *Memory) Get(fileID string, p uuid.UUID) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.records[fileID][p]
	return obj, ok, nil
}

// Put overwrites the record at p, allocating the slot if p is fileID's
// First location and has never been written before.
func (m *Memory) Put(fileID string, p uuid.UUID, obj any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.space(fileID)
	prior, existed := s[p]
	if !existed && p != m.First(fileID) {
		return nil, fmt.Errorf("%w: %s/%s", ErrInvalidLocation, fileID, p)
	}
	s[p] = obj
	return prior, nil
}

// Remove deletes the record at p.
func (m *Memory) Remove(fileID string, p uuid.UUID) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.space(fileID)
	prior, existed := s[p]
	if !existed {
		return nil, fmt.Errorf("%w: %s/%s", ErrInvalidLocation, fileID, p)
	}
	delete(s, p)
	return prior, nil
}
