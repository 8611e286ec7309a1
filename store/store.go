// Package store defines the record store contract a persistent B+-tree
// backend uses to read and write nodes, plus a concrete in-process
// implementation for exercising that backend without real disk I/O.
package store

import "errors"

// ErrInvalidLocation is returned when a caller presents a location that the
// store does not recognize, or that belongs to a different fileID.
var ErrInvalidLocation = errors.New("store: invalid location")

// Store is a keyed record store addressed by opaque locations of type P. A
// single Store may multiplex several independent record spaces, each named
// by a fileID, the way a single database file holds several B+-trees.
type Store[P comparable] interface {
	// First returns the well-known location reserved for a fileID's root
	// pointer record. It is always valid, even before anything has been
	// written there.
	First(fileID string) P

	// Add stores obj as a new record in fileID's space and returns the
	// freshly allocated location it was given.
	Add(fileID string, obj any) (P, error)

	// Get returns the record at p in fileID's space, or ok == false if
	// nothing is stored there.
	Get(fileID string, p P) (obj any, ok bool, err error)

	// Put overwrites the record at p, returning the prior value if one
	// existed. ErrInvalidLocation is returned if p was never allocated by
	// Add and is not fileID's First location.
	Put(fileID string, p P, obj any) (prior any, err error)

	// Remove deletes the record at p, returning the prior value if one
	// existed.
	Remove(fileID string, p P) (prior any, err error)
}
