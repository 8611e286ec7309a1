package bptree

import "errors"

// ErrInvalidInsertion is returned when a key already present in the tree is
// inserted again. The tree is left unchanged.
var ErrInvalidInsertion = errors.New("bptree: key already present")

// ErrInvalidDeletion is returned when a key absent from the tree is deleted.
// The tree is left unchanged.
var ErrInvalidDeletion = errors.New("bptree: key not present")
