package store

import "errors"

// Store-level sentinel errors.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrAlreadyExists is returned when creating an entity whose key or
	// unique index value is already taken.
	ErrAlreadyExists = errors.New("entity already exists")
)
