package store

import "errors"

var (
	// ErrNotFound is returned when removing or updating an identifier that is not in the store.
	ErrNotFound = errors.New("forest: record not found")

	// ErrAlreadyExists is returned when inserting a record whose identifier is already present.
	ErrAlreadyExists = errors.New("forest: record already exists")

	// ErrDuplicateID is returned by Replace when the input repeats an identifier.
	ErrDuplicateID = errors.New("forest: duplicate record identifier")
)
