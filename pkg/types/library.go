package types

import "errors"

// Library defines the lifecycle of a local library store.
// Callers attach to a backend, run queries and writes, and detach when done.
type Library interface {
	// Attach connects the Library to the backend described by config.
	// Creates the DataDir if it does not exist. Existing data is kept.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, store operations return ErrLibraryDetached.
	Detach() error
}

// Library lifecycle errors.
var (
	ErrLibraryDetached = errors.New("library is detached")
	ErrAlreadyAttached = errors.New("library is already attached")
)

// Store operation errors.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidID    = errors.New("invalid entity ID")
	ErrInvalidName  = errors.New("invalid name")
	ErrInvalidManga = errors.New("invalid manga record")
	ErrRepoConflict = errors.New("extension repo conflict")
)
