package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled marks work abandoned because the run was asked to stop
	ErrCancelled = errors.New("cancelled")

	// ErrIndexCorrupt is returned when persisted index state cannot be read
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrTransientFetch is a remote failure for a single object
	ErrTransientFetch = errors.New("fetch failed")

	// ErrIntegrityMismatch means the checksum or size on disk disagrees with the server
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// ErrMissingFile means the expected file is absent at validation time
	ErrMissingFile = errors.New("file does not exist")

	// ErrRunInProgress is returned when a second run is started while one is active
	ErrRunInProgress = errors.New("a run is already in progress")

	// ErrRunNotFound is returned for unknown run ids
	ErrRunNotFound = errors.New("run not found")

	ErrRunNotActive = errors.New("run is not running")
)

// IndexCorruptError describes where persisted index state stopped making sense
type IndexCorruptError struct {
	Path string
	Line int
	Err  error
}

func (e *IndexCorruptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("index %s corrupt at line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("index %s corrupt: %v", e.Path, e.Err)
}

func (e *IndexCorruptError) Unwrap() []error {
	return []error{ErrIndexCorrupt, e.Err}
}

// FetchError wraps a transport failure for one object
type FetchError struct {
	ObjectID   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.ObjectID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.ObjectID, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrTransientFetch, e.Err}
}
