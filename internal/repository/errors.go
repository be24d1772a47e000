package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath is returned for an empty or malformed relative path.
	ErrInvalidPath = errors.New("invalid path")

	// ErrPathTraversal is returned when a path resolves outside the cache root.
	ErrPathTraversal = errors.New("path traversal is not allowed")

	// ErrNotFound is returned when a resolved path is missing or not a regular file.
	ErrNotFound = errors.New("file not found")
)

// Stages reported by SyncError.
const (
	StageConfig      = "config"
	StageState       = "state"
	StageDownload    = "download"
	StageMaterialize = "materialize"
	StageMetadata    = "metadata"
)

// SyncError reports a failed refresh episode and the stage it failed in.
type SyncError struct {
	Stage string
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("repository sync failed during %s: %v", e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func syncErr(stage string, err error) error {
	return &SyncError{Stage: stage, Err: err}
}
