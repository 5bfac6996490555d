package build

import "errors"

// Sentinel errors for startup validation and build passes.
// Callers can check for these using errors.Is().
var (
	// ErrInputMissing is returned when the input root does not exist.
	ErrInputMissing = errors.New("input directory does not exist")

	// ErrNotDirectory is returned when the input root is not a directory.
	ErrNotDirectory = errors.New("input path is not a directory")

	// ErrWrite is returned when an artifact cannot be written. It aborts the
	// current build pass; the watch loop keeps running.
	ErrWrite = errors.New("failed to write artifact")

	// ErrInvalidIgnore is returned for a malformed ignore pattern.
	ErrInvalidIgnore = errors.New("invalid ignore pattern")
)
