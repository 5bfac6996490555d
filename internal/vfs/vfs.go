// Package vfs is the file system seen by the build orchestrator: plain file
// operations plus a stream of change events.
package vfs

import (
	"errors"
	"io/fs"
)

// ErrOverflow is delivered on the error stream when the event queue
// overflowed and changes may have been missed. Consumers should rescan.
var ErrOverflow = errors.New("event queue overflowed")

// Op is the kind of change an Event reports.
type Op int

const (
	// OpCreate indicates a file or directory was created.
	OpCreate Op = iota
	// OpWrite indicates an existing file was modified.
	OpWrite
	// OpRemove indicates a file or directory was removed or renamed away.
	OpRemove
	// OpOther covers attribute changes and anything else.
	OpOther
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpOther:
		return "other"
	default:
		return "unknown"
	}
}

// Event is one file system change.
type Event struct {
	Op Op
	// Path is the absolute path that changed.
	Path string
}

// FS abstracts the file system for the orchestrator and the watch shell.
type FS interface {
	ReadDir(path string) ([]fs.DirEntry, error)
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
	WriteFile(path string, data []byte) error
	MkdirAll(path string) error
	Remove(path string) error

	// CommitEvent lets the file system update its own view before the
	// event is acted on, for example to start watching a new directory.
	CommitEvent(ev Event)

	// Watch starts delivering events for path and everything beneath it.
	// path may also be a single file.
	Watch(path string) error
	Events() <-chan Event
	// Errors reports problems that do not stop the event stream. Only
	// closing the channels ends it.
	Errors() <-chan error
	Close() error
}
