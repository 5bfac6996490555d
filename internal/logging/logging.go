// Package logging builds the component loggers used across rsmlwatch.
//
// Every component writes through a standard *log.Logger carrying a
// bracketed prefix ("[build] ", "[watch] ", ...). The destination is shared:
// stderr by default, or a size-rotated file when --log-file is set.
package logging

import (
	"io"
	"log"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for --log-file.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// Output is a log destination that may own a file.
type Output struct {
	io.Writer
	closer io.Closer
	once   sync.Once
}

// Close releases the log file, if any. It is safe to call more than once.
func (o *Output) Close() error {
	var err error
	o.once.Do(func() {
		if o.closer != nil {
			err = o.closer.Close()
		}
	})
	return err
}

// Open returns the destination for path. An empty path means stderr. The
// file is created lazily on the first write and rotated by size.
func Open(path string) *Output {
	if path == "" {
		return &Output{Writer: os.Stderr}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
	}
	return &Output{Writer: lj, closer: lj}
}

// New returns a logger for component writing to w. A nil w discards output.
func New(component string, w io.Writer) *log.Logger {
	if w == nil {
		w = io.Discard
	}
	return log.New(w, "["+component+"] ", log.LstdFlags)
}

// Quiet returns io.Discard when quiet is set and w otherwise.
func Quiet(w io.Writer, quiet bool) io.Writer {
	if quiet {
		return io.Discard
	}
	return w
}
