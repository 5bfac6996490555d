package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/mschirtzinger/rsmlwatch/internal/pathutil"
)

// OS is an FS backed by the real file system, with fsnotify supplying
// events. fsnotify watches are not recursive, so OS adds a watch for every
// directory under a watched root, including directories created later
// (see CommitEvent).
type OS struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	roots  []string
	closed bool
}

// NewOS creates an OS file system. No events are delivered until Watch is
// called.
func NewOS() (*OS, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	o := &OS{
		watcher: watcher,
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}
	o.wg.Add(1)
	go o.processEvents()
	return o, nil
}

func (o *OS) ReadDir(path string) ([]fs.DirEntry, error) { return os.ReadDir(path) }
func (o *OS) ReadFile(path string) ([]byte, error)       { return os.ReadFile(path) }
func (o *OS) Stat(path string) (fs.FileInfo, error)      { return os.Stat(path) }
func (o *OS) MkdirAll(path string) error                 { return os.MkdirAll(path, 0755) }

// WriteFile writes data to path, replacing any existing content.
func (o *OS) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

// Remove deletes path. Removing a missing file is not an error.
func (o *OS) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Watch adds path and every directory beneath it to the watcher. A file is
// watched through its parent directory, which also reports its siblings.
func (o *OS) Watch(path string) error {
	path = pathutil.Canonical(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("watcher closed")
	}
	o.roots = append(o.roots, path)
	o.mu.Unlock()

	if !info.IsDir() {
		// A direct watch would not survive editors that save by rename.
		if err := o.watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	}
	return o.addTree(path)
}

// CommitEvent starts watching directories created under a watched root.
// Watches for removed directories are dropped by fsnotify itself.
func (o *OS) CommitEvent(ev Event) {
	if ev.Op != OpCreate {
		return
	}
	info, err := os.Stat(ev.Path)
	if err != nil || !info.IsDir() {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || !o.underRoot(ev.Path) {
		return
	}
	// A directory removed while it is being walked leaves nothing to
	// watch; addTree skips it silently.
	if err := o.addTree(ev.Path); err != nil {
		// The caller usually also drains Errors, so never block here.
		select {
		case o.errors <- err:
		default:
		}
	}
}

// Events returns the channel that emits change events.
// This channel is closed when the file system is closed.
func (o *OS) Events() <-chan Event { return o.events }

// Errors returns the channel that emits watcher errors.
// This channel is closed when the file system is closed.
func (o *OS) Errors() <-chan error { return o.errors }

// Close stops watching and closes the event and error channels.
// It blocks until the event processing goroutine has exited.
func (o *OS) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	close(o.done)
	err := o.watcher.Close()
	o.wg.Wait()

	close(o.events)
	close(o.errors)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// underRoot must be called with mu held.
func (o *OS) underRoot(path string) bool {
	for _, root := range o.roots {
		if pathutil.HasPrefix(path, root) {
			return true
		}
	}
	return false
}

func (o *OS) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The tree may change while we walk it.
			if isNotExist(err) {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := o.watcher.Add(path); err != nil {
			if isNotExist(err) {
				return fs.SkipDir
			}
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func (o *OS) sendError(err error) {
	select {
	case o.errors <- err:
	case <-o.done:
	}
}

// processEvents forwards fsnotify events and errors until Close.
func (o *OS) processEvents() {
	defer o.wg.Done()

	for {
		select {
		case <-o.done:
			return

		case event, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			select {
			case o.events <- convertEvent(event):
			case <-o.done:
				return
			}

		case err, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				err = fmt.Errorf("%w: %v", ErrOverflow, err)
			}
			o.sendError(err)
		}
	}
}

// convertEvent maps an fsnotify event onto an Event. A rename reports the
// old name; the new name arrives as a separate create.
func convertEvent(event fsnotify.Event) Event {
	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpRemove
	default:
		op = OpOther
	}
	return Event{Op: op, Path: pathutil.Canonical(event.Name)}
}
