// Package build keeps compiled artifacts consistent with a tree of RSML
// sources.
//
// A Context owns the dependency graph between sheets, the optional alias
// configuration and the input/output roots. It turns file system events into
// the smallest set of recompilations that keeps every artifact current:
// editing a sheet recompiles it and, transitively, every sheet that derives
// it; editing the alias configuration recompiles exactly the sheets that
// used a changed alias.
//
// A Context is not safe for concurrent use. The watch shell takes ownership
// of it once watching starts.
package build

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mschirtzinger/rsmlwatch/internal/aliases"
	"github.com/mschirtzinger/rsmlwatch/internal/artifact"
	"github.com/mschirtzinger/rsmlwatch/internal/bimap"
	"github.com/mschirtzinger/rsmlwatch/internal/pathutil"
	"github.com/mschirtzinger/rsmlwatch/internal/vfs"
)

// Options configures a Context.
type Options struct {
	// InputRoot is the directory holding the sources. It must exist.
	InputRoot string
	// OutputRoot receives the artifacts. Empty means InputRoot. It is
	// created when missing.
	OutputRoot string
	// ConfigPath is the alias configuration file. Empty disables aliases.
	ConfigPath string
	// Ignore holds doublestar patterns matched against paths relative to
	// InputRoot. A matching directory is skipped with everything in it.
	Ignore []string

	FS       vfs.FS
	Logger   *log.Logger
	Observer Observer
}

// binding is the loaded alias configuration.
type binding struct {
	path       string
	table      aliases.Table
	dependants *aliases.Dependants
}

// Context is the build state for one input tree.
type Context struct {
	fs       vfs.FS
	input    string
	output   string
	ignore   []string
	logger   *log.Logger
	observer Observer

	// graph holds (antecedent, dependent) edges: left is the derived
	// sheet, right is the sheet that derives it.
	graph  *bimap.MultiBiMap[string, string]
	config *binding
	stats  Stats
}

// New validates the roots and creates a Context. Nothing is compiled until
// Initialize is called.
//
// If opts.Logger is nil, a default logger writing to stderr is used.
func New(opts Options) (*Context, error) {
	if opts.FS == nil {
		return nil, fmt.Errorf("file system is required")
	}

	input := pathutil.Canonical(opts.InputRoot)
	info, err := opts.FS.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputMissing, input)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, input)
	}

	output := input
	if opts.OutputRoot != "" {
		output = pathutil.Canonical(opts.OutputRoot)
		if err := opts.FS.MkdirAll(output); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", output, err)
		}
	}

	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIgnore, pattern)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[build] ", log.LstdFlags)
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	c := &Context{
		fs:       opts.FS,
		input:    input,
		output:   output,
		ignore:   opts.Ignore,
		logger:   logger,
		observer: observer,
		graph:    bimap.New[string, string](),
	}
	if opts.ConfigPath != "" {
		c.config = &binding{
			path:       pathutil.Canonical(opts.ConfigPath),
			dependants: aliases.NewDependants(),
		}
	}
	return c, nil
}

// InputRoot returns the canonical input root.
func (c *Context) InputRoot() string { return c.input }

// OutputRoot returns the canonical output root.
func (c *Context) OutputRoot() string { return c.output }

// ConfigPath returns the bound alias configuration, or "".
func (c *Context) ConfigPath() string {
	if c.config == nil {
		return ""
	}
	return c.config.path
}

// Stats returns counters for everything done so far.
func (c *Context) Stats() Stats { return c.stats }

// Initialize loads the alias configuration and builds the whole tree,
// removing artifacts whose sources no longer exist.
func (c *Context) Initialize() error {
	defer c.observer.PassFinished()
	if c.config != nil {
		c.config.table = c.readConfig()
	}
	return c.Rescan(c.input)
}

// Resync reloads the alias configuration and rebuilds the whole tree. It is
// used when the event stream lost changes and the graph may be stale.
func (c *Context) Resync() error {
	c.logger.Printf("Resynchronizing %s", c.input)
	c.Prune(c.input)
	return c.Initialize()
}

// HandleEvent applies one file system event.
//
// The reported operation is only a hint: the path is stat'ed again and
// handled according to what is there now.
func (c *Context) HandleEvent(ev vfs.Event) error {
	defer c.observer.PassFinished()
	c.fs.CommitEvent(ev)

	if ev.Op == vfs.OpOther {
		return nil
	}

	path := pathutil.Canonical(ev.Path)
	if artifact.IsArtifact(filepath.Base(path)) {
		return nil
	}
	if c.config != nil && path == c.config.path {
		return c.ReloadConfig()
	}
	if !pathutil.HasPrefix(path, c.input) || c.ignored(path) {
		return nil
	}

	info, err := c.fs.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return c.Rescan(path)
	case err == nil && info.Mode().IsRegular() && artifact.IsSource(path):
		return c.Compile(path)
	case err == nil:
		return nil
	case !isNotExist(err):
		c.logger.Printf("Skipping %s: %v", c.rel(path), err)
		return nil
	case artifact.IsSource(path):
		return c.DeleteFile(path)
	default:
		c.Prune(path)
		return nil
	}
}

// ignored reports whether path or one of its parents below the input root
// matches an ignore pattern.
func (c *Context) ignored(path string) bool {
	if len(c.ignore) == 0 {
		return false
	}
	rel, ok := pathutil.Relative(path, c.input)
	if !ok || rel == "." {
		return false
	}
	candidate := rel
	for {
		for _, pattern := range c.ignore {
			if match, _ := doublestar.Match(pattern, candidate); match {
				return true
			}
		}
		i := strings.LastIndexByte(candidate, '/')
		if i < 0 {
			break
		}
		candidate = candidate[:i]
	}
	return false
}

// rel formats path for log output.
func (c *Context) rel(path string) string {
	if rel, ok := pathutil.Relative(path, c.input); ok {
		return rel
	}
	if rel, ok := pathutil.Relative(path, c.output); ok {
		return rel
	}
	return path
}

// isNotExist also accepts ENOTDIR, which Stat reports when a parent of the
// path was replaced by a file.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
