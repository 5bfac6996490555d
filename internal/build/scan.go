package build

import (
	"path/filepath"

	"github.com/mschirtzinger/rsmlwatch/internal/artifact"
	"github.com/mschirtzinger/rsmlwatch/internal/pathutil"
)

// Rescan rebuilds every sheet under dir and removes stale artifacts.
//
// When sources and artifacts share a root, one walk does both. Otherwise
// the mirrored output subtree is cleaned first and the input subtree is
// compiled afterwards, so artifacts of sources deleted while nothing was
// watching are gone before anything new is written.
//
// Unreadable directories are logged and skipped. Only write failures are
// returned.
func (c *Context) Rescan(dir string) error {
	dir = pathutil.Canonical(dir)

	var sources []string
	if c.input == c.output {
		c.walk(dir, true, func(path string) {
			switch {
			case artifact.IsArtifact(filepath.Base(path)):
				c.clean(path)
			case artifact.IsSource(path):
				sources = append(sources, path)
			}
		})
	} else {
		if mirrored, ok := pathutil.Rebase(dir, c.input, c.output); ok {
			c.walk(mirrored, false, func(path string) {
				if artifact.IsArtifact(filepath.Base(path)) {
					c.clean(path)
				}
			})
		}
		c.walk(dir, true, func(path string) {
			if artifact.IsSource(path) {
				sources = append(sources, path)
			}
		})
	}

	c.logger.Printf("Scanned %s: %d source(s)", c.rel(dir), len(sources))
	return c.propagate(sources...)
}

// clean deletes an artifact whose id names a source that no longer exists.
// Artifacts without a readable id, or whose id is not a sheet, are left
// alone: they were not produced by this tool.
func (c *Context) clean(path string) {
	data, err := c.fs.ReadFile(path)
	if err != nil {
		return
	}
	id, err := artifact.ReadID(data)
	if err != nil {
		return
	}
	src, ok := artifact.SourceFor(id, c.input)
	if !ok {
		return
	}
	if _, err := c.fs.Stat(src); err != nil && isNotExist(err) {
		c.removeArtifact(path)
	}
}

// walk calls visit for every regular file under dir in name order. With
// filter set, ignored paths are skipped.
func (c *Context) walk(dir string, filter bool, visit func(path string)) {
	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		if !isNotExist(err) {
			c.logger.Printf("Failed to read %s: %v", c.rel(dir), err)
		}
		return
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if filter && c.ignored(path) {
			continue
		}
		switch {
		case entry.IsDir():
			c.walk(path, filter, visit)
		case entry.Type().IsRegular():
			visit(path)
		}
	}
}
