package build

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mschirtzinger/rsmlwatch/internal/artifact"
	"github.com/mschirtzinger/rsmlwatch/internal/compiler"
	"github.com/mschirtzinger/rsmlwatch/internal/pathutil"
)

// errUnknownAlias is reported to the compiler for "@name" derives that the
// alias table cannot resolve.
var errUnknownAlias = errors.New("unknown alias")

// Compile recompiles path and then every sheet that depends on it, directly
// or transitively. Each sheet is compiled at most once per call, which also
// terminates derive cycles of any length.
//
// A sheet that fails to compile is logged and skipped; its dependents are
// still rebuilt because they read the source, not the artifact. Only write
// failures are returned.
func (c *Context) Compile(path string) error {
	return c.propagate(pathutil.Canonical(path))
}

// propagate compiles seeds and then their dependents breadth first.
func (c *Context) propagate(seeds ...string) error {
	visited := make(map[string]bool, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		if !visited[seed] {
			visited[seed] = true
			queue = append(queue, seed)
		}
	}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		if err := c.compileOne(path); err != nil {
			return err
		}

		dependents, _ := c.graph.GetByLeft(path)
		for _, dep := range dependents {
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return nil
}

// compileOne rebuilds the artifact for a single sheet. The sheet's incoming
// edges are dropped first and re-recorded as the compiler resolves derives.
func (c *Context) compileOne(path string) error {
	c.graph.RemoveByRight(path)
	if c.config != nil {
		c.config.dependants.RemoveByRight(path)
	}

	out, ok := artifact.OutputPath(path, c.input, c.output)
	if !ok {
		return nil
	}

	src, err := c.fs.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		c.fail(path, fmt.Errorf("failed to read source: %w", err))
		return nil
	}

	res, err := compiler.Compile(src, path, &host{ctx: c, root: path})
	if err != nil {
		c.fail(path, err)
		return nil
	}

	data, err := artifact.Encode(artifact.Build(res, path, c.input))
	if err != nil {
		c.fail(path, err)
		return nil
	}

	if err := c.fs.MkdirAll(filepath.Dir(out)); err != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, out, err)
	}
	if err := c.fs.WriteFile(out, data); err != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, out, err)
	}

	c.stats.Compiled++
	c.logger.Printf("Compiled %s", c.rel(path))
	c.observer.ArtifactWritten(path, out)
	return nil
}

func (c *Context) fail(path string, err error) {
	c.stats.Failed++
	c.logger.Printf("Failed to compile %s: %v", c.rel(path), err)
	c.observer.CompileFailed(path, err)
}

// DeleteFile removes the artifact of a deleted sheet and every graph edge
// that mentions it.
//
// The legacy stem-named artifact next to the source is removed only when
// its id names path. A legacy file with a foreign or unreadable id is left
// in place, unlike an unconditional delete of the stem path.
func (c *Context) DeleteFile(path string) error {
	path = pathutil.Canonical(path)

	if out, ok := artifact.OutputPath(path, c.input, c.output); ok {
		c.removeArtifact(out)
	}
	// Older builds named the artifact after the stem, next to the source.
	// Only remove it when it identifies itself as built from path.
	if legacy := artifact.LegacyPath(path); c.ownedBy(legacy, path) {
		c.removeArtifact(legacy)
	}

	c.graph.RemoveByLeft(path)
	c.graph.RemoveByRight(path)
	if c.config != nil {
		c.config.dependants.RemoveByRight(path)
	}
	return nil
}

// ownedBy reports whether the artifact at out claims src as its source.
func (c *Context) ownedBy(out, src string) bool {
	data, err := c.fs.ReadFile(out)
	if err != nil {
		return false
	}
	id, err := artifact.ReadID(data)
	if err != nil {
		return false
	}
	claimed, ok := artifact.SourceFor(id, c.input)
	return ok && pathutil.Canonical(claimed) == src
}

// removeArtifact deletes out if it exists. Failures are logged; a stale
// artifact is picked up again by the next rescan.
func (c *Context) removeArtifact(out string) {
	if _, err := c.fs.Stat(out); err != nil {
		return
	}
	if err := c.fs.Remove(out); err != nil {
		c.logger.Printf("Failed to remove %s: %v", c.rel(out), err)
		return
	}
	c.stats.Removed++
	c.logger.Printf("Removed %s", c.rel(out))
	c.observer.ArtifactRemoved(out)
}

// Prune forgets every graph key at or below path. It is used when a path
// disappeared and it is unknown whether it was a file or a directory; no
// artifacts are deleted.
func (c *Context) Prune(path string) {
	path = pathutil.Canonical(path)

	for _, left := range c.graph.Lefts() {
		if pathutil.HasPrefix(left, path) {
			c.graph.RemoveByLeft(left)
		}
	}
	for _, right := range c.graph.Rights() {
		if pathutil.HasPrefix(right, path) {
			c.graph.RemoveByRight(right)
		}
	}
	if c.config != nil {
		for _, right := range c.config.dependants.Rights() {
			if pathutil.HasPrefix(right, path) {
				c.config.dependants.RemoveByRight(right)
			}
		}
	}
}

// host resolves derives for one compilation and records the edges they
// imply. Derives reached through derived sheets are recorded against root
// too, since their macros flow into root's output.
type host struct {
	ctx  *Context
	root string
}

func (h *host) ReadFile(path string) ([]byte, error) {
	return h.ctx.fs.ReadFile(path)
}

func (h *host) ResolveDerive(from, spec string) (compiler.Derive, error) {
	d := compiler.Derive{Spec: spec}

	var target string
	if strings.HasPrefix(spec, "@") {
		cfg := h.ctx.config
		if cfg == nil {
			return d, fmt.Errorf("%w %q: no alias configuration", errUnknownAlias, spec)
		}
		alias, resolved, ok := cfg.table.Resolve(spec, filepath.Dir(cfg.path))
		if !ok {
			// Remember the attempt so that defining the alias later
			// rebuilds this sheet.
			if name, _, _ := strings.Cut(spec[1:], "/"); name != "" {
				cfg.dependants.Insert(name, h.root)
			}
			return d, fmt.Errorf("%w %q", errUnknownAlias, spec)
		}
		cfg.dependants.Insert(alias, h.root)
		d.Alias = alias
		target = resolved
	} else {
		target = filepath.FromSlash(spec)
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(from), target)
		}
	}

	if !artifact.IsSource(target) {
		target += artifact.SourceExt
	}
	d.Path = pathutil.Canonical(target)

	if d.Path != h.root {
		h.ctx.graph.Insert(d.Path, h.root)
	}
	return d, nil
}
