// Package pathutil normalizes file system paths without touching the disk.
//
// Every path used as a map key or compared for equality inside rsmlwatch goes
// through Canonical first, so two spellings of the same location
// ("a/./b", "a/c/../b") always collapse to one identity.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize resolves "." and ".." components and separator runs lexically.
// Leading ".." components of a relative path are kept; ".." above the root
// of an absolute path is dropped. The empty path normalizes to "".
func Normalize(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// Canonical returns the absolute, normalized form of path. Relative paths are
// resolved against the working directory. Symlinks are not evaluated.
func Canonical(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Normalize(path)
	}
	return abs
}

// Resolve canonicalizes an existing path, following symlinks. It is used for
// the input and output roots at startup, where a missing directory is an error.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}
	return filepath.Clean(resolved), nil
}

// HasPrefix reports whether path equals prefix or lies beneath it. The
// comparison is component-wise: "/a/bc" is not under "/a/b".
func HasPrefix(path, prefix string) bool {
	path = Normalize(path)
	prefix = Normalize(prefix)
	if path == prefix {
		return true
	}
	if prefix == "" {
		return false
	}
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// Rebase moves path from under fromRoot to the same relative location under
// toRoot. It returns false when path is not inside fromRoot.
func Rebase(path, fromRoot, toRoot string) (string, bool) {
	if !HasPrefix(path, fromRoot) {
		return "", false
	}
	rel, err := filepath.Rel(fromRoot, path)
	if err != nil {
		return "", false
	}
	return filepath.Join(toRoot, rel), true
}

// Relative returns path relative to root using forward slashes, the form
// stored inside artifacts. It returns false when path is not inside root.
func Relative(path, root string) (string, bool) {
	if !HasPrefix(path, root) {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// WithExtension replaces the final extension of path with ext. ext may carry
// several dots (".model.json"); only the last extension of path is replaced.
func WithExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// Stem returns the file name of path without its final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
