package aliases

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Origin describes how the alias configuration was chosen.
type Origin int

const (
	// OriginNone means no configuration was given or found.
	OriginNone Origin = iota
	// OriginExplicit means the path came from the command line.
	OriginExplicit
	// OriginDiscovered means the path was found next to the input.
	OriginDiscovered
)

// String returns a human-readable representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginNone:
		return "none"
	case OriginExplicit:
		return "explicit"
	case OriginDiscovered:
		return "discovered"
	default:
		return "unknown"
	}
}

// Source is the outcome of Locate.
type Source struct {
	Path   string
	Origin Origin
}

// Locate picks the alias configuration for inputDir. An explicit path wins
// when it names an existing regular file; an explicit path that does not
// exist is an error. Otherwise the configuration is discovered in inputDir
// and then in its parent.
func Locate(inputDir, explicit string) (Source, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return Source{}, fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return Source{}, fmt.Errorf("%w: %s", ErrConfigNotFound, filepath.Clean(explicit))
		}
		if info.Mode().IsRegular() {
			return Source{Path: filepath.Clean(abs), Origin: OriginExplicit}, nil
		}
	}

	if path, ok := Discover(inputDir); ok {
		return Source{Path: path, Origin: OriginDiscovered}, nil
	}
	if path, ok := Discover(filepath.Dir(inputDir)); ok {
		return Source{Path: path, Origin: OriginDiscovered}, nil
	}
	return Source{Origin: OriginNone}, nil
}

// Discover returns the first regular file in dir, in name order, that looks
// like an alias configuration.
func Discover(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	slices.Sort(names)

	for _, name := range names {
		if !IsConfigName(name) {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return filepath.Clean(path), true
	}
	return "", false
}

// IsConfigName reports whether a file name is recognised as an alias
// configuration: "luaurc", ".luaurc", "luaurc.<ext>", ".luaurc.<ext>" or
// "<anything>.luaurc".
func IsConfigName(name string) bool {
	prefix := filePrefix(name)
	return prefix == "luaurc" || prefix == ".luaurc" || filepath.Ext(name) == ".luaurc"
}

// filePrefix returns the part of name before its first extension. A leading
// dot belongs to the prefix, so ".luaurc.json" has prefix ".luaurc".
func filePrefix(name string) string {
	start := 0
	if strings.HasPrefix(name, ".") {
		start = 1
	}
	if i := strings.IndexByte(name[start:], '.'); i >= 0 {
		return name[:start+i]
	}
	return name
}
