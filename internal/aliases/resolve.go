package aliases

import (
	"path/filepath"
	"strings"

	"github.com/mschirtzinger/rsmlwatch/internal/bimap"
)

// Resolve maps a derive specifier written as "@name" or "@name/rest" through
// the alias table. Relative alias targets are taken relative to baseDir, the
// directory holding the configuration file. It returns the alias name (without
// "@"), the resolved path and whether the specifier used a known alias.
func (t Table) Resolve(spec, baseDir string) (string, string, bool) {
	if !strings.HasPrefix(spec, "@") {
		return "", "", false
	}

	name, rest, _ := strings.Cut(spec[1:], "/")
	if name == "" {
		return "", "", false
	}

	target, ok := t.Get(name)
	if !ok {
		return "", "", false
	}

	target = filepath.FromSlash(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(baseDir, target)
	}
	if rest != "" {
		target = filepath.Join(target, filepath.FromSlash(rest))
	}
	return name, filepath.Clean(target), true
}

// Dependants records, per alias name, the files that resolved a derive
// through that alias the last time they were compiled.
type Dependants = bimap.MultiBiMap[string, string]

// NewDependants returns an empty Dependants map.
func NewDependants() *Dependants {
	return bimap.New[string, string]()
}
