// Package aliases loads the alias configuration (.luaurc) and tracks which
// style sheets consumed which alias.
//
// An alias is a named indirection a derive specifier can go through instead
// of a literal path:
//
//	// .luaurc
//	{ "aliases": { "ui": "./libs/ui" } }
//
//	// panel.rsml
//	@derive "@ui/button";
//
// When the configuration changes, Diff yields exactly the alias names whose
// target was added, removed or changed, and the build orchestrator
// recompiles the files recorded against those names in a Dependants map.
package aliases

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// entry is one alias definition.
type entry struct {
	Name   string
	Target string
}

// Table is an immutable, name-ordered set of alias definitions.
type Table struct {
	entries []entry
}

// NewTable builds a table from a name -> target map. A leading "@" on a name
// is dropped so "@ui" and "ui" define the same alias; when both are given,
// "ui" wins.
func NewTable(defs map[string]string) Table {
	type candidate struct {
		entry
		prefixed bool
	}
	candidates := make([]candidate, 0, len(defs))
	for name, target := range defs {
		trimmed := strings.TrimPrefix(name, "@")
		candidates = append(candidates, candidate{
			entry:    entry{Name: trimmed, Target: target},
			prefixed: trimmed != name,
		})
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		switch {
		case a.prefixed == b.prefixed:
			return 0
		case b.prefixed:
			return -1
		default:
			return 1
		}
	})

	entries := make([]entry, 0, len(candidates))
	for _, c := range candidates {
		if n := len(entries); n > 0 && entries[n-1].Name == c.Name {
			continue
		}
		entries = append(entries, c.entry)
	}
	return Table{entries: entries}
}

// Len returns the number of aliases.
func (t Table) Len() int {
	return len(t.entries)
}

// Get returns the target of the named alias.
func (t Table) Get(name string) (string, bool) {
	i, ok := slices.BinarySearchFunc(t.entries, name, func(e entry, name string) int {
		return strings.Compare(e.Name, name)
	})
	if !ok {
		return "", false
	}
	return t.entries[i].Target, true
}

// document is the shape shared by every supported configuration format.
// Keys other than "aliases" are ignored. Aliases is decoded loosely so that
// every format rejects a non-table value the same way.
type document struct {
	Aliases any `json:"aliases" toml:"aliases" yaml:"aliases"`
}

// Parse decodes an alias configuration. The decoder is chosen from the file
// name: ".toml" files are TOML, ".yaml"/".yml" files are YAML and anything
// else (including ".luaurc") is JSON.
func Parse(name string, data []byte) (Table, error) {
	var doc document

	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil {
			return Table{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if doc.Aliases == nil {
		return Table{}, ErrMissingAliases
	}
	raw, ok := doc.Aliases.(map[string]any)
	if !ok {
		return Table{}, fmt.Errorf("%w: aliases must be a table, got %T", ErrInvalidConfig, doc.Aliases)
	}
	defs := make(map[string]string, len(raw))
	for alias, v := range raw {
		target, ok := v.(string)
		if !ok {
			return Table{}, fmt.Errorf("%w: alias %q must be a string, got %T", ErrInvalidConfig, alias, v)
		}
		defs[alias] = target
	}
	return NewTable(defs), nil
}
