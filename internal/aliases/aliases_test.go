package aliases

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t Table, u Table) []string {
	return slices.Collect(Diff(t, u))
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		old  map[string]string
		new  map[string]string
		want []string
	}{
		{
			name: "identical tables",
			old:  map[string]string{"ui": "libs/ui", "core": "libs/core"},
			new:  map[string]string{"ui": "libs/ui", "core": "libs/core"},
			want: nil,
		},
		{
			name: "changed value",
			old:  map[string]string{"ui": "libs/ui", "core": "libs/core"},
			new:  map[string]string{"ui": "libs/ui2", "core": "libs/core"},
			want: []string{"ui"},
		},
		{
			name: "added and removed",
			old:  map[string]string{"a": "1", "c": "3"},
			new:  map[string]string{"b": "2", "c": "3", "d": "4"},
			want: []string{"a", "b", "d"},
		},
		{
			name: "old empty",
			old:  nil,
			new:  map[string]string{"z": "1", "a": "2"},
			want: []string{"a", "z"},
		},
		{
			name: "new empty",
			old:  map[string]string{"m": "1", "b": "2"},
			new:  nil,
			want: []string{"b", "m"},
		},
		{
			name: "interleaved",
			old:  map[string]string{"a": "1", "c": "3", "e": "5", "g": "7"},
			new:  map[string]string{"b": "2", "c": "x", "e": "5", "f": "6"},
			want: []string{"a", "b", "c", "f", "g"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(NewTable(tt.old), NewTable(tt.new))
			assert.Equal(t, tt.want, got)
			assert.True(t, slices.IsSorted(got), "diff must be ascending")
		})
	}
}

func TestDiffIsSymmetric(t *testing.T) {
	a := NewTable(map[string]string{"a": "1", "b": "2", "c": "3"})
	b := NewTable(map[string]string{"b": "9", "c": "3", "d": "4"})

	assert.Equal(t, collect(a, b), collect(b, a))
}

func TestDiffStopsEarly(t *testing.T) {
	a := NewTable(map[string]string{"a": "1", "b": "2", "c": "3"})
	var seen []string
	for name := range Diff(a, Table{}) {
		seen = append(seen, name)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"luaurc json", ".luaurc", `{"languageMode": "strict", "aliases": {"ui": "./libs/ui", "@core": "libs/core"}}`},
		{"toml", "luaurc.toml", "[aliases]\nui = \"./libs/ui\"\ncore = \"libs/core\"\n"},
		{"yaml", "luaurc.yaml", "aliases:\n  ui: ./libs/ui\n  core: libs/core\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(tt.file, []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, 2, table.Len())

			target, ok := table.Get("ui")
			require.True(t, ok)
			assert.Equal(t, "./libs/ui", target)

			target, ok = table.Get("core")
			require.True(t, ok)
			assert.Equal(t, "libs/core", target)
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(".luaurc", []byte(`{not json`))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Parse(".luaurc", []byte(`{"languageMode": "strict"}`))
	assert.True(t, errors.Is(err, ErrMissingAliases))

	invalid := []struct {
		file string
		data string
	}{
		{"aliases.toml", "aliases = 3"},
		{"aliases.toml", "[aliases]\nui = 3\n"},
		{"luaurc.yaml", "aliases:\n  - ui\n"},
		{"luaurc.yaml", "aliases:\n  ui:\n    nested: true\n"},
		{".luaurc", `{"aliases": ["ui"]}`},
		{".luaurc", `{"aliases": {"ui": 1}}`},
	}
	for _, tt := range invalid {
		table, err := Parse(tt.file, []byte(tt.data))
		assert.True(t, errors.Is(err, ErrInvalidConfig), "%s %q: got %v", tt.file, tt.data, err)
		assert.Equal(t, 0, table.Len())
	}
}

func TestNewTablePrefersUnprefixedName(t *testing.T) {
	defs := map[string]string{"@ui": "./prefixed", "ui": "./plain", "@core": "./core"}

	// Map iteration order varies between runs; the outcome must not.
	for i := 0; i < 50; i++ {
		table := NewTable(defs)
		require.Equal(t, 2, table.Len())

		target, ok := table.Get("ui")
		require.True(t, ok)
		assert.Equal(t, "./plain", target)

		target, ok = table.Get("core")
		require.True(t, ok)
		assert.Equal(t, "./core", target)

		assert.Empty(t, collect(table, NewTable(defs)))
	}
}

func TestResolve(t *testing.T) {
	base := filepath.FromSlash("/project")
	table := NewTable(map[string]string{
		"ui":   "./libs/ui",
		"abs":  "/opt/styles",
		"root": ".",
	})

	tests := []struct {
		spec      string
		wantAlias string
		wantPath  string
		wantOK    bool
	}{
		{"@ui/button", "ui", "/project/libs/ui/button", true},
		{"@ui", "ui", "/project/libs/ui", true},
		{"@abs/theme/dark", "abs", "/opt/styles/theme/dark", true},
		{"@root/base", "root", "/project/base", true},
		{"@missing/x", "", "", false},
		{"plain/path", "", "", false},
		{"@", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			alias, path, ok := table.Resolve(tt.spec, base)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantAlias, alias)
			if tt.wantOK {
				assert.Equal(t, filepath.FromSlash(tt.wantPath), path)
			}
		})
	}
}

func TestIsConfigName(t *testing.T) {
	for _, name := range []string{".luaurc", "luaurc", "luaurc.json", ".luaurc.toml", "project.luaurc"} {
		assert.True(t, IsConfigName(name), name)
	}
	for _, name := range []string{"rsml.toml", "luaurcx", "panel.rsml", ".git"} {
		assert.False(t, IsConfigName(name), name)
	}
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(input, 0755))

	t.Run("none", func(t *testing.T) {
		src, err := Locate(input, "")
		require.NoError(t, err)
		assert.Equal(t, OriginNone, src.Origin)
	})

	t.Run("discovered in parent", func(t *testing.T) {
		parentCfg := filepath.Join(root, ".luaurc")
		require.NoError(t, os.WriteFile(parentCfg, []byte(`{"aliases":{}}`), 0644))
		defer os.Remove(parentCfg)

		src, err := Locate(input, "")
		require.NoError(t, err)
		assert.Equal(t, OriginDiscovered, src.Origin)
		assert.Equal(t, parentCfg, src.Path)
	})

	t.Run("input dir wins over parent", func(t *testing.T) {
		parentCfg := filepath.Join(root, ".luaurc")
		inputCfg := filepath.Join(input, "luaurc.json")
		require.NoError(t, os.WriteFile(parentCfg, []byte(`{"aliases":{}}`), 0644))
		require.NoError(t, os.WriteFile(inputCfg, []byte(`{"aliases":{}}`), 0644))
		defer os.Remove(parentCfg)
		defer os.Remove(inputCfg)

		src, err := Locate(input, "")
		require.NoError(t, err)
		assert.Equal(t, inputCfg, src.Path)
	})

	t.Run("explicit", func(t *testing.T) {
		cfg := filepath.Join(root, "custom.json")
		require.NoError(t, os.WriteFile(cfg, []byte(`{"aliases":{}}`), 0644))

		src, err := Locate(input, cfg)
		require.NoError(t, err)
		assert.Equal(t, OriginExplicit, src.Origin)
		assert.Equal(t, cfg, src.Path)
	})

	t.Run("explicit missing", func(t *testing.T) {
		_, err := Locate(input, filepath.Join(root, "nope.luaurc"))
		assert.True(t, errors.Is(err, ErrConfigNotFound))
	})
}

func TestDependantsTracksAliasConsumers(t *testing.T) {
	deps := NewDependants()
	deps.Insert("ui", "/src/panel.rsml")
	deps.Insert("ui", "/src/menu.rsml")
	deps.Insert("core", "/src/panel.rsml")

	deps.RemoveByRight("/src/panel.rsml")

	files, ok := deps.GetByLeft("ui")
	require.True(t, ok)
	assert.Equal(t, []string{"/src/menu.rsml"}, files)
	_, ok = deps.GetByLeft("core")
	assert.False(t, ok)
}
