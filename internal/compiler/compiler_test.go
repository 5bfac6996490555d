package compiler

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"testing"
)

// memHost resolves derives relative to the deriving sheet and serves sheets
// from memory.
type memHost struct {
	files    map[string]string
	resolved []string
}

func (h *memHost) ReadFile(p string) ([]byte, error) {
	src, ok := h.files[p]
	if !ok {
		return nil, fmt.Errorf("%s: not found", p)
	}
	return []byte(src), nil
}

func (h *memHost) ResolveDerive(from, spec string) (Derive, error) {
	if strings.HasPrefix(spec, "@bad") {
		return Derive{}, errors.New("unknown alias")
	}
	alias := ""
	target := spec
	if strings.HasPrefix(spec, "@lib/") {
		alias = "lib"
		target = "/lib/" + strings.TrimPrefix(spec, "@lib/")
	} else if !path.IsAbs(spec) {
		target = path.Join(path.Dir(from), spec)
	}
	if !strings.HasSuffix(target, ".rsml") {
		target += ".rsml"
	}
	h.resolved = append(h.resolved, from+" -> "+target)
	return Derive{Spec: spec, Path: target, Alias: alias}, nil
}

func TestCompileRules(t *testing.T) {
	src := `
-- top level attribute
$Theme = "dark";

.Button {
	@name "Primary";
	@priority 10;
	$Round = true;
	BackgroundTransparency = 0.5;
	Text = 'Click; me';
	Font = Enum.Font.Gotham;

	::UICorner {
		CornerRadius = UDim.new(0, 4);
	}
}

#Title { TextSize = 24; }
`
	res, err := Compile([]byte(src), "/src/panel.rsml", &memHost{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if res.Attributes["Theme"] != "dark" {
		t.Errorf("Theme = %v, want dark", res.Attributes["Theme"])
	}
	if len(res.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(res.Rules))
	}

	button := res.Rules[0]
	if button.Selector != ".Button" || button.Name != "Primary" {
		t.Errorf("button = %q/%q", button.Selector, button.Name)
	}
	if button.Priority == nil || *button.Priority != 10 {
		t.Errorf("priority = %v, want 10", button.Priority)
	}
	if button.Attributes["Round"] != true {
		t.Errorf("Round = %v, want true", button.Attributes["Round"])
	}
	if button.Properties["BackgroundTransparency"] != 0.5 {
		t.Errorf("BackgroundTransparency = %v", button.Properties["BackgroundTransparency"])
	}
	if button.Properties["Text"] != "Click; me" {
		t.Errorf("Text = %v", button.Properties["Text"])
	}
	if button.Properties["Font"] != "Enum.Font.Gotham" {
		t.Errorf("Font = %v", button.Properties["Font"])
	}
	if len(button.Children) != 1 || button.Children[0].Properties["CornerRadius"] != "UDim.new(0, 4)" {
		t.Errorf("unexpected children: %+v", button.Children)
	}

	if res.Rules[1].Properties["TextSize"] != float64(24) {
		t.Errorf("TextSize = %v", res.Rules[1].Properties["TextSize"])
	}
}

func TestCompileDerivesAndMacros(t *testing.T) {
	host := &memHost{files: map[string]string{
		"/src/base.rsml":      `@derive "theme"; @macro Pad = 8;`,
		"/src/theme.rsml":     `@macro Accent = "red"; @macro Pad = 2;`,
		"/lib/button.rsml":    `@macro Radius = 4;`,
		"/src/unrelated.rsml": `@macro Accent = "blue";`,
	}}

	src := `
@derive "base", "@lib/button";
@macro Gap = Pad!;

.Frame {
	BorderColor = Accent!;
	Padding = Gap!;
	Corner = Radius!;
	Missing = Unknown!;
}
`
	res, err := Compile([]byte(src), "/src/panel.rsml", host)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if len(res.Derives) != 2 {
		t.Fatalf("got %d derives, want 2", len(res.Derives))
	}
	if res.Derives[0].Path != "/src/base.rsml" || res.Derives[0].Alias != "" {
		t.Errorf("derive 0 = %+v", res.Derives[0])
	}
	if res.Derives[1].Path != "/lib/button.rsml" || res.Derives[1].Alias != "lib" {
		t.Errorf("derive 1 = %+v", res.Derives[1])
	}

	props := res.Rules[0].Properties
	if props["BorderColor"] != "red" {
		t.Errorf("BorderColor = %v, want red from transitive derive", props["BorderColor"])
	}
	// base.rsml defines Pad itself, which wins over theme.rsml.
	if props["Padding"] != float64(8) {
		t.Errorf("Padding = %v, want 8", props["Padding"])
	}
	if props["Corner"] != float64(4) {
		t.Errorf("Corner = %v, want 4", props["Corner"])
	}
	if props["Missing"] != "Unknown!" {
		t.Errorf("Missing = %v, unknown macros must be left alone", props["Missing"])
	}

	want := []string{
		"/src/panel.rsml -> /src/base.rsml",
		"/src/base.rsml -> /src/theme.rsml",
		"/src/panel.rsml -> /lib/button.rsml",
	}
	if strings.Join(host.resolved, "\n") != strings.Join(want, "\n") {
		t.Errorf("resolved:\n%s\nwant:\n%s", strings.Join(host.resolved, "\n"), strings.Join(want, "\n"))
	}
}

func TestCompileDeriveCycle(t *testing.T) {
	host := &memHost{files: map[string]string{
		"/src/a.rsml": `@derive "b"; @macro A = 1;`,
		"/src/b.rsml": `@derive "a"; @macro B = 2;`,
	}}

	res, err := Compile([]byte(host.files["/src/a.rsml"]+` .X { V = B!; }`), "/src/a.rsml", host)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if res.Rules[0].Properties["V"] != float64(2) {
		t.Errorf("V = %v, want 2", res.Rules[0].Properties["V"])
	}
}

func TestCompileMissingDeriveIsNotAnError(t *testing.T) {
	res, err := Compile([]byte(`@derive "ghost"; .X { V = 1; }`), "/src/a.rsml", &memHost{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(res.Derives) != 1 || res.Derives[0].Path != "/src/ghost.rsml" {
		t.Errorf("derives = %+v", res.Derives)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unclosed block", `.X { V = 1;`, ErrSyntax},
		{"stray brace", `}`, ErrSyntax},
		{"missing semicolon", `.X { V = 1 }`, ErrSyntax},
		{"property outside rule", `V = 1;`, ErrSyntax},
		{"bad priority", `.X { @priority high; }`, ErrSyntax},
		{"unknown directive", `@import "x";`, ErrSyntax},
		{"unterminated string", ".X { V = \"abc; }\n", ErrSyntax},
		{"nested derive", `.X { @derive "a"; }`, ErrSyntax},
		{"empty derive", `@derive;`, ErrSyntax},
		{"unresolvable derive", `@derive "@bad/x";`, ErrDerive},
		{"recursive macro", `@macro L = L!; .X { V = L!; }`, ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]byte(tt.src), "/src/a.rsml", &memHost{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompileErrorReportsLine(t *testing.T) {
	_, err := Compile([]byte("$A = 1;\n\n.X {\n  oops;\n}\n"), "/src/a.rsml", &memHost{})
	if err == nil || !strings.Contains(err.Error(), "/src/a.rsml:4") {
		t.Fatalf("error = %v, want position /src/a.rsml:4", err)
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{`"quoted"`, "quoted"},
		{`'single'`, "single"},
		{`"esc\"aped"`, `esc"aped`},
		{"42", float64(42)},
		{"-1.25", -1.25},
		{"true", true},
		{"false", false},
		{"Color3.new(1, 0, 0)", "Color3.new(1, 0, 0)"},
	}

	for _, tt := range tests {
		if got := literal(tt.in); got != tt.want {
			t.Errorf("literal(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
