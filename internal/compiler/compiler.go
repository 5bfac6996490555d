// Package compiler turns RSML style sheet source into a tree of rules.
//
// The language is small:
//
//	-- comment
//	@derive "base", "@ui/button";   -- pull macros from other sheets
//	@macro Accent = Color3.fromRGB(255, 0, 0);
//	$Theme = "dark";                 -- attribute of the enclosing scope
//
//	.Button {
//	    @name "PrimaryButton";
//	    @priority 10;
//	    BackgroundColor3 = Accent!;
//	    ::UICorner { CornerRadius = UDim.new(0, 4); }
//	}
//
// Derive specifiers are resolved by the caller through Host.ResolveDerive,
// which lets the build orchestrator record dependency edges (and alias
// usage) as they are discovered. Macros defined in derived sheets, and in
// the sheets they derive in turn, are visible to the deriving sheet; that is
// what makes a derive a content dependency.
package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is an attribute or property value: string, float64, bool or, for
// unrecognised expressions, the raw source text as a string.
type Value = any

// Rule is one selector block.
type Rule struct {
	Selector   string
	Name       string
	Priority   *int
	Attributes map[string]Value
	Properties map[string]Value
	Children   []*Rule
}

// Derive is a resolved derive specifier.
type Derive struct {
	// Spec is the specifier as written in the source.
	Spec string
	// Path is the resolved absolute path of the derived sheet.
	Path string
	// Alias is the alias the specifier went through, or "".
	Alias string
}

// Result is the compiled form of one sheet.
type Result struct {
	Attributes map[string]Value
	Rules      []*Rule
	// Derives lists the sheet's own derives in source order.
	Derives []Derive
}

// Host supplies file access and derive resolution to Compile.
type Host interface {
	// ReadFile returns the content of a derived sheet.
	ReadFile(path string) ([]byte, error)
	// ResolveDerive resolves spec as written in the sheet at from.
	ResolveDerive(from, spec string) (Derive, error)
}

const maxMacroDepth = 16

// Compile compiles src, the content of the sheet at path.
//
// Every derive reachable from path is resolved through host exactly once,
// including derives of derived sheets; a derived sheet that cannot be read
// or parsed contributes no macros but is not an error.
func Compile(src []byte, path string, host Host) (*Result, error) {
	stmts, err := parse(path, src)
	if err != nil {
		return nil, err
	}

	c := &compilation{
		host:    host,
		macros:  make(map[string]string),
		visited: map[string]bool{path: true},
	}

	var derives []Derive
	for _, s := range stmts {
		if s.kind != stmtDerive {
			continue
		}
		for _, spec := range s.specs {
			d, err := host.ResolveDerive(path, spec)
			if err != nil {
				return nil, fmt.Errorf("%w: %s:%d: %v", ErrDerive, path, s.line, err)
			}
			derives = append(derives, d)
			c.collect(d.Path)
		}
	}

	// The sheet's own macros shadow derived ones.
	for _, s := range stmts {
		if s.kind == stmtMacro {
			c.macros[s.key] = s.value
		}
	}

	res := &Result{
		Attributes: make(map[string]Value),
		Derives:    derives,
	}
	for _, s := range stmts {
		switch s.kind {
		case stmtAttribute:
			v, err := c.value(path, s)
			if err != nil {
				return nil, err
			}
			res.Attributes[s.key] = v
		case stmtRule:
			rule, err := c.rule(path, s)
			if err != nil {
				return nil, err
			}
			res.Rules = append(res.Rules, rule)
		case stmtProperty, stmtPriority, stmtName:
			return nil, fmt.Errorf("%w: %s:%d: %s outside of a rule", ErrSyntax, path, s.line, describe(s))
		}
	}
	return res, nil
}

type compilation struct {
	host    Host
	macros  map[string]string
	visited map[string]bool
}

// collect gathers macros from a derived sheet and, depth first, from the
// sheets it derives. Nearer definitions win over farther ones.
func (c *compilation) collect(path string) {
	if c.visited[path] {
		return
	}
	c.visited[path] = true

	src, err := c.host.ReadFile(path)
	if err != nil {
		return
	}
	stmts, err := parse(path, src)
	if err != nil {
		return
	}

	for _, s := range stmts {
		if s.kind != stmtDerive {
			continue
		}
		for _, spec := range s.specs {
			d, err := c.host.ResolveDerive(path, spec)
			if err != nil {
				continue
			}
			c.collect(d.Path)
		}
	}
	for _, s := range stmts {
		if s.kind == stmtMacro {
			c.macros[s.key] = s.value
		}
	}
}

func (c *compilation) rule(path string, s stmt) (*Rule, error) {
	rule := &Rule{
		Selector:   s.key,
		Attributes: make(map[string]Value),
		Properties: make(map[string]Value),
	}

	for _, child := range s.children {
		switch child.kind {
		case stmtRule:
			sub, err := c.rule(path, child)
			if err != nil {
				return nil, err
			}
			rule.Children = append(rule.Children, sub)
		case stmtAttribute:
			v, err := c.value(path, child)
			if err != nil {
				return nil, err
			}
			rule.Attributes[child.key] = v
		case stmtProperty:
			v, err := c.value(path, child)
			if err != nil {
				return nil, err
			}
			rule.Properties[child.key] = v
		case stmtPriority:
			text, err := c.expand(path, child)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil {
				return nil, fmt.Errorf("%w: %s:%d: @priority expects an integer, got %q", ErrSyntax, path, child.line, text)
			}
			rule.Priority = &n
		case stmtName:
			text, err := c.expand(path, child)
			if err != nil {
				return nil, err
			}
			name, ok := literal(text).(string)
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: %s:%d: @name expects a string", ErrSyntax, path, child.line)
			}
			rule.Name = name
		case stmtDerive, stmtMacro:
			return nil, fmt.Errorf("%w: %s:%d: %s must be at the top level", ErrSyntax, path, child.line, describe(child))
		}
	}
	return rule, nil
}

func (c *compilation) value(path string, s stmt) (Value, error) {
	text, err := c.expand(path, s)
	if err != nil {
		return nil, err
	}
	return literal(text), nil
}

// expand substitutes NAME! macro references until none remain.
func (c *compilation) expand(path string, s stmt) (string, error) {
	text := s.value
	for depth := 0; depth < maxMacroDepth; depth++ {
		next, changed := substitute(text, c.macros)
		if !changed {
			return next, nil
		}
		text = next
	}
	return "", fmt.Errorf("%w: %s:%d: macro expansion too deep", ErrSyntax, path, s.line)
}

// substitute replaces each known NAME! with its definition once.
func substitute(text string, macros map[string]string) (string, bool) {
	var b strings.Builder
	changed := false
	i := 0
	for i < len(text) {
		c := text[i]
		if c == '"' || c == '\'' {
			j := i + 1
			for j < len(text) && text[j] != c {
				if text[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(text) {
				j++
			}
			b.WriteString(text[i:j])
			i = j
			continue
		}
		if isIdentStart(c) && (i == 0 || !isIdentPart(text[i-1])) {
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			if j < len(text) && text[j] == '!' {
				if def, ok := macros[text[i:j]]; ok {
					b.WriteString(def)
					changed = true
					i = j + 1
					continue
				}
			}
			b.WriteString(text[i:j])
			i = j
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), changed
}

// literal interprets a value expression.
func literal(text string) Value {
	text = strings.TrimSpace(text)
	if isQuoted(text) {
		if text[0] == '\'' {
			return strings.ReplaceAll(text[1:len(text)-1], `\'`, `'`)
		}
		if s, err := strconv.Unquote(text); err == nil {
			return s
		}
		return text[1 : len(text)-1]
	}
	switch text {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}

func isQuoted(text string) bool {
	return len(text) >= 2 && (text[0] == '"' || text[0] == '\'') && text[len(text)-1] == text[0]
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func describe(s stmt) string {
	switch s.kind {
	case stmtDerive:
		return "@derive"
	case stmtMacro:
		return "@macro"
	case stmtPriority:
		return "@priority"
	case stmtName:
		return "@name"
	case stmtProperty:
		return "property " + s.key
	case stmtAttribute:
		return "attribute $" + s.key
	default:
		return "rule " + s.key
	}
}
