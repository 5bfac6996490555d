package compiler

import (
	"fmt"
	"strings"
)

type stmtKind int

const (
	stmtRule stmtKind = iota
	stmtDerive
	stmtMacro
	stmtAttribute
	stmtProperty
	stmtPriority
	stmtName
)

// stmt is one unexpanded statement. Values keep their source text so macros
// can be substituted once every derived file has been read.
type stmt struct {
	kind     stmtKind
	line     int
	key      string
	value    string
	specs    []string
	children []stmt
}

type parser struct {
	path string
	src  string
	pos  int
	line int
}

func parse(path string, src []byte) ([]stmt, error) {
	p := &parser{path: path, src: string(src), line: 1}
	return p.block(false)
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return fmt.Errorf("%w: %s:%d: %s", ErrSyntax, p.path, line, fmt.Sprintf(format, args...))
}

// block parses statements until EOF or, when nested, the closing brace.
func (p *parser) block(nested bool) ([]stmt, error) {
	var out []stmt
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			if nested {
				return nil, p.errorf(p.line, "unclosed block")
			}
			return out, nil
		}
		if p.src[p.pos] == '}' {
			if !nested {
				return nil, p.errorf(p.line, "unexpected '}'")
			}
			p.pos++
			return out, nil
		}

		line := p.line
		head, term, err := p.head()
		if err != nil {
			return nil, err
		}

		switch term {
		case '{':
			selector := strings.TrimSpace(head)
			if selector == "" {
				return nil, p.errorf(line, "rule without selector")
			}
			children, err := p.block(true)
			if err != nil {
				return nil, err
			}
			out = append(out, stmt{kind: stmtRule, line: line, key: selector, children: children})
		case ';':
			s, err := p.statement(line, strings.TrimSpace(head))
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		default:
			if strings.TrimSpace(head) != "" {
				return nil, p.errorf(line, "expected ';' after %q", strings.TrimSpace(head))
			}
		}
	}
}

// head reads text up to the next ';', '{' or '}' outside of strings and
// comments. A ';' or '{' is consumed; a '}' is left for the enclosing block.
// term is 0 at EOF.
func (p *parser) head() (string, byte, error) {
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '"' || c == '\'':
			start := p.line
			lit, err := p.quoted(c)
			if err != nil {
				return "", 0, p.errorf(start, "%v", err)
			}
			b.WriteString(lit)
		case c == '-' && strings.HasPrefix(p.src[p.pos:], "--"):
			p.skipComment()
		case c == ';' || c == '{':
			p.pos++
			return b.String(), c, nil
		case c == '}':
			return b.String(), c, nil
		default:
			if c == '\n' {
				p.line++
			}
			b.WriteByte(c)
			p.pos++
		}
	}
	return b.String(), 0, nil
}

// quoted consumes a string literal and returns it verbatim, quotes included.
func (p *parser) quoted(q byte) (string, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\\':
			p.pos += 2
			continue
		case '\n':
			return "", fmt.Errorf("unterminated string")
		case q:
			p.pos++
			return p.src[start:p.pos], nil
		}
		p.pos++
	}
	return "", fmt.Errorf("unterminated string")
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '-' && strings.HasPrefix(p.src[p.pos:], "--"):
			p.skipComment()
		default:
			return
		}
	}
}

func (p *parser) skipComment() {
	for p.pos < len(p.src) && p.src[p.pos] != '\n' {
		p.pos++
	}
}

func (p *parser) statement(line int, text string) (stmt, error) {
	switch {
	case strings.HasPrefix(text, "@derive"):
		specs, err := splitSpecs(strings.TrimSpace(strings.TrimPrefix(text, "@derive")))
		if err != nil || len(specs) == 0 {
			return stmt{}, p.errorf(line, "@derive expects one or more quoted paths")
		}
		return stmt{kind: stmtDerive, line: line, specs: specs}, nil

	case strings.HasPrefix(text, "@macro"):
		key, value, ok := splitAssign(strings.TrimPrefix(text, "@macro"))
		if !ok || !isIdent(key) {
			return stmt{}, p.errorf(line, "@macro expects NAME = value")
		}
		return stmt{kind: stmtMacro, line: line, key: key, value: value}, nil

	case strings.HasPrefix(text, "@priority"):
		return stmt{kind: stmtPriority, line: line, value: strings.TrimSpace(strings.TrimPrefix(text, "@priority"))}, nil

	case strings.HasPrefix(text, "@name"):
		return stmt{kind: stmtName, line: line, value: strings.TrimSpace(strings.TrimPrefix(text, "@name"))}, nil

	case strings.HasPrefix(text, "@"):
		return stmt{}, p.errorf(line, "unknown directive %q", strings.Fields(text)[0])

	case strings.HasPrefix(text, "$"):
		key, value, ok := splitAssign(text[1:])
		if !ok || !isIdent(key) {
			return stmt{}, p.errorf(line, "attribute expects $Name = value")
		}
		return stmt{kind: stmtAttribute, line: line, key: key, value: value}, nil

	default:
		key, value, ok := splitAssign(text)
		if !ok || !isIdent(key) {
			return stmt{}, p.errorf(line, "expected Property = value, got %q", text)
		}
		return stmt{kind: stmtProperty, line: line, key: key, value: value}, nil
	}
}

func splitAssign(text string) (string, string, bool) {
	key, value, ok := strings.Cut(text, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", false
	}
	return key, value, true
}

// splitSpecs splits a comma separated list of quoted derive specifiers.
func splitSpecs(text string) ([]string, error) {
	var specs []string
	for _, part := range strings.Split(text, ",") {
		v, ok := literal(strings.TrimSpace(part)).(string)
		if !ok || !isQuoted(strings.TrimSpace(part)) || v == "" {
			return nil, fmt.Errorf("invalid derive %q", part)
		}
		specs = append(specs, v)
	}
	return specs, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
