package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mschirtzinger/rsmlwatch/internal/compiler"
	"github.com/mschirtzinger/rsmlwatch/internal/pathutil"
)

const (
	// SourceExt is the extension of style sheet sources.
	SourceExt = ".rsml"
	// Suffix is the extension of compiled artifacts.
	Suffix = ".model.json"

	// TargetAttribute links a StyleDerive to the sheet it derives.
	TargetAttribute = "Rojo_Target_StyleSheet"
)

// Child is a StyleRule or a StyleDerive.
type Child interface {
	isChild()
}

// StyleSheet is the root of an artifact.
type StyleSheet struct {
	ClassName  string         `json:"className"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
	Children   []Child        `json:"children"`
}

// StyleRule is one compiled selector block. Selector, Priority and the
// rule's own properties (under PropertiesSerialize) live in Properties.
type StyleRule struct {
	Name       string         `json:"name,omitempty"`
	ClassName  string         `json:"className"`
	Attributes map[string]any `json:"attributes"`
	Properties map[string]any `json:"properties"`
	Children   []Child        `json:"children"`
}

// StyleDerive points at a derived sheet by its path relative to the input
// root.
type StyleDerive struct {
	ClassName  string            `json:"className"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

func (*StyleRule) isChild()   {}
func (*StyleDerive) isChild() {}

// Validate checks the fields every artifact must carry.
func (s *StyleSheet) Validate() error {
	if s.ClassName != "StyleSheet" {
		return fmt.Errorf("className must be StyleSheet, got %q", s.ClassName)
	}
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	return nil
}

// Build converts a compiled sheet into its artifact. path is the absolute
// source path and root the input root; the id and derive targets are
// recorded relative to root with forward slashes.
func Build(res *compiler.Result, path, root string) *StyleSheet {
	sheet := &StyleSheet{
		ClassName:  "StyleSheet",
		ID:         relative(path, root),
		Attributes: orEmpty(res.Attributes),
		Children:   []Child{},
	}

	for _, rule := range res.Rules {
		sheet.Children = append(sheet.Children, buildRule(rule))
	}
	for _, d := range res.Derives {
		sheet.Children = append(sheet.Children, &StyleDerive{
			ClassName: "StyleDerive",
			Name:      pathutil.Stem(d.Path),
			Attributes: map[string]string{
				TargetAttribute: relative(d.Path, root),
			},
		})
	}
	return sheet
}

func buildRule(rule *compiler.Rule) *StyleRule {
	name := rule.Name
	if name == "" {
		name = rule.Selector
	}

	props := map[string]any{
		"PropertiesSerialize": orEmpty(rule.Properties),
	}
	if rule.Selector != "" {
		props["Selector"] = rule.Selector
	}
	if rule.Priority != nil {
		props["Priority"] = *rule.Priority
	}

	out := &StyleRule{
		Name:       name,
		ClassName:  "StyleRule",
		Attributes: orEmpty(rule.Attributes),
		Properties: props,
		Children:   []Child{},
	}
	for _, child := range rule.Children {
		out.Children = append(out.Children, buildRule(child))
	}
	return out
}

// Encode serializes an artifact as JSON indented with four spaces. Map keys
// are sorted, so equal sheets encode to equal bytes.
func Encode(sheet *StyleSheet) ([]byte, error) {
	if err := sheet.Validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(sheet); err != nil {
		return nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ReadID extracts only the id field of an artifact.
func ReadID(data []byte) (string, error) {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("failed to parse artifact: %w", err)
	}
	return probe.ID, nil
}

// IsArtifact reports whether a file name is a compiled artifact.
func IsArtifact(name string) bool {
	return strings.HasSuffix(name, Suffix)
}

// IsSource reports whether a file name is a style sheet source.
func IsSource(name string) bool {
	return filepath.Ext(name) == SourceExt
}

// OutputPath maps a source under inputRoot to its artifact under
// outputRoot. ok is false when src is not under inputRoot.
func OutputPath(src, inputRoot, outputRoot string) (string, bool) {
	rebased, ok := pathutil.Rebase(src, inputRoot, outputRoot)
	if !ok {
		return "", false
	}
	return pathutil.WithExtension(rebased, Suffix), true
}

// LegacyPath is where older builds wrote the artifact for src: next to the
// source, named after its stem.
func LegacyPath(src string) string {
	return filepath.Join(filepath.Dir(src), pathutil.Stem(src)+Suffix)
}

// SourceFor maps an artifact id back to the source it claims to come from.
// ok is false when the id does not name a style sheet source.
func SourceFor(id, inputRoot string) (string, bool) {
	if !strings.HasSuffix(id, SourceExt) {
		return "", false
	}
	return filepath.Join(inputRoot, filepath.FromSlash(id)), true
}

func relative(path, root string) string {
	if rel, ok := pathutil.Relative(path, root); ok {
		return rel
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
