package values

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FindingKind classifies a Finding.
type FindingKind int

const (
	// FindingIndent marks lines indented with tabs.
	FindingIndent FindingKind = iota
	// FindingDivergence marks fields Decode and a YAML reader disagree on,
	// and text YAML cannot read at all.
	FindingDivergence
	// FindingUnstable marks decoded strings that change type when encoded
	// again without QuoteAmbiguous.
	FindingUnstable
)

// Finding is one advisory note from Lint. Line is 1-based, or 0 when the
// finding is not tied to a line.
type Finding struct {
	Kind    FindingKind
	Line    int
	Path    string
	Message string
}

func (f Finding) String() string {
	var b strings.Builder
	if f.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", f.Line)
	}
	if f.Path != "" {
		b.WriteString(f.Path)
		b.WriteString(": ")
	}
	b.WriteString(f.Message)
	return b.String()
}

// Lint reports places where text may not mean what its author expects.
// It never changes what Decode returns. Three kinds of notes are made:
//
//   - lines indented with tabs
//   - fields that Decode and a YAML reader interpret differently
//   - decoded strings that would change type if encoded again without
//     QuoteAmbiguous
func Lint(text string) []Finding {
	var findings []Finding

	for i, l := range strings.Split(text, "\n") {
		lead := l[:indentOf(l)]
		if strings.Contains(lead, "\t") && strings.TrimSpace(l) != "" {
			findings = append(findings, Finding{Kind: FindingIndent, Line: i + 1, Message: "indentation uses tabs"})
		}
	}

	decoded := Decode(text)
	findings = append(findings, compareYAML(text, decoded)...)

	for _, a := range Ambiguities(decoded) {
		findings = append(findings, Finding{Kind: FindingUnstable, Path: a.Path, Message: "not stable across re-encoding: " + a.Reason})
	}
	return findings
}

func compareYAML(text string, decoded *Mapping) []Finding {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return []Finding{{Kind: FindingDivergence, Message: "not valid YAML: " + err.Error()}}
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == 0 || root.Kind == yaml.DocumentNode {
		if decoded.Len() == 0 {
			return nil
		}
		return []Finding{{Kind: FindingDivergence, Message: "YAML reads an empty document"}}
	}
	if root.Kind != yaml.MappingNode {
		return []Finding{{Kind: FindingDivergence, Line: root.Line, Message: "YAML does not read a mapping at the top level"}}
	}

	c := &yamlComparer{lines: make(map[string]int)}
	theirs := c.value(root, "")
	c.compare("", Map(decoded), theirs)
	return c.findings
}

type yamlComparer struct {
	lines    map[string]int
	literal  map[string]bool
	findings []Finding
}

func (c *yamlComparer) value(n *yaml.Node, path string) Value {
	c.lines[path] = n.Line
	switch n.Kind {
	case yaml.AliasNode:
		// Aliases are not followed; nested ones expand exponentially.
		// Decode reads the reference as a plain string.
		name := n.Value
		if name == "" && n.Alias != nil {
			name = n.Alias.Anchor
		}
		c.add(path, "YAML reads an alias to &"+name+", read here as a string")
		return String("*" + name)
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			child := joinPath(path, key)
			m.Set(key, c.value(n.Content[i+1], child))
			c.lines[child] = n.Content[i].Line
		}
		return Map(m)
	case yaml.SequenceNode:
		items := make([]Value, len(n.Content))
		for i, item := range n.Content {
			items[i] = c.value(item, fmt.Sprintf("%s[%d]", path, i))
		}
		return List(items...)
	case yaml.ScalarNode:
		if n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
			if c.literal == nil {
				c.literal = make(map[string]bool)
			}
			c.literal[path] = true
		}
		switch n.ShortTag() {
		case "!!null":
			return Null()
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err == nil {
				return Bool(b)
			}
		case "!!int", "!!float":
			var f float64
			if err := n.Decode(&f); err == nil {
				return Number(f)
			}
		}
		return String(n.Value)
	}
	return Null()
}

func (c *yamlComparer) compare(path string, ours, theirs Value) {
	if ours.kind == KindMapping && theirs.kind == KindMapping {
		for k, ov := range ours.m.All() {
			p := joinPath(path, k)
			tv, ok := theirs.m.Get(k)
			if !ok {
				c.add(p, fmt.Sprintf("YAML does not read this key (read here as %s)", ov.GoString()))
				continue
			}
			c.compare(p, ov, tv)
		}
		for k := range theirs.m.All() {
			if _, ok := ours.m.Get(k); !ok {
				c.add(joinPath(path, k), "YAML reads this key, but it is skipped here")
			}
		}
		return
	}
	if ours.kind == KindList && theirs.kind == KindList && len(ours.items) == len(theirs.items) {
		for i := range ours.items {
			c.compare(fmt.Sprintf("%s[%d]", path, i), ours.items[i], theirs.items[i])
		}
		return
	}
	// A YAML literal block keeps its final line break; ours does not.
	if ours.kind == KindString && theirs.kind == KindString && c.literal[path] &&
		strings.TrimSuffix(theirs.s, "\n") == ours.s {
		return
	}
	if Equal(ours, theirs) {
		return
	}
	c.add(path, fmt.Sprintf("read here as %s, YAML reads %s", ours.GoString(), theirs.GoString()))
}

func (c *yamlComparer) add(path, msg string) {
	c.findings = append(c.findings, Finding{Kind: FindingDivergence, Line: c.lines[path], Path: path, Message: msg})
}
