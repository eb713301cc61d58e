package values

import (
	"strings"
)

// node is a container under construction. A container opened by an empty
// value stays pending until its first child decides between mapping and
// list.
type node struct {
	pending bool
	list    bool
	keys    []string
	fields  map[string]*node
	items   []*node
	leaf    *Value
}

func newPending() *node { return &node{pending: true} }

func newMapNode() *node { return &node{fields: make(map[string]*node)} }

func newLeaf(v Value) *node { return &node{leaf: &v} }

func (n *node) isMap() bool { return !n.pending && !n.list && n.leaf == nil }

func (n *node) becomeMap() {
	n.pending = false
	n.fields = make(map[string]*node)
}

func (n *node) becomeList() {
	n.pending = false
	n.list = true
}

func (n *node) set(key string, child *node) {
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = child
}

func (n *node) value() Value {
	switch {
	case n.leaf != nil:
		return *n.leaf
	case n.list:
		items := make([]Value, len(n.items))
		for i, item := range n.items {
			items[i] = item.value()
		}
		return List(items...)
	default:
		m := NewMapping()
		for _, k := range n.keys {
			m.Set(k, n.fields[k].value())
		}
		return Map(m)
	}
}

// frame records a container and the indentation of the line that opened
// it. keyed marks frames opened by `key:` rather than by a `- ` item.
type frame struct {
	n      *node
	indent int
	keyed  bool
}

type decoder struct {
	lines []string
	pos   int
	stack []frame
}

// Decode parses text produced by Encode, or a hand edit of it, into a
// mapping. It never fails; lines it cannot interpret are skipped and
// values it cannot type are kept as strings.
func Decode(text string) *Mapping {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	root := newMapNode()
	d := &decoder{
		lines: lines,
		stack: []frame{{n: root, indent: -1}},
	}
	for d.pos = 0; d.pos < len(d.lines); d.pos++ {
		d.line(d.lines[d.pos])
	}
	return root.value().AsMapping()
}

func (d *decoder) line(raw string) {
	content := strings.TrimSpace(raw)
	if content == "" || strings.HasPrefix(content, "#") {
		return
	}
	indent := indentOf(raw)
	item := isItem(content)
	d.unwind(indent, item)

	parent := d.stack[len(d.stack)-1].n
	if item {
		d.item(parent, content, indent)
		return
	}
	key, valueText, ok := splitPair(content)
	if !ok {
		return
	}
	if parent.pending {
		parent.becomeMap()
	}
	if !parent.isMap() {
		return
	}
	d.pair(parent, key, valueText, indent)
}

// unwind pops frames that cannot contain a line at indent. A `- ` item at
// the same indent as its key is kept under that key.
func (d *decoder) unwind(indent int, item bool) {
	for len(d.stack) > 1 {
		top := d.stack[len(d.stack)-1]
		if top.indent < indent {
			return
		}
		if top.indent == indent && item && top.keyed && (top.n.pending || top.n.list) {
			return
		}
		d.stack = d.stack[:len(d.stack)-1]
	}
}

// pair assigns one `key: value` into parent. col is the column of key.
func (d *decoder) pair(parent *node, key, valueText string, col int) {
	if width, ok := blockHeader(valueText); ok {
		parent.set(key, newLeaf(String(d.block(col, width))))
		return
	}
	if valueText == "" {
		child := newPending()
		parent.set(key, child)
		d.stack = append(d.stack, frame{n: child, indent: col, keyed: true})
		return
	}
	parent.set(key, newLeaf(parseScalar(valueText)))
}

// item appends one `- ...` line to parent, which must be a list or a
// container that has not yet received a child.
func (d *decoder) item(parent *node, content string, col int) {
	if parent.pending {
		parent.becomeList()
	}
	if !parent.list {
		return
	}
	rest := strings.TrimLeft(content[1:], " \t")
	if width, ok := blockHeader(rest); ok {
		parent.items = append(parent.items, newLeaf(String(d.block(col, width))))
		return
	}
	switch {
	case rest == "":
		child := newPending()
		parent.items = append(parent.items, child)
		d.stack = append(d.stack, frame{n: child, indent: col})
	default:
		key, valueText, ok := splitItemPair(rest)
		if !ok {
			parent.items = append(parent.items, newLeaf(parseScalar(rest)))
			return
		}
		elem := newMapNode()
		parent.items = append(parent.items, elem)
		d.stack = append(d.stack, frame{n: elem, indent: col})
		d.pair(elem, key, valueText, col+len(content)-len(rest))
	}
}

// blockHeader reports whether text opens a block scalar: "|" or "|" with
// an indentation width from 1 to 9. Width is 0 when not given.
func blockHeader(text string) (width int, ok bool) {
	switch {
	case text == "|":
		return 0, true
	case len(text) == 2 && text[0] == '|' && text[1] >= '1' && text[1] <= '9':
		return int(text[1] - '0'), true
	}
	return 0, false
}

// block consumes the lines after a `|` marker that belongs to a line at
// indent owner and returns them as one string. The block runs until the
// first non-blank line indented at or left of owner. Content starts width
// columns right of owner, or at the least indented line when width is 0.
func (d *decoder) block(owner, width int) string {
	start := d.pos + 1
	end := start
	base := -1
	for end < len(d.lines) {
		l := d.lines[end]
		if strings.TrimSpace(l) != "" {
			in := indentOf(l)
			if in <= owner {
				break
			}
			if base < 0 || in < base {
				base = in
			}
		}
		end++
	}
	switch {
	case width > 0:
		base = owner + width
	case base < 0:
		base = owner + len(indentUnit)
	}
	// Trailing blank lines only belong to the block when they carry its
	// indentation; the encoder writes them that way.
	for end > start && strings.TrimSpace(d.lines[end-1]) == "" && len(d.lines[end-1]) < base {
		end--
	}

	out := make([]string, 0, end-start)
	for _, l := range d.lines[start:end] {
		switch {
		case strings.TrimSpace(l) == "" && len(l) < base:
			out = append(out, "")
		case indentOf(l) < base:
			// Under-indented content for an explicit width.
			out = append(out, l[indentOf(l):])
		default:
			out = append(out, l[base:])
		}
	}
	d.pos = end - 1
	return strings.Join(out, "\n")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func isItem(content string) bool {
	return content == "-" || strings.HasPrefix(content, "- ") || strings.HasPrefix(content, "-\t")
}

// splitPair splits a mapping line at its first ':'.
func splitPair(content string) (key, value string, ok bool) {
	i := strings.IndexByte(content, ':')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(content[:i]), strings.TrimSpace(content[i+1:]), true
}

// splitItemPair splits the text after a `- ` marker into key and value.
// Unlike splitPair it requires the ':' to end the text or be followed by
// whitespace, so that scalars such as URLs stay scalars. A ':' inside a
// leading quoted span does not split, so `"a: b"` is a scalar while
// `"a": b` is a pair whose key keeps its quotes, as in splitPair.
func splitItemPair(text string) (key, value string, ok bool) {
	from := 0
	if len(text) > 0 && (text[0] == '"' || text[0] == '\'') {
		if end := strings.IndexByte(text[1:], text[0]); end >= 0 {
			from = end + 2
		}
	}
	for i := from; i < len(text); i++ {
		if text[i] != ':' {
			continue
		}
		if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\t' {
			return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:]), true
		}
	}
	return "", "", false
}
