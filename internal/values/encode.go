package values

import (
	"strconv"
	"strings"
)

// indentUnit is the indentation the encoder adds per nesting level.
const indentUnit = "  "

// EncodeOption configures Encode.
type EncodeOption func(*encoder)

// QuoteAmbiguous makes Encode wrap in double quotes every string that
// would otherwise decode as a different value, such as "true", "42" or a
// string with surrounding spaces. Without it such strings are written
// verbatim and change type when read back.
func QuoteAmbiguous() EncodeOption {
	return func(e *encoder) {
		e.quoteAmbiguous = true
	}
}

type encoder struct {
	b              strings.Builder
	quoteAmbiguous bool
}

// Encode renders m as indentation-based text. Keys are written in
// declaration order, one logical line per scalar, each line terminated by
// a newline. An empty mapping encodes to the empty string.
func Encode(m *Mapping, opts ...EncodeOption) string {
	e := &encoder{}
	for _, opt := range opts {
		opt(e)
	}
	e.mapping(m, 0)
	return e.b.String()
}

func (e *encoder) line(depth int, text string) {
	e.b.WriteString(strings.Repeat(indentUnit, depth))
	e.b.WriteString(text)
	e.b.WriteByte('\n')
}

func (e *encoder) mapping(m *Mapping, depth int) {
	for k, v := range m.All() {
		e.entry(k, v, depth)
	}
}

func (e *encoder) entry(key string, v Value, depth int) {
	switch v.kind {
	case KindMapping:
		e.line(depth, key+":")
		e.mapping(v.m, depth+1)
	case KindList:
		e.line(depth, key+":")
		e.list(v.items, depth+1)
	case KindString:
		if strings.Contains(v.s, "\n") {
			e.line(depth, key+": "+blockMarker(v.s))
			e.block(v.s, depth+1)
			return
		}
		e.line(depth, key+": "+e.scalar(v, false))
	default:
		e.line(depth, key+": "+e.scalar(v, false))
	}
}

// blockMarker returns the header for a block holding s. When the first
// non-blank line starts with whitespace the indentation width is written
// out, otherwise the decoder would take that whitespace as indentation.
func blockMarker(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if l[0] == ' ' || l[0] == '\t' {
			return "|" + strconv.Itoa(len(indentUnit))
		}
		break
	}
	return "|"
}

// block writes each line of s verbatim at depth, including empty lines,
// so trailing newlines survive a round trip.
func (e *encoder) block(s string, depth int) {
	for _, l := range strings.Split(s, "\n") {
		e.line(depth, l)
	}
}

func (e *encoder) list(items []Value, depth int) {
	for _, item := range items {
		switch item.kind {
		case KindMapping:
			if item.m.Len() == 0 {
				e.line(depth, "-")
				continue
			}
			// The pairs are rendered one level deeper and the marker
			// replaces the indentation of the first one, which keeps the
			// remaining pairs aligned under it.
			sub := &encoder{quoteAmbiguous: e.quoteAmbiguous}
			sub.mapping(item.m, depth+1)
			out := sub.b.String()
			e.b.WriteString(strings.Repeat(indentUnit, depth))
			e.b.WriteString("- ")
			e.b.WriteString(out[len(indentUnit)*(depth+1):])
		case KindList:
			e.line(depth, "-")
			e.list(item.items, depth+1)
		case KindString:
			if strings.Contains(item.s, "\n") {
				e.line(depth, "- "+blockMarker(item.s))
				e.block(item.s, depth+1)
				continue
			}
			e.line(depth, "- "+e.scalar(item, true))
		default:
			e.line(depth, "- "+e.scalar(item, true))
		}
	}
}

func (e *encoder) scalar(v Value, inList bool) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.n)
	default:
		if v.s == "" {
			return `""`
		}
		if e.quoteAmbiguous && scalarReason(v.s, inList) != "" {
			return quoteScalar(v.s, inList)
		}
		return v.s
	}
}
