package values

import (
	"fmt"
	"math"
	"strings"
)

// Ambiguity is a field that would not read back unchanged after Encode
// without options.
type Ambiguity struct {
	// Path locates the field, e.g. "image.tag" or "env[0].value".
	Path string
	// Reason says what the decoder would make of it.
	Reason string
}

func (a Ambiguity) String() string {
	return fmt.Sprintf("%s: %s", a.Path, a.Reason)
}

// Ambiguities lists the fields of m whose verbatim rendering decodes to
// something else, most commonly strings such as "true" or "8080" that
// read back as booleans or numbers. Fields are reported in document order.
//
// Scalar findings disappear when encoding with QuoteAmbiguous; key
// findings cannot be repaired by the encoder.
func Ambiguities(m *Mapping) []Ambiguity {
	var out []Ambiguity
	walkAmbiguities(m, "", &out)
	return out
}

func walkAmbiguities(m *Mapping, prefix string, out *[]Ambiguity) {
	for k, v := range m.All() {
		path := joinPath(prefix, k)
		if reason := keyReason(k); reason != "" {
			*out = append(*out, Ambiguity{Path: path, Reason: reason})
		}
		valueAmbiguities(v, path, false, out)
	}
}

func valueAmbiguities(v Value, path string, inList bool, out *[]Ambiguity) {
	switch v.kind {
	case KindMapping:
		walkAmbiguities(v.m, path, out)
	case KindList:
		for i, item := range v.items {
			valueAmbiguities(item, fmt.Sprintf("%s[%d]", path, i), true, out)
		}
		if len(v.items) == 0 {
			*out = append(*out, Ambiguity{Path: path, Reason: "empty list reads back as an empty mapping"})
		}
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			*out = append(*out, Ambiguity{Path: path, Reason: "non-finite number reads back as string"})
		}
	case KindString:
		if strings.Contains(v.s, "\n") {
			return
		}
		if reason := scalarReason(v.s, inList); reason != "" {
			*out = append(*out, Ambiguity{Path: path, Reason: reason})
		}
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
