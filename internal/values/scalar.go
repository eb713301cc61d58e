package values

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// decimalPattern matches the numerals the decoder reads as numbers.
// Hex, octal, infinities and NaN are left as strings.
var decimalPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// parseScalar infers the type of an unquoted or quoted scalar.
func parseScalar(text string) Value {
	switch text {
	case "null":
		return Null()
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if n, ok := parseNumber(text); ok {
		return Number(n)
	}
	if unq, ok := unquote(text); ok {
		return String(unq)
	}
	return String(text)
}

func parseNumber(text string) (float64, bool) {
	if !decimalPattern.MatchString(text) {
		return 0, false
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// unquote strips one pair of matching single or double quotes.
// Escape sequences are not interpreted.
func unquote(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	first, last := text[0], text[len(text)-1]
	if (first == '"' || first == '\'') && first == last {
		return text[1 : len(text)-1], true
	}
	return "", false
}

// formatNumber renders n in plain decimal without trailing zeros, falling
// back to exponent form for very large or very small magnitudes.
func formatNumber(n float64) string {
	abs := math.Abs(n)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// scalarReason explains why a single-line string would not decode back to
// itself when written verbatim, or returns "" when it is safe. inList
// selects the rules for `- ` items. The empty string is always written
// quoted and is not reported.
func scalarReason(s string, inList bool) string {
	switch {
	case parseScalar(s).kind != KindString:
		return "reads back as " + parseScalar(s).kind.String()
	case strings.TrimSpace(s) != s:
		return "surrounding whitespace is trimmed"
	}
	if _, ok := blockHeader(s); ok {
		return "reads back as a block scalar marker"
	}
	if _, ok := unquote(s); ok {
		return "surrounding quotes are stripped"
	}
	if inList {
		if _, _, ok := splitItemPair(s); ok {
			return "reads back as a mapping"
		}
	}
	return ""
}

// quoteScalar wraps s in quotes that Decode strips again. List items
// fall back to single quotes when the double-quoted form would split
// into a key and value, e.g. for `a": b`.
func quoteScalar(s string, inList bool) string {
	dq := `"` + s + `"`
	if !inList {
		return dq
	}
	if _, _, split := splitItemPair(dq); !split {
		return dq
	}
	sq := "'" + s + "'"
	if _, _, split := splitItemPair(sq); !split {
		return sq
	}
	return dq
}

// keyReason explains why a mapping key would not decode back to itself.
// Keys are never quoted, so these are reported but cannot be repaired.
func keyReason(key string) string {
	switch {
	case strings.Contains(key, ":"):
		return "key contains ':' and is split on read"
	case strings.TrimSpace(key) != key:
		return "key has surrounding whitespace"
	case strings.HasPrefix(key, "#"):
		return "key starts with '#' and the line reads as a comment"
	case key == "-" || strings.HasPrefix(key, "- "):
		return "key reads as a list item"
	case strings.Contains(key, "\n"):
		return "key contains a newline"
	}
	return ""
}
