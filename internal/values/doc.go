// Package values converts release configuration documents to and from an
// editable indentation-based text form.
//
// A document is a tree of [Value]s rooted at a [Mapping]. Encode renders it
// as text that resembles a small subset of YAML:
//
//	image:
//	  repository: nginx
//	  tag: 1.25
//	replicas: 3
//	notes: |
//	  first line
//	  second line
//	ports:
//	  - 80
//	  - 443
//	env:
//	  - name: LOG_LEVEL
//	    value: debug
//
// Decode reads such text back, inferring scalar types and using
// indentation for nesting. It never fails: constructs it does not
// understand degrade to strings or are skipped.
//
// # Block scalars and lists
//
// A `key: |` line collects every following line indented deeper than the
// key into one multi-line string. A key with no value opens a nested
// container that becomes a list if its first child is a `- ` item and a
// mapping otherwise. A container with no children decodes as an empty
// mapping, so an empty list does not survive a round trip.
//
// # Ambiguous strings
//
// Scalars are written unquoted. A string whose text reads as null, a
// boolean or a number ("true", "42") therefore decodes as that type on the
// way back. This is accepted behavior, not a bug. Use [Ambiguities] to find
// such fields, or encode with [QuoteAmbiguous] to write them quoted.
//
// The package is not a YAML parser. Anchors, flow collections, multiple
// documents and escape sequences are not supported; [Lint] compares text
// against a real YAML reading to point out where the two disagree.
package values
