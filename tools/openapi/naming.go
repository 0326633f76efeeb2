package openapi

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"
)

// DefaultMaxNameLength is the longest tool name most tool-calling clients accept.
const DefaultMaxNameLength = 64

// toolName derives the tool name of an operation: the operation id verbatim,
// or <method>_<normalized-path> when the id is absent.
func toolName(op *Operation, prefix string, maxLen int) string {
	name := op.ID
	if name == "" {
		name = strings.ToLower(op.Method) + "_" + normalizePath(op.Path)
	}
	return limitName(prefix+name, maxLen)
}

// normalizePath turns "/pets/{petId}/photos" into "pets_petId_photos".
func normalizePath(path string) string {
	var b strings.Builder
	underscore := false
	for _, r := range path {
		switch {
		case r == '{' || r == '}':
			continue
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "root"
	}
	return out
}

// limitName shortens names over maxLen to a prefix plus a hash of the full
// name, so the result only depends on the name itself.
func limitName(name string, maxLen int) string {
	if maxLen <= 0 || len(name) <= maxLen {
		return name
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	suffix := fmt.Sprintf("-%08x", h.Sum32())

	cut := maxLen - len(suffix)
	if cut < 1 {
		return suffix[1:]
	}
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut] + suffix
}
