package openapi

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// keyOrder maps the JSON pointer of every mapping in the raw document to its
// keys in source order. The OpenAPI object model keeps properties in Go maps,
// so declaration order has to be recovered from the bytes.
type keyOrder map[string][]string

// keys returns the source order of the mapping at ptr restricted to present,
// followed by any remaining names in lexical order.
func (o keyOrder) keys(ptr string, present []string) []string {
	seen := make(map[string]bool, len(present))
	for _, k := range present {
		seen[k] = false
	}
	out := make([]string, 0, len(present))
	for _, k := range o[ptr] {
		if done, ok := seen[k]; ok && !done {
			seen[k] = true
			out = append(out, k)
		}
	}
	rest := make([]string, 0)
	for k, done := range seen {
		if !done {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func indexKeyOrder(data []byte) keyOrder {
	idx := keyOrder{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := walkJSONOrder(dec, "#", idx); err == nil {
			return idx
		}
		idx = keyOrder{}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return idx
	}
	walkYAMLOrder(root.Content[0], "#", idx)
	return idx
}

func walkYAMLOrder(n *yaml.Node, ptr string, idx keyOrder) {
	switch n.Kind {
	case yaml.MappingNode:
		keys := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i].Value
			keys = append(keys, k)
			walkYAMLOrder(n.Content[i+1], ptr+"/"+escapePointer(k), idx)
		}
		idx[ptr] = keys
	case yaml.SequenceNode:
		for i, c := range n.Content {
			walkYAMLOrder(c, ptr+"/"+strconv.Itoa(i), idx)
		}
	}
	// Aliases are not followed; anchors are indexed where they are defined.
}

func walkJSONOrder(dec *json.Decoder, ptr string, idx keyOrder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	switch delim {
	case '{':
		keys := make([]string, 0)
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			k, _ := kt.(string)
			keys = append(keys, k)
			if err := walkJSONOrder(dec, ptr+"/"+escapePointer(k), idx); err != nil {
				return err
			}
		}
		idx[ptr] = keys
	case '[':
		for i := 0; dec.More(); i++ {
			if err := walkJSONOrder(dec, ptr+"/"+strconv.Itoa(i), idx); err != nil {
				return err
			}
		}
	}
	// closing delimiter
	_, err = dec.Token()
	return err
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointer(s string) string {
	return pointerEscaper.Replace(s)
}
