package request

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/BaSui01/apiflow/types"
)

// Header is one request header.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list with case-insensitive names.
type Headers []Header

// Add appends a value.
func (h *Headers) Add(name, value string) {
	*h = append(*h, Header{Name: name, Value: value})
}

// Set replaces every value of name, keeping the position of the first one.
func (h *Headers) Set(name, value string) {
	out := (*h)[:0]
	placed := false
	for _, hd := range *h {
		if !strings.EqualFold(hd.Name, name) {
			out = append(out, hd)
			continue
		}
		if !placed {
			out = append(out, Header{Name: name, Value: value})
			placed = true
		}
	}
	if !placed {
		out = append(out, Header{Name: name, Value: value})
	}
	*h = out
}

// Clone returns a copy.
func (h Headers) Clone() Headers {
	return append(Headers(nil), h...)
}

// HTTP converts to net/http headers.
func (h Headers) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, hd := range h {
		out.Add(hd.Name, hd.Value)
	}
	return out
}

// ParseHeaders decodes a JSON object of header names to string values, the
// format of the OPENAPI_MCP_HEADERS variable. Entries come back sorted by name.
func ParseHeaders(raw string) (Headers, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, types.NewError(types.ErrInternalError, "extra headers must be a JSON object").WithCause(err)
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Headers, 0, len(names))
	for _, name := range names {
		value, ok := m[name].(string)
		if !ok {
			return nil, types.Errorf(types.ErrInternalError, "extra header %q must be a string", name)
		}
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return nil, types.Errorf(types.ErrInternalError, "invalid extra header %q", name)
		}
		out = append(out, Header{Name: name, Value: value})
	}
	return out, nil
}
