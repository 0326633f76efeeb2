package openapi

import (
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/BaSui01/apiflow/types"
)

// Location is where an argument travels in the HTTP request.
type Location string

const (
	LocationPath   Location = "path"
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationCookie Location = "cookie"
	LocationBody   Location = "body"
)

// Operation is one resolved HTTP operation of the document.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	Parameters  []*Parameter
	RequestBody *RequestBody
	Responses   []*Response
}

// Parameter is a path, query, header or cookie parameter.
type Parameter struct {
	Name        string
	In          Location
	Required    bool
	Description string
	Style       string
	Explode     *bool
	Schema      *Node
}

// RequestBody is the declared request body with its content types.
type RequestBody struct {
	Required    bool
	Description string
	// Content is sorted by media type.
	Content []*MediaType
}

// MediaType pairs a content type with its schema.
type MediaType struct {
	Type   string
	Schema *Node
}

// Response is one declared response; Schema is the JSON schema, if any.
type Response struct {
	Status      string
	Description string
	Schema      *Node
}

// Media returns the media type entry for contentType.
func (b *RequestBody) Media(contentType string) (*MediaType, bool) {
	if b == nil {
		return nil, false
	}
	for _, m := range b.Content {
		if strings.EqualFold(m.Type, contentType) {
			return m, true
		}
	}
	return nil, false
}

// Response returns the declared response for an HTTP status: exact code,
// then the range ("2XX"), then "default".
func (o *Operation) Response(status int) (*Response, bool) {
	code := strconv.Itoa(status)
	keys := []string{code, code[:1] + "XX", "default"}
	for _, k := range keys {
		for _, r := range o.Responses {
			if strings.EqualFold(r.Status, k) {
				return r, true
			}
		}
	}
	return nil, false
}

// PathTokens returns the {name} tokens of the path template in order.
func (o *Operation) PathTokens() []string {
	var out []string
	rest := o.Path
	for {
		i := strings.IndexByte(rest, '{')
		if i < 0 {
			return out
		}
		j := strings.IndexByte(rest[i:], '}')
		if j < 0 {
			return out
		}
		out = append(out, rest[i+1:i+j])
		rest = rest[i+j+1:]
	}
}

// operations resolves every operation of the document against the graph.
func (d *Document) operations(g *Graph) ([]*Operation, error) {
	r := g.inlineResolver(d)
	var out []*Operation
	for _, e := range d.entries() {
		op, err := r.operation(e)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}

func (r *resolver) operation(e pathEntry) (*Operation, error) {
	op := &Operation{
		ID:          e.op.OperationID,
		Method:      e.method,
		Path:        e.path,
		Summary:     e.op.Summary,
		Description: e.op.Description,
		Tags:        append([]string(nil), e.op.Tags...),
		Deprecated:  e.op.Deprecated,
	}
	ptr := e.pointer()

	params, err := r.parameters(e, ptr)
	if err != nil {
		return nil, err
	}
	op.Parameters = params

	if e.op.RequestBody != nil {
		body, err := r.requestBody(e.op.RequestBody, ptr+"/requestBody")
		if err != nil {
			return nil, err
		}
		op.RequestBody = body
	}

	if e.op.Responses != nil {
		resps, err := r.responses(e.op.Responses, ptr+"/responses")
		if err != nil {
			return nil, err
		}
		op.Responses = resps
	}
	return op, nil
}

// parameters merges path-item and operation parameters; the operation wins
// on the same name and location.
func (r *resolver) parameters(e pathEntry, opPtr string) ([]*Parameter, error) {
	type key struct {
		name string
		in   Location
	}
	var out []*Parameter
	index := make(map[key]int)

	add := func(refs openapi3.Parameters, base string) error {
		for i, pref := range refs {
			p, err := r.parameter(pref, base+"/"+strconv.Itoa(i))
			if err != nil {
				return err
			}
			if p == nil {
				continue
			}
			k := key{name: p.Name, in: p.In}
			if at, ok := index[k]; ok {
				out[at] = p
				continue
			}
			index[k] = len(out)
			out = append(out, p)
		}
		return nil
	}

	if err := add(e.item.Parameters, "#/paths/"+escapePointer(e.path)+"/parameters"); err != nil {
		return nil, err
	}
	if err := add(e.op.Parameters, opPtr+"/parameters"); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resolver) parameter(pref *openapi3.ParameterRef, ptr string) (*Parameter, error) {
	if pref == nil {
		return nil, nil
	}
	if pref.Ref != "" {
		ptr = pref.Ref
	}
	p := pref.Value
	if p == nil {
		return nil, types.Errorf(types.ErrSpec, "unresolved parameter reference %q", pref.Ref)
	}

	out := &Parameter{
		Name:        p.Name,
		In:          Location(strings.ToLower(p.In)),
		Required:    p.Required,
		Description: p.Description,
		Style:       p.Style,
		Explode:     p.Explode,
	}
	if out.In == LocationPath {
		out.Required = true
	}

	var err error
	switch {
	case p.Schema != nil:
		out.Schema, err = r.schemaRef(p.Schema, ptr+"/schema", 0)
	case len(p.Content) > 0:
		mt := firstMedia(p.Content)
		out.Schema, err = r.schemaRef(p.Content[mt].Schema, ptr+"/content/"+escapePointer(mt)+"/schema", 0)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resolver) requestBody(bref *openapi3.RequestBodyRef, ptr string) (*RequestBody, error) {
	if bref.Ref != "" {
		ptr = bref.Ref
	}
	b := bref.Value
	if b == nil {
		return nil, types.Errorf(types.ErrSpec, "unresolved request body reference %q", bref.Ref)
	}

	out := &RequestBody{Required: b.Required, Description: b.Description}
	for _, mt := range sortedMedia(b.Content) {
		media := b.Content[mt]
		var node *Node
		if media != nil {
			var err error
			node, err = r.schemaRef(media.Schema, ptr+"/content/"+escapePointer(mt)+"/schema", 0)
			if err != nil {
				return nil, err
			}
		}
		out.Content = append(out.Content, &MediaType{Type: mt, Schema: node})
	}
	return out, nil
}

func (r *resolver) responses(resps *openapi3.Responses, ptr string) ([]*Response, error) {
	m := resps.Map()
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]*Response, 0, len(codes))
	for _, code := range codes {
		rref := m[code]
		if rref == nil || rref.Value == nil {
			continue
		}
		rptr := ptr + "/" + escapePointer(code)
		if rref.Ref != "" {
			rptr = rref.Ref
		}
		resp := &Response{Status: code}
		if rref.Value.Description != nil {
			resp.Description = *rref.Value.Description
		}
		if mt, ok := jsonMedia(rref.Value.Content); ok && rref.Value.Content[mt] != nil {
			node, err := r.schemaRef(rref.Value.Content[mt].Schema, rptr+"/content/"+escapePointer(mt)+"/schema", 0)
			if err != nil {
				return nil, err
			}
			resp.Schema = node
		}
		out = append(out, resp)
	}
	return out, nil
}

func sortedMedia(content openapi3.Content) []string {
	out := make([]string, 0, len(content))
	for mt := range content {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

func firstMedia(content openapi3.Content) string {
	if mt, ok := jsonMedia(content); ok {
		return mt
	}
	return sortedMedia(content)[0]
}

// jsonMedia picks application/json, then any other JSON media type.
func jsonMedia(content openapi3.Content) (string, bool) {
	var fallback string
	for _, mt := range sortedMedia(content) {
		base := mediaBase(mt)
		if base == "application/json" {
			return mt, true
		}
		if fallback == "" && isJSONMedia(base) {
			fallback = mt
		}
	}
	return fallback, fallback != ""
}

func mediaBase(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func isJSONMedia(base string) bool {
	return base == "application/json" || strings.HasSuffix(base, "+json")
}
