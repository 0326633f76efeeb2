package openapi

import (
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/types"
)

const (
	componentPrefix = "#/components/schemas/"
	// maxInlineDepth bounds nesting of anonymous schemas.
	maxInlineDepth = 128
)

// Graph is the arena of named schemas of one document. It is read-only after
// Resolve returns and may be shared by any number of goroutines.
type Graph struct {
	nodes   map[string]*Node
	names   []string
	backref map[string]int
	order   keyOrder
}

// Node returns the component schema with the given name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Names returns component names in lexical order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// Cycles returns the components that are reached again while still being
// resolved, in lexical order.
func (g *Graph) Cycles() []string {
	out := make([]string, 0, len(g.backref))
	for name := range g.backref {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// JSONSchema emits the named component as a standalone JSON Schema.
func (g *Graph) JSONSchema(name string) (*types.JSONSchema, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, false
	}
	e := newEmitter()
	ref := e.emit(n)
	return e.root(ref), true
}

// Resolve builds the schema graph of every component in the document.
func Resolve(doc *Document, logger *zap.Logger) (*Graph, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Graph{
		nodes:   make(map[string]*Node),
		backref: make(map[string]int),
		order:   doc.order,
	}
	r := &resolver{
		graph:     g,
		schemas:   componentSchemas(doc.T),
		resolving: make(map[string]bool),
		inlining:  make(map[string]bool),
		logger:    logger.With(zap.String("component", "schema_resolver")),
	}

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := r.component(name); err != nil {
			return nil, err
		}
	}
	g.names = names

	if cycles := g.Cycles(); len(cycles) > 0 {
		r.logger.Debug("recursive schemas bound as backreferences", zap.Strings("schemas", cycles))
	}
	return g, nil
}

func componentSchemas(t *openapi3.T) openapi3.Schemas {
	if t.Components == nil || t.Components.Schemas == nil {
		return openapi3.Schemas{}
	}
	return t.Components.Schemas
}

// resolver walks schema references depth first. resolving holds the
// components whose bodies are being filled; a reference to one of them binds
// to the already allocated node instead of descending again.
type resolver struct {
	graph     *Graph
	schemas   openapi3.Schemas
	resolving map[string]bool
	inlining  map[string]bool
	logger    *zap.Logger
}

// inlineResolver resolves schemas outside components against a finished graph.
func (g *Graph) inlineResolver(doc *Document) *resolver {
	return &resolver{
		graph:     g,
		schemas:   componentSchemas(doc.T),
		resolving: make(map[string]bool),
		inlining:  make(map[string]bool),
		logger:    zap.NewNop(),
	}
}

func (r *resolver) component(name string) (*Node, error) {
	if n, ok := r.graph.nodes[name]; ok {
		if r.resolving[name] {
			r.graph.backref[name]++
		}
		return n, nil
	}
	if r.resolving[name] {
		return nil, types.Errorf(types.ErrSpec, "schema %q is an alias of itself", componentPrefix+name)
	}

	sref, ok := r.schemas[name]
	if !ok || sref == nil {
		return nil, types.Errorf(types.ErrSpec, "unresolved reference %q", componentPrefix+name)
	}

	r.resolving[name] = true
	defer delete(r.resolving, name)

	// A component that is itself a reference shares the target node.
	if sref.Ref != "" {
		target, err := r.ref(sref.Ref, sref.Value, 0)
		if err != nil {
			return nil, err
		}
		r.graph.nodes[name] = target
		return target, nil
	}
	if sref.Value == nil {
		return nil, types.Errorf(types.ErrSpec, "schema %q has no definition", componentPrefix+name)
	}

	n := &Node{Name: name}
	r.graph.nodes[name] = n
	if err := r.fill(n, sref.Value, componentPrefix+escapePointer(name), 0); err != nil {
		return nil, err
	}
	return n, nil
}

// schemaRef resolves a schema found at JSON pointer ptr.
func (r *resolver) schemaRef(sref *openapi3.SchemaRef, ptr string, depth int) (*Node, error) {
	if sref == nil {
		return nil, nil
	}
	if sref.Ref != "" {
		return r.ref(sref.Ref, sref.Value, depth)
	}
	if sref.Value == nil {
		return nil, types.Errorf(types.ErrSpec, "empty schema at %s", ptr)
	}
	return r.inline(sref.Value, ptr, depth)
}

func (r *resolver) ref(ref string, value *openapi3.Schema, depth int) (*Node, error) {
	if name, ok := componentName(ref); ok {
		return r.component(name)
	}
	if !strings.HasPrefix(ref, "#/") {
		return nil, types.Errorf(types.ErrSpec, "unsupported non-local reference %q", ref)
	}
	if value == nil {
		return nil, types.Errorf(types.ErrSpec, "unresolved reference %q", ref)
	}
	// Deep local pointers are inlined from the loader's resolved value.
	if r.inlining[ref] {
		return nil, types.Errorf(types.ErrSpec, "recursive reference %q must target a component schema", ref)
	}
	r.inlining[ref] = true
	defer delete(r.inlining, ref)
	return r.inline(value, ref, depth)
}

func (r *resolver) inline(s *openapi3.Schema, ptr string, depth int) (*Node, error) {
	n := &Node{}
	if err := r.fill(n, s, ptr, depth); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *resolver) fill(n *Node, s *openapi3.Schema, ptr string, depth int) error {
	if depth > maxInlineDepth {
		return types.Errorf(types.ErrSpec, "schema nesting deeper than %d at %s", maxInlineDepth, ptr)
	}

	n.Types = s.Type.Slice()
	n.Title = s.Title
	n.Format = s.Format
	n.Description = s.Description
	n.Pattern = s.Pattern
	n.Enum = s.Enum
	n.Default = s.Default
	n.Nullable = s.Nullable
	n.Min = s.Min
	n.Max = s.Max
	n.ExclusiveMin = s.ExclusiveMin
	n.ExclusiveMax = s.ExclusiveMax
	n.MultipleOf = s.MultipleOf
	n.MinLength = s.MinLength
	n.MaxLength = s.MaxLength
	n.MinItems = s.MinItems
	n.MaxItems = s.MaxItems
	n.UniqueItems = s.UniqueItems
	n.Required = append([]string(nil), s.Required...)
	if s.AdditionalProperties.Has != nil {
		v := *s.AdditionalProperties.Has
		n.AdditionalProperties = &v
	}

	var err error
	if n.Items, err = r.schemaRef(s.Items, ptr+"/items", depth+1); err != nil {
		return err
	}

	if len(s.Properties) > 0 {
		present := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			present = append(present, name)
		}
		propsPtr := ptr + "/properties"
		for _, name := range r.graph.order.keys(propsPtr, present) {
			child, err := r.schemaRef(s.Properties[name], propsPtr+"/"+escapePointer(name), depth+1)
			if err != nil {
				return err
			}
			n.Properties = append(n.Properties, &Property{Name: name, Schema: child})
		}
	}

	if n.AllOf, err = r.variants(s.AllOf, ptr+"/allOf", depth); err != nil {
		return err
	}
	if n.OneOf, err = r.variants(s.OneOf, ptr+"/oneOf", depth); err != nil {
		return err
	}
	if n.AnyOf, err = r.variants(s.AnyOf, ptr+"/anyOf", depth); err != nil {
		return err
	}
	return nil
}

func (r *resolver) variants(refs openapi3.SchemaRefs, ptr string, depth int) ([]*Node, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]*Node, 0, len(refs))
	for i, sref := range refs {
		n, err := r.schemaRef(sref, ptr+"/"+strconv.Itoa(i), depth+1)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// componentName extracts X from "#/components/schemas/X".
func componentName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, componentPrefix) {
		return "", false
	}
	name := ref[len(componentPrefix):]
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(name), true
}
