package openapi

import (
	"github.com/BaSui01/apiflow/types"
)

// Node is a resolved schema. Named nodes live in the Graph arena and are
// shared by every reference to them; anonymous nodes belong to their parent.
// Nodes are not modified once the Graph is built.
type Node struct {
	// Name is the component name; empty for inline schemas.
	Name string

	Types       []string
	Title       string
	Format      string
	Description string
	Pattern     string
	Enum        []any
	Default     any
	Nullable    bool

	Min          *float64
	Max          *float64
	ExclusiveMin bool
	ExclusiveMax bool
	MultipleOf   *float64

	MinLength uint64
	MaxLength *uint64

	MinItems    uint64
	MaxItems    *uint64
	UniqueItems bool
	Items       *Node

	Properties           []*Property
	Required             []string
	AdditionalProperties *bool

	// Composition keywords are kept as written.
	AllOf []*Node
	OneOf []*Node
	AnyOf []*Node
}

// Property is a named member of an object node, in declaration order.
type Property struct {
	Name   string
	Schema *Node
}

// Type returns the single non-null type of the node, or "".
func (n *Node) Type() string {
	var out string
	for _, t := range n.Types {
		if t == "null" {
			continue
		}
		if out != "" {
			return ""
		}
		out = t
	}
	return out
}

// IsObject reports whether the node describes an object with known properties.
func (n *Node) IsObject() bool {
	if n == nil {
		return false
	}
	t := n.Type()
	return t == "object" || (t == "" && len(n.Types) == 0 && len(n.Properties) > 0)
}

// IsArray reports whether the node describes an array.
func (n *Node) IsArray() bool {
	return n != nil && n.Type() == "array"
}

// IsComposite reports whether the node carries allOf/oneOf/anyOf.
func (n *Node) IsComposite() bool {
	return n != nil && (len(n.AllOf) > 0 || len(n.OneOf) > 0 || len(n.AnyOf) > 0)
}

// IsBinary reports whether the node is a binary payload.
func (n *Node) IsBinary() bool {
	if n == nil || n.Format != string(types.FormatBinary) {
		return false
	}
	t := n.Type()
	return t == "" || t == "string"
}

// IsFile reports whether a property value is a binary payload or an array of them.
func (n *Node) IsFile() bool {
	if n.IsBinary() {
		return true
	}
	return n.IsArray() && n.Items.IsBinary()
}

// Property returns the named property, if any.
func (n *Node) Property(name string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// IsRequired reports whether name is in the node's required set.
func (n *Node) IsRequired(name string) bool {
	for _, r := range n.Required {
		if r == name {
			return true
		}
	}
	return false
}

// emitter converts nodes into JSON Schema documents. Named nodes are written
// once into defs and referenced with $ref, which keeps cyclic graphs finite.
type emitter struct {
	defs map[string]*types.JSONSchema
}

func newEmitter() *emitter {
	return &emitter{defs: make(map[string]*types.JSONSchema)}
}

func (e *emitter) emit(n *Node) *types.JSONSchema {
	if n == nil {
		return &types.JSONSchema{}
	}
	if n.Name == "" {
		return e.body(n)
	}
	if _, ok := e.defs[n.Name]; !ok {
		placeholder := &types.JSONSchema{}
		e.defs[n.Name] = placeholder
		*placeholder = *e.body(n)
	}
	return types.NewRefSchema(n.Name)
}

// root attaches collected definitions to s.
func (e *emitter) root(s *types.JSONSchema) *types.JSONSchema {
	if len(e.defs) > 0 {
		s.Defs = e.defs
	}
	return s
}

func (e *emitter) body(n *Node) *types.JSONSchema {
	s := &types.JSONSchema{
		Title:       n.Title,
		Description: n.Description,
		Type:        types.SchemaType(n.Type()),
		Nullable:    n.Nullable,
		Pattern:     n.Pattern,
		Format:      types.StringFormat(n.Format),
		Enum:        n.Enum,
		Default:     n.Default,
		MultipleOf:  n.MultipleOf,
		UniqueItems: n.UniqueItems,
	}
	for _, t := range n.Types {
		if t == "null" && len(n.Types) > 1 {
			s.Nullable = true
		}
	}

	if n.Min != nil {
		if n.ExclusiveMin {
			s.ExclusiveMinimum = n.Min
		} else {
			s.Minimum = n.Min
		}
	}
	if n.Max != nil {
		if n.ExclusiveMax {
			s.ExclusiveMaximum = n.Max
		} else {
			s.Maximum = n.Max
		}
	}
	if n.MinLength > 0 {
		s.MinLength = intPtr(n.MinLength)
	}
	if n.MaxLength != nil {
		s.MaxLength = intPtr(*n.MaxLength)
	}
	if n.MinItems > 0 {
		s.MinItems = intPtr(n.MinItems)
	}
	if n.MaxItems != nil {
		s.MaxItems = intPtr(*n.MaxItems)
	}

	if n.Items != nil {
		s.Items = e.emit(n.Items)
	}
	if len(n.Properties) > 0 {
		s.Properties = make(map[string]*types.JSONSchema, len(n.Properties))
		for _, p := range n.Properties {
			s.Properties[p.Name] = e.emit(p.Schema)
		}
	}
	if len(n.Required) > 0 {
		s.Required = append([]string(nil), n.Required...)
	}
	s.AdditionalProperties = n.AdditionalProperties

	s.AllOf = e.emitAll(n.AllOf)
	s.OneOf = e.emitAll(n.OneOf)
	s.AnyOf = e.emitAll(n.AnyOf)
	return s
}

func (e *emitter) emitAll(nodes []*Node) []*types.JSONSchema {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*types.JSONSchema, len(nodes))
	for i, n := range nodes {
		out[i] = e.emit(n)
	}
	return out
}

func intPtr(v uint64) *int {
	i := int(v)
	return &i
}
