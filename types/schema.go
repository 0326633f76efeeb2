package types

import "encoding/json"

// =============================================================================
// 📐 JSON Schema 输出模型
// =============================================================================

// SchemaType is a JSON Schema primitive type name.
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeInteger SchemaType = "integer"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeNull    SchemaType = "null"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// StringFormat is the value of the "format" keyword. Formats other than the
// ones below pass through unchanged.
type StringFormat string

const (
	// FormatBinary marks raw file content in an OpenAPI document.
	FormatBinary StringFormat = "binary"
	// FormatURIReference marks a parameter that takes a file reference
	// instead of file content.
	FormatURIReference StringFormat = "uri-reference"
)

// DefsPrefix prefixes references into the root "$defs" map.
const DefsPrefix = "#/$defs/"

// JSONSchema is the input schema published for a tool. It only carries the
// keywords the compiler emits; anything else in the source document is
// dropped on the way.
type JSONSchema struct {
	Ref         string     `json:"$ref,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Type        SchemaType `json:"type,omitempty"`
	// 为 true 时输出 ["<type>", "null"]
	Nullable bool `json:"-"`

	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`

	Items       *JSONSchema `json:"items,omitempty"`
	MinItems    *int        `json:"minItems,omitempty"`
	MaxItems    *int        `json:"maxItems,omitempty"`
	UniqueItems bool        `json:"uniqueItems,omitempty"`

	Enum      []any        `json:"enum,omitempty"`
	Default   any          `json:"default,omitempty"`
	Format    StringFormat `json:"format,omitempty"`
	Pattern   string       `json:"pattern,omitempty"`
	MinLength *int         `json:"minLength,omitempty"`
	MaxLength *int         `json:"maxLength,omitempty"`

	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`

	AllOf []*JSONSchema `json:"allOf,omitempty"`
	OneOf []*JSONSchema `json:"oneOf,omitempty"`
	AnyOf []*JSONSchema `json:"anyOf,omitempty"`

	// Defs 只出现在根节点上
	Defs map[string]*JSONSchema `json:"$defs,omitempty"`
}

// MarshalJSON writes a nullable typed schema with a two-element type array.
func (s *JSONSchema) MarshalJSON() ([]byte, error) {
	type wire JSONSchema
	if s.Nullable && s.Type != "" {
		return json.Marshal(struct {
			*wire
			Type []SchemaType `json:"type"`
		}{(*wire)(s), []SchemaType{s.Type, SchemaTypeNull}})
	}
	return json.Marshal((*wire)(s))
}

// =============================================================================
// 🔧 构建辅助
// =============================================================================

// NewObjectSchema returns an empty object schema ready for AddProperty.
func NewObjectSchema() *JSONSchema {
	return &JSONSchema{Type: SchemaTypeObject, Properties: map[string]*JSONSchema{}}
}

func NewArraySchema(items *JSONSchema) *JSONSchema {
	return &JSONSchema{Type: SchemaTypeArray, Items: items}
}

func NewStringSchema() *JSONSchema {
	return &JSONSchema{Type: SchemaTypeString}
}

// NewRefSchema points at the shared definition called name.
func NewRefSchema(name string) *JSONSchema {
	return &JSONSchema{Ref: DefsPrefix + name}
}

// AddProperty sets property name, replacing an earlier one.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = map[string]*JSONSchema{}
	}
	s.Properties[name] = prop
	return s
}

// AddRequired appends names not yet required, keeping first-seen order.
func (s *JSONSchema) AddRequired(names ...string) *JSONSchema {
	seen := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		seen[r] = true
	}
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			s.Required = append(s.Required, name)
		}
	}
	return s
}
