package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSchema_MarshalNullable(t *testing.T) {
	s := NewObjectSchema().
		AddProperty("tag", &JSONSchema{Type: SchemaTypeString, Nullable: true}).
		AddProperty("any", &JSONSchema{Nullable: true})

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	props := out["properties"].(map[string]any)
	assert.Equal(t, []any{"string", "null"}, props["tag"].(map[string]any)["type"])
	assert.NotContains(t, props["any"], "type")
	assert.Equal(t, "object", out["type"])
}

func TestJSONSchema_AddRequired(t *testing.T) {
	s := NewObjectSchema().AddRequired("b", "a").AddRequired("a", "c", "c")
	assert.Equal(t, []string{"b", "a", "c"}, s.Required)
}

func TestJSONSchema_Ref(t *testing.T) {
	raw, err := json.Marshal(NewArraySchema(NewRefSchema("Pet")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"array","items":{"$ref":"#/$defs/Pet"}}`, string(raw))
}
