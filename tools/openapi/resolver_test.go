package openapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/apiflow/testutil/fixtures"
	"github.com/BaSui01/apiflow/types"
)

func TestResolve_RecursiveSchemas(t *testing.T) {
	doc := loadFixture(t, fixtures.RecursiveJSON)

	g, err := Resolve(doc, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Company", "Employee", "Person", "TreeNode"}, g.Names())
	assert.Equal(t, []string{"Company", "TreeNode"}, g.Cycles())

	tree, ok := g.Node("TreeNode")
	require.True(t, ok)
	children, ok := tree.Property("children")
	require.True(t, ok)
	assert.True(t, children.IsArray())
	assert.Same(t, tree, children.Items, "self reference binds to the same node")

	person, _ := g.Node("Person")
	company, _ := g.Node("Company")
	employer, _ := person.Property("employer")
	ceo, _ := company.Property("ceo")
	assert.Same(t, company, employer)
	assert.Same(t, person, ceo)

	employee, ok := g.Node("Employee")
	require.True(t, ok)
	assert.Same(t, person, employee, "alias components share the target node")
}

func TestGraph_JSONSchemaIsFinite(t *testing.T) {
	doc := loadFixture(t, fixtures.RecursiveJSON)
	g, err := Resolve(doc, nil)
	require.NoError(t, err)

	s, ok := g.JSONSchema("Person")
	require.True(t, ok)
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, types.DefsPrefix+"Person", out["$ref"])
	defs, ok := out["$defs"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, defs, "Person")
	assert.Contains(t, defs, "Company")

	_, ok = g.JSONSchema("Nope")
	assert.False(t, ok)
}

func TestResolve_PropertyDeclarationOrder(t *testing.T) {
	doc := loadFixture(t, fixtures.PetStoreJSON)
	g, err := Resolve(doc, nil)
	require.NoError(t, err)

	pet, ok := g.Node("Pet")
	require.True(t, ok)
	var names []string
	for _, p := range pet.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"name", "id", "tag"}, names)
	assert.True(t, pet.IsRequired("id"))
	assert.False(t, pet.IsRequired("tag"))
	assert.Empty(t, g.Cycles())
}

func TestResolve_MissingReference(t *testing.T) {
	doc, err := Load(context.Background(), []byte(fixtures.MissingRefJSON), LoadOptions{SkipValidation: true})
	if err == nil {
		_, err = Compile(doc, CompileOptions{}, nil)
	}
	require.Error(t, err)
	assert.Equal(t, types.ErrSpec, types.GetErrorCode(err))
}

func TestComponentName(t *testing.T) {
	tests := []struct {
		ref  string
		name string
		ok   bool
	}{
		{ref: "#/components/schemas/Pet", name: "Pet", ok: true},
		{ref: "#/components/schemas/a~1b", name: "a/b", ok: true},
		{ref: "#/components/schemas/Pet/properties/id", ok: false},
		{ref: "#/components/parameters/limit", ok: false},
		{ref: "other.yaml#/components/schemas/Pet", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			name, ok := componentName(tt.ref)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestNode_Classification(t *testing.T) {
	binary := &Node{Types: []string{"string"}, Format: "binary"}
	untyped := &Node{Format: "binary"}
	files := &Node{Types: []string{"array"}, Items: binary}
	obj := &Node{Properties: []*Property{{Name: "a", Schema: &Node{}}}}
	nullable := &Node{Types: []string{"object", "null"}}

	assert.True(t, binary.IsBinary())
	assert.True(t, untyped.IsBinary())
	assert.True(t, files.IsFile())
	assert.False(t, files.IsBinary())
	assert.True(t, obj.IsObject())
	assert.True(t, nullable.IsObject())
	assert.Equal(t, "object", nullable.Type())

	var missing *Node
	assert.False(t, missing.IsObject())
	assert.False(t, missing.IsFile())
}

func TestResolve_CompositionKeepsIdentity(t *testing.T) {
	doc := loadFixture(t, fixtures.CompositionJSON)
	g, err := Resolve(doc, nil)
	require.NoError(t, err)

	category, ok := g.Node("Category")
	require.True(t, ok)
	parent, ok := category.Property("parent")
	require.True(t, ok)
	assert.True(t, parent.IsComposite())
	require.Len(t, parent.AllOf, 1)
	assert.Same(t, category, parent.AllOf[0], "allOf back to an ancestor binds to the same node")
	assert.Contains(t, g.Cycles(), "Category")

	s, ok := g.JSONSchema("Category")
	require.True(t, ok)
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"allOf":[{"$ref":"#/$defs/Category"}]`)

	cat := compileFixture(t, fixtures.CompositionJSON, CompileOptions{})
	pet := mustTool(t, cat, "addPet").Operation.RequestBody.Content[0].Schema
	require.Len(t, pet.OneOf, 2)
	cat1, _ := g.Node("Cat")
	dog, _ := g.Node("Dog")
	assert.Equal(t, "Cat", pet.OneOf[0].Name)
	assert.Equal(t, "Dog", pet.OneOf[1].Name)
	assert.Equal(t, cat1.Required, pet.OneOf[0].Required)
	assert.Equal(t, dog.Required, pet.OneOf[1].Required)

	contact := mustTool(t, cat, "addContact").Operation.RequestBody.Content[0].Schema
	require.Len(t, contact.AnyOf, 2)
	assert.Equal(t, []string{"email"}, contact.AnyOf[0].Required)
	assert.Equal(t, []string{"phone"}, contact.AnyOf[1].Required)

	mix := mustTool(t, cat, "mixBody").Operation.RequestBody.Content[0].Schema
	assert.True(t, mix.IsComposite())
	assert.True(t, mix.AllOf[0].IsRequired("b"))
	assert.False(t, category.IsComposite())
}
