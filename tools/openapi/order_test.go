package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexKeyOrder_JSON(t *testing.T) {
	idx := indexKeyOrder([]byte(`{"b": 1, "a": {"z": [ {"y": 1, "x": 2} ], "c/d": {"q": 1, "p": 2}}}`))

	assert.Equal(t, []string{"b", "a"}, idx["#"])
	assert.Equal(t, []string{"z", "c/d"}, idx["#/a"])
	assert.Equal(t, []string{"y", "x"}, idx["#/a/z/0"])
	assert.Equal(t, []string{"q", "p"}, idx["#/a/c~1d"])
}

func TestIndexKeyOrder_YAML(t *testing.T) {
	idx := indexKeyOrder([]byte("zeta: 1\nalpha:\n  - mid: 1\n    first: 2\n"))

	assert.Equal(t, []string{"zeta", "alpha"}, idx["#"])
	assert.Equal(t, []string{"mid", "first"}, idx["#/alpha/0"])
}

func TestKeyOrder_Keys(t *testing.T) {
	idx := keyOrder{"#/p": {"name", "id", "gone"}}

	assert.Equal(t, []string{"name", "id", "extra", "more"}, idx.keys("#/p", []string{"more", "id", "extra", "name"}))
	assert.Equal(t, []string{"a", "b"}, idx.keys("#/unknown", []string{"b", "a"}))
}

func TestEscapePointer(t *testing.T) {
	assert.Equal(t, "~1pets~1{petId}", escapePointer("/pets/{petId}"))
	assert.Equal(t, "a~0b", escapePointer("a~b"))
}
