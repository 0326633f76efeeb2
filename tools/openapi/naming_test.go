package openapi

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/pets/{petId}/photos", "pets_petId_photos"},
		{"/v1/users.json", "v1_users_json"},
		{"//double//slash/", "double_slash"},
		{"/", "root"},
		{"/a-b/{c_d}", "a-b_c_d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.path), tt.path)
	}
}

func TestToolName(t *testing.T) {
	assert.Equal(t, "getPet", toolName(&Operation{ID: "getPet", Method: "GET", Path: "/pets/{id}"}, "", 64))
	assert.Equal(t, "api_getPet", toolName(&Operation{ID: "getPet"}, "api_", 64))
	assert.Equal(t, "post_pets", toolName(&Operation{Method: "POST", Path: "/pets"}, "", 64))
}

func TestLimitName(t *testing.T) {
	short := "listPets"
	assert.Equal(t, short, limitName(short, 64))

	long := strings.Repeat("very_long_operation_name_", 5)
	got := limitName(long, 64)
	assert.Len(t, got, 64)
	assert.True(t, strings.HasPrefix(got, long[:55]))
	assert.Equal(t, got, limitName(long, 64), "same input gives the same name")
	assert.NotEqual(t, got, limitName(long+"x", 64))

	assert.Equal(t, long, limitName(long, -1))
}

func TestLimitName_RuneBoundary(t *testing.T) {
	name := strings.Repeat("é", 40)
	got := limitName(name, 20)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 20)
}
