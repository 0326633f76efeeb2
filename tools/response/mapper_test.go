package response

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/apiflow/testutil/fixtures"
	"github.com/BaSui01/apiflow/testutil/mocks"
	"github.com/BaSui01/apiflow/tools/openapi"
	"github.com/BaSui01/apiflow/types"
)

func petTool(t *testing.T, name string) *openapi.ToolDefinition {
	t.Helper()
	doc, err := openapi.Load(context.Background(), []byte(fixtures.PetStoreJSON), openapi.LoadOptions{})
	require.NoError(t, err)
	cat, err := openapi.Compile(doc, openapi.CompileOptions{}, nil)
	require.NoError(t, err)
	def, ok := cat.Lookup(name)
	require.True(t, ok)
	return def
}

func httpResponse(status int, contentType, body string) *http.Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestMap_NotFound(t *testing.T) {
	m := NewMapper(Options{}, nil)

	_, err := m.Map(petTool(t, "getPet"), httpResponse(404, "application/json", `{"message":"not found"}`))
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUpstreamAPI, e.Code)
	assert.Equal(t, 404, e.HTTPStatus)
	assert.Equal(t, "not found", e.Message)
	assert.Contains(t, e.Body, `"not found"`)
	assert.Equal(t, "getPet", e.Tool)
	assert.False(t, e.Retryable)
}

func TestMap_ErrorMessages(t *testing.T) {
	m := NewMapper(Options{}, nil)
	def := petTool(t, "getPet")

	tests := []struct {
		body string
		want string
	}{
		{`{"error":"invalid_token"}`, "invalid_token"},
		{`{"error":{"message":"quota exceeded"}}`, "quota exceeded"},
		{`{"detail":"Not allowed"}`, "Not allowed"},
		{`{"error_description":"expired"}`, "expired"},
		{`plain failure`, "Bad Request"},
		{`{"code":7}`, "Bad Request"},
	}
	for _, tt := range tests {
		_, err := m.Map(def, httpResponse(400, "application/json", tt.body))
		e, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, tt.want, e.Message, tt.body)
	}
}

func TestMap_RetryableStatuses(t *testing.T) {
	m := NewMapper(Options{}, nil)
	def := petTool(t, "getPet")

	for status, want := range map[int]bool{408: true, 429: true, 500: false, 502: true, 503: true, 504: true, 401: false} {
		_, err := m.Map(def, httpResponse(status, "", ""))
		assert.Equal(t, want, types.IsRetryable(err), "status %d", status)
	}
}

func TestMap_SnippetTruncation(t *testing.T) {
	m := NewMapper(Options{SnippetBytes: 10}, nil)

	_, err := m.Map(petTool(t, "getPet"), httpResponse(500, "text/plain", "ééééééééééé"))
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(e.Body, truncatedMarker))
	assert.True(t, utf8.ValidString(e.Body))
	assert.Equal(t, "ééééé"+truncatedMarker, e.Body)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate([]byte("short"), 10))
	assert.Equal(t, "abc"+truncatedMarker, Truncate([]byte("abcdef"), 3))
	assert.Equal(t, "a"+truncatedMarker, Truncate([]byte("a€"), 3))
}

func TestMap_Success(t *testing.T) {
	m := NewMapper(Options{}, nil)
	def := petTool(t, "getPet")

	res, err := m.Map(def, httpResponse(200, "application/json; charset=utf-8", `{"id":1,"name":"Rex"}`))
	require.NoError(t, err)
	assert.True(t, res.IsJSON())
	assert.JSONEq(t, `{"id":1,"name":"Rex"}`, string(res.Result))
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "getPet", res.Name)
	assert.False(t, res.HasWarnings())

	res, err = m.Map(def, httpResponse(200, "text/plain", "pong"))
	require.NoError(t, err)
	assert.False(t, res.IsJSON())
	assert.Equal(t, "pong", res.Content())

	res, err = m.Map(def, httpResponse(200, "application/json", "not json"))
	require.NoError(t, err)
	assert.Equal(t, "not json", res.Text)

	res, err = m.Map(def, httpResponse(200, "image/png", "\x89PNG\xff\xfe"))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "binary response")

	res, err = m.Map(petTool(t, "delete_pets_petId"), httpResponse(204, "", ""))
	require.NoError(t, err)
	assert.Empty(t, res.Content())
}

func TestMap_ValidationWarnings(t *testing.T) {
	def := petTool(t, "getPet")

	res, err := NewMapper(Options{}, nil).Map(def, httpResponse(200, "application/json", `{"name":"Rex"}`))
	require.NoError(t, err)
	assert.True(t, res.HasWarnings())

	res, err = NewMapper(Options{SkipValidation: true}, nil).Map(def, httpResponse(200, "application/json", `{"name":"Rex"}`))
	require.NoError(t, err)
	assert.False(t, res.HasWarnings())
}

func TestMap_BodyLimit(t *testing.T) {
	m := NewMapper(Options{MaxBodyBytes: 8}, nil)
	def := petTool(t, "getPet")

	t.Run("oversized success is truncated", func(t *testing.T) {
		res, err := m.Map(def, httpResponse(200, "text/plain", "0123456789"))
		require.NoError(t, err)
		assert.Equal(t, 200, res.StatusCode)
		assert.Equal(t, "01234567", res.Text)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "truncated at 8 bytes")
	})

	t.Run("truncated json is returned as text", func(t *testing.T) {
		res, err := m.Map(def, httpResponse(200, "application/json", `{"name":"Rexxxxx"}`))
		require.NoError(t, err)
		assert.Nil(t, res.Result)
		assert.Equal(t, `{"name":`, res.Text)
		assert.Len(t, res.Warnings, 1)
	})

	t.Run("cut never splits a rune", func(t *testing.T) {
		res, err := m.Map(def, httpResponse(200, "text/plain", "abcdefg\u00e9z"))
		require.NoError(t, err)
		assert.Equal(t, "abcdefg", res.Text)
		assert.True(t, utf8.ValidString(res.Text))
	})

	t.Run("body at the limit is untouched", func(t *testing.T) {
		res, err := m.Map(def, httpResponse(200, "text/plain", "01234567"))
		require.NoError(t, err)
		assert.Equal(t, "01234567", res.Text)
		assert.Empty(t, res.Warnings)
	})
}

func TestMapError(t *testing.T) {
	m := NewMapper(Options{}, nil)
	def := petTool(t, "getPet")

	t.Run("url error hides the URL", func(t *testing.T) {
		err := &url.Error{Op: "Get", URL: "https://api.example.com/pets/1?api_key=s3cret", Err: errors.New("connection refused")}
		e := m.MapError(def, err)
		assert.Equal(t, types.ErrNetwork, e.Code)
		assert.Zero(t, e.HTTPStatus)
		assert.NotContains(t, e.Error(), "s3cret")
		assert.True(t, e.Retryable)
	})

	t.Run("typed errors keep their code", func(t *testing.T) {
		inner := types.NewError(types.ErrMultipartBuild, "failed to open file")
		e := m.MapError(def, &url.Error{Op: "Post", URL: "https://x", Err: inner})
		assert.Equal(t, types.ErrMultipartBuild, e.Code)
		assert.Equal(t, "getPet", e.Tool)
	})

	t.Run("canceled", func(t *testing.T) {
		e := m.MapError(def, context.Canceled)
		assert.Equal(t, types.ErrNetwork, e.Code)
		assert.False(t, e.Retryable)
	})
}

func TestMapError_Timeout(t *testing.T) {
	upstream := mocks.NewMockUpstream().
		WithResponse(http.MethodGet, "/slow", mocks.Response{Status: 200, Delay: time.Second})
	defer upstream.Close()

	client := upstream.Client()
	client.Timeout = 50 * time.Millisecond
	_, err := client.Get(upstream.URL() + "/slow")
	require.Error(t, err)

	e := NewMapper(Options{}, nil).MapError(petTool(t, "getPet"), err)
	assert.Equal(t, types.ErrNetwork, e.Code)
	assert.True(t, e.Retryable)
	assert.Contains(t, e.Message, "timed out")
}
