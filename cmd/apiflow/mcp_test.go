package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/apiflow/testutil/mocks"
	"github.com/BaSui01/apiflow/types"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult, i int) string {
	t.Helper()
	require.Greater(t, len(res.Content), i)
	text, ok := res.Content[i].(mcp.TextContent)
	require.True(t, ok, "content %d is %T", i, res.Content[i])
	return text.Text
}

func TestToolHandler(t *testing.T) {
	upstream := mocks.NewMockUpstream().
		WithJSON(http.MethodGet, "/pets/1", http.StatusOK, `{"id":1,"name":"Rex"}`).
		WithJSON(http.MethodGet, "/pets/2", http.StatusOK, `{"id":"two"}`).
		WithJSON(http.MethodGet, "/pets/3", http.StatusServiceUnavailable, `{"message":"try later"}`)
	defer upstream.Close()
	a := startApp(t, testConfig(t, upstream))

	t.Run("success", func(t *testing.T) {
		res, err := toolHandler(a.engine, "getPet")(context.Background(), callRequest("getPet", map[string]any{"petId": "1"}))
		require.NoError(t, err)
		assert.False(t, res.IsError)
		require.Len(t, res.Content, 1)
		assert.JSONEq(t, `{"id":1,"name":"Rex"}`, textOf(t, res, 0))
	})

	t.Run("warnings", func(t *testing.T) {
		res, err := toolHandler(a.engine, "getPet")(context.Background(), callRequest("getPet", map[string]any{"petId": "2"}))
		require.NoError(t, err)
		assert.False(t, res.IsError)
		require.Len(t, res.Content, 2)
		assert.Contains(t, textOf(t, res, 1), "warnings:")
	})

	t.Run("upstream error", func(t *testing.T) {
		res, err := toolHandler(a.engine, "getPet")(context.Background(), callRequest("getPet", map[string]any{"petId": "3"}))
		require.NoError(t, err)
		assert.True(t, res.IsError)

		var e types.Error
		require.NoError(t, json.Unmarshal([]byte(textOf(t, res, 0)), &e))
		assert.Equal(t, types.ErrUpstreamAPI, e.Code)
		assert.Equal(t, http.StatusServiceUnavailable, e.HTTPStatus)
		assert.True(t, e.Retryable)
		assert.Equal(t, "getPet", e.Tool)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		res, err := toolHandler(a.engine, "getPet")(context.Background(), callRequest("getPet", nil))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res, 0), string(types.ErrArgumentValidation))
		assert.Equal(t, 3, upstream.GetRequestCount())
	})
}

func TestErrorResult_PlainError(t *testing.T) {
	res := errorResult(assert.AnError)
	assert.True(t, res.IsError)
	assert.Equal(t, assert.AnError.Error(), textOf(t, res, 0))
}

func TestMCPServer_ListAndCall(t *testing.T) {
	upstream := mocks.NewMockUpstream().
		WithJSON(http.MethodGet, "/pets/1", http.StatusOK, `{"id":1,"name":"Rex"}`)
	defer upstream.Close()
	a := startApp(t, testConfig(t, upstream))
	s := newMCPServer(a.engine, zaptest.NewLogger(t))
	ctx := context.Background()

	send := func(msg string) string {
		t.Helper()
		resp := s.HandleMessage(ctx, json.RawMessage(msg))
		require.NotNil(t, resp)
		data, err := json.Marshal(resp)
		require.NoError(t, err)
		return string(data)
	}

	send(`{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`)

	list := send(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	for _, name := range []string{"listPets", "createPet", "getPet", "delete_pets_petId"} {
		assert.Contains(t, list, `"name":"`+name+`"`)
	}
	assert.Contains(t, list, `"petId"`)

	call := send(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"getPet","arguments":{"petId":"1"}}}`)
	assert.Contains(t, call, `Rex`)
	assert.NotContains(t, call, `"isError":true`)
}
