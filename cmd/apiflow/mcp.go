package main

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/tools/invoke"
	"github.com/BaSui01/apiflow/types"
)

// serverName is announced to MCP clients.
const serverName = "apiflow"

// newMCPServer registers every compiled tool with its raw input schema.
func newMCPServer(engine *invoke.Engine, logger *zap.Logger) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		serverName,
		Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	for _, t := range engine.Tools() {
		tool := mcp.NewToolWithRawSchema(t.Name, t.Description, t.Parameters)
		s.AddTool(tool, toolHandler(engine, t.Name))
	}
	logger.Info("MCP tools registered", zap.Int("tools", len(engine.Tools())))
	return s
}

// toolHandler routes one MCP tool call to the engine. Engine failures are
// tool errors, not protocol errors.
func toolHandler(engine *invoke.Engine, name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := engine.Call(ctx, name, req.GetArguments())
		if err != nil {
			return errorResult(err), nil
		}
		return textResult(res), nil
	}
}

func textResult(res *types.ToolResult) *mcp.CallToolResult {
	content := []mcp.Content{mcp.NewTextContent(res.Content())}
	if res.HasWarnings() {
		content = append(content, mcp.NewTextContent("warnings:\n"+strings.Join(res.Warnings, "\n")))
	}
	return &mcp.CallToolResult{Content: content}
}

// errorResult renders the typed error as JSON so clients see code, status
// and body snippet.
func errorResult(err error) *mcp.CallToolResult {
	text := err.Error()
	if e, ok := types.AsError(err); ok {
		if data, merr := json.Marshal(e); merr == nil {
			text = string(data)
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
		IsError: true,
	}
}
