// Package ctxkeys holds the context keys shared across packages.
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	traceIDKey  contextKey = "trace_id"
	callIDKey   contextKey = "call_id"
	toolNameKey contextKey = "tool_name"
)

// WithTraceID 设置 TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) {
	return lookup(ctx, traceIDKey)
}

// WithCallID 设置单次工具调用的 ID
func WithCallID(ctx context.Context, callID string) context.Context {
	return context.WithValue(ctx, callIDKey, callID)
}

// CallID 获取调用 ID
func CallID(ctx context.Context) (string, bool) {
	return lookup(ctx, callIDKey)
}

// WithToolName 设置当前调用的工具名
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey, name)
}

// ToolName 获取工具名
func ToolName(ctx context.Context) (string, bool) {
	return lookup(ctx, toolNameKey)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
