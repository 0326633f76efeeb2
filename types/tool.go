package types

import (
	"encoding/json"
	"time"
)

// ToolSchema is the public listing entry of a compiled tool.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolResult represents the successful result of a tool call.
type ToolResult struct {
	CallID      string          `json:"call_id"`
	Name        string          `json:"name"`
	StatusCode  int             `json:"status_code"`
	ContentType string          `json:"content_type,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Text        string          `json:"text,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Cached      bool            `json:"cached,omitempty"`
	Duration    time.Duration   `json:"duration"`
}

// IsJSON reports whether the upstream body was parsed as JSON.
func (tr *ToolResult) IsJSON() bool {
	return len(tr.Result) > 0
}

// Content returns the body as text, JSON first.
func (tr *ToolResult) Content() string {
	if tr.IsJSON() {
		return string(tr.Result)
	}
	return tr.Text
}

// HasWarnings returns true if best-effort response checks reported anything.
func (tr *ToolResult) HasWarnings() bool {
	return len(tr.Warnings) > 0
}
