package response

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/tools/openapi"
	"github.com/BaSui01/apiflow/types"
)

const (
	// DefaultMaxBodyBytes bounds how much of a response body is read.
	DefaultMaxBodyBytes = 10 << 20
	// DefaultSnippetBytes bounds the body excerpt carried by upstream errors.
	DefaultSnippetBytes = 1024

	truncatedMarker = "...(truncated)"
)

// messageFields are checked in order for a human readable error message.
var messageFields = []string{"message", "error", "detail", "error_description"}

// Options configures a Mapper.
type Options struct {
	MaxBodyBytes int64
	SnippetBytes int
	// SkipValidation disables response schema checks.
	SkipValidation bool
}

// Mapper converts HTTP responses and transport failures into tool results
// and typed errors. It is safe for concurrent use.
type Mapper struct {
	opts   Options
	logger *zap.Logger
}

// NewMapper creates a Mapper.
func NewMapper(opts Options, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.SnippetBytes <= 0 {
		opts.SnippetBytes = DefaultSnippetBytes
	}
	return &Mapper{
		opts:   opts,
		logger: logger.With(zap.String("component", "response_mapper")),
	}
}

// Map reads and closes resp. 2xx responses become results; anything else
// becomes an UPSTREAM_API error.
func (m *Mapper) Map(def *openapi.ToolDefinition, resp *http.Response) (*types.ToolResult, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, m.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, m.MapError(def, err)
	}
	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, m.upstreamError(def, resp.StatusCode, body)
	}

	result := &types.ToolResult{
		Name:        def.Name,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
	}
	truncated := int64(len(body)) > m.opts.MaxBodyBytes
	if truncated {
		body = cutRunes(body, int(m.opts.MaxBodyBytes))
		result.Warnings = append(result.Warnings, fmt.Sprintf("response body truncated at %d bytes", len(body)))
		m.logger.Warn("response body truncated",
			zap.String("tool", def.Name),
			zap.Int64("limit", m.opts.MaxBodyBytes),
		)
	}

	switch {
	case len(body) == 0:
	case truncated && utf8.Valid(body):
		result.Text = string(body)
	case strings.Contains(strings.ToLower(contentType), "json") && json.Valid(body):
		result.Result = json.RawMessage(body)
		if !m.opts.SkipValidation {
			result.Warnings = m.validate(def, resp.StatusCode, body)
		}
	case utf8.Valid(body):
		result.Text = string(body)
	default:
		result.Text = fmt.Sprintf("[binary response: %d bytes, %s]", len(body), contentTypeOrUnknown(contentType))
	}
	return result, nil
}

func (m *Mapper) validate(def *openapi.ToolDefinition, status int, body []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil
	}
	warnings := def.ValidateResponse(status, doc)
	if len(warnings) > 0 {
		m.logger.Debug("response does not match declared schema",
			zap.String("tool", def.Name),
			zap.Int("status", status),
			zap.Int("warnings", len(warnings)),
		)
	}
	return warnings
}

func (m *Mapper) upstreamError(def *openapi.ToolDefinition, status int, body []byte) *types.Error {
	msg := extractMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "upstream request failed"
	}
	m.logger.Debug("upstream returned an error status",
		zap.String("tool", def.Name),
		zap.Int("status", status),
	)
	return types.NewError(types.ErrUpstreamAPI, msg).
		WithHTTPStatus(status).
		WithRetryable(retryableStatus(status)).
		WithBody(Truncate(body, m.opts.SnippetBytes)).
		WithTool(def.Name)
}

// MapError classifies a failure to obtain a response. Errors that are already
// typed, such as a file source failing while a multipart body streams, keep
// their code. The request URL is dropped because its query may carry
// credentials.
func (m *Mapper) MapError(def *openapi.ToolDefinition, err error) *types.Error {
	if e, ok := types.AsError(err); ok {
		if e.Tool == "" {
			e.Tool = def.Name
		}
		return e
	}

	cause := err
	var ue *url.Error
	if errors.As(err, &ue) {
		cause = ue.Err
	}
	target := def.Method() + " " + def.Path()

	var ne net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return types.Errorf(types.ErrNetwork, "request %s canceled", target).WithCause(cause).WithTool(def.Name)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return types.Errorf(types.ErrNetwork, "request %s timed out", target).
			WithCause(cause).WithRetryable(true).WithTool(def.Name)
	default:
		return types.Errorf(types.ErrNetwork, "request %s failed", target).
			WithCause(cause).WithRetryable(true).WithTool(def.Name)
	}
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// extractMessage pulls a message out of a JSON error body.
func extractMessage(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, field := range messageFields {
		switch v := obj[field].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Truncate cuts body to at most n bytes on a UTF-8 boundary and marks the cut.
func Truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(cutRunes(body, n)) + truncatedMarker
}

// cutRunes shortens body to at most n bytes without splitting a rune.
func cutRunes(body []byte, n int) []byte {
	if len(body) <= n {
		return body
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

func contentTypeOrUnknown(ct string) string {
	if ct == "" {
		return "unknown content type"
	}
	return ct
}
