package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/BaSui01/apiflow/internal/audit"
	"github.com/BaSui01/apiflow/internal/ctxkeys"
	"github.com/BaSui01/apiflow/internal/telemetry"
	"github.com/BaSui01/apiflow/tools/auth"
	"github.com/BaSui01/apiflow/tools/openapi"
	"github.com/BaSui01/apiflow/tools/request"
	"github.com/BaSui01/apiflow/tools/response"
	"github.com/BaSui01/apiflow/types"
)

// outcomeOK is the metric outcome of a successful call.
const outcomeOK = "ok"

// Engine executes tools of one catalog against the upstream API. It is safe
// for concurrent use; calls share nothing but the limiter, the cache and the
// HTTP transport.
type Engine struct {
	catalog  *openapi.Catalog
	client   *http.Client
	builder  *request.Builder
	mapper   *response.Mapper
	renderer *auth.Renderer
	limiter  *rate.Limiter
	cache    ResponseCache
	cacheTTL time.Duration
	flight   singleflight.Group
	recorder Recorder
	journal  Journal
	logger   *zap.Logger
}

// New creates an Engine over catalog.
func New(catalog *openapi.Catalog, opts ...Option) (*Engine, error) {
	if catalog == nil {
		return nil, types.NewError(types.ErrInternalError, "catalog is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: DefaultTimeout}
	}
	logger := o.logger.With(zap.String("component", "engine"))

	e := &Engine{
		catalog:  catalog,
		client:   o.client,
		builder:  request.NewBuilder(o.builder),
		mapper:   response.NewMapper(o.mapper, o.logger),
		renderer: o.renderer,
		limiter:  o.limiter,
		recorder: newRecorder(o.recorders),
		journal:  o.journal,
		logger:   logger,
	}
	if o.cache != nil && o.cacheTTL > 0 {
		e.cache = o.cache
		e.cacheTTL = o.cacheTTL
	}

	logger.Info("engine ready",
		zap.Int("tools", catalog.Len()),
		zap.Bool("rate_limited", e.limiter != nil),
		zap.Bool("cache", e.cache != nil),
	)
	return e, nil
}

// Tools lists the tools of the catalog in catalog order.
func (e *Engine) Tools() []types.ToolSchema {
	return e.catalog.Tools()
}

// Catalog returns the catalog the engine serves.
func (e *Engine) Catalog() *openapi.Catalog {
	return e.catalog
}

// call carries the per-call state reported once the call finishes.
type call struct {
	id      string
	tool    string
	start   time.Time
	def     *openapi.ToolDefinition
	spec    *request.Spec
	event   audit.EventType
	traceID string
}

// Call validates args, sends the request and maps the response. A non-nil
// error is always a *types.Error.
func (e *Engine) Call(ctx context.Context, name string, args map[string]any) (*types.ToolResult, error) {
	c := &call{id: uuid.NewString(), tool: name, start: time.Now(), event: audit.EventToolCall}
	ctx = ctxkeys.WithCallID(ctx, c.id)
	ctx = ctxkeys.WithToolName(ctx, name)

	ctx, span := telemetry.Tracer().Start(ctx, "apiflow.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("apiflow.tool", name),
			attribute.String("apiflow.call_id", c.id),
		),
	)
	defer span.End()
	if sc := span.SpanContext(); sc.HasTraceID() {
		c.traceID = sc.TraceID().String()
		ctx = ctxkeys.WithTraceID(ctx, c.traceID)
	}

	res, err := e.call(ctx, c, args)
	if err != nil {
		terr := types.WrapError(err, types.ErrInternalError, "tool call failed")
		if terr.Tool == "" {
			terr.Tool = name
		}
		e.finish(span, c, nil, terr)
		return nil, terr
	}
	res.CallID = c.id
	res.Duration = time.Since(c.start)
	e.finish(span, c, res, nil)
	return res, nil
}

// CallJSON decodes raw as the argument object and calls the tool. Numbers
// keep their exact text. Empty input means no arguments.
func (e *Engine) CallJSON(ctx context.Context, name string, raw json.RawMessage) (*types.ToolResult, error) {
	args, err := decodeArguments(raw)
	if err != nil {
		return nil, err.WithTool(name)
	}
	return e.Call(ctx, name, args)
}

func decodeArguments(raw json.RawMessage) (map[string]any, *types.Error) {
	args := map[string]any{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return args, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, types.NewError(types.ErrArgumentValidation, "arguments must be a JSON object").WithCause(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, types.NewError(types.ErrArgumentValidation, "unexpected data after the argument object")
	}
	return args, nil
}

func (e *Engine) call(ctx context.Context, c *call, args map[string]any) (*types.ToolResult, error) {
	def, ok := e.catalog.Lookup(c.tool)
	if !ok {
		return nil, types.Errorf(types.ErrToolNotFound, "unknown tool %q", c.tool).WithTool(c.tool)
	}
	c.def = def

	if args == nil {
		args = map[string]any{}
	}
	if err := def.ValidateArguments(args); err != nil {
		return nil, err
	}

	if err := e.wait(ctx, def); err != nil {
		c.event = audit.EventRateLimitHit
		return nil, err
	}

	var pairs []auth.Pair
	if e.renderer != nil {
		pairs = e.renderer.Pairs()
	}
	spec, err := e.builder.Build(def, args, pairs)
	if err != nil {
		return nil, err
	}
	c.spec = spec

	if e.cacheable(spec) {
		res, hit, err := e.cached(ctx, def, spec)
		if hit {
			c.event = audit.EventCacheHit
		}
		return res, err
	}
	return e.send(ctx, def, spec)
}

// wait blocks on the shared limiter. Waiting ends with RATE_LIMITED when ctx
// expires first or its deadline is too close for a token.
func (e *Engine) wait(ctx context.Context, def *openapi.ToolDefinition) error {
	if e.limiter == nil {
		return nil
	}
	start := time.Now()
	err := e.limiter.Wait(ctx)
	e.recorder.RecordRateLimitWait(time.Since(start))
	if err != nil {
		return types.Errorf(types.ErrRateLimited, "rate limit wait for tool %q aborted", def.Name).
			WithCause(err).
			WithRetryable(true).
			WithTool(def.Name)
	}
	return nil
}

// send performs one upstream exchange.
func (e *Engine) send(ctx context.Context, def *openapi.ToolDefinition, spec *request.Spec) (*types.ToolResult, error) {
	req, err := spec.NewRequest(ctx)
	if err != nil {
		return nil, e.mapper.MapError(def, err)
	}
	telemetry.InjectHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		e.recorder.RecordHTTPRequest(def.Method(), def.Name, 0, time.Since(start), req.ContentLength, -1)
		return nil, e.mapper.MapError(def, err)
	}
	res, err := e.mapper.Map(def, resp)
	e.recorder.RecordHTTPRequest(def.Method(), def.Name, resp.StatusCode, time.Since(start), req.ContentLength, resp.ContentLength)
	return res, err
}

// finish reports the call to metrics, tracing, the journal and the log.
func (e *Engine) finish(span trace.Span, c *call, res *types.ToolResult, err *types.Error) {
	duration := time.Since(c.start)
	entry := &audit.Entry{
		EventType: c.event,
		CallID:    c.id,
		TraceID:   c.traceID,
		ToolName:  c.tool,
		Duration:  duration,
	}
	if c.def != nil {
		entry.Method = c.def.Method()
	}
	if c.spec != nil {
		entry.Target = c.spec.Target()
	}

	fields := []zap.Field{
		zap.String("tool", c.tool),
		zap.String("call_id", c.id),
		zap.Duration("duration", duration),
	}

	if err != nil {
		e.recorder.RecordToolCall(c.tool, string(err.Code), duration)
		entry.Status = err.HTTPStatus
		entry.ErrorCode = string(err.Code)
		entry.Error = err.Message
		entry.Retryable = err.Retryable

		span.SetStatus(codes.Error, string(err.Code))
		span.SetAttributes(attribute.String("apiflow.error_code", string(err.Code)))
		if err.HTTPStatus != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", err.HTTPStatus))
		}
		e.logger.Info("tool call failed", append(fields,
			zap.String("code", string(err.Code)),
			zap.Int("status", err.HTTPStatus),
			zap.Bool("retryable", err.Retryable),
		)...)
	} else {
		e.recorder.RecordToolCall(c.tool, outcomeOK, duration)
		entry.Status = res.StatusCode
		entry.BytesRead = int64(len(res.Result) + len(res.Text))
		entry.Warnings = len(res.Warnings)

		span.SetStatus(codes.Ok, "")
		span.SetAttributes(
			attribute.Int("http.response.status_code", res.StatusCode),
			attribute.Bool("apiflow.cached", res.Cached),
		)
		e.logger.Debug("tool call finished", append(fields,
			zap.Int("status", res.StatusCode),
			zap.Bool("cached", res.Cached),
			zap.Int("warnings", len(res.Warnings)),
		)...)
	}

	if e.journal != nil {
		e.journal.LogAsync(entry)
	}
}
