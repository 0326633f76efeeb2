package invoke

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/internal/cache"
	"github.com/BaSui01/apiflow/tools/openapi"
	"github.com/BaSui01/apiflow/tools/request"
	"github.com/BaSui01/apiflow/types"
)

const cacheType = "response"

// cacheable reports whether spec is a body-less GET and a cache is set.
func (e *Engine) cacheable(spec *request.Spec) bool {
	return e.cache != nil && spec.Method == http.MethodGet && spec.Body.Kind == request.BodyNone
}

// cacheKey scopes the request fingerprint by tool. The fingerprint covers the
// rendered credential, so entries are never shared across credentials.
func cacheKey(def *openapi.ToolDefinition, spec *request.Spec) string {
	return "call:" + def.Name + ":" + spec.Fingerprint()
}

// cached serves spec from the cache or sends it once for all concurrent
// callers with the same key. The shared exchange is detached from the first
// caller's cancellation; each caller still stops waiting when its own ctx
// ends.
func (e *Engine) cached(ctx context.Context, def *openapi.ToolDefinition, spec *request.Spec) (*types.ToolResult, bool, error) {
	key := cacheKey(def, spec)

	var hit types.ToolResult
	err := e.cache.GetJSON(ctx, key, &hit)
	switch {
	case err == nil:
		e.recorder.RecordCacheHit(cacheType)
		hit.Cached = true
		return &hit, true, nil
	case !cache.IsCacheMiss(err):
		e.cacheWarn("response cache read failed", def, err)
	}
	e.recorder.RecordCacheMiss(cacheType)

	detached := context.WithoutCancel(ctx)
	ch := e.flight.DoChan(key, func() (any, error) {
		res, err := e.send(detached, def, spec)
		if err != nil {
			return nil, err
		}
		if err := e.cache.SetJSON(detached, key, res, e.cacheTTL); err != nil {
			e.cacheWarn("response cache write failed", def, err)
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, e.mapper.MapError(def, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, false, cloneError(r.Err)
		}
		return cloneResult(r.Val.(*types.ToolResult)), false, nil
	}
}

// cacheWarn logs cache failures. A cache known to be down or a result too
// large to store is expected and only logged at debug.
func (e *Engine) cacheWarn(msg string, def *openapi.ToolDefinition, err error) {
	fields := []zap.Field{zap.String("tool", def.Name), zap.Error(err)}
	if errors.Is(err, cache.ErrUnavailable) || errors.Is(err, cache.ErrValueTooLarge) {
		e.logger.Debug(msg, fields...)
		return
	}
	e.logger.Warn(msg, fields...)
}

// cloneResult copies a result shared between singleflight callers.
func cloneResult(res *types.ToolResult) *types.ToolResult {
	out := *res
	out.Warnings = append([]string(nil), res.Warnings...)
	return &out
}

func cloneError(err error) error {
	if e, ok := types.AsError(err); ok {
		out := *e
		return &out
	}
	return err
}
