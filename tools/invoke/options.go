package invoke

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/apiflow/internal/audit"
	"github.com/BaSui01/apiflow/tools/auth"
	"github.com/BaSui01/apiflow/tools/request"
	"github.com/BaSui01/apiflow/tools/response"
)

// DefaultTimeout bounds one upstream exchange when no client is supplied.
const DefaultTimeout = 60 * time.Second

// ResponseCache stores successful GET results. *cache.Manager satisfies it;
// a miss must be reported with an error for which cache.IsCacheMiss is true.
type ResponseCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Recorder receives call metrics. *metrics.Collector satisfies it.
type Recorder interface {
	RecordToolCall(tool, outcome string, duration time.Duration)
	RecordHTTPRequest(method, tool string, status int, duration time.Duration, requestSize, responseSize int64)
	RecordRateLimitWait(d time.Duration)
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

// Journal receives one audit entry per call. *audit.Logger satisfies it.
type Journal interface {
	LogAsync(entry *audit.Entry)
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	client    *http.Client
	logger    *zap.Logger
	renderer  *auth.Renderer
	limiter   *rate.Limiter
	cache     ResponseCache
	cacheTTL  time.Duration
	recorders []Recorder
	journal   Journal
	builder   request.Options
	mapper    response.Options
}

// WithHTTPClient sets the client used for upstream requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAuth attaches the rendered credential to every request. Compile the
// catalog with r.HeaderNames() as reserved headers so callers cannot
// override it.
func WithAuth(r *auth.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithRateLimit shares one token bucket across all calls of the engine.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCache caches successful GET results for ttl.
func WithCache(c ResponseCache, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

// WithMetrics records call and upstream metrics. Repeated options add
// recorders; every recorder sees every measurement.
func WithMetrics(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorders = append(o.recorders, r)
		}
	}
}

// WithAudit journals every call.
func WithAudit(j Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithBuilderOptions configures request building.
func WithBuilderOptions(opts request.Options) Option {
	return func(o *options) { o.builder = opts }
}

// WithMapperOptions configures response mapping.
func WithMapperOptions(opts response.Options) Option {
	return func(o *options) { o.mapper = opts }
}

// nopRecorder drops all metrics.
type nopRecorder struct{}

func (nopRecorder) RecordToolCall(string, string, time.Duration) {}
func (nopRecorder) RecordHTTPRequest(string, string, int, time.Duration, int64, int64) {
}
func (nopRecorder) RecordRateLimitWait(time.Duration) {}
func (nopRecorder) RecordCacheHit(string)             {}
func (nopRecorder) RecordCacheMiss(string)            {}

// multiRecorder fans measurements out to several recorders.
type multiRecorder []Recorder

func newRecorder(rs []Recorder) Recorder {
	switch len(rs) {
	case 0:
		return nopRecorder{}
	case 1:
		return rs[0]
	}
	return multiRecorder(rs)
}

func (m multiRecorder) RecordToolCall(tool, outcome string, d time.Duration) {
	for _, r := range m {
		r.RecordToolCall(tool, outcome, d)
	}
}

func (m multiRecorder) RecordHTTPRequest(method, tool string, status int, d time.Duration, reqSize, respSize int64) {
	for _, r := range m {
		r.RecordHTTPRequest(method, tool, status, d, reqSize, respSize)
	}
}

func (m multiRecorder) RecordRateLimitWait(d time.Duration) {
	for _, r := range m {
		r.RecordRateLimitWait(d)
	}
}

func (m multiRecorder) RecordCacheHit(cacheType string) {
	for _, r := range m {
		r.RecordCacheHit(cacheType)
	}
}

func (m multiRecorder) RecordCacheMiss(cacheType string) {
	for _, r := range m {
		r.RecordCacheMiss(cacheType)
	}
}
