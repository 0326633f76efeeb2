package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records call metrics as OTel instruments. It has the same method
// set as the Prometheus collector, so the engine can feed both.
type Metrics struct {
	callTotal      metric.Int64Counter
	callDuration   metric.Float64Histogram
	httpDuration   metric.Float64Histogram
	httpBodyBytes  metric.Int64Histogram
	rateLimitWait  metric.Float64Histogram
	cacheHitTotal  metric.Int64Counter
	cacheMissTotal metric.Int64Counter
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(InstrumentationName)
	m := &Metrics{}
	var err error

	if m.callTotal, err = meter.Int64Counter("apiflow.tool.calls",
		metric.WithDescription("Tool calls by outcome"),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	if m.callDuration, err = meter.Float64Histogram("apiflow.tool.duration",
		metric.WithDescription("Tool call duration including validation and mapping"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30)); err != nil {
		return nil, err
	}
	if m.httpDuration, err = meter.Float64Histogram("apiflow.upstream.duration",
		metric.WithDescription("Upstream HTTP exchange duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30)); err != nil {
		return nil, err
	}
	if m.httpBodyBytes, err = meter.Int64Histogram("apiflow.upstream.body.size",
		metric.WithDescription("Upstream request and response body sizes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(256, 1024, 16384, 262144, 1048576, 10485760)); err != nil {
		return nil, err
	}
	if m.rateLimitWait, err = meter.Float64Histogram("apiflow.ratelimit.wait",
		metric.WithDescription("Time spent waiting for the rate limiter"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.cacheHitTotal, err = meter.Int64Counter("apiflow.cache.hits",
		metric.WithDescription("Response cache hits"),
		metric.WithUnit("{hit}")); err != nil {
		return nil, err
	}
	if m.cacheMissTotal, err = meter.Int64Counter("apiflow.cache.misses",
		metric.WithDescription("Response cache misses"),
		metric.WithUnit("{miss}")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordToolCall records one finished call.
func (m *Metrics) RecordToolCall(tool, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	)
	ctx := context.Background()
	m.callTotal.Add(ctx, 1, attrs)
	m.callDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordHTTPRequest records one upstream exchange. Status 0 means no response.
// Negative sizes are unknown and skipped.
func (m *Metrics) RecordHTTPRequest(method, tool string, status int, duration time.Duration, requestSize, responseSize int64) {
	ctx := context.Background()
	m.httpDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("tool", tool),
		attribute.Int("http.response.status_code", status),
	))
	if requestSize >= 0 {
		m.httpBodyBytes.Record(ctx, requestSize, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("direction", "request"),
		))
	}
	if responseSize >= 0 {
		m.httpBodyBytes.Record(ctx, responseSize, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("direction", "response"),
		))
	}
}

// RecordRateLimitWait records time spent in the limiter.
func (m *Metrics) RecordRateLimitWait(d time.Duration) {
	m.rateLimitWait.Record(context.Background(), d.Seconds())
}

// RecordCacheHit counts a cache hit.
func (m *Metrics) RecordCacheHit(cacheType string) {
	m.cacheHitTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cache", cacheType)))
}

// RecordCacheMiss counts a cache miss.
func (m *Metrics) RecordCacheMiss(cacheType string) {
	m.cacheMissTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cache", cacheType)))
}
