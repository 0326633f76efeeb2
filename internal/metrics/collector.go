package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// 标签名
const (
	labelTool      = "tool"
	labelOutcome   = "outcome"
	labelMethod    = "method"
	labelStatus    = "status"
	labelCache     = "cache_type"
	labelDatabase  = "database"
	labelOperation = "operation"
)

var (
	callBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}
	waitBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1, 5}
	sizeBuckets = prometheus.ExponentialBuckets(100, 10, 8)
)

// =============================================================================
// 📊 Collector
// =============================================================================

// Collector exposes tool-call, upstream, cache and audit database metrics in
// Prometheus form. Methods are safe for concurrent use.
type Collector struct {
	calls        *prometheus.CounterVec
	callSeconds  *prometheus.HistogramVec
	tools        prometheus.Gauge
	waitSeconds  prometheus.Histogram
	upstream     *prometheus.CounterVec
	upSeconds    *prometheus.HistogramVec
	requestSize  *prometheus.HistogramVec
	responseSize *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	dbConns      *prometheus.GaugeVec
	dbSeconds    *prometheus.HistogramVec
}

// NewRegistry returns a registry holding the Go runtime and process
// collectors, for use with NewCollector and the /metrics handler.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewCollector registers all metrics under namespace on reg. A nil reg
// means prometheus.DefaultRegisterer. Registering twice on the same
// registry panics.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}

	c := &Collector{
		calls:       counter("tool_calls_total", "Tool calls by outcome (ok or error code)", labelTool, labelOutcome),
		callSeconds: histogram("tool_call_duration_seconds", "Tool call duration including rate limiting", callBuckets, labelTool),
		tools: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tools_registered", Help: "Tools compiled from the loaded document",
		}),
		waitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "rate_limit_wait_seconds", Help: "Time spent waiting for the upstream rate limiter", Buckets: waitBuckets,
		}),
		upstream:     counter("upstream_requests_total", "Upstream HTTP exchanges by status class", labelMethod, labelTool, labelStatus),
		upSeconds:    histogram("upstream_request_duration_seconds", "Upstream HTTP exchange duration", prometheus.DefBuckets, labelMethod, labelTool),
		requestSize:  histogram("upstream_request_size_bytes", "Upstream request body size", sizeBuckets, labelMethod, labelTool),
		responseSize: histogram("upstream_response_size_bytes", "Upstream response body size", sizeBuckets, labelMethod, labelTool),
		cacheLookups: counter("cache_lookups_total", "Response cache lookups by result", labelCache, "result"),
		dbConns: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "db_connections", Help: "Audit database connections by state",
		}, []string{labelDatabase, "state"}),
		dbSeconds: histogram("db_query_duration_seconds", "Audit database statement duration", prometheus.DefBuckets, labelDatabase, labelOperation),
	}

	logger.With(zap.String("component", "metrics")).
		Debug("metrics collector registered", zap.String("namespace", namespace))
	return c
}

// RecordToolCall counts one finished call; outcome is "ok" or an error code.
func (c *Collector) RecordToolCall(tool, outcome string, duration time.Duration) {
	c.calls.WithLabelValues(tool, outcome).Inc()
	c.callSeconds.WithLabelValues(tool).Observe(duration.Seconds())
}

// SetToolsRegistered sets the catalog size.
func (c *Collector) SetToolsRegistered(n int) {
	c.tools.Set(float64(n))
}

func (c *Collector) RecordRateLimitWait(d time.Duration) {
	c.waitSeconds.Observe(d.Seconds())
}

// RecordHTTPRequest records one upstream exchange. Status 0 means the
// request never got a response; negative sizes are unknown and skipped.
func (c *Collector) RecordHTTPRequest(method, tool string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.upstream.WithLabelValues(method, tool, statusClass(status)).Inc()
	c.upSeconds.WithLabelValues(method, tool).Observe(duration.Seconds())
	if requestSize >= 0 {
		c.requestSize.WithLabelValues(method, tool).Observe(float64(requestSize))
	}
	if responseSize >= 0 {
		c.responseSize.WithLabelValues(method, tool).Observe(float64(responseSize))
	}
}

func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheLookups.WithLabelValues(cacheType, "hit").Inc()
}

func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheLookups.WithLabelValues(cacheType, "miss").Inc()
}

// RecordDBConnections publishes a pool stats snapshot.
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConns.WithLabelValues(database, "open").Set(float64(open))
	c.dbConns.WithLabelValues(database, "idle").Set(float64(idle))
}

func (c *Collector) RecordDBQuery(database, operation string, duration time.Duration) {
	c.dbSeconds.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// statusClass folds a status code into "2xx".."5xx"; 0 becomes "none".
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "none"
	}
	return strconv.Itoa(code/100) + "xx"
}
