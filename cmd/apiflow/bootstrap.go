package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/config"
	"github.com/BaSui01/apiflow/internal/audit"
	"github.com/BaSui01/apiflow/internal/cache"
	"github.com/BaSui01/apiflow/internal/database"
	"github.com/BaSui01/apiflow/internal/metrics"
	"github.com/BaSui01/apiflow/internal/server"
	"github.com/BaSui01/apiflow/internal/telemetry"
	"github.com/BaSui01/apiflow/internal/tlsutil"
	"github.com/BaSui01/apiflow/tools/auth"
	"github.com/BaSui01/apiflow/tools/invoke"
	"github.com/BaSui01/apiflow/tools/openapi"
	"github.com/BaSui01/apiflow/tools/request"
	"github.com/BaSui01/apiflow/tools/response"
)

// extraHeadersEnv holds a JSON object of headers sent with every request.
const extraHeadersEnv = "OPENAPI_MCP_HEADERS"

// memoryAuditSize bounds the in-memory audit journal.
const memoryAuditSize = 10000

// =============================================================================
// 🧩 应用装配
// =============================================================================

// app 持有一次运行所需的全部组件
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	catalog   *openapi.Catalog
	engine    *invoke.Engine
	collector *metrics.Collector
	registry  *prometheus.Registry
	cache     *cache.Manager
	pool      *database.PoolManager
	journal   *audit.Logger
	telemetry *telemetry.Providers

	// checks 供 /readyz 使用
	checks map[string]server.Check
}

type bootstrapOptions struct {
	// withMetrics 注册 Prometheus 指标；仅长期运行的 serve 需要
	withMetrics bool
}

// bootstrap 按配置装配：加载文档、编译工具、创建调用引擎
func bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts bootstrapOptions) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &app{
		cfg:    cfg,
		logger: logger,
		checks: make(map[string]server.Check),
	}
	if err := a.init(ctx, opts); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, opts bootstrapOptions) error {
	cfg := a.cfg

	providers, err := telemetry.Init(cfg.Telemetry, Version, a.logger)
	if err != nil {
		a.logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		a.telemetry = providers
	}

	renderer, err := auth.NewRenderer(authConfig(cfg.Auth), cfg.Auth.Secret)
	if err != nil {
		return err
	}

	client, err := tlsutil.NewHTTPClient(tlsutil.ClientConfig{
		Timeout:             cfg.HTTP.Timeout,
		CAFile:              cfg.HTTP.CAFile,
		ProxyURL:            cfg.HTTP.ProxyURL,
		InsecureSkipVerify:  cfg.HTTP.InsecureSkipVerify,
		MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnsPerHost,
	})
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}
	if cfg.HTTP.InsecureSkipVerify {
		a.logger.Warn("TLS certificate verification is disabled")
	}

	// 1. 加载并编译文档
	fetcher := openapi.NewFetcher(openapi.FetcherConfig{
		HTTPClient: client,
		Options:    openapi.LoadOptions{SkipValidation: cfg.Spec.SkipValidation},
	}, a.logger)
	fetchCtx := ctx
	if cfg.Spec.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, cfg.Spec.FetchTimeout)
		defer cancel()
	}
	doc, err := fetcher.Fetch(fetchCtx, cfg.Spec.Source)
	if err != nil {
		return err
	}
	a.catalog, err = openapi.Compile(doc, compileOptions(cfg.Spec, renderer), a.logger)
	if err != nil {
		return err
	}
	catalog := a.catalog
	a.checks["catalog"] = func(context.Context) error {
		if catalog.Len() == 0 {
			return errors.New("no tools compiled")
		}
		return nil
	}

	// 2. 调用引擎选项
	headers, err := extraHeaders(cfg.HTTP.Headers, os.Getenv(extraHeadersEnv))
	if err != nil {
		return err
	}
	engineOpts := []invoke.Option{
		invoke.WithHTTPClient(client),
		invoke.WithLogger(a.logger),
		invoke.WithAuth(renderer),
		invoke.WithBuilderOptions(request.Options{
			UserAgent: userAgent(cfg.HTTP.UserAgent),
			Headers:   headers,
		}),
		invoke.WithMapperOptions(response.Options{
			MaxBodyBytes:   cfg.HTTP.MaxResponseBytes,
			SnippetBytes:   cfg.HTTP.ErrorSnippetBytes,
			SkipValidation: cfg.HTTP.SkipResponseValidation,
		}),
	}

	if opts.withMetrics && cfg.Metrics.Enabled {
		a.registry = metrics.NewRegistry()
		a.collector = metrics.NewCollector(cfg.Metrics.Namespace, a.registry, a.logger)
		a.collector.SetToolsRegistered(catalog.Len())
		engineOpts = append(engineOpts, invoke.WithMetrics(a.collector))
	}

	if a.telemetry.Enabled() {
		m, err := telemetry.NewMetrics(a.telemetry.MeterProvider())
		if err != nil {
			a.logger.Warn("failed to create OTel instruments", zap.Error(err))
		} else {
			engineOpts = append(engineOpts, invoke.WithMetrics(m))
		}
	}

	if cfg.RateLimit.Enabled {
		engineOpts = append(engineOpts, invoke.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	if cfg.Cache.Enabled {
		a.cache, err = cache.NewManager(cacheConfig(cfg.Cache), a.logger)
		if err != nil {
			return fmt.Errorf("response cache: %w", err)
		}
		engineOpts = append(engineOpts, invoke.WithCache(a.cache, cfg.Cache.TTL))
		a.checks["redis"] = a.cache.Ping
	}

	if cfg.Audit.Enabled {
		if err := a.openAudit(ctx); err != nil {
			return err
		}
		engineOpts = append(engineOpts, invoke.WithAudit(a.journal))
	}

	a.engine, err = invoke.New(catalog, engineOpts...)
	return err
}

// openAudit 打开审计存储并启动异步写入
func (a *app) openAudit(ctx context.Context) error {
	cfg := a.cfg.Audit

	var backend audit.Backend
	if cfg.Driver == "memory" {
		backend = audit.NewMemoryBackend(memoryAuditSize)
	} else {
		pool, err := database.Open(database.Config{
			Driver: cfg.Driver,
			DSN:    cfg.DSN(),
			Pool: database.PoolConfig{
				MaxOpenConns:        cfg.MaxOpenConns,
				MaxIdleConns:        cfg.MaxIdleConns,
				ConnMaxLifetime:     cfg.ConnMaxLifetime,
				ConnMaxIdleTime:     10 * time.Minute,
				HealthCheckInterval: 30 * time.Second,
			},
		}, a.logger)
		if err != nil {
			return fmt.Errorf("audit database: %w", err)
		}
		a.pool = pool
		a.checks["database"] = pool.Ping

		var observe audit.QueryObserver
		if c := a.collector; c != nil {
			pool.OnStats(func(s sql.DBStats) {
				c.RecordDBConnections(cfg.Driver, s.OpenConnections, s.Idle)
			})
			observe = func(op string, d time.Duration) {
				c.RecordDBQuery(cfg.Driver, op, d)
			}
		}

		backend, err = audit.NewGormBackend(ctx, pool, observe)
		if err != nil {
			return err
		}
	}

	a.journal = audit.NewLogger(audit.Config{
		QueueSize:     cfg.QueueSize,
		Workers:       cfg.Workers,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, a.logger, backend)
	return nil
}

// close 按依赖的逆序释放资源
func (a *app) close(ctx context.Context) {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close audit journal", zap.Error(err))
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.logger.Warn("failed to close audit database", zap.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close response cache", zap.Error(err))
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to shut down telemetry", zap.Error(err))
		}
	}
}

// =============================================================================
// 🔧 配置转换
// =============================================================================

func authConfig(cfg config.AuthConfig) auth.Config {
	return auth.Config{
		Kind:     auth.Kind(cfg.Kind),
		Name:     cfg.Name,
		Template: cfg.Template,
		Username: cfg.Username,
	}
}

func compileOptions(cfg config.SpecConfig, renderer *auth.Renderer) openapi.CompileOptions {
	precedence := make([]openapi.Location, 0, len(cfg.Precedence))
	for _, p := range cfg.Precedence {
		precedence = append(precedence, openapi.Location(p))
	}
	return openapi.CompileOptions{
		BaseURL:         cfg.BaseURL,
		Prefix:          cfg.ToolPrefix,
		IncludeTags:     cfg.IncludeTags,
		ExcludeTags:     cfg.ExcludeTags,
		Precedence:      precedence,
		MaxNameLength:   cfg.MaxToolNameLength,
		ReservedHeaders: renderer.HeaderNames(),
	}
}

func cacheConfig(cfg config.CacheConfig) cache.Config {
	out := cache.DefaultConfig()
	out.Addr = cfg.Addr
	out.Password = cfg.Password
	out.DB = cfg.DB
	out.KeyPrefix = cfg.KeyPrefix
	out.DefaultTTL = cfg.TTL
	out.PoolSize = cfg.PoolSize
	out.MinIdleConns = cfg.MinIdleConns
	out.TLSEnabled = cfg.TLSEnabled
	return out
}

// extraHeaders merges configured headers with the JSON object in env; the
// environment wins on the same name.
func extraHeaders(configured map[string]string, env string) (request.Headers, error) {
	names := make([]string, 0, len(configured))
	for name := range configured {
		names = append(names, name)
	}
	sort.Strings(names)

	var out request.Headers
	for _, name := range names {
		out.Set(name, configured[name])
	}

	fromEnv, err := request.ParseHeaders(env)
	if err != nil {
		return nil, err
	}
	for _, h := range fromEnv {
		out.Set(h.Name, h.Value)
	}
	return out, nil
}

func userAgent(configured string) string {
	if configured != "" {
		return configured
	}
	return request.DefaultUserAgent + "/" + Version
}
