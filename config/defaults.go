package config

import "time"

// DefaultConfig returns the built-in settings. Everything optional starts
// disabled; only spec.source has no usable default.
func DefaultConfig() *Config {
	return &Config{
		Spec:      DefaultSpecConfig(),
		Auth:      AuthConfig{Kind: "none"},
		HTTP:      DefaultHTTPConfig(),
		RateLimit: RateLimitConfig{RPS: 10, Burst: 20},
		Cache:     DefaultCacheConfig(),
		Audit:     DefaultAuditConfig(),
		Metrics:   MetricsConfig{Addr: "127.0.0.1:9464", Namespace: "apiflow"},
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultSpecConfig 参数冲突时 path 优先，其次 query、header、body
func DefaultSpecConfig() SpecConfig {
	return SpecConfig{
		Precedence:   []string{"path", "query", "header", "body"},
		FetchTimeout: 30 * time.Second,
	}
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:             time.Minute,
		MaxIdleConnsPerHost: 16,
		MaxResponseBytes:    10 << 20,
		ErrorSnippetBytes:   1 << 10,
	}
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "apiflow:",
		TTL:          time.Minute,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultAuditConfig 默认写本地 SQLite 文件
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Driver:          "sqlite",
		Name:            "apiflow-audit.db",
		Port:            5432,
		SSLMode:         "disable",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		QueueSize:       10000,
		Workers:         2,
		BatchSize:       100,
		FlushInterval:   time.Second,
	}
}

// DefaultLogConfig 日志写 stderr，stdout 留给 stdio 协议
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stderr"},
		EnableCaller: true,
	}
}

func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "apiflow",
		SampleRate:   0.1,
	}
}
