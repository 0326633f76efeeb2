package config

import (
	"fmt"
	"time"

	"github.com/BaSui01/apiflow/tools/auth"
)

// Config is the complete apiflow configuration. The env tag of each section
// and field forms the variable name: APIFLOW_<SECTION>_<FIELD>.
type Config struct {
	Spec      SpecConfig      `yaml:"spec" env:"SPEC"`
	Auth      AuthConfig      `yaml:"auth" env:"AUTH"`
	HTTP      HTTPConfig      `yaml:"http" env:"HTTP"`
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`
	Cache     CacheConfig     `yaml:"cache" env:"CACHE"`
	Audit     AuditConfig     `yaml:"audit" env:"AUDIT"`
	Metrics   MetricsConfig   `yaml:"metrics" env:"METRICS"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// SpecConfig 文档来源与工具编译选项
type SpecConfig struct {
	Source            string        `yaml:"source" env:"SOURCE"`                             // 本地路径、file:// 或 http(s) URL
	BaseURL           string        `yaml:"base_url" env:"BASE_URL"`                         // 覆盖 servers[0]
	ToolPrefix        string        `yaml:"tool_prefix" env:"TOOL_PREFIX"`                   // 工具名前缀
	IncludeTags       []string      `yaml:"include_tags" env:"INCLUDE_TAGS"`                 // 非空时只编译带这些标签的操作
	ExcludeTags       []string      `yaml:"exclude_tags" env:"EXCLUDE_TAGS"`                 // 跳过带这些标签的操作
	Precedence        []string      `yaml:"precedence" env:"PRECEDENCE"`                     // 同名参数的保留顺序
	MaxToolNameLength int           `yaml:"max_tool_name_length" env:"MAX_TOOL_NAME_LENGTH"` // 0 取默认值，负数不限
	SkipValidation    bool          `yaml:"skip_validation" env:"SKIP_VALIDATION"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT"`
}

// AuthConfig 上游凭证。Secret 通常只来自 APIFLOW_AUTH_SECRET。
type AuthConfig struct {
	Kind     string      `yaml:"kind" env:"KIND"`         // none / bearer / basic / api_key_header / api_key_query / custom_header
	Name     string      `yaml:"name" env:"NAME"`         // 头名或查询参数名
	Template string      `yaml:"template" env:"TEMPLATE"` // custom_header 值模板，恰好一个 {value}
	Username string      `yaml:"username" env:"USERNAME"`
	Secret   auth.Secret `yaml:"secret" env:"SECRET"`
}

// HTTPConfig 上游 HTTP 客户端
type HTTPConfig struct {
	Timeout                time.Duration     `yaml:"timeout" env:"TIMEOUT"` // 单次调用，含读响应体
	UserAgent              string            `yaml:"user_agent" env:"USER_AGENT"`
	Headers                map[string]string `yaml:"headers" env:"HEADERS"` // 环境变量格式 k=v,k2=v2
	CAFile                 string            `yaml:"ca_file" env:"CA_FILE"`
	ProxyURL               string            `yaml:"proxy_url" env:"PROXY_URL"`
	InsecureSkipVerify     bool              `yaml:"insecure_skip_verify" env:"INSECURE_SKIP_VERIFY"`
	MaxIdleConnsPerHost    int               `yaml:"max_idle_conns_per_host" env:"MAX_IDLE_CONNS_PER_HOST"`
	MaxResponseBytes       int64             `yaml:"max_response_bytes" env:"MAX_RESPONSE_BYTES"`
	ErrorSnippetBytes      int               `yaml:"error_snippet_bytes" env:"ERROR_SNIPPET_BYTES"`
	SkipResponseValidation bool              `yaml:"skip_response_validation" env:"SKIP_RESPONSE_VALIDATION"`
}

// RateLimitConfig 进程内共享的令牌桶
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" env:"ENABLED"`
	RPS     float64 `yaml:"rps" env:"RPS"`
	Burst   int     `yaml:"burst" env:"BURST"`
}

// CacheConfig Redis 响应缓存，只缓存无请求体的 GET
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	Addr         string        `yaml:"addr" env:"ADDR"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" env:"DB"`
	KeyPrefix    string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL          time.Duration `yaml:"ttl" env:"TTL"`
	PoolSize     int           `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	TLSEnabled   bool          `yaml:"tls_enabled" env:"TLS_ENABLED"`
}

// AuditConfig 调用审计。Driver 为 memory 时不落盘。
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Driver  string `yaml:"driver" env:"DRIVER"` // memory / sqlite / postgres / mysql

	// URL 非空时忽略下面的分项连接参数
	URL      string `yaml:"url" env:"URL"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Name     string `yaml:"name" env:"NAME"` // sqlite 时为文件路径
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`

	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`

	// 异步写入
	QueueSize     int           `yaml:"queue_size" env:"QUEUE_SIZE"`
	Workers       int           `yaml:"workers" env:"WORKERS"`
	BatchSize     int           `yaml:"batch_size" env:"BATCH_SIZE"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"FLUSH_INTERVAL"`
}

// DSN builds the driver connection string, or "" when the settings are
// incomplete or the driver keeps no database.
func (d *AuditConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	networked := d.Host != "" && d.Name != ""
	switch {
	case d.Driver == "sqlite":
		return d.Name
	case d.Driver == "postgres" && networked:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	case d.Driver == "mysql" && networked:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name)
	}
	return ""
}

// MetricsConfig 管理端口：/metrics、/healthz、/readyz、/tools
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Addr      string `yaml:"addr" env:"ADDR"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// LogConfig zap 日志。stdio 模式下 stdout 属于协议，不要写日志。
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`   // debug / info / warn / error
	Format           string   `yaml:"format" env:"FORMAT"` // json / console
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig OTLP gRPC 导出
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	Insecure     bool    `yaml:"insecure" env:"INSECURE"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"` // [0, 1]
}
