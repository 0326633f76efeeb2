package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Spec.Source = "./petstore.yaml"
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "defaults with source", mutate: func(*Config) {}},
		{name: "missing source", mutate: func(c *Config) { c.Spec.Source = " " }, wantField: "spec.source"},
		{name: "bad precedence", mutate: func(c *Config) { c.Spec.Precedence = []string{"cookie"} }, wantField: "spec.precedence"},
		{name: "bad auth kind", mutate: func(c *Config) { c.Auth.Kind = "oauth2" }, wantField: "auth.kind"},
		{name: "negative timeout", mutate: func(c *Config) { c.HTTP.Timeout = -1 }, wantField: "http.timeout"},
		{name: "zero body limit", mutate: func(c *Config) { c.HTTP.MaxResponseBytes = 0 }, wantField: "http.max_response_bytes"},
		{name: "rate limit rps", mutate: func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.RPS = 0 }, wantField: "rate_limit.rps"},
		{name: "rate limit off ignores rps", mutate: func(c *Config) { c.RateLimit.RPS = 0 }},
		{name: "cache without ttl", mutate: func(c *Config) { c.Cache.Enabled = true; c.Cache.TTL = 0 }, wantField: "cache.ttl"},
		{name: "audit driver", mutate: func(c *Config) { c.Audit.Enabled = true; c.Audit.Driver = "mongo" }, wantField: "audit.driver"},
		{name: "audit postgres incomplete", mutate: func(c *Config) { c.Audit.Enabled = true; c.Audit.Driver = "postgres" }, wantField: "audit"},
		{name: "audit memory", mutate: func(c *Config) { c.Audit.Enabled = true; c.Audit.Driver = "memory" }},
		{name: "metrics addr", mutate: func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, wantField: "metrics.addr"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantField: "log.level"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantField: "log.format"},
		{name: "sample rate", mutate: func(c *Config) { c.Telemetry.SampleRate = 1.5 }, wantField: "telemetry.sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantField, fe.Field)
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "trace"
	cfg.Auth.Kind = "oauth2"

	err := cfg.Validate()
	require.Error(t, err)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	var fields []string
	for _, e := range joined.Unwrap() {
		var fe *FieldError
		require.True(t, errors.As(e, &fe))
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"spec.source", "auth.kind", "log.level"}, fields)
	assert.Contains(t, err.Error(), `auth.kind has unknown kind "oauth2"`)
}

func TestAuditConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  AuditConfig
		want string
	}{
		{
			name: "postgres",
			cfg:  AuditConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "audit", SSLMode: "disable"},
			want: "host=db port=5432 user=u password=p dbname=audit sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  AuditConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "audit"},
			want: "u:p@tcp(db:3306)/audit?parseTime=true",
		},
		{name: "sqlite", cfg: AuditConfig{Driver: "sqlite", Name: "/var/lib/apiflow/audit.db"}, want: "/var/lib/apiflow/audit.db"},
		{name: "url wins", cfg: AuditConfig{Driver: "postgres", URL: "postgres://x", Host: "db"}, want: "postgres://x"},
		{name: "postgres missing host", cfg: AuditConfig{Driver: "postgres", Name: "audit"}, want: ""},
		{name: "memory", cfg: AuditConfig{Driver: "memory"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
