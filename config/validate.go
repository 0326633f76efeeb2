package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BaSui01/apiflow/tools/auth"
)

// FieldError reports one invalid setting, named by its YAML path.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Reason
}

var (
	locations    = []string{"path", "query", "header", "body"}
	auditDrivers = []string{"memory", "sqlite", "postgres", "mysql"}
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"json", "console"}
	authKinds    = []auth.Kind{
		auth.KindNone, auth.KindBearer, auth.KindBasic,
		auth.KindAPIKeyHeader, auth.KindAPIKeyQuery, auth.KindCustomHeader,
	}
)

// Validate checks the merged config. Every problem is reported as a
// *FieldError joined into the returned error.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, field, format string, args ...any) {
		if !ok {
			errs = append(errs, &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
		}
	}

	check(strings.TrimSpace(c.Spec.Source) != "", "spec.source", "is required")
	for _, p := range c.Spec.Precedence {
		check(slices.Contains(locations, p), "spec.precedence", "has unknown location %q", p)
	}

	check(slices.Contains(authKinds, auth.Kind(c.Auth.Kind)), "auth.kind", "has unknown kind %q", c.Auth.Kind)

	check(c.HTTP.Timeout >= 0, "http.timeout", "must not be negative")
	check(c.HTTP.MaxResponseBytes > 0, "http.max_response_bytes", "must be positive")

	if c.RateLimit.Enabled {
		check(c.RateLimit.RPS > 0, "rate_limit.rps", "must be positive")
		check(c.RateLimit.Burst > 0, "rate_limit.burst", "must be positive")
	}

	if c.Cache.Enabled {
		check(c.Cache.Addr != "", "cache.addr", "is required when the cache is enabled")
		check(c.Cache.TTL > 0, "cache.ttl", "must be positive")
	}

	if c.Audit.Enabled {
		check(slices.Contains(auditDrivers, c.Audit.Driver), "audit.driver", "has unsupported driver %q", c.Audit.Driver)
		if c.Audit.Driver != "memory" {
			check(c.Audit.DSN() != "", "audit", "connection settings are incomplete")
		}
	}

	if c.Metrics.Enabled {
		check(c.Metrics.Addr != "", "metrics.addr", "is required when metrics are enabled")
	}

	check(slices.Contains(logLevels, c.Log.Level), "log.level", "has unknown level %q", c.Log.Level)
	check(slices.Contains(logFormats, c.Log.Format), "log.format", "has unknown format %q", c.Log.Format)

	rate := c.Telemetry.SampleRate
	check(rate >= 0 && rate <= 1, "telemetry.sample_rate", "must be between 0 and 1")

	return errors.Join(errs...)
}
