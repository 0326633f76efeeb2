package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.Spec.Source)
	assert.Equal(t, []string{"path", "query", "header", "body"}, cfg.Spec.Precedence)
	assert.Equal(t, 30*time.Second, cfg.Spec.FetchTimeout)
	assert.Equal(t, "none", cfg.Auth.Kind)
	assert.True(t, cfg.Auth.Secret.Empty())
	assert.Equal(t, time.Minute, cfg.HTTP.Timeout)
	assert.Equal(t, int64(10<<20), cfg.HTTP.MaxResponseBytes)
	assert.Equal(t, 1024, cfg.HTTP.ErrorSnippetBytes)

	// 可选能力默认全部关闭
	assert.False(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Audit.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)

	assert.Equal(t, "apiflow-audit.db", cfg.Audit.DSN())
	assert.Equal(t, "apiflow:", cfg.Cache.KeyPrefix)
	assert.NotContains(t, cfg.Log.OutputPaths, "stdout")
}

func TestDefaultConfig_OnlySourceMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, "spec.source is required", err.Error())

	// 打开各个可选段后默认值本身也应合法
	cfg.Spec.Source = "./petstore.yaml"
	cfg.RateLimit.Enabled = true
	cfg.Cache.Enabled = true
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Telemetry.Enabled = true
	assert.NoError(t, cfg.Validate())
}
