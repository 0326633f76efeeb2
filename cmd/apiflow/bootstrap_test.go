package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/apiflow/config"
	"github.com/BaSui01/apiflow/internal/audit"
	"github.com/BaSui01/apiflow/testutil"
	"github.com/BaSui01/apiflow/testutil/fixtures"
	"github.com/BaSui01/apiflow/testutil/mocks"
	"github.com/BaSui01/apiflow/tools/auth"
	"github.com/BaSui01/apiflow/tools/openapi"
)

// testConfig 指向 upstream 的最小配置
func testConfig(t *testing.T, upstream *mocks.MockUpstream) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Spec.Source = testutil.SpecFile(t, fixtures.PetStoreJSON)
	cfg.Spec.BaseURL = upstream.URL()
	return cfg
}

func startApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	a, err := bootstrap(context.Background(), cfg, zaptest.NewLogger(t), bootstrapOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { a.close(context.Background()) })
	return a
}

func TestBootstrap_Defaults(t *testing.T) {
	upstream := mocks.NewMockUpstream().
		WithJSON(http.MethodGet, "/pets/1", http.StatusOK, `{"id":1,"name":"Rex"}`)
	defer upstream.Close()

	a := startApp(t, testConfig(t, upstream))
	assert.Equal(t, 4, a.catalog.Len())
	assert.Nil(t, a.collector)
	assert.Nil(t, a.cache)
	assert.Nil(t, a.journal)
	require.Contains(t, a.checks, "catalog")
	assert.NoError(t, a.checks["catalog"](context.Background()))

	res, err := a.engine.Call(context.Background(), "getPet", map[string]any{"petId": "1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestBootstrap_PrometheusMetrics(t *testing.T) {
	upstream := mocks.NewMockUpstream().
		WithJSON(http.MethodGet, "/pets/1", http.StatusOK, `{"id":1,"name":"Rex"}`)
	defer upstream.Close()

	cfg := testConfig(t, upstream)
	cfg.Metrics.Enabled = true
	a, err := bootstrap(context.Background(), cfg, zaptest.NewLogger(t), bootstrapOptions{withMetrics: true})
	require.NoError(t, err)
	defer a.close(context.Background())
	require.NotNil(t, a.collector)
	require.NotNil(t, a.registry)

	_, err = a.engine.Call(context.Background(), "getPet", map[string]any{"petId": "1"})
	require.NoError(t, err)

	ns := cfg.Metrics.Namespace
	n, err := promtestutil.GatherAndCount(a.registry, ns+"_tools_registered", ns+"_tool_calls_total", ns+"_upstream_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBootstrap_MemoryAudit(t *testing.T) {
	upstream := mocks.NewMockUpstream().
		WithJSON(http.MethodGet, "/pets/1", http.StatusOK, `{"id":1,"name":"Rex"}`)
	defer upstream.Close()

	cfg := testConfig(t, upstream)
	cfg.Audit.Enabled = true
	cfg.Audit.Driver = "memory"
	a := startApp(t, cfg)
	require.NotNil(t, a.journal)
	assert.Nil(t, a.pool)

	res, err := a.engine.Call(context.Background(), "getPet", map[string]any{"petId": "1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		entries, err := a.journal.Query(context.Background(), &audit.Filter{CallID: res.CallID})
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBootstrap_SQLiteAudit(t *testing.T) {
	upstream := mocks.NewMockUpstream().
		WithJSON(http.MethodGet, "/pets/404", http.StatusNotFound, `{"error":"gone"}`)
	defer upstream.Close()

	cfg := testConfig(t, upstream)
	cfg.Audit.Enabled = true
	cfg.Audit.Driver = "sqlite"
	cfg.Audit.Name = filepath.Join(t.TempDir(), "audit.db")
	a := startApp(t, cfg)
	require.NotNil(t, a.pool)
	require.Contains(t, a.checks, "database")
	assert.NoError(t, a.checks["database"](context.Background()))

	_, err := a.engine.Call(context.Background(), "getPet", map[string]any{"petId": "404"})
	require.Error(t, err)

	require.Eventually(t, func() bool {
		entries, err := a.journal.Query(context.Background(), &audit.Filter{ToolName: "getPet"})
		return err == nil && len(entries) == 1 && entries[0].Status == http.StatusNotFound
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBootstrap_Cache(t *testing.T) {
	upstream := mocks.NewMockUpstream().
		WithJSON(http.MethodGet, "/pets/1", http.StatusOK, `{"id":1,"name":"Rex"}`)
	defer upstream.Close()
	mr := miniredis.RunT(t)

	cfg := testConfig(t, upstream)
	cfg.Cache.Enabled = true
	cfg.Cache.Addr = mr.Addr()
	a := startApp(t, cfg)
	require.NotNil(t, a.cache)
	assert.NoError(t, a.checks["redis"](context.Background()))

	for i := 0; i < 3; i++ {
		_, err := a.engine.Call(context.Background(), "getPet", map[string]any{"petId": "1"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, upstream.GetRequestCount())
}

func TestBootstrap_Errors(t *testing.T) {
	upstream := mocks.NewMockUpstream()
	defer upstream.Close()

	tests := []struct {
		name   string
		mutate func(*testing.T, *config.Config)
	}{
		{"missing document", func(t *testing.T, c *config.Config) { c.Spec.Source = testutil.MissingFile(t, "absent.json") }},
		{"unknown auth kind", func(_ *testing.T, c *config.Config) { c.Auth.Kind = "kerberos" }},
		{"bad proxy", func(_ *testing.T, c *config.Config) { c.HTTP.ProxyURL = "://nope" }},
		{"bad extra headers", func(t *testing.T, _ *config.Config) { t.Setenv(extraHeadersEnv, "[1,2]") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, upstream)
			tt.mutate(t, cfg)
			a, err := bootstrap(context.Background(), cfg, nil, bootstrapOptions{})
			require.Error(t, err)
			assert.Nil(t, a)
		})
	}
}

func TestExtraHeaders(t *testing.T) {
	headers, err := extraHeaders(map[string]string{"X-B": "1", "X-A": "2"}, `{"x-a":"env","X-C":"3"}`)
	require.NoError(t, err)

	require.Len(t, headers, 3)
	assert.Equal(t, "env", headers.HTTP().Get("X-A"))
	assert.Equal(t, "1", headers.HTTP().Get("X-B"))
	assert.Equal(t, "3", headers.HTTP().Get("X-C"))
	assert.Equal(t, "X-B", headers[1].Name)

	headers, err = extraHeaders(nil, "")
	require.NoError(t, err)
	assert.Empty(t, headers)

	_, err = extraHeaders(nil, "{")
	assert.Error(t, err)
}

func TestCompileOptions(t *testing.T) {
	renderer, err := auth.NewRenderer(auth.Config{Kind: auth.KindAPIKeyHeader, Name: "X-API-Key"}, auth.Secret("s"))
	require.NoError(t, err)

	opts := compileOptions(config.SpecConfig{
		BaseURL:           "https://api.test",
		ToolPrefix:        "pets",
		ExcludeTags:       []string{"admin"},
		Precedence:        []string{"path", "query"},
		MaxToolNameLength: 40,
	}, renderer)

	assert.Equal(t, "https://api.test", opts.BaseURL)
	assert.Equal(t, "pets", opts.Prefix)
	assert.Equal(t, []string{"admin"}, opts.ExcludeTags)
	assert.Equal(t, []openapi.Location{"path", "query"}, opts.Precedence)
	assert.Equal(t, 40, opts.MaxNameLength)
	assert.Equal(t, []string{"X-API-Key"}, opts.ReservedHeaders)
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "custom/1", userAgent("custom/1"))
	assert.Equal(t, "apiflow/"+Version, userAgent(""))
}
