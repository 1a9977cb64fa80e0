package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph/internal/config"
	"github.com/aretw0/lettergraph/internal/logging"
	"github.com/aretw0/lettergraph/pkg/adapters/memory"
	redisCache "github.com/aretw0/lettergraph/pkg/adapters/redis"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/redact"
)

const coverageGraph = `
id: coverage
version: "2"
nodes:
  - id: start
    type: start
  - id: lookup
    type: query
    config:
      provider: eligibility
      resource: "members/{{member.id}}"
  - id: letter
    type: dynamic_text
    config:
      text: "Coverage: {{data.lookup.status}}"
edges:
  - {id: e1, source: start, target: lookup}
  - {id: e2, source: lookup, target: letter}
`

func testConfig(t *testing.T, providerURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coverage.yaml"), []byte(coverageGraph), 0o644))
	return &config.Config{
		GraphDir:        dir,
		GraphCacheTTL:   time.Minute,
		ProviderURLs:    map[string]string{"eligibility": providerURL},
		ProviderAPIKey:  "secret",
		ProviderTimeout: time.Second,
		MaxNodeVisits:   100,
		Redact:          true,
	}
}

func eligibilityServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/members/M1", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"active"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuild_MemoryCache(t *testing.T) {
	cfg := testConfig(t, eligibilityServer(t).URL)

	app, err := Build(cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &memory.Cache{}, app.Cache)
	assert.Equal(t, []string{"eligibility"}, app.Providers.Names())
	assert.NoError(t, app.Health(context.Background()))

	res, err := app.Engine.Evaluate(context.Background(), domain.Request{
		GraphID: "coverage",
		Data:    json.RawMessage(`{"member":{"id":"M1"}}`),
		Format:  "text",
	})
	require.NoError(t, err)
	assert.Equal(t, "Coverage: active", res.RenderedContent)
	assert.Equal(t, "2", res.GraphVersion)

	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.Evaluations.WithLabelValues(string(domain.OutcomeClean))))
	n, err := testutil.GatherAndCount(app.Registry, "lettergraph_provider_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuild_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, eligibilityServer(t).URL)
	cfg.RedisAddr = mr.Addr()

	app, err := Build(cfg, logging.NewNop(), nil)
	require.NoError(t, err)

	require.IsType(t, &redisCache.Cache{}, app.Cache)
	require.NoError(t, app.Health(context.Background()))

	_, err = app.Engine.Evaluate(context.Background(), domain.Request{
		GraphID: "coverage",
		Data:    json.RawMessage(`{"member":{"id":"M1"}}`),
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("lettergraph:graph:coverage"), "loaded graphs are cached in redis")

	mr.Close()
	assert.Error(t, app.Health(context.Background()))
	assert.NoError(t, app.Close())
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig(t, "not a url")
	_, err := Build(cfg, logging.NewNop(), nil)
	assert.ErrorContains(t, err, "provider eligibility")
}

func TestNewRedactor(t *testing.T) {
	r, err := NewRedactor(&config.Config{Redact: false})
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = NewRedactor(&config.Config{Redact: true})
	require.NoError(t, err)
	assert.Equal(t, redact.Mask, r.Map(map[string]any{"ssn": "123"})["ssn"])

	r, err = NewRedactor(&config.Config{Redact: true, RedactPatterns: []string{"^member_id$"}})
	require.NoError(t, err)
	masked := r.Map(map[string]any{"member_id": "M1", "ssn": "123"})
	assert.Equal(t, redact.Mask, masked["member_id"])
	assert.Equal(t, "123", masked["ssn"])

	_, err = NewRedactor(&config.Config{Redact: true, RedactPatterns: []string{"("}})
	assert.Error(t, err)
}
