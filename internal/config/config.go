// Package config loads process configuration from LETTERGRAPH_* environment
// variables. Command-line flags override these values.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is shared by every lettergraph command.
type Config struct {
	LogLevel  string `env:"LETTERGRAPH_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LETTERGRAPH_LOG_FORMAT" envDefault:"text"`

	GraphDir   string `env:"LETTERGRAPH_GRAPH_DIR" envDefault:"graphs"`
	ContentDir string `env:"LETTERGRAPH_CONTENT_DIR"`

	Addr string `env:"LETTERGRAPH_ADDR" envDefault:":8080"`

	RedisAddr     string        `env:"LETTERGRAPH_REDIS_ADDR"`
	RedisPassword string        `env:"LETTERGRAPH_REDIS_PASSWORD"`
	RedisDB       int           `env:"LETTERGRAPH_REDIS_DB" envDefault:"0"`
	GraphCacheTTL time.Duration `env:"LETTERGRAPH_GRAPH_CACHE_TTL" envDefault:"5m"`

	// ProviderURLs maps provider names to base URLs, e.g. "eligibility=https://elig.internal,fhir=https://fhir.internal".
	ProviderURLs    map[string]string `env:"LETTERGRAPH_PROVIDERS" envKeyValSeparator:"="`
	ProviderAPIKey  string            `env:"LETTERGRAPH_PROVIDER_API_KEY"`
	ProviderTimeout time.Duration     `env:"LETTERGRAPH_PROVIDER_TIMEOUT" envDefault:"5s"`
	Retries         int               `env:"LETTERGRAPH_RETRIES" envDefault:"2"`
	MaxNodeVisits   int               `env:"LETTERGRAPH_MAX_NODE_VISITS" envDefault:"10000"`
	StrictExprs     bool              `env:"LETTERGRAPH_STRICT_EXPRESSIONS"`

	BatchWorkers int `env:"LETTERGRAPH_BATCH_WORKERS" envDefault:"8"`

	// RedactPatterns masks matching keys in logs and API responses; empty uses the defaults.
	Redact         bool     `env:"LETTERGRAPH_REDACT" envDefault:"true"`
	RedactPatterns []string `env:"LETTERGRAPH_REDACT_PATTERNS"`

	OTelEndpoint string `env:"LETTERGRAPH_OTEL_ENDPOINT"`
}

// Load parses the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Retries < 0 || cfg.BatchWorkers < 1 || cfg.MaxNodeVisits < 1 {
		return nil, fmt.Errorf("parse env: retries must be >= 0, batch workers and max node visits >= 1")
	}
	return &cfg, nil
}
