package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Graph   GraphConfig
	Logging LoggingConfig
	Policy  PolicyConfig
	Risk    RiskConfig

	// DefaultOrgID scopes requests that carry no X-Org-ID header.
	DefaultOrgID string `env:"DEFAULT_ORG_ID" envDefault:"default"`
	// DashboardConcurrency bounds the per-company analyses run in parallel.
	DashboardConcurrency int `env:"DASHBOARD_CONCURRENCY" envDefault:"8"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port              int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MetricsEnabled    bool          `env:"SERVER_METRICS_ENABLED" envDefault:"false"`
	AllowedOriginsCSV string        `env:"SERVER_ALLOWED_ORIGINS"`
}

// GraphConfig describes connectivity to Neo4j. An empty URI selects the
// in-memory store.
type GraphConfig struct {
	URI            string `env:"GRAPH_URI"`
	Database       string `env:"GRAPH_DATABASE"`
	Username       string `env:"GRAPH_USERNAME"`
	Password       string `env:"GRAPH_PASSWORD"`
	MaxConnections int    `env:"GRAPH_MAX_CONNECTIONS" envDefault:"10"`
	EnsureSchema   bool   `env:"GRAPH_ENSURE_SCHEMA" envDefault:"true"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `env:"LOG_LEVEL" envDefault:"info"`
	Format        string `env:"LOG_FORMAT" envDefault:"text"` // text|json
	Colored       bool   `env:"LOG_COLOR" envDefault:"false"`
	IncludeCaller bool   `env:"LOG_INCLUDE_CALLER" envDefault:"false"`
}

// PolicyConfig holds the default UBO policy and an optional per-jurisdiction
// override file.
type PolicyConfig struct {
	Threshold    float64 `env:"UBO_THRESHOLD" envDefault:"25"`
	SumTolerance float64 `env:"OWNERSHIP_SUM_TOLERANCE" envDefault:"0.5"`
	ControlRule  string  `env:"UBO_CONTROL_RULE" envDefault:"transitive"`
	File         string  `env:"UBO_POLICY_FILE"`
}

// RiskConfig weighs the contact risk factors against each other.
type RiskConfig struct {
	NationalityWeight float64 `env:"RISK_WEIGHT_NATIONALITY" envDefault:"40"`
	IndustryWeight    float64 `env:"RISK_WEIGHT_INDUSTRY" envDefault:"30"`
	ComplexityWeight  float64 `env:"RISK_WEIGHT_COMPLEXITY" envDefault:"30"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses configuration from vars only, ignoring the process
// environment.
func LoadFrom(vars map[string]string) (Config, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.HTTP.Port)
	}
	if c.Policy.Threshold <= 0 || c.Policy.Threshold > 100 {
		return fmt.Errorf("UBO_THRESHOLD %.2f must be in (0, 100]", c.Policy.Threshold)
	}
	if c.Policy.SumTolerance < 0 {
		return fmt.Errorf("OWNERSHIP_SUM_TOLERANCE must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Policy.ControlRule)) {
	case "", "transitive", "direct":
	default:
		return fmt.Errorf("unknown UBO_CONTROL_RULE %q", c.Policy.ControlRule)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Logging.Format)
	}
	if c.Risk.NationalityWeight < 0 || c.Risk.IndustryWeight < 0 || c.Risk.ComplexityWeight < 0 {
		return fmt.Errorf("risk weights must not be negative")
	}
	if c.DashboardConcurrency < 1 {
		return fmt.Errorf("DASHBOARD_CONCURRENCY must be at least 1")
	}
	if strings.TrimSpace(c.DefaultOrgID) == "" {
		return fmt.Errorf("DEFAULT_ORG_ID must not be empty")
	}
	return nil
}

// AllowedOrigins splits the CORS origin list.
func (h HTTPConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(h.AllowedOriginsCSV, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
