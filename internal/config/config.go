// Package config loads the dashboard service configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// SiteURL is the root of the backing site.
	SiteURL string `yaml:"site_url"`
	// ListenAddr is the local HTTP API bind address.
	ListenAddr string `yaml:"listen_addr"`

	Lists   ListsConfig   `yaml:"lists"`
	Gateway GatewayConfig `yaml:"gateway"`
	Board   BoardConfig   `yaml:"board"`
	Actor   ActorConfig   `yaml:"actor"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// ListsConfig names the backing list titles.
type ListsConfig struct {
	Ideas       string `yaml:"ideas"`
	Activity    string `yaml:"activity"`
	Discussions string `yaml:"discussions"`
}

// GatewayConfig tunes the secure API gateway.
type GatewayConfig struct {
	Timeout              time.Duration `yaml:"timeout"`
	MaxRetries           int           `yaml:"max_retries"`
	RetryBaseDelay       time.Duration `yaml:"retry_base_delay"`
	RequestSpacing       time.Duration `yaml:"request_spacing"`
	DigestCacheTTL       time.Duration `yaml:"digest_cache_ttl"`
	NoRetryOnClientError bool          `yaml:"no_retry_on_client_error"`
}

// BoardConfig tunes the reconciliation engine.
type BoardConfig struct {
	ReconcileDelay  time.Duration `yaml:"reconcile_delay"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// ActorConfig identifies the acting user for audit attribution.
type ActorConfig struct {
	Name string `yaml:"name"`
	ID   int    `yaml:"id"`
}

// HTTPConfig tunes the local API surface.
type HTTPConfig struct {
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LoggingConfig tunes log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration defaults applied before file and
// environment overrides.
func Default() Config {
	return Config{
		ListenAddr: ":8085",
		Lists: ListsConfig{
			Ideas:       "Ideas",
			Activity:    "IdeaActivity",
			Discussions: "IdeaDiscussions",
		},
		Gateway: GatewayConfig{
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
			RequestSpacing: 250 * time.Millisecond,
		},
		Board: BoardConfig{
			ReconcileDelay:  time.Second,
			RefreshInterval: time.Minute,
		},
		HTTP: HTTPConfig{
			RequestTimeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path (optional), then applies environment
// overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if strings.TrimSpace(cfg.SiteURL) == "" {
		return Config{}, fmt.Errorf("site_url is required")
	}
	if cfg.Actor.Name == "" {
		return Config{}, fmt.Errorf("actor.name is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DASHBOARD_SITE_URL"); v != "" {
		cfg.SiteURL = v
	}
	if v := os.Getenv("DASHBOARD_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DASHBOARD_ACTOR_NAME"); v != "" {
		cfg.Actor.Name = v
	}
	if v := os.Getenv("DASHBOARD_ACTOR_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			cfg.Actor.ID = id
		}
	}
	if v := os.Getenv("DASHBOARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
