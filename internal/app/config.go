package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage      string `default:"postgres" usage:"Storage backend: postgres or memory"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (STOREFRONT_API_KEY_PEPPER)" flag:"api-key-pepper"`
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
	Kafka        KafkaConfig
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `default:"10" usage:"Sustained requests per second per client"`
	Burst int     `default:"20" usage:"Requests a client may send at once"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// KafkaConfig enables publishing notifications to Kafka when Brokers is set.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka bootstrap brokers"`
	Topic   string   `default:"storefront.notifications" usage:"Topic for notification events"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if c.APIKeyPepper == "" {
		return errors.New("api key pepper is required: set STOREFRONT_API_KEY_PEPPER")
	}
	if c.RateLimit.RPS <= 0 {
		return errors.Errorf("rate limit must be positive, got %v", c.RateLimit.RPS)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
