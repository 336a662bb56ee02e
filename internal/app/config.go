package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (WISHLIST_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (WISHLIST_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	CartAddURL   string `usage:"Storefront cart-add endpoint URL" flag:"cart-add-url"`
	ShareBaseURL string `default:"" usage:"Base URL for public wishlist share links" flag:"share-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (WISHLIST_API_KEY_PEPPER)" flag:"api-key-pepper"`
	AutoSelect   AutoSelectConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// AutoSelectConfig carries the two independent auto-select triggers.
type AutoSelectConfig struct {
	OnInit   bool `default:"true"  usage:"Auto-select a purchasable variant when a card first loads" flag:"autoselect-on-init"`
	OnChange bool `default:"false" usage:"Auto-complete partial selections after an option change" flag:"autoselect-on-change"`
}

// SessionConfig controls the in-memory card session registry.
type SessionConfig struct {
	TTL time.Duration `default:"30m" usage:"Idle TTL for card sessions" flag:"session-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
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

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "WISHLIST",
		Files:     []string{"config.yaml", "/etc/wishlist/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set WISHLIST_DATABASE_URL or DATABASE_URL")
	}
	if cfg.CartAddURL == "" {
		return nil, errors.New("cart-add URL is required: set WISHLIST_CART_ADD_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's WISHLIST_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
