package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env       string `mapstructure:"EV_ENV"`
	HTTPAddr  string `mapstructure:"EV_HTTP_ADDR"`
	PublicURL string `mapstructure:"EV_PUBLIC_ORIGIN"`

	Database DBConfig       `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Auth     AuthConfig     `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type DBConfig struct {
	// Backend selects the data-client driver: "postgres" or "memory".
	Backend     string `mapstructure:"EV_DB_BACKEND"`
	PostgresDSN string `mapstructure:"EV_POSTGRES_DSN"`
}

type CacheConfig struct {
	RedisAddr  string        `mapstructure:"EV_REDIS_ADDR"`
	ContentTTL time.Duration `mapstructure:"EV_CONTENT_CACHE_TTL"`
}

type AuthConfig struct {
	// JWTSecret verifies HS256 tokens minted by the auth provider.
	JWTSecret string `mapstructure:"EV_JWT_SECRET"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"EV_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"EV_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("EV_ENV", "dev")
	v.SetDefault("EV_HTTP_ADDR", ":8080")
	v.SetDefault("EV_PUBLIC_ORIGIN", "http://localhost:3000")
	v.SetDefault("EV_DB_BACKEND", "memory")
	v.SetDefault("EV_POSTGRES_DSN", "")
	v.SetDefault("EV_REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("EV_CONTENT_CACHE_TTL", "60s")
	v.SetDefault("EV_JWT_SECRET", "")
	v.SetDefault("EV_RATE_LIMIT_RPM", 120)
	v.SetDefault("EV_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	if origins := v.GetString("EV_CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("EV_CORS_ALLOWED_ORIGINS", strings.Split(origins, ","))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Backend {
	case "memory":
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("EV_POSTGRES_DSN is required with EV_DB_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("invalid EV_DB_BACKEND %q (must be memory or postgres)", c.Database.Backend)
	}
	if c.IsProd() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("EV_JWT_SECRET is required in prod")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
