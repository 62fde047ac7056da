package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	autherror "auth-core/internal/errors"
)

// devSecret keeps local development running without a JWT_SECRET. Production
// refuses to start without a real one.
const devSecret = "insecure-dev-secret"

type Config struct {
	Env  string `env:"ENV" envDefault:"development" validate:"oneof=development test production"`
	Port string `env:"PORT" envDefault:"8080" validate:"numeric"`

	// DatabaseURL empty means the in-memory store (development only).
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m" validate:"gt=0"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h" validate:"gt=0"`

	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"10" validate:"gte=4,lte=31"`
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5" validate:"gt=0"`
	LockoutMax       time.Duration `env:"LOCKOUT_MAX" envDefault:"60m" validate:"gt=0"`

	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h" validate:"gt=0"`
	SentryDSN       string        `env:"SENTRY_DSN"`
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads config/.env.<env> (if present), then the environment. A missing
// signing secret outside development is a load error so the process fails at
// startup instead of per request.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.Env != "development" {
			return nil, autherror.ErrMissingSecret
		}
		cfg.JWTSecret = devSecret
	}

	if cfg.Production() && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required in production")
	}

	return cfg, nil
}

func loadEnvFile() {
	name := ".env." + envShortName(os.Getenv("ENV"))
	_ = godotenv.Load(filepath.Join("config", name))
	_ = godotenv.Load()
}

func envShortName(envName string) string {
	switch envName {
	case "", "development":
		return "dev"
	case "production":
		return "prod"
	default:
		return envName
	}
}
