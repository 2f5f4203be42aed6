package config

import (
	"context"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env  string `env:"APP_ENV" env-default:"dev"`
	Port int    `env:"PORT" env-default:"8080"`

	// Database. DBURL wins when set, otherwise it is assembled from parts.
	DBURL      string `env:"DB_URL"`
	DBHost     string `env:"DB_HOST" env-default:"127.0.0.1"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBUser     string `env:"DB_USER" env-default:"chronolog"`
	DBPassword string `env:"DB_PASSWORD" env-default:"chronolog"`
	DBName     string `env:"DB_NAME" env-default:"chronolog"`
	DBSSLMode  string `env:"DB_SSLMODE" env-default:"disable"`

	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"168h"`

	BcryptCost int `env:"BCRYPT_COST" env-default:"12"`

	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"15m"`
	RateLimitMax     int           `env:"RATE_LIMIT_MAX" env-default:"100"`
	AuthRateLimitMax int           `env:"AUTH_RATE_LIMIT_MAX" env-default:"5"`

	// Fixed reference timezone for resolving "today" on time entries.
	ReferenceTZ string `env:"REFERENCE_TZ" env-default:"Europe/London"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	OTELEndpoint string `env:"OTEL_EXPORTER_ENDPOINT"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:","`
	MaxBodyBytes       int64    `env:"MAX_BODY_BYTES" env-default:"1048576"`
}

const minSecretLen = 32

// Load reads the configuration from the environment and validates it.
// The process should not start on an error from here.
func Load() (Config, error) {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTAccessSecret) < minSecretLen {
		return fmt.Errorf("JWT_ACCESS_SECRET must be at least %d characters", minSecretLen)
	}

	if len(c.JWTRefreshSecret) < minSecretLen {
		return fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters", minSecretLen)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	if c.RateLimitWindow <= 0 || c.RateLimitMax <= 0 || c.AuthRateLimitMax <= 0 {
		return fmt.Errorf("rate limit window and thresholds must be positive")
	}

	if _, err := time.LoadLocation(c.ReferenceTZ); err != nil {
		return fmt.Errorf("REFERENCE_TZ %q: %w", c.ReferenceTZ, err)
	}

	return nil
}

// DatabaseURL returns the postgres connection string.
func (c *Config) DatabaseURL() string {
	if c.DBURL != "" {
		return c.DBURL
	}

	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// Location resolves the reference timezone. Validate has already run, so
// a failure here falls back to UTC instead of crashing a request.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReferenceTZ)

	if err != nil {
		return time.UTC
	}

	return loc
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
