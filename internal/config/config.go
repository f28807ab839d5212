package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type (
	Config struct {
		Host       string        `mapstructure:"HOST"`
		Port       string        `mapstructure:"PORT"`
		DBDriver   string        `mapstructure:"DB_DRIVER"`
		DBHost     string        `mapstructure:"DB_HOST"`
		DBPort     string        `mapstructure:"DB_PORT"`
		DBUser     string        `mapstructure:"DB_USER"`
		DBPassword string        `mapstructure:"DB_PASSWORD"`
		DBName     string        `mapstructure:"DB_NAME"`
		DBSSLMode  string        `mapstructure:"DB_SSL_MODE"`
		DBLogLevel string        `mapstructure:"DB_LOG_LEVEL"`
		JWTSecret  string        `mapstructure:"JWT_SECRET"`
		TokenTTL   time.Duration `mapstructure:"TOKEN_TTL"`
		Seed       bool          `mapstructure:"SEED"`
		LogLevel   string        `mapstructure:"LOG_LEVEL"`
		// AuthRateLimit is requests per second per client IP on /auth.
		AuthRateLimit float64 `mapstructure:"AUTH_RATE_LIMIT"`
	}
)

var envs = []string{
	"HOST", "PORT",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE", "DB_LOG_LEVEL",
	"JWT_SECRET", "TOKEN_TTL", "SEED", "LOG_LEVEL", "AUTH_RATE_LIMIT",
}

func NewConfig() (*Config, error) {
	// a missing .env is fine, the process environment wins anyway
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FORUM")

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "1323")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "0.0.0.0")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "db")
	v.SetDefault("DB_SSL_MODE", sslModeDisable)
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("SEED", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_RATE_LIMIT", 20)

	for _, key := range envs {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if !oneOf(cfg.DBSSLMode, sslModeDisable, sslModeRequire) {
		return errors.New(fmt.Sprintf("DB SSL mode is invalid: %s", cfg.DBSSLMode))
	}
	if !oneOf(cfg.DBDriver, DriverPostgres, DriverSQLite) {
		return errors.New(fmt.Sprintf("DB driver is invalid: %s", cfg.DBDriver))
	}
	if !oneOf(cfg.DBLogLevel, "silent", "error", "warn", "info") {
		return errors.New(fmt.Sprintf("DB log level is invalid: %s", cfg.DBLogLevel))
	}
	if len(cfg.JWTSecret) < 16 {
		return errors.New("JWT secret must be at least 16 characters")
	}
	if cfg.TokenTTL <= 0 {
		return errors.New(fmt.Sprintf("token TTL must be positive: %s", cfg.TokenTTL))
	}
	if cfg.AuthRateLimit <= 0 {
		return errors.New(fmt.Sprintf("auth rate limit must be positive: %v", cfg.AuthRateLimit))
	}
	return nil
}

func oneOf(value string, valid ...string) bool {
	for _, v := range valid {
		if value == v {
			return true
		}
	}
	return false
}
