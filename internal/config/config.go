// Package config loads the process configuration, following the
// radek-zitek-cloud-goedu-omicron config.go pattern: viper for layered
// env/file/default resolution, godotenv for local development
// convenience, struct tags binding each field to an env var.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every configuration input the service needs, plus the ambient process
// settings (port, environment, downstream DSNs) a running server needs.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Token    TokenConfig    `mapstructure:"token"`
	Password PasswordConfig `mapstructure:"password"`
	MFA      MFAConfig      `mapstructure:"mfa"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

type AppConfig struct {
	Environment string `mapstructure:"environment"`
	Port        int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type CacheConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TokenConfig is the literal configuration contract: a symmetric
// JWT secret plus the four TTLs the credential lifecycle issues against.
type TokenConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	Issuer             string        `mapstructure:"issuer"`
	Audience           string        `mapstructure:"audience"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	OneShotResetTTL    time.Duration `mapstructure:"one_shot_reset_ttl"`
	OneShotVerifyTTL   time.Duration `mapstructure:"one_shot_verify_ttl"`
	ClockSkewTolerance time.Duration `mapstructure:"clock_skew_tolerance"`
}

type PasswordConfig struct {
	MinLength         int  `mapstructure:"min_length"`
	MaxLength         int  `mapstructure:"max_length"`
	CommonListEnabled bool `mapstructure:"common_list_enabled"`
	Argon2MemoryKiB   int  `mapstructure:"argon2_memory_kib"`
	Argon2TimeCost    int  `mapstructure:"argon2_time_cost"`
	Argon2Parallelism int  `mapstructure:"argon2_parallelism"`
}

type MFAConfig struct {
	Issuer string `mapstructure:"issuer"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load reads configuration from environment variables, an optional
// config.yaml, and defaults, in that order of precedence, then validates
// it for the target environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/authcore")

	viper.SetEnvPrefix("AUTHCORE")
	viper.AutomaticEnv()

	bindEnvironmentVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func bindEnvironmentVariables() {
	viper.BindEnv("app.environment", "AUTHCORE_APP_ENVIRONMENT")
	viper.BindEnv("app.port", "AUTHCORE_APP_PORT")

	viper.BindEnv("database.url", "AUTHCORE_DATABASE_URL")
	viper.BindEnv("database.max_conns", "AUTHCORE_DATABASE_MAX_CONNS")
	viper.BindEnv("database.conn_max_lifetime", "AUTHCORE_DATABASE_CONN_MAX_LIFETIME")

	viper.BindEnv("cache.addr", "AUTHCORE_CACHE_ADDR")
	viper.BindEnv("cache.password", "AUTHCORE_CACHE_PASSWORD")
	viper.BindEnv("cache.db", "AUTHCORE_CACHE_DB")

	viper.BindEnv("token.jwt_secret", "AUTHCORE_TOKEN_JWT_SECRET")
	viper.BindEnv("token.issuer", "AUTHCORE_TOKEN_ISSUER")
	viper.BindEnv("token.audience", "AUTHCORE_TOKEN_AUDIENCE")
	viper.BindEnv("token.access_token_ttl", "AUTHCORE_TOKEN_ACCESS_TOKEN_TTL")
	viper.BindEnv("token.refresh_token_ttl", "AUTHCORE_TOKEN_REFRESH_TOKEN_TTL")
	viper.BindEnv("token.one_shot_reset_ttl", "AUTHCORE_TOKEN_ONE_SHOT_RESET_TTL")
	viper.BindEnv("token.one_shot_verify_ttl", "AUTHCORE_TOKEN_ONE_SHOT_VERIFY_TTL")
	viper.BindEnv("token.clock_skew_tolerance", "AUTHCORE_TOKEN_CLOCK_SKEW_TOLERANCE")

	viper.BindEnv("password.min_length", "AUTHCORE_PASSWORD_MIN_LENGTH")
	viper.BindEnv("password.max_length", "AUTHCORE_PASSWORD_MAX_LENGTH")
	viper.BindEnv("password.common_list_enabled", "AUTHCORE_PASSWORD_COMMON_LIST_ENABLED")
	viper.BindEnv("password.argon2_memory_kib", "AUTHCORE_PASSWORD_ARGON2_MEMORY_KIB")
	viper.BindEnv("password.argon2_time_cost", "AUTHCORE_PASSWORD_ARGON2_TIME_COST")
	viper.BindEnv("password.argon2_parallelism", "AUTHCORE_PASSWORD_ARGON2_PARALLELISM")

	viper.BindEnv("mfa.issuer", "AUTHCORE_MFA_ISSUER")
	viper.BindEnv("sentry.dsn", "AUTHCORE_SENTRY_DSN")
}

func setDefaults() {
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.port", 8080)

	viper.SetDefault("database.url", "postgres://localhost:5432/authcore?sslmode=disable")
	viper.SetDefault("database.max_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", "30m")

	viper.SetDefault("cache.addr", "localhost:6379")
	viper.SetDefault("cache.db", 0)

	viper.SetDefault("token.jwt_secret", "")
	viper.SetDefault("token.issuer", "authcore")
	viper.SetDefault("token.audience", "authcore-clients")
	viper.SetDefault("token.access_token_ttl", "15m")
	viper.SetDefault("token.refresh_token_ttl", "720h")
	viper.SetDefault("token.one_shot_reset_ttl", "1h")
	viper.SetDefault("token.one_shot_verify_ttl", "24h")
	viper.SetDefault("token.clock_skew_tolerance", "30s")

	viper.SetDefault("password.min_length", 8)
	viper.SetDefault("password.max_length", 72)
	viper.SetDefault("password.common_list_enabled", true)
	viper.SetDefault("password.argon2_memory_kib", 65536)
	viper.SetDefault("password.argon2_time_cost", 3)
	viper.SetDefault("password.argon2_parallelism", 2)

	viper.SetDefault("mfa.issuer", "authcore")
}

func validate(cfg *Config) error {
	if cfg.App.Environment == "production" {
		if len(cfg.Token.JWTSecret) < 32 {
			return fmt.Errorf("token.jwt_secret must be at least 32 bytes in production")
		}
		if cfg.Database.URL == "postgres://localhost:5432/authcore?sslmode=disable" {
			return fmt.Errorf("database.url must be configured for production")
		}
	}

	if cfg.App.Port < 1 || cfg.App.Port > 65535 {
		return fmt.Errorf("app.port must be a valid TCP port, got %d", cfg.App.Port)
	}
	if cfg.Password.MinLength < 1 || cfg.Password.MinLength > cfg.Password.MaxLength {
		return fmt.Errorf("password.min_length must be between 1 and max_length")
	}

	return nil
}

// IsProduction reports whether the process should enforce production-grade
// guardrails (secret strength, DSN checks).
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
