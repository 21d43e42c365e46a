package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the telegram bind service.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Bind      BindConfig      `mapstructure:"bind" validate:"required"`
	Bot       BotConfig       `mapstructure:"bot"`
	Session   SessionConfig   `mapstructure:"session" validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logger    LoggerConfig    `mapstructure:"logger" validate:"required"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	Host          string `mapstructure:"host" validate:"required"`
	Port          string `mapstructure:"port" validate:"required"`
	User          string `mapstructure:"user" validate:"required"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name" validate:"required"`
	SSLMode       string `mapstructure:"sslmode"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		sslMode,
	)
}

// RedisConfig configures the optional Redis connection used by the rate
// limiter and the background job queue.
type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// BindConfig configures the bind token protocol.
type BindConfig struct {
	TokenTTL        time.Duration `mapstructure:"token_ttl" validate:"required"`
	TokenLength     int           `mapstructure:"token_length" validate:"min=32"`
	StateLength     int           `mapstructure:"state_length" validate:"min=16"`
	CleanupSchedule string        `mapstructure:"cleanup_schedule"`
	CleanupRetain   time.Duration `mapstructure:"cleanup_retain"`
}

// BotConfig configures the Telegram bot side of the handoff. An empty token
// disables the bot and the binding-success notifications.
type BotConfig struct {
	Token    string        `mapstructure:"token"`
	Username string        `mapstructure:"username"`
	Mode     string        `mapstructure:"mode"`
	Timeout  time.Duration `mapstructure:"timeout"`
	LoginURL string        `mapstructure:"login_url"`
}

// SessionConfig configures verification of the auth provider's session
// cookie. The secret must match the one the auth provider signs with.
type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name" validate:"required"`
	JWTSecret  string `mapstructure:"jwt_secret" validate:"required"`
}

// RateLimitRule is a fixed quota over a sliding window.
type RateLimitRule struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// Enabled reports whether the rule carries a usable quota.
func (r RateLimitRule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// RateLimitConfig holds per-endpoint request quotas keyed by client IP.
type RateLimitConfig struct {
	Issue   RateLimitRule `mapstructure:"issue"`
	Confirm RateLimitRule `mapstructure:"confirm"`
}

// LoggerConfig configures slog output.
type LoggerConfig struct {
	Level  string        `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string        `mapstructure:"format" validate:"required,oneof=text json"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures the optional rotated file sink.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}
