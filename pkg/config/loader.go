// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables,
// validates it, and returns the resulting Config alongside the viper
// instance so callers can watch for changes.
func Load() (*Config, *viper.Viper, error) {
	// Missing env files are fine: containers inject variables directly.
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, v, nil
}

// WatchLogLevel re-reads the logger level on config file changes and applies
// it to lvl. Other settings require a restart.
func WatchLogLevel(v *viper.Viper, lvl *slog.LevelVar, log *slog.Logger) {
	if v == nil || lvl == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		level, err := ParseLevel(v.GetString("logger.level"))
		if err != nil {
			if log != nil {
				log.Warn("ignoring log level change", slog.String("file", e.Name), slog.Any("error", err))
			}
			return
		}

		lvl.Set(level)
		if log != nil {
			log.Info("log level updated", slog.String("file", e.Name), slog.String("level", level.String()))
		}
	})
	v.WatchConfig()
}

// ParseLevel converts a config level string into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
