package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "bind",
		Password: "secret",
		Name:     "betaione",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=bind password=secret dbname=betaione sslmode=disable",
		cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestRateLimitRule_Enabled(t *testing.T) {
	assert.True(t, RateLimitRule{Limit: 10, Window: time.Minute}.Enabled())
	assert.False(t, RateLimitRule{Limit: 0, Window: time.Minute}.Enabled())
	assert.False(t, RateLimitRule{Limit: 10}.Enabled())
	assert.False(t, RateLimitRule{}.Enabled())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}

	for input, want := range cases {
		level, err := ParseLevel(input)
		require.NoError(t, err)
		assert.Equal(t, want, level)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}
