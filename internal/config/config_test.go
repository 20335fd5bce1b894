package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Ensure optional envs are unset; t.Setenv restores them afterwards
	for _, k := range []string{
		"STORE_BACKEND", "STATE_DIR", "STORE_KEY", "QUOTE_SOURCE",
		"HTTP_PORT", "LOG_LEVEL", "MAX_LOG_SIZE_MB", "CURRENCY",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()

	require.Equal(t, "file", cfg.StoreBackend)
	require.Equal(t, "stocks", cfg.StoreKey)
	require.Equal(t, "yahoo", cfg.QuoteSource)
	require.Equal(t, 8080, cfg.HTTPPort)
	require.Equal(t, "INFO", cfg.LogLevel)
	require.Equal(t, int64(10), cfg.MaxLogSizeMB)
	require.Equal(t, "USD", cfg.Currency)
	require.False(t, cfg.TelegramEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg := Load()

	require.Equal(t, "redis", cfg.StoreBackend)
	require.Equal(t, 9090, cfg.HTTPPort)
	require.Equal(t, 4, cfg.RedisPoolSize)
	require.True(t, cfg.TelegramEnabled())
}

func TestMask(t *testing.T) {
	require.Equal(t, "***cret", mask("TELEGRAM_BOT_TOKEN", "supersecret"))
	require.Equal(t, "***", mask("DATABASE_URL", "abc"))
	require.Equal(t, "yahoo", mask("QUOTE_SOURCE", "yahoo"))
}
