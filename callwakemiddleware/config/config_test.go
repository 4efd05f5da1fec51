// --- File: callwakemiddleware/config/config_test.go ---
package config_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/callwake-middleware/callwakemiddleware/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig() *config.Config {
	return &config.Config{
		ListenAddr:     ":8080",
		ResponseAPIURL: "https://base.example.com/call-response",
		RoundtripWait:  6000 * time.Millisecond,
		ResendInterval: 2000 * time.Millisecond,
	}
}

func TestUpdateConfigWithEnvOverrides(t *testing.T) {
	logger := newTestLogger()

	t.Run("Success - overrides applied", func(t *testing.T) {
		cfg := baseConfig()

		t.Setenv("PORT", "9090")
		t.Setenv("APP_API_URL", "https://env.example.com/call-response")
		t.Setenv("APP_PUSH_ROUNDTRIP_WAIT", "8000")
		t.Setenv("APP_PUSH_RESEND_INTERVAL", "1000")
		t.Setenv("REDIS_SERVER_LIST", "redis-a:6379,redis-b:6379")
		t.Setenv("APNS2_DEVICES", "device-a, device-b")

		finalCfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		require.NoError(t, err)

		assert.Equal(t, ":9090", finalCfg.ListenAddr)
		assert.Equal(t, "https://env.example.com/call-response", finalCfg.ResponseAPIURL)
		assert.Equal(t, 8000*time.Millisecond, finalCfg.RoundtripWait)
		assert.Equal(t, 1000*time.Millisecond, finalCfg.ResendInterval)
		assert.True(t, finalCfg.Redis.Enabled)
		assert.Equal(t, "redis-a:6379", finalCfg.Redis.Addr)
		assert.Equal(t, []string{"device-a", "device-b"}, finalCfg.APNS.V2Devices)
	})

	t.Run("Success - defaults preserved and filled in", func(t *testing.T) {
		cfg := baseConfig()

		finalCfg, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		require.NoError(t, err)

		assert.Equal(t, ":8080", finalCfg.ListenAddr)
		assert.Equal(t, "devices", finalCfg.DeviceCollection)
		assert.Equal(t, "response_log", finalCfg.ResponseLogColl)
		assert.Equal(t, int64(10000), finalCfg.MetricsQueueMaxLen)
		assert.Equal(t, int64(64), finalCfg.AsyncPoolSize)
	})

	t.Run("Validation failure - missing response_api_url", func(t *testing.T) {
		cfg := baseConfig()
		cfg.ResponseAPIURL = ""

		_, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "response_api_url is required")
	})

	t.Run("Validation failure - resend interval not smaller than wait", func(t *testing.T) {
		cfg := baseConfig()
		cfg.ResendInterval = cfg.RoundtripWait

		_, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "resend interval must be smaller")
	})

	t.Run("Validation failure - missing roundtrip wait", func(t *testing.T) {
		cfg := baseConfig()
		cfg.RoundtripWait = 0

		_, err := config.UpdateConfigWithEnvOverrides(cfg, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "roundtrip wait must be positive")
	})
}
