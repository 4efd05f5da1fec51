// --- File: callwakemiddleware/config/config.go ---
// Package config defines the authoritative configuration for the
// call-wakeup middleware, assembled the way the teacher's notification
// service does: an embedded YAML base, completed and validated by
// environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig configures the shared rendezvous store / device cache /
// metrics queue backend (spec.md §6's REDIS_SERVER_LIST).
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// APNSConfig configures both APNs sub-transports (spec.md §4.2).
type APNSConfig struct {
	TokenKeyID    string
	TokenTeamID   string
	TokenBundleID string
	TokenP8Path   string
	LegacyBundle  string
	LegacyCert    string
	LegacyKey     string
	V2Devices     []string // APNS2_DEVICES
}

// WebPushConfig configures the VAPID-signed browser push transport.
type WebPushConfig struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

// Config is the single, authoritative configuration for the service.
type Config struct {
	ListenAddr string
	ProjectID  string

	// ResponseAPIURL is injected into every push payload as
	// response_api_url (spec.md §6's APP_API_URL).
	ResponseAPIURL string

	// RoundtripWait is spec.md's W; ResendInterval is R.
	RoundtripWait  time.Duration
	ResendInterval time.Duration

	DeviceCollection string
	ResponseLogColl  string
	DeviceCacheTTL   time.Duration

	MetricsQueueMaxLen int64
	AsyncPoolSize      int64

	GCMLegacyServerKey string

	Redis   RedisConfig
	APNS    APNSConfig
	WebPush WebPushConfig
}

func msDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
func secDuration(s int) time.Duration { return time.Duration(s) * time.Second }

// UpdateConfigWithEnvOverrides takes the base configuration (created from
// YAML) and completes it with environment variable overrides and final
// validation, mirroring
// notificationservice/config.UpdateConfigWithEnvOverrides.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("PROJECT_ID"); val != "" {
		cfg.ProjectID = val
	}
	if val := os.Getenv("APP_API_URL"); val != "" {
		cfg.ResponseAPIURL = val
	}
	if val := os.Getenv("APP_PUSH_ROUNDTRIP_WAIT"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms > 0 {
			cfg.RoundtripWait = msDuration(ms)
		}
	}
	if val := os.Getenv("APP_PUSH_RESEND_INTERVAL"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms > 0 {
			cfg.ResendInterval = msDuration(ms)
		}
	}
	if val := os.Getenv("REDIS_SERVER_LIST"); val != "" {
		addrs := strings.Split(val, ",")
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = strings.TrimSpace(addrs[0])
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("APNS2_DEVICES"); val != "" {
		var refs []string
		for _, ref := range strings.Split(val, ",") {
			if trimmed := strings.TrimSpace(ref); trimmed != "" {
				refs = append(refs, trimmed)
			}
		}
		cfg.APNS.V2Devices = refs
	}
	if val := os.Getenv("CERT_DIR"); val != "" {
		if cfg.APNS.LegacyCert != "" {
			cfg.APNS.LegacyCert = val + "/" + cfg.APNS.LegacyCert
		}
		if cfg.APNS.LegacyKey != "" {
			cfg.APNS.LegacyKey = val + "/" + cfg.APNS.LegacyKey
		}
		if cfg.APNS.TokenP8Path != "" {
			cfg.APNS.TokenP8Path = val + "/" + cfg.APNS.TokenP8Path
		}
	}
	if val := os.Getenv("GCM_LEGACY_SERVER_KEY"); val != "" {
		cfg.GCMLegacyServerKey = val
	}

	// Final validation.
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.RoundtripWait <= 0 {
		return nil, fmt.Errorf("roundtrip wait must be positive (set via YAML or APP_PUSH_ROUNDTRIP_WAIT env var)")
	}
	if cfg.ResendInterval <= 0 {
		return nil, fmt.Errorf("resend interval must be positive (set via YAML or APP_PUSH_RESEND_INTERVAL env var)")
	}
	if cfg.ResendInterval >= cfg.RoundtripWait {
		return nil, fmt.Errorf("resend interval must be smaller than the roundtrip wait")
	}
	if cfg.ResponseAPIURL == "" {
		return nil, fmt.Errorf("response_api_url is required (set via YAML or APP_API_URL env var)")
	}
	if cfg.DeviceCollection == "" {
		cfg.DeviceCollection = "devices"
	}
	if cfg.ResponseLogColl == "" {
		cfg.ResponseLogColl = "response_log"
	}
	if cfg.DeviceCacheTTL <= 0 {
		cfg.DeviceCacheTTL = 30 * time.Second
	}
	if cfg.MetricsQueueMaxLen <= 0 {
		cfg.MetricsQueueMaxLen = 10000
	}
	if cfg.AsyncPoolSize <= 0 {
		cfg.AsyncPoolSize = 64
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
