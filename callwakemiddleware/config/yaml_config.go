// --- File: callwakemiddleware/config/yaml_config.go ---
package config

import "log/slog"

// YamlAPNSConfig mirrors the APNs credential block of the embedded YAML.
type YamlAPNSConfig struct {
	TokenKeyID    string   `yaml:"token_key_id"`
	TokenTeamID   string   `yaml:"token_team_id"`
	TokenBundleID string   `yaml:"token_bundle_id"`
	TokenP8Path   string   `yaml:"token_p8_path"`
	LegacyBundle  string   `yaml:"legacy_bundle_id"`
	LegacyCert    string   `yaml:"legacy_cert_path"`
	LegacyKey     string   `yaml:"legacy_key_path"`
	V2Devices     []string `yaml:"v2_devices"`
}

// YamlWebPushConfig mirrors the VAPID credential block.
type YamlWebPushConfig struct {
	PublicKey       string `yaml:"public_key"`
	PrivateKey      string `yaml:"private_key"`
	SubscriberEmail string `yaml:"subscriber_email"`
}

// YamlRedisConfig mirrors the rendezvous/cache Redis block.
type YamlRedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// YamlConfig is the structure that mirrors the embedded local.yaml file.
type YamlConfig struct {
	ListenAddr         string            `yaml:"listen_addr"`
	ProjectID          string            `yaml:"project_id"`
	ResponseAPIURL     string            `yaml:"response_api_url"`
	RoundtripWaitMs    int               `yaml:"roundtrip_wait_ms"`
	ResendIntervalMs   int               `yaml:"resend_interval_ms"`
	DeviceCollection   string            `yaml:"device_collection"`
	ResponseLogColl    string            `yaml:"response_log_collection"`
	DeviceCacheTTLSecs int               `yaml:"device_cache_ttl_seconds"`
	MetricsQueueMaxLen int64             `yaml:"metrics_queue_max_len"`
	AsyncPoolSize      int64             `yaml:"async_pool_size"`
	GCMLegacyServerKey string            `yaml:"gcm_legacy_server_key"`
	Redis              YamlRedisConfig   `yaml:"redis"`
	APNS               YamlAPNSConfig    `yaml:"apns"`
	WebPush            YamlWebPushConfig `yaml:"webpush"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config
// struct, mirroring the teacher's two-stage (YAML then env) assembly.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ListenAddr:         baseCfg.ListenAddr,
		ProjectID:          baseCfg.ProjectID,
		ResponseAPIURL:     baseCfg.ResponseAPIURL,
		RoundtripWait:      msDuration(baseCfg.RoundtripWaitMs),
		ResendInterval:     msDuration(baseCfg.ResendIntervalMs),
		DeviceCollection:   baseCfg.DeviceCollection,
		ResponseLogColl:    baseCfg.ResponseLogColl,
		DeviceCacheTTL:     secDuration(baseCfg.DeviceCacheTTLSecs),
		MetricsQueueMaxLen: baseCfg.MetricsQueueMaxLen,
		AsyncPoolSize:      baseCfg.AsyncPoolSize,
		GCMLegacyServerKey: baseCfg.GCMLegacyServerKey,
		Redis: RedisConfig{
			Enabled:  baseCfg.Redis.Enabled,
			Addr:     baseCfg.Redis.Addr,
			Password: baseCfg.Redis.Password,
			DB:       baseCfg.Redis.DB,
		},
		APNS: APNSConfig{
			TokenKeyID:    baseCfg.APNS.TokenKeyID,
			TokenTeamID:   baseCfg.APNS.TokenTeamID,
			TokenBundleID: baseCfg.APNS.TokenBundleID,
			TokenP8Path:   baseCfg.APNS.TokenP8Path,
			LegacyBundle:  baseCfg.APNS.LegacyBundle,
			LegacyCert:    baseCfg.APNS.LegacyCert,
			LegacyKey:     baseCfg.APNS.LegacyKey,
			V2Devices:     baseCfg.APNS.V2Devices,
		},
		WebPush: WebPushConfig{
			PublicKey:       baseCfg.WebPush.PublicKey,
			PrivateKey:      baseCfg.WebPush.PrivateKey,
			SubscriberEmail: baseCfg.WebPush.SubscriberEmail,
		},
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
		"roundtrip_wait", cfg.RoundtripWait,
	)

	return cfg, nil
}
