// --- File: cmd/callwakemiddleware/runcallwakemiddleware.go ---
package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"gopkg.in/yaml.v3"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/callwake-middleware/callwakemiddleware"
	"github.com/tinywideclouds/callwake-middleware/callwakemiddleware/config"
	"github.com/tinywideclouds/callwake-middleware/internal/dispatch"
	"github.com/tinywideclouds/callwake-middleware/internal/metrics"
	"github.com/tinywideclouds/callwake-middleware/internal/platform/apns"
	"github.com/tinywideclouds/callwake-middleware/internal/platform/fcm"
	"github.com/tinywideclouds/callwake-middleware/internal/platform/gcmlegacy"
	"github.com/tinywideclouds/callwake-middleware/internal/platform/webpush"
	"github.com/tinywideclouds/callwake-middleware/internal/storage/devices"
	"github.com/tinywideclouds/callwake-middleware/internal/storage/rediskv"
	rendezvousstore "github.com/tinywideclouds/callwake-middleware/internal/storage/rendezvous"
	"github.com/tinywideclouds/callwake-middleware/internal/storage/responselog"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
	"github.com/tinywideclouds/callwake-middleware/pkg/rendezvous"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "callwake-middleware")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, _ := config.NewConfigFromYaml(&yamlCfg, logger)
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Rendezvous store & metrics sink ---
	var store rendezvous.Store
	var metricsEmitter metrics.Sink
	var deviceCache devices.CacheClient

	if cfg.Redis.Enabled {
		rdb, err := rendezvousstore.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Redis client failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		kv := rediskv.New(rdb)
		store = rendezvousstore.NewRedisStore(rdb)
		metricsEmitter = metrics.NewRedisSink(kv, cfg.MetricsQueueMaxLen, logger)
		deviceCache = kv
		logger.Info("Rendezvous store initialized", "type", "redis")
	} else {
		local := rendezvousstore.NewLocalStore(5 * time.Second)
		defer local.Close()
		store = local
		metricsEmitter = metrics.NewMemorySink()
		logger.Warn("Rendezvous store initialized as in-process only; unsuitable for horizontal scaling")
	}

	// --- Device directory ---
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("Firestore client failed", "err", err)
		os.Exit(1)
	}
	defer fsClient.Close()

	var deviceRepo calldevice.Repository = devices.NewRepository(fsClient, cfg.DeviceCollection, logger)
	if deviceCache != nil {
		deviceRepo = devices.NewCachedRepository(deviceRepo, deviceCache, cfg.DeviceCacheTTL, logger)
		logger.Info("Device repository upgraded", "type", "redis_cached_firestore")
	}

	// --- Durable response log ---
	var responseLogWriter responselog.Writer = responselog.NewFirestoreWriter(fsClient, cfg.ResponseLogColl, logger)

	// --- Push transports ---
	transports := map[calldevice.Platform]dispatch.Transport{}

	if cfg.APNS.TokenP8Path != "" || cfg.APNS.LegacyCert != "" {
		apnsTransport := apns.NewTransport(logger, cfg.APNS.V2Devices)
		if cfg.APNS.TokenP8Path != "" {
			p8, err := os.ReadFile(cfg.APNS.TokenP8Path)
			if err != nil {
				logger.Error("Failed to read APNs token key", "err", err)
				os.Exit(1)
			}
			if _, err := apnsTransport.WithToken(apns.TokenConfig{
				KeyID:        cfg.APNS.TokenKeyID,
				TeamID:       cfg.APNS.TokenTeamID,
				BundleID:     cfg.APNS.TokenBundleID,
				P8KeyContent: string(p8),
			}); err != nil {
				logger.Error("Failed to configure APNs token gateway", "err", err)
				os.Exit(1)
			}
		}
		if cfg.APNS.LegacyCert != "" {
			if _, err := apnsTransport.WithLegacyCert(apns.CertConfig{
				BundleID:    cfg.APNS.LegacyBundle,
				CertPEMPath: cfg.APNS.LegacyCert,
				KeyPEMPath:  cfg.APNS.LegacyKey,
			}); err != nil {
				logger.Error("Failed to configure APNs legacy gateway", "err", err)
				os.Exit(1)
			}
		}
		transports[calldevice.PlatformAPNS] = apnsTransport
		logger.Info("APNs transport enabled")
	}

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
	if err != nil {
		logger.Error("Failed to initialize Firebase App", "err", err)
		os.Exit(1)
	}
	fcmMessaging, err := fbApp.Messaging(ctx)
	if err != nil {
		logger.Error("Failed to create FCM messaging client", "err", err)
		os.Exit(1)
	}
	transports[calldevice.PlatformAndroid] = fcm.NewTransport(fcmMessaging, logger)
	logger.Info("FCM transport enabled")

	if cfg.GCMLegacyServerKey != "" {
		transports[calldevice.PlatformGCM] = gcmlegacy.NewTransport(nil, cfg.GCMLegacyServerKey, logger)
		logger.Info("Legacy GCM transport enabled")
	}

	if cfg.WebPush.PrivateKey != "" && cfg.WebPush.PublicKey != "" {
		transports[calldevice.PlatformWebPush] = webpush.NewTransport(webpush.Config{
			PrivateKey:      cfg.WebPush.PrivateKey,
			PublicKey:       cfg.WebPush.PublicKey,
			SubscriberEmail: cfg.WebPush.SubscriberEmail,
		}, logger)
		logger.Info("WebPush transport enabled")
	} else {
		logger.Warn("VAPID keys missing in configuration; WebPush will fail")
	}

	// --- Upstream auth (hangup-reason only, per spec.md §6) ---
	identityURL := os.Getenv("IDENTITY_SERVICE_URL")
	if identityURL == "" {
		identityURL = "http://localhost:3000"
	}
	jwksURL, _ := middleware.DiscoverAndValidateJWTConfig(identityURL, middleware.RSA256, logger)
	hangupAuthMiddleware, _ := middleware.NewJWKSAuthMiddleware(jwksURL, logger)

	service, err := callwakemiddleware.New(cfg, store, deviceRepo, transports, responseLogWriter, metricsEmitter, hangupAuthMiddleware, logger)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting service...")
	if err := service.Start(ctx); err != nil {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}
