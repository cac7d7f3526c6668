package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/shopapi/internal/api"
	"github.com/rryowa/shopapi/internal/controller"
	"github.com/rryowa/shopapi/internal/metrics"
	"github.com/rryowa/shopapi/internal/migrations"
	"github.com/rryowa/shopapi/internal/service"
	"github.com/rryowa/shopapi/internal/storage"
	"github.com/rryowa/shopapi/internal/storage/memory"
	mongostorage "github.com/rryowa/shopapi/internal/storage/mongo"
	"github.com/rryowa/shopapi/internal/storage/postgres"
	"github.com/rryowa/shopapi/internal/storage/redis"
	"github.com/rryowa/shopapi/internal/util"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()
	defer func() { _ = logger.Sync() }()

	storageCfg := util.NewStorageConfig()
	store, storeCleanup, err := openStorage(ctx, logger, storageCfg.Driver)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	cleanupFuncs := []func(){storeCleanup}

	var ledger storage.RevocationLedger = store
	if storageCfg.RevocationDriver == "redis" {
		redisClient, redisCleanup, err := util.NewRedisClient(logger, util.NewRedisConfig())
		if err != nil {
			logger.Fatal(zap.Error(err))
		}
		ledger = redis.NewRevocationLedger(redisClient)
		cleanupFuncs = append(cleanupFuncs, redisCleanup)
	}

	hasher, err := service.NewPasswordHasher(bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	tokenService := service.NewTokenService(util.NewTokenConfig(), store)
	sessionService := service.NewSessionService(store, store, ledger, tokenService, hasher, collector, logger)
	webhookService := service.NewWebhookService(logger, util.GetWebhookURL())
	userService := service.NewUserService(store, store, sessionService, tokenService, hasher, webhookService, logger)
	settingService := service.NewSettingService(store, logger)

	oauthCfg := util.NewOAuthConfig()
	googleOAuth := service.NewGoogleOAuth(oauthCfg)
	if !googleOAuth.Enabled() {
		logger.Info("Google login is disabled: GOOGLE_CLIENT_ID is not set")
	}

	c := controller.NewController(logger, sessionService, userService, settingService, googleOAuth).
		WithSecureCookies(strings.HasPrefix(oauthCfg.RedirectURL, "https://"))

	// Deliveries must finish before the stores go away.
	cleanupFuncs = append([]func(){webhookService.Wait}, cleanupFuncs...)

	apiServer, err := api.NewAPI(c, sessionService, registry, logger, util.NewServerConfig(), util.NewRateLimiterConfig(), cleanupFuncs)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	apiServer.Run(ctx)
}

func openStorage(ctx context.Context, logger *zap.SugaredLogger, driver string) (storage.Storage, func(), error) {
	switch driver {
	case "mongo":
		db, cleanup, err := util.NewMongoDatabase(logger, util.NewMongoConfig())
		if err != nil {
			return nil, nil, err
		}
		store := mongostorage.NewStorage(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		return store, cleanup, nil

	case "postgres":
		db, cleanup, err := util.NewDBConnection(logger, util.NewDBConfig())
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunMigrations(db, logger); err != nil {
			cleanup()
			return nil, nil, err
		}
		return postgres.NewStorage(db), cleanup, nil

	case "memory":
		logger.Warn("Using in-memory storage, all data is lost on restart")
		return memory.NewStorage(logger), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
}
