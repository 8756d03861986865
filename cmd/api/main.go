package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/commerceapi"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.GoEnv == "dev" {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func main() {
	//.envは無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	//永続ストア
	var (
		stores repo.KeyValueStoreFactory
		logs   repo.CheckoutLogRepository
	)
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		stores = infraRepo.NewKVMemoryFactory()
		logs = infraRepo.NewCheckoutLogMemoryRepository()
	default:
		gormDB, err := db.Connect(cfg)
		if err != nil {
			logger.Fatal("db connect failed", zap.Error(err))
		}
		if err := db.Migrate(gormDB); err != nil {
			logger.Fatal("db migrate failed", zap.Error(err))
		}
		stores = infraRepo.NewKVGormFactory(gormDB)
		logs = infraRepo.NewCheckoutLogGormRepository(gormDB)
	}

	client := commerceapi.NewClient(cfg.CommerceAPIURL, cfg.CommerceAPIKey, cfg.HTTPTimeout)

	retry := usecase.NewRetryPolicy(usecase.RetryOptions{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		InitialDelay:  cfg.Retry.InitialDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
	}, logger)

	sessions, err := usecase.NewSessionManager(usecase.SessionDeps{
		Client:    client,
		Stores:    stores,
		Logs:      logs,
		Validator: validator.NewCheckoutValidator(),
		IDs:       usecase.UUIDGenerator{},
		ShopID:    cfg.ShopID,
		Retry:     retry,
		Logger:    logger,
	}, cfg.SessionCacheSize)
	if err != nil {
		logger.Fatal("session manager init failed", zap.Error(err))
	}

	//Handler生成
	e := server.New(cfg, server.Handlers{
		Session:       handler.NewSessionHandler(sessions, cfg),
		Cart:          handler.NewCartHandler(sessions),
		Shipping:      handler.NewShippingHandler(sessions),
		Checkout:      handler.NewCheckoutHandler(sessions, cfg),
		PaymentReturn: handler.NewPaymentReturnHandler(sessions),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, e, ":"+cfg.Port, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
