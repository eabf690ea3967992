package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"pickup-backend/internal/cache"
	"pickup-backend/internal/config"
	"pickup-backend/internal/database"
	"pickup-backend/internal/events"
	"pickup-backend/internal/handlers"
	"pickup-backend/internal/identity"
	"pickup-backend/internal/lifecycle"
	"pickup-backend/internal/logging"
	"pickup-backend/internal/prediction"
	"pickup-backend/internal/repository"
)

type stores struct {
	accounts identity.AccountStore
	tokens   identity.TokenStore
	requests lifecycle.RequestStore
	ping     func(ctx context.Context) error
	client   *mongo.Client
}

func main() {
	config.Load()
	cfg := config.AppEnv

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if problems := cfg.Validate(); len(problems) > 0 {
		logger.Fatal("invalid configuration", zap.Strings("problems", problems))
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Fatal("store setup failed", zap.Error(err))
	}

	publisher, err := events.NewPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("events setup failed", zap.Error(err))
	}

	var listings lifecycle.ListingCache
	var redisCache *cache.Cache
	if redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger); redisClient != nil {
		redisCache = cache.New(redisClient, cfg.CacheTTL)
		listings = redisCache
	}

	ids := identity.NewService(st.accounts, st.tokens, cfg.BcryptCost, cfg.RefreshTokenTTL, logger)
	predictor := prediction.NewClient(cfg.PredictionURL, cfg.PredictionTimeout, logger)
	requests := lifecycle.NewService(st.requests, ids, predictor, publisher, listings, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ReportLedgerEnabled {
		if cfg.EventsDriver != "amqp" {
			logger.Warn("report ledger needs EVENTS_DRIVER=amqp, not starting", zap.String("driver", cfg.EventsDriver))
		} else {
			ledger := events.NewLedgerConsumer(cfg.AMQPURL, cfg.AMQPQueue, cfg.ReportLedgerPath, logger)
			go func() {
				if err := ledger.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("report ledger stopped", zap.Error(err))
				}
			}()
		}
	}

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := handlers.NewRouter(handlers.Dependencies{
		Identity:  ids,
		Lifecycle: requests,
		Tokens: handlers.TokenSettings{
			Secret:                cfg.JWTSecret,
			AccessTTL:             cfg.AccessTokenTTL,
			AllowDispatcherSignup: cfg.AllowDispatcherSignup,
		},
		Ping:   st.ping,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver), zap.String("events", cfg.EventsDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		logger.Warn("closing event publisher", zap.Error(err))
	}
	if redisCache != nil {
		_ = redisCache.Close()
	}
	if st.client != nil {
		if err := st.client.Disconnect(shutdownCtx); err != nil {
			logger.Warn("mongo disconnect", zap.Error(err))
		}
	}
}

func openStores(cfg config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory stores, data is lost on restart")
		return &stores{
			accounts: repository.NewMemoryAccountStore(),
			tokens:   repository.NewMemoryTokenStore(),
			requests: repository.NewMemoryRequestStore(),
		}, nil
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.DBName)
	logger.Info("mongodb connected", zap.String("db", db.Name()))

	if err := database.EnsureUserIndexes(db, logger); err != nil {
		logger.Warn("user index warning", zap.Error(err))
	}
	if err := database.EnsureRequestIndexes(db, logger); err != nil {
		logger.Warn("request index warning", zap.Error(err))
	}
	if err := database.EnsureRefreshTokenIndexes(db, logger); err != nil {
		logger.Warn("refresh token index warning", zap.Error(err))
	}

	return &stores{
		accounts: repository.NewMongoAccountStore(db),
		tokens:   repository.NewMongoTokenStore(db),
		requests: repository.NewMongoRequestStore(db),
		ping: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		client: client,
	}, nil
}
