package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/moonfolio/moonfolio-backend/internal/adapter/oracle/coincap"
	"github.com/moonfolio/moonfolio-backend/internal/adapter/oracle/pricecache"
	"github.com/moonfolio/moonfolio-backend/internal/adapter/repository/postgres"
	"github.com/moonfolio/moonfolio-backend/internal/adapter/rest"
	"github.com/moonfolio/moonfolio-backend/internal/config"
	"github.com/moonfolio/moonfolio-backend/internal/domain"
	"github.com/moonfolio/moonfolio-backend/internal/logger"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/ledger"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/portfolio"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/seeder"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/trade"
	"github.com/moonfolio/moonfolio-backend/internal/usecase/watchlist"
)

func main() {
	// 1. Configuration and logging
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})

	// 2. Database
	db, err := postgres.NewDB(cfg.DBConnStr)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	portfolioRepo := postgres.NewPortfolioRepository(db)
	positionRepo := postgres.NewPositionRepository(db)
	watchlistRepo := postgres.NewWatchlistRepository(db)

	// 3. Price oracle, optionally wrapped in the Redis cache
	var oracle domain.PriceOracle = coincap.NewClient(cfg.CoinCapBaseURL, cfg.PriceTimeout)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		oracle = pricecache.New(oracle, rdb, cfg.PriceCacheTTL, log)
		log.WithField("addr", cfg.RedisAddr).Info("price cache enabled")
	}

	// 4. Usecase services
	portfolioLedger := ledger.NewPortfolioLedger(portfolioRepo)

	engine := trade.NewEngine(portfolioLedger, oracle, positionRepo, log)
	engine.CryptoPrecision = cfg.CryptoPrecision
	engine.PriceTimeout = cfg.PriceTimeout

	portfolioService := portfolio.NewService(portfolioRepo, positionRepo, oracle)
	watchlistService := watchlist.NewService(watchlistRepo)

	if cfg.SeedDemoUser {
		user, err := seeder.NewDemoSeeder(portfolioRepo).Seed(context.Background())
		if err != nil {
			log.WithError(err).Fatal("failed to seed demo user")
		}
		log.WithField("user_id", user.ID).Info("demo user ready")
	}

	// 5. HTTP server
	server := rest.NewServer(engine, portfolioService, watchlistService, oracle, log, cfg.APIToken)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	waitForShutdown(httpServer, log)
}

// waitForShutdown waits for SIGTERM or SIGINT and drains in-flight requests
func waitForShutdown(httpServer *http.Server, log logrus.FieldLogger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.WithField("signal", sig.String()).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)

	log.Info("http server stopped")
}
