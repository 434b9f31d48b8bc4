package main

import (
	"context"
	"fmt"
	"orders/clients"
	"orders/config"
	"orders/db"
	"orders/service"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	log.Init(logrus.InfoLevel)
	logger := watermill.NewStdLogger(false, false)

	if err := run(logger); err != nil {
		logger.Error("failed to run", err, nil)
		os.Exit(1)
	}
}

func run(logger watermill.LoggerAdapter) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logrus.SetLevel(cfg.LogrusLevel())

	inventoryClient, err := clients.NewInventoryClient(cfg.InventoryURL, cfg.InventoryTimeout)
	if err != nil {
		return fmt.Errorf("creating inventory client: %w", err)
	}

	var rdb *redis.Client
	if cfg.Broker == config.BrokerRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("failed to close redis connection", err, nil)
			}
		}()
	}

	dbConn, err := sqlx.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close db connection", err, nil)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := db.InitialiseDB(ctx, dbConn); err != nil {
		return fmt.Errorf("initialising db: %w", err)
	}

	svc, err := service.New(service.Deps{
		Config:          cfg,
		Logger:          logger,
		RedisClient:     rdb,
		DB:              dbConn,
		InventoryClient: inventoryClient,
	})
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	return svc.Run(ctx)
}
