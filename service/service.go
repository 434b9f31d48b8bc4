package service

import (
	"context"
	"errors"
	"fmt"
	"orders/booking"
	"orders/config"
	"orders/db"
	"orders/http"
	"orders/message"
	"orders/metrics"
	"orders/reconcile"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type bookingConsumer interface {
	Run(ctx context.Context) error
	Running() chan struct{}
}

type Service struct {
	consumer   bookingConsumer
	reconciler *reconcile.Reconciler
	httpRouter *echo.Echo
	httpAddr   string
}

type Deps struct {
	Config          config.Config
	Logger          watermill.LoggerAdapter
	RedisClient     *redis.Client
	DB              *sqlx.DB
	InventoryClient booking.InventoryClient
	Registry        *prometheus.Registry
}

func New(deps Deps) (*Service, error) {
	cfg := deps.Config

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	orderRepo := db.NewOrderRepo(deps.DB)
	bookings := booking.NewConsumer(orderRepo, deps.InventoryClient, cfg.ConsumerOptions(metrics.New(registry)))
	handler := message.NewHandler(bookings)

	var consumer bookingConsumer
	switch cfg.Broker {
	case config.BrokerKafka:
		consumer = message.NewKafkaConsumer(message.KafkaConsumerConfig{
			Brokers:                   cfg.KafkaBrokers,
			Topic:                     cfg.BookingTopic,
			GroupID:                   cfg.ConsumerGroup,
			Concurrency:               cfg.ConsumerConcurrency,
			RedeliveryInitialInterval: cfg.InventoryInitialBackoff,
			RedeliveryMaxInterval:     cfg.InventoryMaxBackoff,
		}, handler)
	default:
		router, err := message.NewRouter(message.RouterDeps{
			Logger:        deps.Logger,
			RedisClient:   deps.RedisClient,
			Handler:       handler,
			Topic:         cfg.BookingTopic,
			ConsumerGroup: cfg.ConsumerGroup,
		})
		if err != nil {
			return nil, fmt.Errorf("creating message router: %w", err)
		}
		consumer = router
	}

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &Service{
		consumer:   consumer,
		reconciler: reconcile.NewReconciler(orderRepo, bookings, cfg.ReconcileInterval, cfg.ReconcileBatchSize),
		httpRouter: http.NewRouter(orderRepo, metricsHandler),
		httpAddr:   cfg.HTTPAddr,
	}, nil
}

func (s Service) Run(ctx context.Context) error {
	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.consumer.Run(runCtx); err != nil {
			return fmt.Errorf("running booking consumer: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		// Wait for the consumer
		select {
		case <-s.consumer.Running():
		case <-runCtx.Done():
			return nil
		}

		logrus.Info("Starting HTTP server...")
		err := s.httpRouter.Start(s.httpAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		select {
		case <-s.consumer.Running():
		case <-runCtx.Done():
			return nil
		}

		return s.reconciler.Run(runCtx)
	})

	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logrus.Info("Shutting down HTTP server...")
		if err := s.httpRouter.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for shutdown: %w", err)
	}
	logrus.Info("Shutdown complete.")

	return nil
}
