package config

import (
	"errors"
	"fmt"
	"orders/booking"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	BrokerRedis = "redis"
	BrokerKafka = "kafka"
)

type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Broker              string   `envconfig:"BROKER" default:"redis"`
	RedisAddr           string   `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	KafkaBrokers        []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	BookingTopic        string   `envconfig:"BOOKING_TOPIC" default:"booking"`
	ConsumerGroup       string   `envconfig:"CONSUMER_GROUP" default:"order"`
	ConsumerConcurrency int      `envconfig:"CONSUMER_CONCURRENCY" default:"1"`

	PostgresURL  string        `envconfig:"POSTGRES_URL" required:"true"`
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`

	InventoryURL            string        `envconfig:"INVENTORY_SERVICE_URL" required:"true"`
	InventoryTimeout        time.Duration `envconfig:"INVENTORY_TIMEOUT" default:"5s"`
	InventoryMaxAttempts    int           `envconfig:"INVENTORY_MAX_ATTEMPTS" default:"5"`
	InventoryInitialBackoff time.Duration `envconfig:"INVENTORY_INITIAL_BACKOFF" default:"200ms"`
	InventoryMaxBackoff     time.Duration `envconfig:"INVENTORY_MAX_BACKOFF" default:"5s"`

	ReconcileInterval  time.Duration `envconfig:"RECONCILE_INTERVAL" default:"1m"`
	ReconcileBatchSize int           `envconfig:"RECONCILE_BATCH_SIZE" default:"100"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("processing env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	switch c.Broker {
	case BrokerRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis broker"))
		}
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka broker"))
		}
	default:
		errs = append(errs, fmt.Errorf("BROKER must be %q or %q, got %q", BrokerRedis, BrokerKafka, c.Broker))
	}

	if c.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_URL must not be empty"))
	}
	if c.InventoryURL == "" {
		errs = append(errs, errors.New("INVENTORY_SERVICE_URL must not be empty"))
	}
	if c.BookingTopic == "" {
		errs = append(errs, errors.New("BOOKING_TOPIC must not be empty"))
	}
	if c.ConsumerGroup == "" {
		errs = append(errs, errors.New("CONSUMER_GROUP must not be empty"))
	}
	if c.ConsumerConcurrency < 1 {
		errs = append(errs, fmt.Errorf("CONSUMER_CONCURRENCY must be at least 1, got %d", c.ConsumerConcurrency))
	}
	if c.InventoryMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("INVENTORY_MAX_ATTEMPTS must be at least 1, got %d", c.InventoryMaxAttempts))
	}
	if c.InventoryTimeout <= 0 || c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("INVENTORY_TIMEOUT and STORE_TIMEOUT must be positive"))
	}
	if c.InventoryMaxBackoff < c.InventoryInitialBackoff {
		errs = append(errs, errors.New("INVENTORY_MAX_BACKOFF must not be lower than INVENTORY_INITIAL_BACKOFF"))
	}
	if c.ReconcileInterval < 0 {
		errs = append(errs, errors.New("RECONCILE_INTERVAL must not be negative"))
	}

	return errors.Join(errs...)
}

func (c Config) LogrusLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func (c Config) ConsumerOptions(metrics booking.Metrics) booking.Options {
	opts := booking.DefaultOptions()
	opts.StoreTimeout = c.StoreTimeout
	opts.InventoryTimeout = c.InventoryTimeout
	opts.MaxAttempts = c.InventoryMaxAttempts
	opts.InitialBackoff = c.InventoryInitialBackoff
	opts.MaxBackoff = c.InventoryMaxBackoff
	opts.Metrics = metrics

	return opts
}
