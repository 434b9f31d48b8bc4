package message

import (
	"context"
	"errors"
	"fmt"
	"orders/event"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const commitTimeout = 5 * time.Second

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	Concurrency int

	RedeliveryInitialInterval time.Duration
	RedeliveryMaxInterval     time.Duration
}

// KafkaConsumer runs one reader per worker in the same consumer group. Each
// reader owns the partitions the group assigns to it and handles their
// messages in order; an offset is committed only once its message is acked.
type KafkaConsumer struct {
	readers         []KafkaReader
	handler         Handler
	running         chan struct{}
	initialInterval time.Duration
	maxInterval     time.Duration
}

func NewKafkaConsumer(cfg KafkaConsumerConfig, handler Handler) *KafkaConsumer {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	readers := make([]KafkaReader, concurrency)
	for i := range readers {
		readers[i] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			GroupID:     cfg.GroupID,
			StartOffset: kafka.FirstOffset,
		})
	}

	return newKafkaConsumer(readers, handler, cfg.RedeliveryInitialInterval, cfg.RedeliveryMaxInterval)
}

func newKafkaConsumer(readers []KafkaReader, handler Handler, initialInterval, maxInterval time.Duration) *KafkaConsumer {
	if initialInterval <= 0 {
		initialInterval = 100 * time.Millisecond
	}
	if maxInterval < initialInterval {
		maxInterval = 10 * time.Second
	}

	return &KafkaConsumer{
		readers:         readers,
		handler:         handler,
		running:         make(chan struct{}),
		initialInterval: initialInterval,
		maxInterval:     maxInterval,
	}
}

// Running is closed once every worker has started.
func (c *KafkaConsumer) Running() chan struct{} {
	return c.running
}

func (c *KafkaConsumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i, reader := range c.readers {
		g.Go(func() error {
			return c.consume(ctx, i, reader)
		})
	}
	close(c.running)

	err := g.Wait()

	var closeErrs []error
	for _, reader := range c.readers {
		if cerr := reader.Close(); cerr != nil {
			closeErrs = append(closeErrs, fmt.Errorf("closing kafka reader: %w", cerr))
		}
	}

	return errors.Join(append([]error{err}, closeErrs...)...)
}

func (c *KafkaConsumer) consume(ctx context.Context, worker int, reader KafkaReader) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		if err := c.processUntilAcked(ctx, worker, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		// The outcome is known, so the commit is not abandoned on shutdown.
		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
		err = reader.CommitMessages(commitCtx, msg)
		cancel()
		if err != nil {
			return fmt.Errorf("committing offset %d of partition %d: %w", msg.Offset, msg.Partition, err)
		}
	}
}

// processUntilAcked redelivers the message in place until it is acked, so
// the partition never moves past an unacknowledged event.
func (c *KafkaConsumer) processUntilAcked(ctx context.Context, worker int, msg kafka.Message) error {
	ctx = kafkaMessageContext(ctx, worker, msg)
	logger := log.FromContext(ctx)
	logger.Info("Handling a message")

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	b.MaxElapsedTime = 0

	idempotencyKey := headerValue(msg.Headers, event.MetadataIdempotencyKey)

	return backoff.RetryNotify(
		func() error {
			return c.handler.Process(ctx, msg.Value, idempotencyKey)
		},
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			logger.WithError(err).Errorf("Message handling error, redelivering in %s", next)
		},
	)
}

func kafkaMessageContext(ctx context.Context, worker int, msg kafka.Message) context.Context {
	correlationID := headerValue(msg.Headers, event.MetadataCorrelationID)
	if correlationID == "" {
		correlationID = newCorrelationID()
	}

	ctx = log.ContextWithCorrelationID(ctx, correlationID)

	return log.ToContext(ctx, logrus.WithFields(logrus.Fields{
		"topic":          msg.Topic,
		"partition":      msg.Partition,
		"offset":         msg.Offset,
		"worker":         worker,
		"correlation_id": correlationID,
	}))
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
