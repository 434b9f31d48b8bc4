package message

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Logger        watermill.LoggerAdapter
	RedisClient   *redis.Client
	Handler       Handler
	Topic         string
	ConsumerGroup string
}

// Router consumes booking events from a Redis stream. The handler runs with
// a single subscriber, so events are processed one at a time in stream order.
type Router struct {
	*message.Router
}

func NewRouter(deps RouterDeps) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	addMiddlewares(router, deps.Logger)

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        deps.RedisClient,
		ConsumerGroup: deps.ConsumerGroup,
	}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating subscriber: %w", err)
	}

	router.AddNoPublisherHandler(
		"store-order",
		deps.Topic,
		subscriber,
		deps.Handler.HandleMessage,
	)

	return &Router{router}, nil
}
