// Package pubsub carries realtime events between the instance that produces
// them and the instance holding the recipient's websocket. Drivers: an
// in-process broker, Redis PUBLISH/PSUBSCRIBE and a Kafka topic.
package pubsub

import (
	"context"
	"fmt"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber hands out one channel per subscription key. Subscribing to a
// key that is already live replaces the earlier subscription and closes its
// channel. Cancelling ctx ends the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan *Event, error)
	SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error)
	Unsubscribe(ctx context.Context, key string) error
}

type PubSub interface {
	Publisher
	Subscriber
	Close() error
}

// subscriberBuffer is how many undelivered events a subscription holds
// before new ones are dropped.
const subscriberBuffer = 100

type Config struct {
	// Driver is memory (the default), redis or kafka.
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig configures the Kafka driver. GroupID is only a prefix: each
// instance appends a random suffix and so receives every event.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	GroupID    string `mapstructure:"group_id"`
	Partitions int    `mapstructure:"partitions"`
}

func NewPubSub(cfg Config) (PubSub, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryPubSub(), nil
	case "redis":
		return NewRedisPubSub(cfg.Redis)
	case "kafka":
		return NewKafkaPubSub(cfg.Kafka)
	}
	return nil, fmt.Errorf("pubsub: unknown driver %q", cfg.Driver)
}
