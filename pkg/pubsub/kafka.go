package pubsub

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"

	pkglog "github.com/pulse-social/pulse/pkg/log"
)

// EventsTopic carries every user's events. The message key is the user id,
// so one user's events stay ordered within a partition.
const EventsTopic = ChannelPrefix + "-" + StreamEvents

// kafkaMessageKey maps a user channel to the key its events are produced with.
//
//	"pulse:user:42:events" → "42"
func kafkaMessageKey(channel string) (string, error) {
	id, err := ParseUserChannel(channel)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// KafkaPubSub publishes to EventsTopic and consumes it with one consumer per
// instance. Consumed events are fanned out to local subscribers through an
// in-process broker, so Subscribe and SubscribePattern behave as they do on
// the memory driver.
//
// Each instance joins its own consumer group: every instance sees every
// event and delivers it to the websockets it holds.
type KafkaPubSub struct {
	producer *kafka.Producer
	local    *MemoryPubSub
	config   KafkaConfig
	groupID  string

	mu       sync.Mutex
	consumer *kafka.Consumer
	stop     context.CancelFunc
	stopped  chan struct{}

	reports chan struct{}
}

func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = ChannelPrefix
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 4
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	k := &KafkaPubSub{
		producer: p,
		local:    NewMemoryPubSub(),
		config:   cfg,
		groupID:  cfg.GroupID + "-" + uuid.NewString(),
		reports:  make(chan struct{}),
	}
	go k.watchDeliveries()

	if err := k.createTopic(); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("topic", EventsTopic).Msg("kafka pubsub: could not ensure topic")
	}
	return k, nil
}

func (k *KafkaPubSub) createTopic() error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             EventsTopic,
		NumPartitions:     k.config.Partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return err
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return r.Error
		}
	}
	return nil
}

func (k *KafkaPubSub) watchDeliveries() {
	defer close(k.reports)
	for e := range k.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			l := pkglog.L()
			l.Warn().Err(m.TopicPartition.Error).Str("key", string(m.Key)).Msg("kafka pubsub: delivery failed")
		}
	}
}

// Publish produces the event asynchronously; delivery failures are logged.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	key, err := kafkaMessageKey(channel)
	if err != nil {
		return err
	}
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	topic := EventsTopic
	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
	}, nil)
}

func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	if _, err := ParseUserChannel(channel); err != nil {
		return nil, err
	}
	if err := k.startConsumer(); err != nil {
		return nil, err
	}
	return k.local.Subscribe(ctx, channel)
}

func (k *KafkaPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	if err := k.startConsumer(); err != nil {
		return nil, err
	}
	return k.local.SubscribePattern(ctx, pattern)
}

func (k *KafkaPubSub) Unsubscribe(ctx context.Context, channel string) error {
	return k.local.Unsubscribe(ctx, channel)
}

// startConsumer joins the instance's group on first use.
func (k *KafkaPubSub) startConsumer() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.consumer != nil {
		return nil
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  k.config.Brokers,
		"group.id":           k.groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := c.Subscribe(EventsTopic, nil); err != nil {
		c.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", EventsTopic, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	k.consumer = c
	k.stop = cancel
	k.stopped = make(chan struct{})
	go k.consume(ctx, c, k.stopped)
	return nil
}

func (k *KafkaPubSub) consume(ctx context.Context, c *kafka.Consumer, stopped chan<- struct{}) {
	defer close(stopped)
	l := pkglog.L()

	for ctx.Err() == nil {
		switch e := c.Poll(500).(type) {
		case nil:
		case *kafka.Message:
			id, err := strconv.ParseInt(string(e.Key), 10, 64)
			if err != nil {
				l.Warn().Str("key", string(e.Key)).Msg("kafka pubsub: dropping event with bad key")
				continue
			}
			event, err := decodeEvent(e.Value)
			if err != nil {
				l.Warn().Err(err).Msg("kafka pubsub: dropping malformed event")
				continue
			}
			if err := k.local.Publish(ctx, UserChannel(id), event); err != nil {
				return
			}
		case kafka.Error:
			l.Error().Str("error", e.Error()).Int("code", int(e.Code())).Bool("fatal", e.IsFatal()).Msg("kafka pubsub: consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

// Close stops the consumer, ends local subscriptions and flushes the producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	if k.consumer != nil {
		k.stop()
		<-k.stopped
		k.consumer.Close()
		k.consumer = nil
	}
	k.mu.Unlock()

	k.local.Close()
	k.producer.Flush(5000)
	k.producer.Close()
	<-k.reports
	return nil
}
