package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	pkglog "github.com/pulse-social/pulse/pkg/log"
)

// RedisPubSub fans events out across instances with PUBLISH and
// (P)SUBSCRIBE. Redis does not buffer for absent subscribers, so an event
// published while nobody listens is lost.
type RedisPubSub struct {
	client     *redis.Client
	ownsClient bool

	mu   sync.Mutex
	subs map[string]*redisSubscription
}

type redisSubscription struct {
	conn   *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}

	once     sync.Once
	closeErr error
}

// stop closes the Redis connection and waits for the pump to exit. It is
// safe to call more than once.
func (s *redisSubscription) stop() error {
	s.cancel()
	s.once.Do(func() { s.closeErr = s.conn.Close() })
	<-s.done
	return s.closeErr
}

// NewRedisPubSub dials cfg.Address and pings it before returning.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis pubsub: ping %s: %w", cfg.Address, err)
	}

	r := NewRedisPubSubFromClient(client)
	r.ownsClient = true
	return r, nil
}

// NewRedisPubSubFromClient shares client with the caller, who keeps
// ownership of it.
func NewRedisPubSubFromClient(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client, subs: make(map[string]*redisSubscription)}
}

func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis pubsub: publish to %s: %w", channel, err)
	}
	return nil
}

func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return r.listen(ctx, channel, r.client.Subscribe(ctx, channel))
}

func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return r.listen(ctx, pattern, r.client.PSubscribe(ctx, pattern))
}

// listen waits for Redis to confirm conn's subscription, so a publish that
// follows the return is never missed, then starts pumping messages.
func (r *RedisPubSub) listen(ctx context.Context, key string, conn *redis.PubSub) (<-chan *Event, error) {
	if _, err := conn.Receive(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("redis pubsub: subscribe %s: %w", key, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{conn: conn, cancel: cancel, done: make(chan struct{})}
	out := make(chan *Event, subscriberBuffer)

	r.mu.Lock()
	previous := r.subs[key]
	r.subs[key] = sub
	r.mu.Unlock()
	if previous != nil {
		previous.stop()
	}

	go pump(subCtx, conn.Channel(), out, sub.done)
	go func() {
		<-sub.done
		r.mu.Lock()
		if r.subs[key] == sub {
			delete(r.subs, key)
		}
		r.mu.Unlock()
		sub.stop()
	}()
	return out, nil
}

// pump decodes messages into out until ctx ends or the connection closes.
// A full out drops the message rather than stalling the connection.
func pump(ctx context.Context, in <-chan *redis.Message, out chan<- *Event, done chan<- struct{}) {
	defer close(done)
	defer close(out)
	l := pkglog.Ctx(ctx)

	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			msg = m
		}

		event, err := decodeEvent([]byte(msg.Payload))
		if err != nil {
			l.Warn().Err(err).Str(pkglog.FieldChannel, msg.Channel).Msg("redis pubsub: dropping malformed event")
			continue
		}
		select {
		case out <- event:
		default:
			l.Warn().Str(pkglog.FieldChannel, msg.Channel).Str("type", event.Type).Msg("redis pubsub: subscriber full, event dropped")
		}
	}
}

func (r *RedisPubSub) Unsubscribe(ctx context.Context, key string) error {
	r.mu.Lock()
	sub, ok := r.subs[key]
	delete(r.subs, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return sub.stop()
}

// Close ends every subscription. The client is closed only if
// NewRedisPubSub dialed it.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]*redisSubscription)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	if r.ownsClient {
		return r.client.Close()
	}
	return nil
}

func (r *RedisPubSub) Client() *redis.Client {
	return r.client
}
