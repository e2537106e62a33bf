package pubsub

import (
	"context"
	"errors"
	"path"
	"sync"
)

var ErrClosed = errors.New("pubsub closed")

type memorySubscription struct {
	pattern bool
	ch      chan *Event
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *memorySubscription) close() {
	s.once.Do(func() {
		s.cancel()
		close(s.ch)
	})
}

// MemoryPubSub is an in-process broker for single-instance deployments.
// Patterns use the same '*' glob as Redis PSUBSCRIBE.
type MemoryPubSub struct {
	mu     sync.RWMutex
	subs   map[string]*memorySubscription
	closed bool
}

// NewMemoryPubSub creates an empty broker.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subs: make(map[string]*memorySubscription)}
}

// Publish delivers the event to every matching subscription without blocking.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	for key, sub := range m.subs {
		if !matches(key, sub.pattern, channel) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Subscriber full, skip.
		}
	}
	return nil
}

func matches(key string, pattern bool, channel string) bool {
	if !pattern {
		return key == channel
	}
	ok, err := path.Match(key, channel)
	return err == nil && ok
}

// Subscribe subscribes to a specific channel.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return m.subscribe(ctx, channel, false)
}

// SubscribePattern subscribes to channels matching a glob pattern.
func (m *MemoryPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	return m.subscribe(ctx, pattern, true)
}

func (m *MemoryPubSub) subscribe(ctx context.Context, key string, pattern bool) (<-chan *Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if existing, ok := m.subs[key]; ok {
		existing.close()
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{pattern: pattern, ch: make(chan *Event, subscriberBuffer), cancel: cancel}
	m.subs[key] = sub

	go func() {
		<-subCtx.Done()
		m.mu.Lock()
		if m.subs[key] == sub {
			delete(m.subs, key)
		}
		sub.close()
		m.mu.Unlock()
	}()

	return sub.ch, nil
}

// Unsubscribe unsubscribes from a channel or pattern.
func (m *MemoryPubSub) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub, ok := m.subs[channel]; ok {
		delete(m.subs, channel)
		sub.close()
	}
	return nil
}

// Close ends every subscription.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, sub := range m.subs {
		delete(m.subs, key)
		sub.close()
	}
	m.closed = true
	return nil
}
