package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulse-social/pulse/internal/config"
	"github.com/pulse-social/pulse/internal/domain"
)

type RedisUserCache struct {
	client *redis.Client
	prefix string
}

var _ UserCache = (*RedisUserCache)(nil)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// NewRedisUserCache wraps client. The cache owns the client and closes it.
func NewRedisUserCache(client *redis.Client, prefix string) *RedisUserCache {
	return &RedisUserCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisUserCache) BuildKeyByID(userID int64) string {
	return fmt.Sprintf("%s:user:id:%d", c.prefix, userID)
}

func (c *RedisUserCache) BuildSearchKey(query string) string {
	return fmt.Sprintf("%s:user:search:%s", c.prefix, strings.ToLower(query))
}

func (c *RedisUserCache) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	if err := c.get(ctx, c.BuildKeyByID(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *RedisUserCache) SetUser(ctx context.Context, user *domain.User, ttl time.Duration) error {
	return c.set(ctx, c.BuildKeyByID(user.ID), user, ttl)
}

func (c *RedisUserCache) DeleteUser(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.BuildKeyByID(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisUserCache) GetSearch(ctx context.Context, query string) ([]*domain.User, error) {
	var users []*domain.User
	if err := c.get(ctx, c.BuildSearchKey(query), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *RedisUserCache) SetSearch(ctx context.Context, query string, users []*domain.User, ttl time.Duration) error {
	return c.set(ctx, c.BuildSearchKey(query), users, ttl)
}

func (c *RedisUserCache) get(ctx context.Context, key string, dst interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get from redis: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return nil
}

func (c *RedisUserCache) set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisUserCache) Close() error {
	return c.client.Close()
}
