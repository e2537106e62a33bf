package cache

import (
	"context"
	"errors"
	"time"

	"github.com/pulse-social/pulse/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// UserCache caches user profiles by id and user search results by query.
type UserCache interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SetUser(ctx context.Context, user *domain.User, ttl time.Duration) error
	DeleteUser(ctx context.Context, ids ...int64) error
	GetSearch(ctx context.Context, query string) ([]*domain.User, error)
	SetSearch(ctx context.Context, query string, users []*domain.User, ttl time.Duration) error
	Close() error
}

// NopCache is a UserCache that never hits. It is used when Redis is not
// configured.
type NopCache struct{}

var _ UserCache = NopCache{}

func (NopCache) GetUser(context.Context, int64) (*domain.User, error) { return nil, ErrCacheMiss }

func (NopCache) SetUser(context.Context, *domain.User, time.Duration) error { return nil }

func (NopCache) DeleteUser(context.Context, ...int64) error { return nil }

func (NopCache) GetSearch(context.Context, string) ([]*domain.User, error) { return nil, ErrCacheMiss }

func (NopCache) SetSearch(context.Context, string, []*domain.User, time.Duration) error { return nil }

func (NopCache) Close() error { return nil }
