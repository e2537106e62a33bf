package service

import (
	"context"
	"time"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/pkg/log"
)

const cacheWriteTimeout = 2 * time.Second

// invalidateUsers drops cached profiles whose counters or fields changed.
func invalidateUsers(ctx context.Context, c cache.UserCache, ids ...int64) {
	if c == nil {
		return
	}
	if err := c.DeleteUser(ctx, ids...); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Ints64("user_ids", ids).Msg("cache invalidation failed")
	}
}

// writeBehind runs write after the caller has answered. It keeps ctx's
// logger but not its deadline or cancellation.
func writeBehind(ctx context.Context, what string, write func(context.Context) error) {
	bg := log.Detach(ctx)
	go func() {
		wctx, cancel := context.WithTimeout(bg, cacheWriteTimeout)
		defer cancel()
		if err := write(wctx); err != nil {
			l := log.Ctx(bg)
			l.Warn().Err(err).Str("entry", what).Msg("cache write failed")
		}
	}()
}

func asyncCacheUser(ctx context.Context, c cache.UserCache, user *domain.User, ttl time.Duration) {
	writeBehind(ctx, "user", func(wctx context.Context) error {
		return c.SetUser(wctx, user, ttl)
	})
}

func asyncCacheSearch(ctx context.Context, c cache.UserCache, query string, users []*domain.User, ttl time.Duration) {
	writeBehind(ctx, "search", func(wctx context.Context) error {
		return c.SetSearch(wctx, query, users, ttl)
	})
}
