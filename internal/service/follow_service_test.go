package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/service"
	"github.com/pulse-social/pulse/pkg/pubsub"
)

func TestFollowService_FollowUpdatesCountsAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	events := env.subscribe(t, mike)

	require.NoError(t, env.follows.Follow(ctx, nina, mike))

	target, err := env.users.GetByID(ctx, mike)
	require.NoError(t, err)
	assert.Equal(t, int64(3), target.FollowerCount)

	follower, err := env.users.GetByID(ctx, nina)
	require.NoError(t, err)
	assert.Equal(t, int64(3), follower.FollowingCount)

	ok, err := env.follows.IsFollowing(ctx, nina, mike)
	require.NoError(t, err)
	assert.True(t, ok)

	ev := receiveEvent(t, events)
	assert.Equal(t, pubsub.EventNotificationCreated, ev.Type)

	var n domain.Notification
	require.NoError(t, ev.UnmarshalPayload(&n))
	assert.Equal(t, domain.NotificationFollow, n.Type)
	assert.Equal(t, nina, n.FromUserID)
	assert.Equal(t, "Nina Patel started following you", n.Message)
}

func TestFollowService_FollowErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.follows.Follow(ctx, sarah, sarah), service.ErrSelfFollow)
	assert.ErrorIs(t, env.follows.Follow(ctx, sarah, 99), service.ErrUserNotFound)

	err := env.follows.Follow(ctx, sarah, mike)
	assert.ErrorIs(t, err, service.ErrAlreadyFollowing)
	assert.EqualError(t, err, "Already following this user")

	u, err := env.users.GetByID(ctx, mike)
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.FollowerCount, "failed follow must not change counters")
}

func TestFollowService_Unfollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.follows.Unfollow(ctx, sarah, mike))

	u, err := env.users.GetByID(ctx, mike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.FollowerCount)

	err = env.follows.Unfollow(ctx, sarah, mike)
	assert.ErrorIs(t, err, service.ErrNotFollowing)
	assert.EqualError(t, err, "Not following this user")

	u, err = env.users.GetByID(ctx, mike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.FollowerCount)
}

func TestFollowService_Listings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	followers, err := env.follows.GetFollowers(ctx, emma)
	require.NoError(t, err)
	ids := make([]int64, len(followers))
	for i, f := range followers {
		ids[i] = f.ID
		assert.Empty(t, f.Email)
		assert.False(t, f.FollowedAt.IsZero())
	}
	assert.ElementsMatch(t, []int64{sarah, mike, nina}, ids)

	following, err := env.follows.GetFollowing(ctx, sarah)
	require.NoError(t, err)
	assert.Len(t, following, 3)

	_, err = env.follows.GetFollowers(ctx, 99)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestFollowService_MutualAndSuggestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mutual, err := env.follows.GetMutualFollows(ctx, sarah, nina)
	require.NoError(t, err)
	assert.Equal(t, []int64{emma}, userIDs(mutual))

	suggestions, err := env.follows.GetSuggestions(ctx, sarah)
	require.NoError(t, err)
	assert.Equal(t, []int64{nina, leo}, userIDs(suggestions))

	suggestions, err = env.follows.GetSuggestions(ctx, leo)
	require.NoError(t, err)
	assert.NotContains(t, userIDs(suggestions), leo)
	assert.NotContains(t, userIDs(suggestions), mike)
	assert.LessOrEqual(t, len(suggestions), 5)
	assert.Equal(t, sarah, suggestions[0].ID, "most followed first")
}
