package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/internal/service"
)

func TestPageService_Home(t *testing.T) {
	env := newTestEnv(t)

	page, err := env.pages.Home(context.Background(), sarah)
	require.NoError(t, err)

	assert.Equal(t, "sarah@pulse.dev", page.CurrentUser.Email)
	assert.Equal(t, []int64{nina, leo}, userIDs(page.Suggestions))
	assert.Equal(t, int64(3), page.UnreadCount)
	assert.Equal(t, []int64{8, sarahFollowersPost, 4, 3, 2, sarahLaunchPost}, postIDs(page.Feed))
}

func TestPageService_Profile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	page, err := env.pages.Profile(ctx, leo, sarah)
	require.NoError(t, err)
	assert.Equal(t, sarah, page.User.ID)
	assert.Empty(t, page.User.Email)
	assert.False(t, page.IsFollowing)
	assert.Equal(t, []int64{sarahLaunchPost}, postIDs(page.Posts))
	assert.Len(t, page.Followers, 4)
	assert.Len(t, page.Following, 3)

	page, err = env.pages.Profile(ctx, mike, sarah)
	require.NoError(t, err)
	assert.True(t, page.IsFollowing)
	assert.Len(t, page.Posts, 2)

	_, err = env.pages.Profile(ctx, mike, 99)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestPageService_PostDetail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	page, err := env.pages.PostDetail(ctx, leo, sarahLaunchPost)
	require.NoError(t, err)
	assert.Equal(t, sarahLaunchPost, page.Post.ID)
	assert.Len(t, page.Comments, 2)

	_, err = env.pages.PostDetail(ctx, leo, sarahFollowersPost)
	assert.ErrorIs(t, err, service.ErrPostNotFound)
}
