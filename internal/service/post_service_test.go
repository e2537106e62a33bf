package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/service"
)

func strPtr(s string) *string { return &s }

func TestPostService_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		viewer  int64
		post    int64
		visible bool
	}{
		{name: "public post", viewer: leo, post: sarahLaunchPost, visible: true},
		{name: "private author, not following", viewer: mike, post: alexRunPost, visible: false},
		{name: "private author, following", viewer: sarah, post: alexRunPost, visible: true},
		{name: "private author, own post", viewer: alex, post: alexRunPost, visible: true},
		{name: "followers only, not following", viewer: leo, post: sarahFollowersPost, visible: false},
		{name: "followers only, following", viewer: mike, post: sarahFollowersPost, visible: true},
		{name: "missing", viewer: sarah, post: 99, visible: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, err := env.posts.GetByID(ctx, tt.viewer, tt.post)
			if !tt.visible {
				assert.ErrorIs(t, err, service.ErrPostNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.post, post.ID)
			require.NotNil(t, post.Author)
			assert.Equal(t, post.UserID, post.Author.ID)
		})
	}
}

func TestPostService_GetAllFiltersHiddenPosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	posts, err := env.posts.GetAll(ctx, leo)
	require.NoError(t, err)
	assert.Equal(t, []int64{8, 7, 5, 3, 2, 1}, postIDs(posts))

	posts, err = env.posts.GetAll(ctx, sarah)
	require.NoError(t, err)
	assert.Len(t, posts, 8)
}

func TestPostService_GetFeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	feed, err := env.posts.GetFeed(ctx, emma)
	require.NoError(t, err)
	assert.Equal(t, []int64{sarahFollowersPost, 3, sarahLaunchPost}, postIDs(feed))

	feed, err = env.posts.GetFeed(ctx, sarah)
	require.NoError(t, err)
	for _, p := range feed {
		if p.ID == sarahLaunchPost {
			assert.False(t, p.IsLiked)
		}
		if p.ID == 2 {
			assert.True(t, p.IsLiked, "sarah liked mike's bread")
		}
	}
}

func TestPostService_GetByUserID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	posts, err := env.posts.GetByUserID(ctx, leo, sarah)
	require.NoError(t, err)
	assert.Equal(t, []int64{sarahLaunchPost}, postIDs(posts))

	_, err = env.posts.GetByUserID(ctx, leo, 99)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestPostService_CreateUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.posts.Create(ctx, leo, &domain.CreatePostRequest{Content: "   "})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = env.posts.Create(ctx, leo, &domain.CreatePostRequest{Content: "hi", Privacy: "secret"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	post, err := env.posts.Create(ctx, leo, &domain.CreatePostRequest{Content: "  studio day  ", ImageURL: strPtr(" ")})
	require.NoError(t, err)
	assert.Equal(t, "studio day", post.Content)
	assert.Nil(t, post.ImageURL)
	assert.Equal(t, domain.PrivacyPublic, post.Privacy)
	require.NotNil(t, post.Author)
	assert.Equal(t, "leo_martin", post.Author.Username)

	u, err := env.users.GetByID(ctx, leo)
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.PostCount)

	_, err = env.posts.Update(ctx, mike, post.ID, &domain.UpdatePostRequest{Content: strPtr("hijack")})
	assert.ErrorIs(t, err, service.ErrNotPostOwner)
	assert.ErrorIs(t, env.posts.Delete(ctx, mike, post.ID), service.ErrNotPostOwner)

	updated, err := env.posts.Update(ctx, leo, post.ID, &domain.UpdatePostRequest{
		Content: strPtr("studio night"),
		Privacy: strPtr(domain.PrivacyFollowers),
	})
	require.NoError(t, err)
	assert.Equal(t, "studio night", updated.Content)
	assert.Equal(t, domain.PrivacyFollowers, updated.Privacy)

	_, err = env.posts.GetByID(ctx, sarah, post.ID)
	assert.ErrorIs(t, err, service.ErrPostNotFound, "sarah does not follow leo")

	assert.ErrorIs(t, env.posts.Delete(ctx, mike, post.ID), service.ErrPostNotFound, "mike does not follow leo")
	require.NoError(t, env.posts.Delete(ctx, leo, post.ID))
	_, err = env.posts.GetByID(ctx, leo, post.ID)
	assert.ErrorIs(t, err, service.ErrPostNotFound)

	u, err = env.users.GetByID(ctx, leo)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.PostCount)
}

func TestPostService_HiddenPostIsNotFoundForOthers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.posts.Update(ctx, leo, sarahFollowersPost, &domain.UpdatePostRequest{Content: strPtr("x")})
	assert.ErrorIs(t, err, service.ErrPostNotFound)
	assert.ErrorIs(t, env.posts.Delete(ctx, leo, sarahFollowersPost), service.ErrPostNotFound)
}

func TestPostService_ToggleLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before, err := env.notifications.GetByUserID(ctx, sarah)
	require.NoError(t, err)

	post, err := env.posts.ToggleLike(ctx, leo, sarahLaunchPost)
	require.NoError(t, err)
	assert.True(t, post.IsLiked)
	assert.Equal(t, int64(4), post.LikeCount)

	after, err := env.notifications.GetByUserID(ctx, sarah)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, domain.NotificationLike, after[0].Type)
	assert.Equal(t, leo, after[0].FromUserID)
	require.NotNil(t, after[0].PostID)
	assert.Equal(t, sarahLaunchPost, *after[0].PostID)
	assert.Equal(t, "Leo Martin liked your post", after[0].Message)

	post, err = env.posts.ToggleLike(ctx, leo, sarahLaunchPost)
	require.NoError(t, err)
	assert.False(t, post.IsLiked)
	assert.Equal(t, int64(3), post.LikeCount)

	unliked, err := env.notifications.GetByUserID(ctx, sarah)
	require.NoError(t, err)
	assert.Len(t, unliked, len(after), "unlike does not notify")
}

func TestPostService_ToggleLikeOwnPostDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before, err := env.notifications.GetUnreadCount(ctx, sarah)
	require.NoError(t, err)

	post, err := env.posts.ToggleLike(ctx, sarah, sarahLaunchPost)
	require.NoError(t, err)
	assert.True(t, post.IsLiked)

	after, err := env.notifications.GetUnreadCount(ctx, sarah)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPostService_ToggleLikeHiddenPost(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.posts.ToggleLike(context.Background(), mike, alexRunPost)
	assert.ErrorIs(t, err, service.ErrPostNotFound)
}
