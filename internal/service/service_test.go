package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/internal/repository/fixtures"
	"github.com/pulse-social/pulse/internal/service"
	"github.com/pulse-social/pulse/pkg/jwt"
	"github.com/pulse-social/pulse/pkg/pubsub"
)

// Seeded fixture ids.
const (
	sarah int64 = 1
	mike  int64 = 2
	emma  int64 = 3
	alex  int64 = 4 // private account
	nina  int64 = 5
	leo   int64 = 6

	sarahLaunchPost    int64 = 1
	alexRunPost        int64 = 4
	sarahFollowersPost int64 = 6
)

type testEnv struct {
	users         service.UserService
	posts         service.PostService
	comments      service.CommentService
	follows       service.FollowService
	messages      service.MessageService
	notifications service.NotificationService
	pages         service.PageService

	userRepo repository.UserRepository
	postRepo repository.PostRepository
	tokens   *jwt.Manager
	bus      *pubsub.MemoryPubSub
}

type envOption func(*service.UserDeps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := fixtures.OpenMemory(ctx, strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:          "test-secret",
		AccessDuration:  time.Minute,
		RefreshDuration: time.Hour,
	})
	require.NoError(t, err)

	bus := pubsub.NewMemoryPubSub()
	t.Cleanup(func() { bus.Close() })

	userRepo := repository.NewGormUserRepository(db)
	postRepo := repository.NewGormPostRepository(db)
	commentRepo := repository.NewGormCommentRepository(db)
	followRepo := repository.NewGormFollowRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)

	deps := service.UserDeps{Repo: userRepo, Tokens: tokens}
	for _, opt := range opts {
		opt(&deps)
	}

	env := &testEnv{
		userRepo: userRepo,
		postRepo: postRepo,
		tokens:   tokens,
		bus:      bus,
	}
	env.users = service.NewUserService(deps)
	env.notifications = service.NewNotificationService(notificationRepo, userRepo, bus)
	notifier := service.NewNotifier(env.notifications, userRepo)
	env.posts = service.NewPostService(postRepo, userRepo, followRepo, notifier, nil)
	env.comments = service.NewCommentService(commentRepo, postRepo, userRepo, followRepo, notifier)
	env.follows = service.NewFollowService(followRepo, userRepo, notifier, nil)
	env.messages = service.NewMessageService(messageRepo, userRepo, bus)
	env.pages = service.NewPageService(env.users, env.posts, env.comments, env.follows, env.notifications)
	return env
}

func (e *testEnv) subscribe(t *testing.T, userID int64) <-chan *pubsub.Event {
	t.Helper()
	ch, err := e.bus.Subscribe(context.Background(), pubsub.UserChannel(userID))
	require.NoError(t, err)
	return ch
}

func receiveEvent(t *testing.T, ch <-chan *pubsub.Event) *pubsub.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func postIDs(posts []*domain.Post) []int64 {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func userIDs(users []*domain.User) []int64 {
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func commentIDs(comments []*domain.Comment) []int64 {
	ids := make([]int64, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	return ids
}
