package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/internal/handler"
	"github.com/pulse-social/pulse/internal/media"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/internal/repository/fixtures"
	"github.com/pulse-social/pulse/internal/service"
	"github.com/pulse-social/pulse/pkg/jwt"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/pubsub"
	"github.com/pulse-social/pulse/pkg/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	router *gin.Engine
	tokens *jwt.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := fixtures.OpenMemory(ctx, strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tokens, err := jwt.NewManager(jwt.Config{Secret: "handler-secret", AccessDuration: time.Minute, RefreshDuration: time.Hour})
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), BaseURL: "/media"})
	require.NoError(t, err)

	bus := pubsub.NewMemoryPubSub()
	t.Cleanup(func() { bus.Close() })

	userRepo := repository.NewGormUserRepository(db)
	postRepo := repository.NewGormPostRepository(db)
	followRepo := repository.NewGormFollowRepository(db)

	users := service.NewUserService(service.UserDeps{
		Repo:    userRepo,
		Tokens:  tokens,
		Avatars: media.NewAvatarProcessor(store, media.Config{}),
	})
	notifications := service.NewNotificationService(repository.NewGormNotificationRepository(db), userRepo, bus)
	notifier := service.NewNotifier(notifications, userRepo)
	posts := service.NewPostService(postRepo, userRepo, followRepo, notifier, nil)
	comments := service.NewCommentService(repository.NewGormCommentRepository(db), postRepo, userRepo, followRepo, notifier)
	follows := service.NewFollowService(followRepo, userRepo, notifier, nil)

	h := handler.NewHandler(handler.Services{
		Users:         users,
		Posts:         posts,
		Comments:      comments,
		Follows:       follows,
		Messages:      service.NewMessageService(repository.NewGormMessageRepository(db), userRepo, bus),
		Notifications: notifications,
		Pages:         service.NewPageService(users, posts, comments, follows, notifications),
	}, nil, middleware.NewAuthMiddleware(tokens), 1<<20)

	r := gin.New()
	h.RegisterRoutes(r)
	return &testServer{router: r, tokens: tokens}
}

func (s *testServer) token(t *testing.T, userID int64, username string) string {
	t.Helper()
	pair, err := s.tokens.GenerateTokenPair(userID, username)
	require.NoError(t, err)
	return pair.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.serve(t, req, token)
}

func (s *testServer) serve(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "sarah@pulse.dev", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	var auth struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auth))

	w, env = s.do(t, http.MethodGet, "/api/v1/users/me", auth.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"email":"sarah@pulse.dev"`)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "sarah@pulse.dev", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": auth.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", auth.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/users/me", auth.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "kai@pulse.dev", "username": "kai_lee", "password": "secret1",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "kai@pulse.dev", "username": "kai_two", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	sarah := s.token(t, 1, "sarah_chen")
	mike := s.token(t, 2, "mike_johnson")
	leo := s.token(t, 6, "leo_martin")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{name: "self follow", method: http.MethodPost, path: "/api/v1/users/1/follow", token: sarah, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "duplicate follow", method: http.MethodPost, path: "/api/v1/users/2/follow", token: sarah, status: http.StatusConflict, code: "CONFLICT"},
		{name: "unfollow missing edge", method: http.MethodDelete, path: "/api/v1/users/5/follow", token: leo, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "not post owner", method: http.MethodPut, path: "/api/v1/posts/1", token: mike, body: map[string]string{"content": "x"}, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "hidden post", method: http.MethodGet, path: "/api/v1/posts/6", token: leo, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "bad id", method: http.MethodGet, path: "/api/v1/posts/abc", token: leo, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "missing user", method: http.MethodGet, path: "/api/v1/users/99", token: leo, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "other's notification", method: http.MethodPost, path: "/api/v1/notifications/1/read", token: mike, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "blank message", method: http.MethodPost, path: "/api/v1/conversations/2/messages", token: sarah, body: map[string]string{"content": "  "}, status: http.StatusBadRequest, code: "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestFollowAndUnfollow(t *testing.T) {
	s := newTestServer(t)
	leo := s.token(t, 6, "leo_martin")

	w, env := s.do(t, http.MethodPost, "/api/v1/users/5/follow", leo, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"is_following":true}`, string(env.Data))

	w, env = s.do(t, http.MethodGet, "/api/v1/users/5/follow", leo, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"is_following":true}`, string(env.Data))

	w, _ = s.do(t, http.MethodDelete, "/api/v1/users/5/follow", leo, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostsAndComments(t *testing.T) {
	s := newTestServer(t)
	leo := s.token(t, 6, "leo_martin")

	w, env := s.do(t, http.MethodPost, "/api/v1/posts/1/like", leo, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var post struct {
		IsLiked   bool  `json:"is_liked"`
		LikeCount int64 `json:"like_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.True(t, post.IsLiked)
	assert.Equal(t, int64(4), post.LikeCount)

	w, env = s.do(t, http.MethodGet, "/api/v1/posts/1/comments?view=thread", leo, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var threads []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &threads))
	assert.Len(t, threads, 2)

	w, env = s.do(t, http.MethodPost, "/api/v1/posts", leo, map[string]string{"content": "new track"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"privacy":"public"`)

	w, _ = s.do(t, http.MethodPost, "/api/v1/posts/1/comments", leo, map[string]string{"content": "nice"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestConversationsAndNotifications(t *testing.T) {
	s := newTestServer(t)
	sarah := s.token(t, 1, "sarah_chen")

	w, env := s.do(t, http.MethodGet, "/api/v1/conversations?q=emma", sarah, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var convs []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &convs))
	assert.Len(t, convs, 1)

	w, env = s.do(t, http.MethodPost, "/api/v1/conversations/2/read", sarah, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))

	w, env = s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", sarah, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":3}`, string(env.Data))

	w, _ = s.do(t, http.MethodPost, "/api/v1/notifications/read-all", sarah, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", sarah, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0}`, string(env.Data))
}

func TestPages(t *testing.T) {
	s := newTestServer(t)
	sarah := s.token(t, 1, "sarah_chen")

	for _, path := range []string{"/api/v1/pages/home", "/api/v1/pages/profile/2", "/api/v1/pages/posts/1"} {
		w, env := s.do(t, http.MethodGet, path, sarah, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.True(t, env.Success, path)
	}
}

func TestUploadAvatar(t *testing.T) {
	s := newTestServer(t)
	leo := s.token(t, 6, "leo_martin")

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 64, 64))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/me/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, env := s.serve(t, req, leo)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), "/media/avatars/6/")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/me/avatar", strings.NewReader(""))
	w, _ = s.serve(t, req, leo)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebSocketWithoutHub(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/v1/ws", s.token(t, 1, "sarah_chen"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
}
