package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/pkg/jwt"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *jwt.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := jwt.NewManager(jwt.Config{Secret: "secret"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", NewAuthMiddleware(m).RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "username": GetUsername(c)})
	})
	return r, m
}

func TestRequireAuth(t *testing.T) {
	r, m := newAuthRouter(t)
	pair, err := m.GenerateTokenPair(9, "nina")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage", header: BearerPrefix + "nope", want: http.StatusUnauthorized},
		{name: "refresh token rejected", header: BearerPrefix + pair.RefreshToken, want: http.StatusUnauthorized},
		{name: "header", header: BearerPrefix + pair.AccessToken, want: http.StatusOK},
		{name: "query", query: "?token=" + pair.AccessToken, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"id":9,"username":"nina"}`, w.Body.String())
			}
		})
	}
}

func TestRequireAuth_Revoked(t *testing.T) {
	r, m := newAuthRouter(t)
	pair, err := m.GenerateTokenPair(1, "a")
	require.NoError(t, err)
	m.RevokeUserTokens(1)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{IdleTTL: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(2 * time.Minute)
	rl.Allow("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}

func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCompression(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Compression("/api/v1/ws"))
	r.GET("/api/v1/posts", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/api/v1/ws", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}
