package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/pkg/jwt"
	"github.com/pulse-social/pulse/pkg/response"
)

const (
	UserIDKey     = "user_id"
	UsernameKey   = "username"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	// TokenQueryKey carries the access token for clients that cannot set
	// headers, such as browser websockets.
	TokenQueryKey = "token"
)

// TokenValidator validates access tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware validates bearer tokens locally.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireAuth rejects requests without a valid access token and stores the
// caller's identity in the gin context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing or malformed authorization")
			return
		}

		claims, err := m.validator.ValidateAccessToken(token)
		if err != nil {
			msg := "invalid token"
			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				msg = "token has expired"
			case errors.Is(err, jwt.ErrRevokedToken):
				msg = "token has been revoked"
			}
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, msg)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		return token, token != ""
	}
	if token := c.Query(TokenQueryKey); token != "" {
		return token, true
	}
	return "", false
}

// GetUserID returns the authenticated user's id, or 0 when the request is anonymous.
func GetUserID(c *gin.Context) int64 {
	if id, exists := c.Get(UserIDKey); exists {
		if v, ok := id.(int64); ok {
			return v
		}
	}
	return 0
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(UsernameKey); exists {
		if v, ok := username.(string); ok {
			return v
		}
	}
	return ""
}
