package jwt

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
	ErrEmptySecret  = errors.New("jwt secret must not be empty")
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Type       string `json:"type"`
	Generation uint64 `json:"gen"`
}

// TokenPair is an access/refresh pair with their expiry as unix seconds.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresAt  int64  `json:"access_expires_at"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}

// Config configures a Manager.
type Config struct {
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	AccessDuration  time.Duration `mapstructure:"access_duration"`
	RefreshDuration time.Duration `mapstructure:"refresh_duration"`
}

// Manager signs and validates HS256 tokens.
//
// Revocation is per user: each user has a token generation, and revoking
// bumps it so every token minted earlier stops validating.
type Manager struct {
	secret          []byte
	issuer          string
	accessDuration  time.Duration
	refreshDuration time.Duration
	now             func() time.Time

	mu          sync.RWMutex
	generations map[int64]uint64
}

// NewManager creates a new JWT manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	if cfg.AccessDuration <= 0 {
		cfg.AccessDuration = 15 * time.Minute
	}
	if cfg.RefreshDuration <= 0 {
		cfg.RefreshDuration = 7 * 24 * time.Hour
	}

	return &Manager{
		secret:          []byte(cfg.Secret),
		issuer:          cfg.Issuer,
		accessDuration:  cfg.AccessDuration,
		refreshDuration: cfg.RefreshDuration,
		now:             time.Now,
		generations:     make(map[int64]uint64),
	}, nil
}

// GenerateTokenPair creates access and refresh tokens for a user.
func (m *Manager) GenerateTokenPair(userID int64, username string) (*TokenPair, error) {
	now := m.now()

	accessExp := now.Add(m.accessDuration)
	access, err := m.sign(m.claims(userID, username, TypeAccess, now, accessExp))
	if err != nil {
		return nil, err
	}

	refreshExp := now.Add(m.refreshDuration)
	refresh, err := m.sign(m.claims(userID, username, TypeRefresh, now, refreshExp))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp.Unix(),
		RefreshExpiresAt: refreshExp.Unix(),
	}, nil
}

// ValidateToken validates a token of any type and returns its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if m.isRevoked(claims) {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// ValidateAccessToken validates a token and requires it to be an access token.
func (m *Manager) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshTokens exchanges a valid refresh token for a new pair.
func (m *Manager) RefreshTokens(refreshToken string) (*Claims, *TokenPair, error) {
	claims, err := m.ValidateToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, nil, ErrInvalidToken
	}

	pair, err := m.GenerateTokenPair(claims.UserID, claims.Username)
	if err != nil {
		return nil, nil, err
	}
	return claims, pair, nil
}

// RevokeUserTokens invalidates every token issued to the user so far.
func (m *Manager) RevokeUserTokens(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[userID]++
}

func (m *Manager) generation(userID int64) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generations[userID]
}

func (m *Manager) isRevoked(claims *Claims) bool {
	return claims.Generation != m.generation(claims.UserID)
}

func (m *Manager) claims(userID int64, username, typ string, issued, expires time.Time) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:     userID,
		Username:   username,
		Type:       typ,
		Generation: m.generation(userID),
	}
}

func (m *Manager) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}
