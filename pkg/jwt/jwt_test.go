package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret:          "test-secret",
		Issuer:          "pulse-test",
		AccessDuration:  time.Minute,
		RefreshDuration: time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager(Config{})
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestGenerateAndValidate(t *testing.T) {
	m := newTestManager(t)

	pair, err := m.GenerateTokenPair(7, "sarah")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "sarah", claims.Username)
	assert.Equal(t, "7", claims.Subject)

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	m := newTestManager(t)
	pair, err := m.GenerateTokenPair(1, "a")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager(Config{Secret: "other"})
	require.NoError(t, err)

	pair, err := other.GenerateTokenPair(1, "a")
	require.NoError(t, err)

	_, err = m.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokens(t *testing.T) {
	m := newTestManager(t)
	pair, err := m.GenerateTokenPair(3, "mike")
	require.NoError(t, err)

	_, _, err = m.RefreshTokens(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, next, err := m.RefreshTokens(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)

	_, err = m.ValidateAccessToken(next.AccessToken)
	assert.NoError(t, err)
}

func TestRevokeUserTokens(t *testing.T) {
	m := newTestManager(t)
	old, err := m.GenerateTokenPair(5, "emma")
	require.NoError(t, err)
	untouched, err := m.GenerateTokenPair(6, "other")
	require.NoError(t, err)

	m.RevokeUserTokens(5)

	_, err = m.ValidateToken(old.AccessToken)
	assert.ErrorIs(t, err, ErrRevokedToken)
	_, _, err = m.RefreshTokens(old.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedToken)

	_, err = m.ValidateToken(untouched.AccessToken)
	assert.NoError(t, err)

	fresh, err := m.GenerateTokenPair(5, "emma")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(fresh.AccessToken)
	assert.NoError(t, err)
}
