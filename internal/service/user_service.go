package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/pulse-social/pulse/internal/audit"
	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/media"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/internal/search"
	"github.com/pulse-social/pulse/pkg/jwt"
	"github.com/pulse-social/pulse/pkg/log"
)

const searchLimit = 20

// UserDeps wires a UserService. Cache, Index and Avatars are optional.
type UserDeps struct {
	Repo      repository.UserRepository
	Tokens    TokenManager
	Cache     cache.UserCache
	Index     search.UserIndex
	Avatars   AvatarProcessor
	CacheTTL  time.Duration
	SearchTTL time.Duration
}

// userServiceImpl implements UserService interface.
type userServiceImpl struct {
	repo      repository.UserRepository
	tokens    TokenManager
	cache     cache.UserCache
	index     search.UserIndex
	avatars   AvatarProcessor
	cacheTTL  time.Duration
	searchTTL time.Duration
	sf        singleflight.Group
}

// NewUserService creates a new user service.
func NewUserService(d UserDeps) UserService {
	if d.Cache == nil {
		d.Cache = cache.NopCache{}
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 30 * time.Second
	}
	if d.SearchTTL <= 0 {
		d.SearchTTL = 10 * time.Second
	}
	return &userServiceImpl{
		repo:      d.Repo,
		tokens:    d.Tokens,
		cache:     d.Cache,
		index:     d.Index,
		avatars:   d.Avatars,
		cacheTTL:  d.CacheTTL,
		searchTTL: d.SearchTTL,
	}
}

// Register registers a new user.
func (s *userServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	username := strings.TrimSpace(req.Username)
	if username == "" || strings.ContainsAny(username, " \t\n/") {
		return nil, invalid("username must be a single word")
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	user := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hashedPassword),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailExists
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameExists
		}
		l.Error().Err(err).Msg("failed to create user")
		return nil, err
	}

	resp, err := s.authResponse(user)
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, user.ID).Msg("failed to generate tokens after register")
		return nil, err
	}

	s.asyncIndex(ctx, user)
	audit.Log(ctx, audit.ActionRegister, user.ID, "user registered")
	return resp, nil
}

// Login authenticates a user.
func (s *userServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, 0, req.Email, "login failed: user not found")
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to get user by email")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, req.Email, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	resp, err := s.authResponse(user)
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, user.ID).Msg("failed to generate tokens after login")
		return nil, err
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")
	return resp, nil
}

// RefreshToken exchanges a refresh token for a new pair.
func (s *userServiceImpl) RefreshToken(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	claims, pair, err := s.tokens.RefreshTokens(req.RefreshToken)
	if err != nil {
		l.Warn().Err(err).Msg("failed to refresh token")
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Int64(log.FieldUserID, claims.UserID).Msg("failed to get user after token refresh")
		return nil, err
	}

	audit.Log(ctx, audit.ActionRefreshToken, user.ID, "token refreshed")
	return newAuthResponse(user, pair), nil
}

// Logout revokes every token issued to the user.
func (s *userServiceImpl) Logout(ctx context.Context, userID int64) error {
	s.tokens.RevokeUserTokens(userID)
	audit.Log(ctx, audit.ActionLogout, userID, "user logged out")
	return nil
}

func (s *userServiceImpl) GetAll(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list users")
		return nil, err
	}
	return publicUsers(users), nil
}

// GetByID serves from cache when possible.
func (s *userServiceImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	l := log.Ctx(ctx)

	cached, err := s.cache.GetUser(ctx, id)
	if err == nil {
		return cached.Public(), nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Msg("cache get error")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Int64(log.FieldUserID, id).Msg("failed to get user")
		return nil, err
	}

	asyncCacheUser(ctx, s.cache, user, s.cacheTTL)
	return user.Public(), nil
}

func (s *userServiceImpl) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUsername, username).Msg("failed to get user by username")
		return nil, err
	}
	return user.Public(), nil
}

func (s *userServiceImpl) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to get current user")
		return nil, err
	}
	return user, nil
}

// Update merges the present fields into the profile.
func (s *userServiceImpl) Update(ctx context.Context, userID int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	l := log.Ctx(ctx)

	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if trimmed == "" || strings.ContainsAny(trimmed, " \t\n/") {
			return nil, invalid("username must be a single word")
		}
		req.Username = &trimmed
	}
	req.Apply(user)

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameExists
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to update user")
		return nil, err
	}

	invalidateUsers(ctx, s.cache, userID)
	s.asyncIndex(ctx, user)
	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")
	return user, nil
}

// ChangePassword verifies the current password and stores the new one.
func (s *userServiceImpl) ChangePassword(ctx context.Context, userID int64, req *domain.ChangePasswordRequest) error {
	l := log.Ctx(ctx)

	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return err
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.repo.Update(ctx, user); err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to update password")
		return err
	}

	audit.Log(ctx, audit.ActionChangePassword, userID, "password changed")
	return nil
}

// UploadAvatar resizes the image and points avatar_url at the md variant.
func (s *userServiceImpl) UploadAvatar(ctx context.Context, userID int64, r io.Reader) (*domain.AvatarResponse, error) {
	l := log.Ctx(ctx)

	if s.avatars == nil {
		return nil, ErrAvatarsDisabled
	}

	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	urls, err := s.avatars.Process(ctx, userID, r)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return nil, invalid("avatar must be a JPEG, PNG, GIF, BMP or TIFF image")
		}
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to process avatar")
		return nil, err
	}

	user.AvatarURL = urls.Md
	if err := s.repo.Update(ctx, user); err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to save avatar url")
		return nil, err
	}

	invalidateUsers(ctx, s.cache, userID)
	audit.Log(ctx, audit.ActionUploadAvatar, userID, "avatar uploaded")
	return &domain.AvatarResponse{User: user, Avatars: *urls}, nil
}

// Search tries the search index first and falls back to the database when
// the index fails or finds nothing.
// Concurrent identical queries share one lookup.
func (s *userServiceImpl) Search(ctx context.Context, query string) ([]*domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.User{}, nil
	}
	key := strings.ToLower(query)

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		l := log.Ctx(ctx)

		cached, err := s.cache.GetSearch(ctx, key)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn().Err(err).Msg("cache get error")
		}

		users, err := s.searchIndex(ctx, key)
		switch {
		case errors.Is(err, errNoIndex):
			users, err = s.repo.Search(ctx, key, searchLimit)
		case err != nil:
			l.Warn().Err(err).Msg("search index unavailable, falling back to database")
			users, err = s.repo.Search(ctx, key, searchLimit)
		case len(users) == 0:
			// The index may lag behind the database.
			users, err = s.repo.Search(ctx, key, searchLimit)
		}
		if err != nil {
			l.Error().Err(err).Msg("failed to search users")
			return nil, err
		}

		users = publicUsers(users)
		asyncCacheSearch(ctx, s.cache, key, users, s.searchTTL)
		return users, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]*domain.User), nil
}

var errNoIndex = errors.New("no search index configured")

func (s *userServiceImpl) searchIndex(ctx context.Context, query string) ([]*domain.User, error) {
	if s.index == nil {
		return nil, errNoIndex
	}

	ids, err := s.index.SearchUsers(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	byID, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *userServiceImpl) asyncIndex(ctx context.Context, user *domain.User) {
	if s.index == nil {
		return
	}
	doc := *user

	go func() {
		ctx, cancel := context.WithTimeout(log.Detach(ctx), 5*time.Second)
		defer cancel()

		if err := s.index.IndexUser(ctx, &doc); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Int64(log.FieldUserID, doc.ID).Msg("failed to index user")
		}
	}()
}

func (s *userServiceImpl) authResponse(user *domain.User) (*domain.AuthResponse, error) {
	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return newAuthResponse(user, pair), nil
}

func newAuthResponse(user *domain.User, pair *jwt.TokenPair) *domain.AuthResponse {
	return &domain.AuthResponse{
		User:             user,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func publicUsers(users []*domain.User) []*domain.User {
	out := make([]*domain.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out
}
