package service

import (
	"context"
	"errors"
	"sort"

	"github.com/pulse-social/pulse/internal/audit"
	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/pkg/log"
)

const suggestionLimit = 5

type followServiceImpl struct {
	follows  repository.FollowRepository
	users    repository.UserRepository
	notifier *Notifier
	cache    cache.UserCache
}

// NewFollowService creates a follow service. notifier and userCache may be
// nil.
func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, notifier *Notifier, userCache cache.UserCache) FollowService {
	return &followServiceImpl{
		follows:  follows,
		users:    users,
		notifier: notifier,
		cache:    userCache,
	}
}

func (s *followServiceImpl) GetFollowers(ctx context.Context, userID int64) ([]*domain.FollowedUser, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	edges, err := s.follows.ListFollowers(ctx, userID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to list followers")
		return nil, err
	}
	return s.listing(ctx, edges, func(f *domain.Follow) int64 { return f.FollowerID })
}

func (s *followServiceImpl) GetFollowing(ctx context.Context, userID int64) ([]*domain.FollowedUser, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	edges, err := s.follows.ListFollowing(ctx, userID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to list following")
		return nil, err
	}
	return s.listing(ctx, edges, func(f *domain.Follow) int64 { return f.FollowingID })
}

func (s *followServiceImpl) listing(ctx context.Context, edges []*domain.Follow, other func(*domain.Follow) int64) ([]*domain.FollowedUser, error) {
	ids := make([]int64, len(edges))
	for i, e := range edges {
		ids[i] = other(e)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.FollowedUser, 0, len(edges))
	for _, e := range edges {
		u, ok := users[other(e)]
		if !ok {
			continue
		}
		out = append(out, &domain.FollowedUser{User: u.Public(), FollowedAt: e.CreatedAt})
	}
	return out, nil
}

func (s *followServiceImpl) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	ok, err := s.follows.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldUserID, followerID).Int64(log.FieldTargetUserID, followingID).Msg("failed to check follow status")
		return false, err
	}
	return ok, nil
}

// Follow adds the edge, bumps both counters and notifies the followee.
func (s *followServiceImpl) Follow(ctx context.Context, followerID, followingID int64) error {
	l := log.Ctx(ctx)

	if followerID == followingID {
		return ErrSelfFollow
	}

	users, err := s.users.GetByIDs(ctx, []int64{followerID, followingID})
	if err != nil {
		l.Error().Err(err).Msg("failed to load users for follow")
		return err
	}
	if len(users) != 2 {
		return ErrUserNotFound
	}

	if err := s.follows.Follow(ctx, followerID, followingID); err != nil {
		if errors.Is(err, repository.ErrAlreadyFollowing) {
			return ErrAlreadyFollowing
		}
		l.Error().Err(err).Int64(log.FieldUserID, followerID).Int64(log.FieldTargetUserID, followingID).Msg("failed to follow")
		return err
	}

	invalidateUsers(ctx, s.cache, followerID, followingID)
	audit.LogWithTarget(ctx, audit.ActionFollow, followerID, followingID, "user followed")
	s.notifier.Followed(ctx, followerID, followingID)
	return nil
}

func (s *followServiceImpl) Unfollow(ctx context.Context, followerID, followingID int64) error {
	l := log.Ctx(ctx)

	if err := s.follows.Unfollow(ctx, followerID, followingID); err != nil {
		if errors.Is(err, repository.ErrFollowNotFound) {
			return ErrNotFollowing
		}
		l.Error().Err(err).Int64(log.FieldUserID, followerID).Int64(log.FieldTargetUserID, followingID).Msg("failed to unfollow")
		return err
	}

	invalidateUsers(ctx, s.cache, followerID, followingID)
	audit.LogWithTarget(ctx, audit.ActionUnfollow, followerID, followingID, "user unfollowed")
	return nil
}

// GetMutualFollows returns the users both userID and otherID follow,
// ordered by id.
func (s *followServiceImpl) GetMutualFollows(ctx context.Context, userID, otherID int64) ([]*domain.User, error) {
	l := log.Ctx(ctx)

	mine, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to load following")
		return nil, err
	}
	theirs, err := s.follows.FollowingIDs(ctx, otherID)
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, otherID).Msg("failed to load following")
		return nil, err
	}

	set := make(map[int64]bool, len(mine))
	for _, id := range mine {
		set[id] = true
	}
	var both []int64
	for _, id := range theirs {
		if set[id] {
			both = append(both, id)
		}
	}

	users, err := s.users.GetByIDs(ctx, both)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *followServiceImpl) GetSuggestions(ctx context.Context, userID int64) ([]*domain.User, error) {
	users, err := s.users.ListSuggestions(ctx, userID, suggestionLimit)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to load suggestions")
		return nil, err
	}
	return publicUsers(users), nil
}

func (s *followServiceImpl) ensureUser(ctx context.Context, userID int64) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
