package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pulse-social/pulse/internal/domain"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

var _ UserRepository = (*GormUserRepository)(nil)

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	model := domain.UserToModel(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return r.handleError(ctx, err, model)
	}

	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by email.
func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", strings.ToLower(email))
}

// GetByUsername retrieves a user by username.
func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *GormUserRepository) first(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var model domain.UserModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormUserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.User, error) {
	out := make(map[int64]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", uniqueIDs(ids)).Find(&models).Error; err != nil {
		return nil, err
	}
	for i := range models {
		out[models[i].ID] = models[i].ToDomain()
	}
	return out, nil
}

func (r *GormUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return usersToDomain(models), nil
}

func (r *GormUserRepository) Search(ctx context.Context, q string, limit int) ([]*domain.User, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"

	var models []domain.UserModel
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '!' OR LOWER(display_name) LIKE ? ESCAPE '!'", pattern, pattern).
		Order("id").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return usersToDomain(models), nil
}

// Update updates a user's profile fields and password hash.
func (r *GormUserRepository) Update(ctx context.Context, user *domain.User) error {
	model := domain.UserToModel(user)
	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"username":      model.Username,
			"display_name":  model.DisplayName,
			"bio":           model.Bio,
			"avatar_url":    model.AvatarURL,
			"is_private":    model.IsPrivate,
			"password_hash": model.PasswordHash,
		})
	if result.Error != nil {
		return r.handleError(ctx, result.Error, model)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	updated, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *updated
	return nil
}

func (r *GormUserRepository) ListSuggestions(ctx context.Context, userID int64, limit int) ([]*domain.User, error) {
	followed := r.db.Model(&domain.FollowModel{}).
		Select("following_id").
		Where("follower_id = ?", userID)

	var models []domain.UserModel
	err := r.db.WithContext(ctx).
		Where("id <> ?", userID).
		Where("id NOT IN (?)", followed).
		Order("follower_count DESC").
		Order("id").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return usersToDomain(models), nil
}

// handleError converts unique violations to the matching domain error. The
// translated gorm error carries no column, so the conflicting field is
// looked up.
func (r *GormUserRepository) handleError(ctx context.Context, err error, model *domain.UserModel) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	var count int64
	r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("username = ? AND id <> ?", model.Username, model.ID).
		Count(&count)
	if count > 0 {
		return ErrUsernameExists
	}
	return ErrEmailExists
}

func usersToDomain(models []domain.UserModel) []*domain.User {
	out := make([]*domain.User, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
