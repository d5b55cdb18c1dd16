package repository

import (
	"context"
	"errors"
	"fmt"

	"paydiag/model"

	"gorm.io/gorm"
)

// UserRepository 用户相关查询。查不到时返回 nil, nil
type UserRepository interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListInvitees(ctx context.Context, inviterID int64, offset, limit int) ([]model.User, error)
	CountInvitees(ctx context.Context, inviterID int64) (int64, error)
	HasConfig(ctx context.Context, userID int64) (bool, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) (int64, error)
}

type gormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) first(ctx context.Context, desc string, query string, arg interface{}) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by %s: %w", desc, err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return r.first(ctx, "id", "id = ?", id)
}

func (r *gormUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(ctx, "username", "username = ?", username)
}

func (r *gormUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email", "email = ?", email)
}

// ListInvitees 返回 inviter_id = inviterID 的用户，按注册时间倒序
func (r *gormUserRepository) ListInvitees(ctx context.Context, inviterID int64, offset, limit int) ([]model.User, error) {
	users := make([]model.User, 0)
	err := r.db.WithContext(ctx).
		Where("inviter_id = ?", inviterID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invitees of user %d: %w", inviterID, err)
	}
	return users, nil
}

func (r *gormUserRepository) CountInvitees(ctx context.Context, inviterID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("inviter_id = ?", inviterID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count invitees of user %d: %w", inviterID, err)
	}
	return n, nil
}

func (r *gormUserRepository) HasConfig(ctx context.Context, userID int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.UserConfig{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check config of user %d: %w", userID, err)
	}
	return n > 0, nil
}

func (r *gormUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	return nil
}

// UpdatePasswordHash 返回受影响行数
func (r *gormUserRepository) UpdatePasswordHash(ctx context.Context, userID int64, hash string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password_hash", hash)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update password of user %d: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}
