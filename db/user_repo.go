package db

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"profeamigo/models"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(gdb *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: gdb}
}

func (r *GormUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUsernameTaken
	}
	return errors.Wrap(err, "create user")
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormUserRepository) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &user, nil
}
