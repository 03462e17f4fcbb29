package db

import (
	"context"

	"github.com/pkg/errors"

	"profeamigo/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// UserRepository stores learner accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uint64) (*models.User, error)
}

// ProfileStore persists skill profiles. Load returns a fresh profile when the
// user has none yet.
type ProfileStore interface {
	Load(ctx context.Context, userID string) (*models.SkillProfile, error)
	Save(ctx context.Context, profile *models.SkillProfile) error
}
