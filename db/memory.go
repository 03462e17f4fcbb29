package db

import (
	"context"
	"strings"
	"sync"
	"time"

	"profeamigo/models"
)

// MemoryUserRepository keeps accounts in process. Used in development when no
// MySQL host is configured, and in tests.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID uint64
	users  map[uint64]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[uint64]models.User{}}
}

func (r *MemoryUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, user.Username) {
			return ErrUsernameTaken
		}
	}
	r.nextID++
	now := time.Now().UTC()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// MemoryProfileStore keeps skill profiles in process.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.SkillProfile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: map[string]*models.SkillProfile{}}
}

func (s *MemoryProfileStore) Load(ctx context.Context, userID string) (*models.SkillProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p.Clone(), nil
	}
	return models.NewSkillProfile(userID), nil
}

func (s *MemoryProfileStore) Save(ctx context.Context, profile *models.SkillProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile.Clone()
	return nil
}
