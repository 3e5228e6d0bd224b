package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. It backs the
// in-memory store mode and unit tests.
type MemoryRepository struct {
	mu           sync.RWMutex
	usersByEmail map[string]User
	usersByID    map[string]User
	now          func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		usersByEmail: make(map[string]User),
		usersByID:    make(map[string]User),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) CreateUser(_ context.Context, params CreateUserParams) (User, error) {
	key := strings.ToLower(params.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.usersByEmail[key]; exists {
		return User{}, ErrDuplicateEmail
	}

	now := r.now()
	user := User{
		ID:           uuid.NewString(),
		Email:        key,
		FullName:     params.FullName,
		PasswordHash: params.PasswordHash,
		TimeZone:     params.TimeZone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.usersByEmail[key] = user
	r.usersByID[user.ID] = user
	return user, nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, userID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.usersByID[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
