package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/blogkit/auth-gateway/internal/domain"
)

// MemoryUserRepository is an in-memory UserRepository for tests and local
// development. It mirrors the Postgres semantics: case-insensitive lookups,
// pgx.ErrNoRows for missing records, and revocation transitions applied
// atomically under the lock.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

// NewMemoryUserRepository constructs an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = uuid.NewString()
	user.Banned = false
	user.TokenVersion = 0
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryUserRepository) UpdateProfile(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Username = user.Username
	stored.Bio = user.Bio
	stored.AvatarURL = user.AvatarURL
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(u *domain.User) bool {
		return strings.EqualFold(u.Email, email)
	})
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(u *domain.User) bool {
		return strings.EqualFold(u.Username, username)
	})
}

func (r *MemoryUserRepository) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []domain.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryUserRepository) Stats(_ context.Context) (*UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &UserStats{TotalUsers: int64(len(r.users))}
	for _, u := range r.users {
		if u.Banned {
			stats.BannedUsers++
		}
	}
	return stats, nil
}

func (r *MemoryUserRepository) Ban(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Banned = true
	stored.TokenVersion++
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) Unban(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Banned = false
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) BumpVersion(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	stored.TokenVersion++
	stored.UpdatedAt = time.Now()
	return stored.TokenVersion, nil
}

func (r *MemoryUserRepository) SetRole(_ context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Role = role
	stored.TokenVersion++
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.PasswordHash = passwordHash
	stored.TokenVersion++
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) findLocked(match func(*domain.User) bool) (*domain.User, error) {
	for _, u := range r.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// MemoryPasswordResetRepository is the in-memory counterpart for reset tokens.
type MemoryPasswordResetRepository struct {
	mu     sync.Mutex
	tokens map[string]*PasswordResetToken
}

// NewMemoryPasswordResetRepository constructs an empty store.
func NewMemoryPasswordResetRepository() *MemoryPasswordResetRepository {
	return &MemoryPasswordResetRepository{tokens: make(map[string]*PasswordResetToken)}
}

func (r *MemoryPasswordResetRepository) Create(_ context.Context, token *PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	clone := *token
	r.tokens[token.Token] = &clone
	return nil
}

func (r *MemoryPasswordResetRepository) GetByToken(_ context.Context, tokenStr string) (*PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *MemoryPasswordResetRepository) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, stored := range r.tokens {
		if stored.ID == id {
			now := time.Now()
			stored.UsedAt = &now
			return nil
		}
	}
	return nil
}
