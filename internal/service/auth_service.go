package service

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/blogkit/auth-gateway/internal/auth"
	"github.com/blogkit/auth-gateway/internal/config"
	"github.com/blogkit/auth-gateway/internal/domain"
	"github.com/blogkit/auth-gateway/internal/events"
	"github.com/blogkit/auth-gateway/internal/ratelimit"
	"github.com/blogkit/auth-gateway/internal/repository"
	apperrors "github.com/blogkit/auth-gateway/pkg/util"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,15}$`)

// AuthService coordinates registration, login and credential changes.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	dispatcher events.Dispatcher
	limiter    *ratelimit.LoginLimiter
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
	LoginLimiter      *ratelimit.LoginLimiter
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		dispatcher: deps.Dispatcher,
		limiter:    deps.LoginLimiter,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// RegisterUser creates a new account and issues its first token. New accounts
// start at token version 0 with the USER role.
func (s *AuthService) RegisterUser(ctx context.Context, username, email, password string) (*domain.User, string, time.Time, error) {
	if !usernamePattern.MatchString(username) {
		return nil, "", time.Time{}, apperrors.NewValidationError(
			"username must be 3-15 characters of letters, numbers and underscores", nil)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, "", time.Time{}, apperrors.NewValidationError(err.Error(), nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already in use", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("username already taken", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, user.Email, nil)

	token, exp, err := s.tokenMgr.Issue(user.Email, user.Role, user.TokenVersion)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// LoginUser authenticates by username or email and issues a token embedding
// the current role and token version.
func (s *AuthService) LoginUser(ctx context.Context, identifier, password string) (*domain.User, string, time.Time, error) {
	limitKey := strings.ToLower(identifier)
	if !s.limiter.Allow(ctx, limitKey) {
		return nil, "", time.Time{}, apperrors.NewDomainError(
			"RATE_LIMITED", "too many login attempts, try again later", http.StatusTooManyRequests, nil)
	}

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, identifier)
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}

	if user.Banned {
		return nil, "", time.Time{}, apperrors.NewAccountBanned()
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	s.limiter.Reset(ctx, limitKey)

	token, exp, err := s.tokenMgr.Issue(user.Email, user.Role, user.TokenVersion)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every open session via the version bump in UpdatePassword.
func (s *AuthService) ChangePassword(ctx context.Context, identity, currentPassword, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	user, err := s.users.GetByEmail(ctx, identity)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, user.Email, nil)
	return nil
}

// RequestPasswordReset persists a single-use reset token for the email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token, updates the password and
// revokes all outstanding sessions.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or used", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, token.UserID, hash); err != nil {
		return err
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordChanged, token.UserID, "", nil)
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID, actor string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
