package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blogkit/auth-gateway/internal/auth"
	"github.com/blogkit/auth-gateway/internal/domain"
	"github.com/blogkit/auth-gateway/internal/events"
	"github.com/blogkit/auth-gateway/internal/repository"
	apperrors "github.com/blogkit/auth-gateway/pkg/util"
)

// AdminService drives the revocation authority from administrative actions.
type AdminService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// NewAdminService builds the service.
func NewAdminService(users repository.UserRepository, dispatcher events.Dispatcher) *AdminService {
	return &AdminService{users: users, dispatcher: dispatcher}
}

// ListUsers returns accounts ordered by creation time.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, limit, offset)
}

// GetUser returns a single account.
func (s *AdminService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// Stats returns account counters for the dashboard.
func (s *AdminService) Stats(ctx context.Context) (*repository.UserStats, error) {
	return s.users.Stats(ctx)
}

// BanUser bans the target and revokes all of its tokens. Admins cannot be
// banned and actors cannot ban themselves.
func (s *AdminService) BanUser(ctx context.Context, actor auth.Principal, id string) error {
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == domain.RoleAdmin {
		return apperrors.NewValidationError("cannot ban admin users", nil)
	}
	if strings.EqualFold(target.Email, actor.Identity) {
		return apperrors.NewValidationError("you cannot ban yourself", nil)
	}

	if err := s.users.Ban(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, events.EventUserBanned, id, actor.Identity, events.UserBannedPayload{
		Username:     target.Username,
		TokenVersion: target.TokenVersion + 1,
	})
	return nil
}

// UnbanUser clears the ban flag. Tokens issued before the ban stay invalid
// because the ban already bumped the version; the user must log in again.
func (s *AdminService) UnbanUser(ctx context.Context, actor auth.Principal, id string) error {
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Unban(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, events.EventUserUnbanned, id, actor.Identity, events.UserBannedPayload{
		Username:     target.Username,
		TokenVersion: target.TokenVersion,
	})
	return nil
}

// SetUserRole changes the target's role. The repository bumps the token
// version in the same statement, so tokens carrying the old role die at once.
func (s *AdminService) SetUserRole(ctx context.Context, actor auth.Principal, id, rawRole string) (domain.Role, error) {
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return "", apperrors.NewValidationError("invalid role, must be USER or ADMIN", nil)
	}

	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(target.Email, actor.Identity) {
		return "", apperrors.NewValidationError("you cannot change your own role", nil)
	}

	if err := s.users.SetRole(ctx, id, role); err != nil {
		return "", err
	}

	s.publish(ctx, events.EventRoleChanged, id, actor.Identity, events.RoleChangedPayload{
		OldRole: target.Role,
		NewRole: role,
	})
	return role, nil
}

// RevokeSessions invalidates every outstanding token for the target without
// changing anything else about the account.
func (s *AdminService) RevokeSessions(ctx context.Context, actor auth.Principal, id string) (int64, error) {
	version, err := s.users.BumpVersion(ctx, id)
	if err != nil {
		return 0, err
	}

	s.publish(ctx, events.EventSessionsRevoked, id, actor.Identity, events.SessionsRevokedPayload{
		TokenVersion: version,
	})
	return version, nil
}

func (s *AdminService) publish(ctx context.Context, eventType events.EventType, userID, actor string, payload interface{}) {
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
