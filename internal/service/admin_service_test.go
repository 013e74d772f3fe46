package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blogkit/auth-gateway/internal/auth"
	"github.com/blogkit/auth-gateway/internal/domain"
	"github.com/blogkit/auth-gateway/internal/repository"
)

func seedUser(t *testing.T, users *repository.MemoryUserRepository, username, email string, role domain.Role) *domain.User {
	t.Helper()

	user := &domain.User{Username: username, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func adminPrincipal(email string) auth.Principal {
	return auth.Principal{Identity: email, Role: domain.RoleAdmin, Authenticated: true}
}

func TestBanUser(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	svc := NewAdminService(users, nil)
	ctx := context.Background()

	actor := adminPrincipal("admin@example.com")
	seedUser(t, users, "admin", "admin@example.com", domain.RoleAdmin)
	target := seedUser(t, users, "target", "target@example.com", domain.RoleUser)

	require.NoError(t, svc.BanUser(ctx, actor, target.ID))

	stored, err := users.GetByID(ctx, target.ID)
	require.NoError(t, err)
	require.True(t, stored.Banned)
	require.EqualValues(t, 1, stored.TokenVersion, "ban must bump the version too")

	t.Run("repeat ban still bumps version", func(t *testing.T) {
		require.NoError(t, svc.BanUser(ctx, actor, target.ID))
		stored, err := users.GetByID(ctx, target.ID)
		require.NoError(t, err)
		require.True(t, stored.Banned)
		require.EqualValues(t, 2, stored.TokenVersion)
	})

	t.Run("unknown target", func(t *testing.T) {
		err := svc.BanUser(ctx, actor, "missing-id")
		requireCode(t, err, "NOT_FOUND")
	})
}

func TestBanUser_Guardrails(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	svc := NewAdminService(users, nil)
	ctx := context.Background()

	self := seedUser(t, users, "admin", "admin@example.com", domain.RoleAdmin)
	other := seedUser(t, users, "root", "root@example.com", domain.RoleAdmin)
	actor := adminPrincipal("admin@example.com")

	t.Run("cannot ban admins", func(t *testing.T) {
		err := svc.BanUser(ctx, actor, other.ID)
		requireCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("cannot ban yourself", func(t *testing.T) {
		err := svc.BanUser(ctx, actor, self.ID)
		requireCode(t, err, "VALIDATION_FAILED")
	})
}

func TestUnbanUser_KeepsVersion(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	svc := NewAdminService(users, nil)
	ctx := context.Background()

	actor := adminPrincipal("admin@example.com")
	target := seedUser(t, users, "target", "target@example.com", domain.RoleUser)

	require.NoError(t, svc.BanUser(ctx, actor, target.ID))
	require.NoError(t, svc.UnbanUser(ctx, actor, target.ID))

	stored, err := users.GetByID(ctx, target.ID)
	require.NoError(t, err)
	require.False(t, stored.Banned)
	require.EqualValues(t, 1, stored.TokenVersion, "unban must not revive old tokens")
}

func TestSetUserRole(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	svc := NewAdminService(users, nil)
	ctx := context.Background()

	actor := adminPrincipal("admin@example.com")
	self := seedUser(t, users, "admin", "admin@example.com", domain.RoleAdmin)
	target := seedUser(t, users, "target", "target@example.com", domain.RoleUser)

	role, err := svc.SetUserRole(ctx, actor, target.ID, "ADMIN")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, role)

	stored, err := users.GetByID(ctx, target.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, stored.Role)
	require.EqualValues(t, 1, stored.TokenVersion, "role change must revoke outstanding tokens")
	require.False(t, stored.Banned)

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.SetUserRole(ctx, actor, target.ID, "SUPERUSER")
		requireCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("cannot change own role", func(t *testing.T) {
		_, err := svc.SetUserRole(ctx, actor, self.ID, "USER")
		requireCode(t, err, "VALIDATION_FAILED")
	})
}

func TestRevokeSessions(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	svc := NewAdminService(users, nil)
	ctx := context.Background()

	actor := adminPrincipal("admin@example.com")
	target := seedUser(t, users, "target", "target@example.com", domain.RoleUser)

	version, err := svc.RevokeSessions(ctx, actor, target.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, version)

	stored, err := users.GetByID(ctx, target.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, stored.TokenVersion)
	require.False(t, stored.Banned, "revocation must not touch the ban flag")
	require.Equal(t, domain.RoleUser, stored.Role)
}

func TestStats(t *testing.T) {
	users := repository.NewMemoryUserRepository()
	svc := NewAdminService(users, nil)
	ctx := context.Background()

	actor := adminPrincipal("admin@example.com")
	seedUser(t, users, "admin", "admin@example.com", domain.RoleAdmin)
	banned := seedUser(t, users, "banned", "banned@example.com", domain.RoleUser)
	seedUser(t, users, "active", "active@example.com", domain.RoleUser)

	require.NoError(t, svc.BanUser(ctx, actor, banned.ID))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.TotalUsers)
	require.EqualValues(t, 1, stats.BannedUsers)
}
