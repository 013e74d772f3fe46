package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blogkit/auth-gateway/internal/api/http/handlers"
	"github.com/blogkit/auth-gateway/internal/auth"
	"github.com/blogkit/auth-gateway/internal/config"
	"github.com/blogkit/auth-gateway/internal/domain"
	"github.com/blogkit/auth-gateway/internal/events"
	"github.com/blogkit/auth-gateway/internal/observability"
	"github.com/blogkit/auth-gateway/internal/persistence"
	"github.com/blogkit/auth-gateway/internal/repository"
	"github.com/blogkit/auth-gateway/internal/service"
	"github.com/blogkit/auth-gateway/internal/worker"
)

type gatewayFixture struct {
	app   *fiber.App
	users *repository.MemoryUserRepository
	auth  *service.AuthService
}

func newGateway(t *testing.T) *gatewayFixture {
	t.Helper()

	cfg := config.Config{
		App: config.AppConfig{Name: "blog-auth-gateway", Version: "test"},
		Auth: config.AuthConfig{
			JWTSecret:               "gateway-test-secret",
			TokenTTLHours:           1,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	users := repository.NewMemoryUserRepository()
	resets := repository.NewMemoryPasswordResetRepository()

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
		Dispatcher:        dispatcher,
	})
	adminService := service.NewAdminService(users, dispatcher)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authenticator := auth.NewAuthenticator(authService.TokenManager(), users, logger, metrics, false)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, &persistence.Postgres{}, &persistence.Redis{}),
		Auth:          handlers.NewAuthHandler(authService),
		Users:         handlers.NewUsersHandler(users),
		Admin:         handlers.NewAdminHandler(adminService),
		Authenticator: authenticator,
	})

	return &gatewayFixture{app: app, users: users, auth: authService}
}

func (g *gatewayFixture) request(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func (g *gatewayFixture) seedAdmin(t *testing.T) string {
	t.Helper()

	hash, err := auth.HashPassword("admin-password", 4)
	require.NoError(t, err)
	admin := &domain.User{Username: "root", Email: "root@example.com", PasswordHash: hash, Role: domain.RoleAdmin}
	require.NoError(t, g.users.Create(context.Background(), admin))

	status, body := g.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "root",
		"password": "admin-password",
	})
	require.Equal(t, http.StatusOK, status)
	return extractToken(t, body)
}

func extractToken(t *testing.T, body map[string]any) string {
	t.Helper()

	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "body: %v", body)
	authBlock, ok := data["auth"].(map[string]any)
	require.True(t, ok, "body: %v", body)
	token, ok := authBlock["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func userIDByEmail(t *testing.T, users *repository.MemoryUserRepository, email string) string {
	t.Helper()
	user, err := users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return user.ID
}

func TestGateway_BanUnbanRelogin(t *testing.T) {
	g := newGateway(t)
	adminToken := g.seedAdmin(t)

	// User U registers: tokenVersion=0, token A carries v=0.
	status, body := g.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	tokenA := extractToken(t, body)

	status, _ = g.request(t, http.MethodGet, "/users/me", tokenA, nil)
	require.Equal(t, http.StatusOK, status)

	aliceID := userIDByEmail(t, g.users, "alice@example.com")

	// Admin bans U -> tokenVersion=1, banned=true.
	status, _ = g.request(t, http.MethodPut, "/admin/users/"+aliceID+"/ban", adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	// Token A now hits the ban wall, even on a public route.
	status, body = g.request(t, http.MethodGet, "/users/me", tokenA, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "ACCOUNT_BANNED", body["code"])

	status, body = g.request(t, http.MethodGet, "/users/alice", tokenA, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "ACCOUNT_BANNED", body["code"])

	// Admin unbans U -> tokenVersion stays 1.
	status, _ = g.request(t, http.MethodPut, "/admin/users/"+aliceID+"/unban", adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	// Token A (v=0 < 1) is dead for good.
	status, body = g.request(t, http.MethodGet, "/users/me", tokenA, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "TOKEN_INVALIDATED", body["code"])

	// Fresh login issues token B with v=1.
	status, body = g.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice", "password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	tokenB := extractToken(t, body)

	status, _ = g.request(t, http.MethodGet, "/users/me", tokenB, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestGateway_RouteClasses(t *testing.T) {
	g := newGateway(t)

	status, body := g.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "bob", "email": "bob@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	userToken := extractToken(t, body)

	t.Run("anonymous on public route", func(t *testing.T) {
		status, _ := g.request(t, http.MethodGet, "/users/bob", "", nil)
		require.Equal(t, http.StatusOK, status)

		status, _ = g.request(t, http.MethodGet, "/health/live", "", nil)
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("anonymous on authenticated route", func(t *testing.T) {
		status, body := g.request(t, http.MethodGet, "/users/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "UNAUTHORIZED", body["code"])
	})

	t.Run("anonymous on admin route", func(t *testing.T) {
		status, _ := g.request(t, http.MethodGet, "/admin/users", "", nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("user on admin route", func(t *testing.T) {
		status, body := g.request(t, http.MethodGet, "/admin/users", userToken, nil)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "FORBIDDEN", body["code"])
	})
}

func TestGateway_RoleChangeRevokesToken(t *testing.T) {
	g := newGateway(t)
	adminToken := g.seedAdmin(t)

	status, body := g.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "carol", "email": "carol@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	carolToken := extractToken(t, body)
	carolID := userIDByEmail(t, g.users, "carol@example.com")

	status, _ = g.request(t, http.MethodPut, "/admin/users/"+carolID+"/role", adminToken, map[string]string{"role": "ADMIN"})
	require.Equal(t, http.StatusOK, status)

	// The old token carried the old role; the bump kills it.
	status, body = g.request(t, http.MethodGet, "/users/me", carolToken, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "TOKEN_INVALIDATED", body["code"])

	// After re-login the new role is live.
	status, body = g.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "carol", "password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	freshToken := extractToken(t, body)

	status, _ = g.request(t, http.MethodGet, "/admin/stats", freshToken, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestGateway_PasswordChangeRevokesToken(t *testing.T) {
	g := newGateway(t)

	status, body := g.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "dave", "email": "dave@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	token := extractToken(t, body)

	status, _ = g.request(t, http.MethodPost, "/auth/password/change", token, map[string]string{
		"current_password": "password123",
		"new_password":     "newpassword1",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = g.request(t, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "TOKEN_INVALIDATED", body["code"])
}

func TestGateway_AdminRevokeSessions(t *testing.T) {
	g := newGateway(t)
	adminToken := g.seedAdmin(t)

	status, body := g.request(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "erin", "email": "erin@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)
	erinToken := extractToken(t, body)
	erinID := userIDByEmail(t, g.users, "erin@example.com")

	status, _ = g.request(t, http.MethodPost, "/admin/users/"+erinID+"/revoke-sessions", adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = g.request(t, http.MethodGet, "/users/me", erinToken, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "TOKEN_INVALIDATED", body["code"])

	// Revocation is not a ban: logging in again works immediately.
	status, _ = g.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "erin", "password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
}
