package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blogkit/auth-gateway/internal/domain"
	"github.com/blogkit/auth-gateway/internal/observability"
	apperrors "github.com/blogkit/auth-gateway/pkg/util"
)

type fakeStore struct {
	users map[string]*domain.User
	err   error
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[strings.ToLower(email)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func newTestApp(t *testing.T, store CredentialStore, failOpen bool) (*fiber.App, *TokenManager) {
	t.Helper()

	tm := NewTokenManager(testSecret, time.Hour)
	authenticator := NewAuthenticator(tm, store, zap.NewNop(), observability.NewMetrics(), failOpen)

	app := fiber.New()
	// Minimal error rendering so rejection codes are observable in tests.
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		domainErr := apperrors.ToDomainError(err)
		c.Status(domainErr.HTTPStatus)
		return c.JSON(fiber.Map{"error": domainErr.Message, "code": domainErr.Code})
	})
	app.Use(authenticator.Handle)

	app.Get("/whoami", func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.JSON(fiber.Map{"anonymous": true})
		}
		return c.JSON(fiber.Map{"identity": principal.Identity, "role": string(principal.Role)})
	})
	return app, tm
}

func doRequest(t *testing.T, app *fiber.App, token string) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestAuthenticator_NoHeaderIsAnonymous(t *testing.T) {
	app, _ := newTestApp(t, &fakeStore{}, false)

	resp, body := doRequest(t, app, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "anonymous")
}

func TestAuthenticator_UndecodableTokenIsAnonymous(t *testing.T) {
	app, _ := newTestApp(t, &fakeStore{}, false)

	resp, body := doRequest(t, app, "not-a-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "anonymous")
}

func TestAuthenticator_UnknownSubjectIsAnonymous(t *testing.T) {
	app, tm := newTestApp(t, &fakeStore{users: map[string]*domain.User{}}, false)

	token, _, err := tm.Issue("ghost@example.com", domain.RoleUser, 0)
	require.NoError(t, err)

	resp, body := doRequest(t, app, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "anonymous")
}

func TestAuthenticator_BannedIsHardReject(t *testing.T) {
	store := &fakeStore{users: map[string]*domain.User{
		"banned@example.com": {Email: "banned@example.com", Role: domain.RoleUser, Banned: true, TokenVersion: 1},
	}}
	app, tm := newTestApp(t, store, false)

	// Version matches; the ban flag alone must reject.
	token, _, err := tm.Issue("banned@example.com", domain.RoleUser, 1)
	require.NoError(t, err)

	resp, body := doRequest(t, app, token)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, body, "ACCOUNT_BANNED")
}

func TestAuthenticator_StaleVersionIsHardReject(t *testing.T) {
	store := &fakeStore{users: map[string]*domain.User{
		"u@example.com": {Email: "u@example.com", Role: domain.RoleUser, TokenVersion: 2},
	}}
	app, tm := newTestApp(t, store, false)

	token, _, err := tm.Issue("u@example.com", domain.RoleUser, 1)
	require.NoError(t, err)

	resp, body := doRequest(t, app, token)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body, "TOKEN_INVALIDATED")
}

func TestAuthenticator_VersionBoundary(t *testing.T) {
	store := &fakeStore{users: map[string]*domain.User{
		"u@example.com": {Email: "u@example.com", Role: domain.RoleUser, TokenVersion: 2},
	}}
	app, tm := newTestApp(t, store, false)

	// Equal version is accepted; greater is accepted too.
	for _, version := range []int64{2, 3} {
		token, _, err := tm.Issue("u@example.com", domain.RoleUser, version)
		require.NoError(t, err)

		resp, body := doRequest(t, app, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "u@example.com")
	}
}

func TestAuthenticator_TokenRoleWins(t *testing.T) {
	// The stored role changed without a version bump: authorization still
	// follows the token until the token is revoked.
	store := &fakeStore{users: map[string]*domain.User{
		"a@example.com": {Email: "a@example.com", Role: domain.RoleUser, TokenVersion: 0},
	}}
	app, tm := newTestApp(t, store, false)

	token, _, err := tm.Issue("a@example.com", domain.RoleAdmin, 0)
	require.NoError(t, err)

	resp, body := doRequest(t, app, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, string(domain.RoleAdmin))
}

func TestAuthenticator_StoreOutageFailsClosed(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	app, tm := newTestApp(t, store, false)

	token, _, err := tm.Issue("u@example.com", domain.RoleUser, 0)
	require.NoError(t, err)

	resp, body := doRequest(t, app, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "anonymous")
}

func TestAuthenticator_StoreOutageFailOpenOptIn(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	app, tm := newTestApp(t, store, true)

	token, _, err := tm.Issue("u@example.com", domain.RoleUser, 0)
	require.NoError(t, err)

	resp, body := doRequest(t, app, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "u@example.com")
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"", "", false},
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.header)
		require.Equal(t, tc.ok, ok, "header %q", tc.header)
		require.Equal(t, tc.want, got, "header %q", tc.header)
	}
}
