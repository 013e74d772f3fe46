package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/blogkit/auth-gateway/internal/domain"
	"github.com/blogkit/auth-gateway/internal/observability"
	apperrors "github.com/blogkit/auth-gateway/pkg/util"
)

// CredentialStore is the narrow read the gateway performs on every request:
// the current credential record by stable identity. No application-level
// caching sits in front of it, so ban and version state is never staler than
// the moment the request arrived.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Authenticator is the per-request gateway filter. It resolves a bearer token
// into a Principal or a hard rejection; requests without a usable credential
// continue anonymously and are judged later by the route-class guard.
type Authenticator struct {
	tokens   *TokenManager
	store    CredentialStore
	logger   *zap.Logger
	metrics  *observability.Metrics
	failOpen bool
}

// NewAuthenticator constructs the filter. failOpen controls behavior during a
// credential store outage; see config.AuthConfig.
func NewAuthenticator(tokens *TokenManager, store CredentialStore, logger *zap.Logger, metrics *observability.Metrics, failOpen bool) *Authenticator {
	return &Authenticator{tokens: tokens, store: store, logger: logger, metrics: metrics, failOpen: failOpen}
}

// Handle runs once per inbound request, before any route handler.
func (a *Authenticator) Handle(c *fiber.Ctx) error {
	tokenStr, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Next()
	}

	claims, err := a.tokens.Decode(tokenStr)
	if err != nil {
		// Malformed, forged and expired tokens all degrade to anonymous;
		// the category is kept for observability only.
		reason := decodeReason(err)
		a.metrics.RecordAuthRejection(reason)
		a.logger.Debug("token rejected",
			zap.String("reason", reason),
			zap.String("path", c.Path()))
		return c.Next()
	}

	record, err := a.store.GetByEmail(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Next()
		}
		if a.failOpen {
			a.logger.Warn("credential store unavailable, trusting verified claims",
				zap.String("subject", claims.Subject), zap.Error(err))
			storePrincipal(c, Principal{Identity: claims.Subject, Role: claims.Role, Authenticated: true})
			return c.Next()
		}
		a.logger.Warn("credential store unavailable, failing closed",
			zap.String("subject", claims.Subject), zap.Error(err))
		return c.Next()
	}

	if record.Banned {
		a.metrics.RecordAuthRejection("banned")
		return apperrors.NewAccountBanned()
	}
	if claims.TokenVersion < record.TokenVersion {
		a.metrics.RecordAuthRejection("stale_version")
		return apperrors.NewTokenInvalidated()
	}

	storePrincipal(c, Principal{Identity: claims.Subject, Role: claims.Role, Authenticated: true})
	return c.Next()
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature):
		return "signature_invalid"
	default:
		return "malformed"
	}
}
