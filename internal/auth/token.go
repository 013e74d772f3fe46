package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/blogkit/auth-gateway/internal/domain"
)

// Decode failure categories. The gateway treats all three as "no credential";
// they stay distinct for logging and metrics.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// TokenManager issues and validates signed session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Claims is the signed claim set carried by a session token. Subject is the
// account email; TokenVersion mirrors the credential record's version at
// issuance time.
type Claims struct {
	Role         domain.Role `json:"role"`
	TokenVersion int64       `json:"ver"`
	jwt.RegisteredClaims
}

// Issue builds and signs a token for the identity. Pure apart from the wall
// clock: expiry is always issuance time plus the configured TTL.
func (tm *TokenManager) Issue(identity string, role domain.Role, tokenVersion int64) (string, time.Time, error) {
	if identity == "" {
		return "", time.Time{}, errors.New("identity required")
	}
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Role:         role,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Decode verifies signature and expiry before any claim is trusted, and fails
// closed on anything it cannot verify.
func (tm *TokenManager) Decode(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS512 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	if !claims.Role.Valid() {
		return nil, ErrTokenMalformed
	}
	if claims.TokenVersion < 0 {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	default:
		return ErrTokenMalformed
	}
}
