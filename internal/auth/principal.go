package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/auth-gateway/internal/domain"
)

const principalKey = "auth_principal"

// Principal is the authenticated caller attached to a request. It lives for
// the request only and is never persisted. The Role is the one embedded in
// the token at issuance, not a fresh read of the stored role: a role change
// takes effect once the version bump invalidates the old token.
type Principal struct {
	Identity      string
	Role          domain.Role
	Authenticated bool
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Authenticated && p.Role == domain.RoleAdmin
}

func storePrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(principalKey, p)
}

// PrincipalFromContext retrieves the authenticated caller. A false return
// means the request is anonymous.
func PrincipalFromContext(c *fiber.Ctx) (Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return Principal{}, false
	}
	principal, ok := val.(Principal)
	if !ok || !principal.Authenticated {
		return Principal{}, false
	}
	return principal, true
}
