package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/auth-gateway/internal/domain"
	apperrors "github.com/blogkit/auth-gateway/pkg/util"
)

// RouteClass partitions routes by the principal they require.
type RouteClass int

const (
	RouteClassPublic RouteClass = iota
	RouteClassAuthenticated
	RouteClassAdmin
)

// Decide maps a route class and principal to allow or deny. Pure: no state,
// no I/O. An anonymous caller is the zero Principal.
func Decide(class RouteClass, principal Principal) error {
	switch class {
	case RouteClassPublic:
		return nil
	case RouteClassAuthenticated:
		if !principal.Authenticated {
			return apperrors.NewUnauthorized("authentication required")
		}
		return nil
	case RouteClassAdmin:
		if !principal.Authenticated {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role != domain.RoleAdmin {
			return apperrors.NewForbidden("admin role required")
		}
		return nil
	default:
		return apperrors.NewForbidden("unknown route class")
	}
}

// Require returns a guard middleware enforcing the route class. It assumes
// the Authenticator already ran and attached any principal.
func Require(class RouteClass) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := Decide(class, principal); err != nil {
			return err
		}
		return c.Next()
	}
}
