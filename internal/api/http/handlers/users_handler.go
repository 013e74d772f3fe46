package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/auth-gateway/internal/api/dto"
	"github.com/blogkit/auth-gateway/internal/auth"
	"github.com/blogkit/auth-gateway/internal/repository"
	apperrors "github.com/blogkit/auth-gateway/pkg/util"
)

// UsersHandler exposes the self and public profile endpoints.
type UsersHandler struct {
	users repository.UserRepository
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users repository.UserRepository) *UsersHandler {
	return &UsersHandler{users: users}
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, err := h.users.GetByEmail(c.UserContext(), principal.Identity)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(user)})
}

// Profile handles GET /users/:username.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	user, err := h.users.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.FromUserPublic(user)})
}
