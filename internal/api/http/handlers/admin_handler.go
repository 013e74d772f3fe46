package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/auth-gateway/internal/api/dto"
	"github.com/blogkit/auth-gateway/internal/auth"
	"github.com/blogkit/auth-gateway/internal/service"
	apperrors "github.com/blogkit/auth-gateway/pkg/util"
)

// AdminHandler exposes the admin user-management endpoints that drive the
// revocation authority.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: adminService}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)

	users, err := h.admin.ListUsers(c.UserContext(), pageSize, (page-1)*pageSize)
	if err != nil {
		return apperrors.MapError(err)
	}

	resp := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, dto.FromUser(&users[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.admin.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(user)})
}

// BanUser handles PUT /admin/users/:id/ban.
func (h *AdminHandler) BanUser(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.admin.BanUser(c.UserContext(), principal, c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "user banned", "banned": true}})
}

// UnbanUser handles PUT /admin/users/:id/unban.
func (h *AdminHandler) UnbanUser(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.admin.UnbanUser(c.UserContext(), principal, c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "user unbanned", "banned": false}})
}

// SetRole handles PUT /admin/users/:id/role.
func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	var req dto.RoleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	principal, _ := auth.PrincipalFromContext(c)
	role, err := h.admin.SetUserRole(c.UserContext(), principal, c.Params("id"), req.Role)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "user role updated", "role": role}})
}

// RevokeSessions handles POST /admin/users/:id/revoke-sessions.
func (h *AdminHandler) RevokeSessions(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	version, err := h.admin.RevokeSessions(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "sessions revoked", "token_version": version}})
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		TotalUsers:  stats.TotalUsers,
		BannedUsers: stats.BannedUsers,
	}})
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}
