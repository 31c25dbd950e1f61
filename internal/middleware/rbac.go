package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/repository"
	"github.com/noah-isme/campus-evote-api/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := normalizeRoleValue(c.Locals("user_role"))
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// ResolveAdmin loads the committee account behind the token so role changes and deletions
// take effect before the token expires. The stored role replaces the claim.
func ResolveAdmin(admins repository.AdminRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok || userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, err := models.ParseRole(normalizeRoleValue(c.Locals("user_role"))); err != nil {
			return utils.SendError(c, fiber.StatusForbidden, "admin access required")
		}

		admin, err := admins.GetByID(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.SendError(c, fiber.StatusUnauthorized, "admin account no longer exists")
			}
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to resolve admin")
		}

		c.Locals("user_role", string(admin.Role))
		c.Locals("admin", admin)
		return c.Next()
	}
}

// RequirePermission guards a route with the committee permission matrix.
func RequirePermission(resource election.Resource, action election.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := normalizeRoleValue(c.Locals("user_role"))
		if _, err := models.ParseRole(role); err != nil || !election.CanPerform(role, resource, action) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{
				"permission": string(resource) + ":" + string(action),
			})
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
