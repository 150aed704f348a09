package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Roles carried in the JWT "role" claim.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// RequireRole returns a middleware enforcing that the authenticated user
// carries one of the given roles.  It assumes JWTAuth has already stored
// the role in the context; a missing or unexpected role is treated as
// forbidden, never as an internal error.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// IsAdmin reports whether the current request carries the admin role.
// Used by handlers whose behavior widens for admins instead of being
// admin-only.
func IsAdmin(c echo.Context) bool {
	role, ok := c.Get("role").(string)
	return ok && role == RoleAdmin
}
