package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/model"
)

// MsgForbidden is returned when the caller's role is not allowed.
const MsgForbidden = "You don't have permission to perform such action"

// RequireRole enforces that the authenticated user has one of roles.  It
// must run after Protect, which stores the role under "role".
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ctxRole).(model.Role)
			if !ok || !allowed[role] {
				return apperr.Authorization(MsgForbidden)
			}
			return next(c)
		}
	}
}
