package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/model"
)

// Context keys set by Protect.
const (
	ctxUser   = "user"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// CurrentUser returns the user resolved by Protect.  ok is false on
// routes that are not protected.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUser).(model.User)
	return u, ok
}

// userID returns the authenticated user id as a string, or "guest" when
// the request carries no session.
func userID(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
