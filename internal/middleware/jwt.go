package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/model"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "jwt"

// Authenticator resolves a raw session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (model.User, error)
}

// Protect rejects requests without a valid session cookie.  On success
// the user, its id and its role are stored in the echo context under
// "user", "user_id" and "role".
func Protect(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var raw string
			if ck, err := c.Cookie(SessionCookie); err == nil {
				raw = ck.Value
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := auth.Authenticate(ctx, raw)
			if err != nil {
				return err
			}
			c.Set(ctxUser, u)
			c.Set(ctxUserID, u.ID)
			c.Set(ctxRole, u.Role)
			return next(c)
		}
	}
}
