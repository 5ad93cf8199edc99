package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/middleware"
	"github.com/Yoseph1994/adventurehub/internal/model"
)

// requestTimeout bounds the store calls of one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func success(c echo.Context, code int, data any) error {
	return c.JSON(code, echo.Map{"status": "success", "data": data})
}

func results[T any](c echo.Context, key string, items []T) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(items),
		"data":    echo.Map{key: items},
	})
}

func message(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"status": "success", "message": msg})
}

// bind decodes the request body into v.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Validation("Invalid request body", err)
	}
	return nil
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid " + name + ": " + c.Param(name))
	}
	return id, nil
}

// actor returns the user resolved by the session gate.
func actor(c echo.Context) (model.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return model.User{}, apperr.Authentication("Must be logged in")
	}
	return u, nil
}
